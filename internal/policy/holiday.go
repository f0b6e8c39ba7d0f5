package policy

import (
	"context"
	"sort"
	"sync"

	"AttendBot/internal/clock"
)

// HolidayLookup 节假日查询，由持久化的节假日日历实现
type HolidayLookup interface {
	IsHoliday(ctx context.Context, date clock.LocalDate) (bool, error)
}

// HolidayCalendar 支持按区间一次性读出节假日，月报统计工作日时使用
type HolidayCalendar interface {
	HolidaysBetween(ctx context.Context, from, to clock.LocalDate) ([]clock.LocalDate, error)
}

// NoHolidays 没有任何节假日
type NoHolidays struct{}

func (NoHolidays) IsHoliday(context.Context, clock.LocalDate) (bool, error) {
	return false, nil
}

// StaticHolidays 内存中的节假日集合，用于测试和本地运行
type StaticHolidays struct {
	mu    sync.RWMutex
	dates map[clock.LocalDate]bool
}

func NewStaticHolidays(dates ...clock.LocalDate) *StaticHolidays {
	h := &StaticHolidays{dates: make(map[clock.LocalDate]bool, len(dates))}
	for _, d := range dates {
		h.dates[d] = true
	}
	return h
}

func (h *StaticHolidays) Add(date clock.LocalDate) {
	h.mu.Lock()
	h.dates[date] = true
	h.mu.Unlock()
}

func (h *StaticHolidays) IsHoliday(_ context.Context, date clock.LocalDate) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dates[date], nil
}

// HolidaysBetween [from, to] 内的节假日，按日期升序
func (h *StaticHolidays) HolidaysBetween(_ context.Context, from, to clock.LocalDate) ([]clock.LocalDate, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []clock.LocalDate
	for d, ok := range h.dates {
		if ok && !d.Before(from) && !to.Before(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}
