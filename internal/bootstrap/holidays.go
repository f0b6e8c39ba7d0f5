package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"AttendBot/internal/clock"
	"AttendBot/internal/model"
)

type HolidayWriter interface {
	Upsert(ctx context.Context, h *model.Holiday) error
}

type HolidayInvalidator interface {
	Invalidate(ctx context.Context, dates ...clock.LocalDate) error
}

// ParseHolidays 解析 "2025-09-02:Quoc Khanh" 形式的条目，名称可省略
func ParseHolidays(entries []string) ([]*model.Holiday, error) {
	holidays := make([]*model.Holiday, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		date, name, _ := strings.Cut(entry, ":")
		d, err := clock.ParseDate(strings.TrimSpace(date))
		if err != nil {
			return nil, fmt.Errorf("HOLIDAYS entry %q: %w", entry, err)
		}
		holidays = append(holidays, &model.Holiday{
			Date:     d.String(),
			Name:     strings.TrimSpace(name),
			IsActive: true,
		})
	}
	return holidays, nil
}

// SeedHolidays 把配置中的节假日写入日历，并清掉这些日期的缓存
func SeedHolidays(ctx context.Context, w HolidayWriter, inv HolidayInvalidator, entries []string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	holidays, err := ParseHolidays(entries)
	if err != nil {
		return err
	}
	if len(holidays) == 0 {
		return nil
	}

	dates := make([]clock.LocalDate, 0, len(holidays))
	for _, h := range holidays {
		if err := w.Upsert(ctx, h); err != nil {
			return err
		}
		d, _ := clock.ParseDate(h.Date)
		dates = append(dates, d)
	}

	if inv != nil {
		if err := inv.Invalidate(ctx, dates...); err != nil {
			log.Warn("Failed to invalidate holiday cache", zap.Error(err))
		}
	}
	log.Info("Holidays seeded", zap.Int("count", len(holidays)))
	return nil
}
