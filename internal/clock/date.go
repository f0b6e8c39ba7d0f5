package clock

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// LocalDate 组织时区下的日历日期，字符串形式 "YYYY-MM-DD" 是考勤记录的自然键
type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate 构造并规范化日期（如 2 月 30 日会被规范化为 3 月）
func NewDate(year int, month time.Month, day int) LocalDate {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return LocalDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate 解析 "YYYY-MM-DD"
func ParseDate(s string) (LocalDate, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return LocalDate{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return LocalDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d LocalDate) civil() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d LocalDate) String() string {
	return d.civil().Format(dateLayout)
}

func (d LocalDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d LocalDate) Weekday() time.Weekday {
	return d.civil().Weekday()
}

// IsWeekend 周六或周日
func (d LocalDate) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d LocalDate) AddDays(n int) LocalDate {
	return NewDate(d.Year, d.Month, d.Day+n)
}

func (d LocalDate) Before(other LocalDate) bool {
	return d.civil().Before(other.civil())
}

func (d LocalDate) After(other LocalDate) bool {
	return d.civil().After(other.civil())
}

// FirstOfMonth 当月第一天
func (d LocalDate) FirstOfMonth() LocalDate {
	return LocalDate{Year: d.Year, Month: d.Month, Day: 1}
}

// LastOfMonth 当月最后一天
func (d LocalDate) LastOfMonth() LocalDate {
	return NewDate(d.Year, d.Month+1, 0)
}

// DaysInMonth 当月天数
func (d LocalDate) DaysInMonth() int {
	return d.LastOfMonth().Day
}

// Civil 返回当天 00:00 UTC 的 time.Time，仅供日历计算（如 rrule 展开）使用，不代表真实瞬间
func (d LocalDate) Civil() time.Time {
	return d.civil()
}

// DateOf 从 Civil 形式的时间取回日期
func DateOf(civil time.Time) LocalDate {
	return LocalDate{Year: civil.Year(), Month: civil.Month(), Day: civil.Day()}
}

// MonthKey "YYYY-MM"
func (d LocalDate) MonthKey() string {
	return d.civil().Format("2006-01")
}

// ParseMonth 解析 "YYYY-MM"，返回当月第一天
func ParseMonth(s string) (LocalDate, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return LocalDate{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return LocalDate{Year: t.Year(), Month: t.Month(), Day: 1}, nil
}
