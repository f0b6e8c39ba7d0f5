// Package report 月度考勤汇总，只读，基于已存储的记录
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"AttendBot/internal/attendance"
	"AttendBot/internal/clock"
	"AttendBot/internal/model"
	"AttendBot/internal/policy"
)

var hundred = decimal.NewFromInt(100)

// RecordLister 月报只需要按用户和日期区间读取记录
type RecordLister interface {
	ListByUserBetween(ctx context.Context, userID, from, to string) ([]*model.AttendanceRecord, error)
}

// MonthlyReport 某用户某月的考勤汇总
type MonthlyReport struct {
	UserID         string          `json:"user_id"`
	Month          string          `json:"month"` // YYYY-MM
	WorkingDays    int             `json:"working_days"`
	DaysWorked     int             `json:"days_worked"`
	FullDays       int             `json:"full_days"`
	IncompleteDays int             `json:"incomplete_days"`
	AutoClosedDays int             `json:"auto_closed_days"`
	TotalHours     decimal.Decimal `json:"total_hours"`
	AverageHours   decimal.Decimal `json:"average_hours"`
	AttendanceRate decimal.Decimal `json:"attendance_rate"`
	ComplianceRate decimal.Decimal `json:"compliance_rate"`
}

type Aggregator struct {
	records   RecordLister
	evaluator *policy.Evaluator
	calendar  policy.HolidayCalendar
	logger    *zap.Logger
}

type AggregatorOption func(*Aggregator)

// WithHolidayCalendar 统计工作日时一次性读出当月节假日，不再逐日查询
func WithHolidayCalendar(calendar policy.HolidayCalendar) AggregatorOption {
	return func(a *Aggregator) { a.calendar = calendar }
}

func NewAggregator(records RecordLister, evaluator *policy.Evaluator, logger *zap.Logger, opts ...AggregatorOption) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggregator{records: records, evaluator: evaluator, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Monthly 汇总 year-month 的考勤。
// 出勤天数为当月记录数；工时只取手动签退的记录，未关闭和零点自动关闭的记录计入出勤但不计工时
func (a *Aggregator) Monthly(ctx context.Context, userID string, year int, month time.Month) (MonthlyReport, error) {
	if month < time.January || month > time.December {
		return MonthlyReport{}, fmt.Errorf("invalid month %d", month)
	}
	first := clock.NewDate(year, month, 1)
	last := first.LastOfMonth()

	workingDays, err := a.WorkingDays(ctx, first)
	if err != nil {
		return MonthlyReport{}, err
	}

	records, err := a.records.ListByUserBetween(ctx, userID, first.String(), last.String())
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("monthly report %s %s: %w", userID, first.MonthKey(), err)
	}

	report := MonthlyReport{
		UserID:      userID,
		Month:       first.MonthKey(),
		WorkingDays: workingDays,
		TotalHours:  decimal.Zero,
	}

	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if seen[rec.WorkDate] {
			continue
		}
		seen[rec.WorkDate] = true
		report.DaysWorked++

		switch rec.Status {
		case model.AttendanceStatusCheckedOut:
			worked := rec.Worked()
			report.TotalHours = report.TotalHours.Add(attendance.Hours(worked))
			if a.evaluator.IsFullDay(worked) {
				report.FullDays++
			} else {
				report.IncompleteDays++
			}
		case model.AttendanceStatusAutoCheckoutMidnight:
			report.AutoClosedDays++
			report.IncompleteDays++
		default:
			report.IncompleteDays++
		}
	}

	report.AttendanceRate = rate(report.DaysWorked, report.WorkingDays)
	report.ComplianceRate = rate(report.FullDays, report.DaysWorked)
	report.AverageHours = decimal.Zero
	if report.DaysWorked > 0 {
		report.AverageHours = report.TotalHours.Div(decimal.NewFromInt(int64(report.DaysWorked))).Round(2)
	}

	a.logger.Debug("Monthly report computed",
		zap.String("user_id", userID),
		zap.String("month", report.Month),
		zap.Int("working_days", report.WorkingDays),
		zap.Int("days_worked", report.DaysWorked),
	)
	return report, nil
}

// WorkingDays 当月周一至周五且不是节假日的天数
func (a *Aggregator) WorkingDays(ctx context.Context, anyDayInMonth clock.LocalDate) (int, error) {
	weekdays, err := Weekdays(anyDayInMonth)
	if err != nil {
		return 0, err
	}

	if a.calendar != nil {
		holidays, err := a.calendar.HolidaysBetween(ctx, anyDayInMonth.FirstOfMonth(), anyDayInMonth.LastOfMonth())
		if err == nil {
			off := make(map[clock.LocalDate]bool, len(holidays))
			for _, d := range holidays {
				off[d] = true
			}
			n := 0
			for _, d := range weekdays {
				if !off[d] {
					n++
				}
			}
			return n, nil
		}
		a.logger.Warn("Holiday range lookup failed, falling back to per-day lookup",
			zap.String("month", anyDayInMonth.MonthKey()),
			zap.Error(err),
		)
	}

	n := 0
	for _, d := range weekdays {
		if ok, _ := a.evaluator.IsWorkingDay(ctx, d); ok {
			n++
		}
	}
	return n, nil
}

// Weekdays 当月所有周一至周五的日期
func Weekdays(anyDayInMonth clock.LocalDate) ([]clock.LocalDate, error) {
	first := anyDayInMonth.FirstOfMonth()
	last := anyDayInMonth.LastOfMonth()

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR},
		Dtstart:   first.Civil(),
		Until:     last.Civil(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build weekday rule: %w", err)
	}

	occurrences := r.All()
	dates := make([]clock.LocalDate, 0, len(occurrences))
	for _, t := range occurrences {
		dates = append(dates, clock.DateOf(t))
	}
	return dates, nil
}

// rate num / den × 100，限制在 [0, 100]，分母为 0 时为 0
func rate(num, den int) decimal.Decimal {
	if den <= 0 || num <= 0 {
		return decimal.Zero
	}
	r := decimal.NewFromInt(int64(num)).Mul(hundred).Div(decimal.NewFromInt(int64(den))).Round(2)
	if r.GreaterThan(hundred) {
		return hundred
	}
	return r
}
