package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AttendBot/internal/clock"
	"AttendBot/internal/model"
	"AttendBot/internal/policy"
	"AttendBot/internal/repository"
)

var ict = clock.FixedZone("ICT", 7*time.Hour)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.June, day, hour, minute, 0, 0, time.UTC).Add(-7 * time.Hour)
}

func closed(userID string, day int, in, out time.Time, status model.AttendanceStatus) *model.AttendanceRecord {
	return &model.AttendanceRecord{
		UserID:     userID,
		WorkDate:   clock.NewDate(2025, time.June, day).String(),
		CheckInAt:  in,
		CheckOutAt: &out,
		Status:     status,
	}
}

func TestWeekdays(t *testing.T) {
	days, err := Weekdays(clock.NewDate(2025, time.June, 17))
	require.NoError(t, err)
	require.Len(t, days, 21)
	assert.Equal(t, clock.NewDate(2025, time.June, 2), days[0])
	assert.Equal(t, clock.NewDate(2025, time.June, 30), days[len(days)-1])
	for _, d := range days {
		assert.False(t, d.IsWeekend(), d.String())
	}

	feb, err := Weekdays(clock.NewDate(2024, time.February, 1))
	require.NoError(t, err)
	assert.Len(t, feb, 21)
}

func TestMonthly(t *testing.T) {
	store := repository.NewMemoryAttendanceStore()
	holidays := policy.NewStaticHolidays(clock.NewDate(2025, time.June, 18))
	evaluator := policy.NewEvaluator(policy.Default(ict), holidays, nil)
	agg := NewAggregator(store, evaluator, nil)

	// 满勤 9.5h
	store.Put(closed("u1", 2, at(2, 8, 0), at(2, 17, 30), model.AttendanceStatusCheckedOut))
	// 不足 6h
	store.Put(closed("u1", 3, at(3, 9, 0), at(3, 15, 0), model.AttendanceStatusCheckedOut))
	// 零点自动关闭：计入出勤但不计工时
	store.Put(closed("u1", 4, at(4, 9, 0), at(5, 0, 0), model.AttendanceStatusAutoCheckoutMidnight))
	// 其他月份和其他用户不计入
	store.Put(&model.AttendanceRecord{UserID: "u1", WorkDate: "2025-07-01", CheckInAt: at(31, 8, 0), Status: model.AttendanceStatusCheckedIn})
	store.Put(closed("u2", 2, at(2, 8, 0), at(2, 17, 0), model.AttendanceStatusCheckedOut))

	r, err := agg.Monthly(context.Background(), "u1", 2025, time.June)
	require.NoError(t, err)

	assert.Equal(t, "2025-06", r.Month)
	assert.Equal(t, 20, r.WorkingDays)
	assert.Equal(t, 3, r.DaysWorked)
	assert.Equal(t, 1, r.FullDays)
	assert.Equal(t, 2, r.IncompleteDays)
	assert.Equal(t, 1, r.AutoClosedDays)
	assert.True(t, r.TotalHours.Equal(decimal.RequireFromString("15.5")), r.TotalHours.String())
	assert.True(t, r.AverageHours.Equal(decimal.RequireFromString("5.17")), r.AverageHours.String())
	assert.True(t, r.AttendanceRate.Equal(decimal.NewFromInt(15)), r.AttendanceRate.String())
	assert.True(t, r.ComplianceRate.Equal(decimal.RequireFromString("33.33")), r.ComplianceRate.String())
}

func TestMonthlyWithNoRecords(t *testing.T) {
	store := repository.NewMemoryAttendanceStore()
	agg := NewAggregator(store, policy.NewEvaluator(policy.Default(ict), nil, nil), nil)

	r, err := agg.Monthly(context.Background(), "nobody", 2025, time.June)
	require.NoError(t, err)
	assert.Equal(t, 21, r.WorkingDays)
	assert.Zero(t, r.DaysWorked)
	assert.True(t, r.AttendanceRate.IsZero())
	assert.True(t, r.ComplianceRate.IsZero())
	assert.True(t, r.AverageHours.IsZero())
}

func TestRateBounds(t *testing.T) {
	tests := []struct {
		num, den int
		want     string
	}{
		{0, 0, "0"},
		{3, 0, "0"},
		{0, 20, "0"},
		{20, 20, "100"},
		{25, 20, "100"},
		{1, 3, "33.33"},
	}
	for _, tt := range tests {
		got := rate(tt.num, tt.den)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "rate(%d,%d)=%s", tt.num, tt.den, got)
		assert.False(t, got.IsNegative())
		assert.False(t, got.GreaterThan(hundred))
	}
}

func TestMonthlyRejectsInvalidMonth(t *testing.T) {
	agg := NewAggregator(repository.NewMemoryAttendanceStore(), policy.NewEvaluator(policy.Default(ict), nil, nil), nil)
	_, err := agg.Monthly(context.Background(), "u1", 2025, time.Month(13))
	assert.Error(t, err)
}

type countingCalendar struct {
	*policy.StaticHolidays
	rangeCalls int
	err        error
}

func (c *countingCalendar) HolidaysBetween(ctx context.Context, from, to clock.LocalDate) ([]clock.LocalDate, error) {
	c.rangeCalls++
	if c.err != nil {
		return nil, c.err
	}
	return c.StaticHolidays.HolidaysBetween(ctx, from, to)
}

func TestWorkingDaysUsesHolidayCalendar(t *testing.T) {
	// 周六的节假日不影响工作日数
	cal := &countingCalendar{StaticHolidays: policy.NewStaticHolidays(
		clock.NewDate(2025, time.June, 18),
		clock.NewDate(2025, time.June, 21),
	)}
	agg := NewAggregator(repository.NewMemoryAttendanceStore(),
		policy.NewEvaluator(policy.Default(ict), nil, nil), nil,
		WithHolidayCalendar(cal),
	)

	n, err := agg.WorkingDays(context.Background(), clock.NewDate(2025, time.June, 1))
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	assert.Equal(t, 1, cal.rangeCalls)
}

func TestWorkingDaysFallsBackWhenCalendarFails(t *testing.T) {
	holidays := policy.NewStaticHolidays(clock.NewDate(2025, time.June, 18))
	cal := &countingCalendar{StaticHolidays: holidays, err: errors.New("db down")}
	agg := NewAggregator(repository.NewMemoryAttendanceStore(),
		policy.NewEvaluator(policy.Default(ict), holidays, nil), nil,
		WithHolidayCalendar(cal),
	)

	n, err := agg.WorkingDays(context.Background(), clock.NewDate(2025, time.June, 1))
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	assert.Equal(t, 1, cal.rangeCalls)
}
