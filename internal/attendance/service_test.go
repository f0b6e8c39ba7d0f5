package attendance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AttendBot/internal/attendance"
	"AttendBot/internal/clock"
	"AttendBot/internal/model"
	"AttendBot/internal/policy"
	"AttendBot/internal/repository"
)

var ict = clock.FixedZone("ICT", 7*time.Hour)

// at 当地时间 2025-06-<day> hh:mm 对应的 UTC 瞬间。6 月 16 日是周一
func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.June, day, hour, minute, 0, 0, time.UTC).Add(-7 * time.Hour)
}

type fixture struct {
	svc      *attendance.Service
	store    *repository.MemoryAttendanceStore
	holidays *policy.StaticHolidays
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := repository.NewMemoryAttendanceStore()
	holidays := policy.NewStaticHolidays()
	evaluator := policy.NewEvaluator(policy.Default(ict), holidays, nil)
	return fixture{
		svc:      attendance.NewService(store, evaluator),
		store:    store,
		holidays: holidays,
	}
}

func TestCheckInOnTime(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.CheckIn(context.Background(), "u1", at(17, 8, 30))
	require.NoError(t, err)

	assert.Equal(t, attendance.OutcomeAccepted, res.Outcome)
	assert.True(t, res.OK())
	assert.Equal(t, "2025-06-17", res.WorkDate)
	assert.Equal(t, policy.TimingOnTime, res.Timing)
	assert.True(t, res.ExpectedCompletion.Equal(at(17, 17, 30)))
	assert.Equal(t, 1, f.store.Len())
}

func TestCheckInEarlyUsesStandardEndOfDay(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.CheckIn(context.Background(), "u1", at(17, 7, 15))
	require.NoError(t, err)

	assert.Equal(t, policy.TimingEarly, res.Timing)
	assert.True(t, res.ExpectedCompletion.Equal(at(17, 17, 0)))
}

func TestCheckInRejections(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		code string
	}{
		{name: "after window", now: at(17, 11, 1), code: string(policy.ReasonTooLate)},
		{name: "saturday", now: at(21, 9, 0), code: string(policy.ReasonNonWorkingDay)},
		{name: "holiday", now: at(18, 9, 0), code: string(policy.ReasonHoliday)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.holidays.Add(clock.NewDate(2025, time.June, 18))

			res, err := f.svc.CheckIn(context.Background(), "u1", tt.now)
			require.NoError(t, err)
			assert.Equal(t, attendance.OutcomeRejected, res.Outcome)
			assert.Equal(t, tt.code, res.Code)
			assert.False(t, res.OK())
			assert.Equal(t, 0, f.store.Len())
		})
	}
}

func TestCheckInAtWindowCloseIsAccepted(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.CheckIn(context.Background(), "u1", at(17, 11, 0))
	require.NoError(t, err)
	assert.Equal(t, attendance.OutcomeAccepted, res.Outcome)
	assert.Equal(t, policy.TimingOnTime, res.Timing)
}

func TestDuplicateCheckInReturnsExistingRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, "u1", at(17, 8, 30))
	require.NoError(t, err)

	res, err := f.svc.CheckIn(ctx, "u1", at(17, 9, 45))
	require.NoError(t, err)
	assert.Equal(t, attendance.OutcomeConflict, res.Outcome)
	assert.Equal(t, attendance.CodeAlreadyCheckedIn, res.Code)
	assert.True(t, res.CheckInAt.Equal(at(17, 8, 30)))
	assert.True(t, res.ExpectedCompletion.Equal(at(17, 17, 30)))
	assert.Equal(t, 1, f.store.Len())
}

func TestCheckOutIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, "u1", at(17, 8, 0))
	require.NoError(t, err)

	first, err := f.svc.CheckOut(ctx, "u1", at(17, 17, 30))
	require.NoError(t, err)
	assert.Equal(t, attendance.OutcomeAccepted, first.Outcome)
	assert.Equal(t, model.AttendanceStatusCheckedOut, first.Status)
	assert.Equal(t, 9*time.Hour+30*time.Minute, first.Worked)
	assert.True(t, first.ActualHours.Equal(decimal.RequireFromString("9.5")))
	assert.True(t, first.IsComplete)
	assert.Zero(t, first.Shortfall)

	second, err := f.svc.CheckOut(ctx, "u1", at(17, 18, 45))
	require.NoError(t, err)
	assert.Equal(t, attendance.OutcomeConflict, second.Outcome)
	assert.Equal(t, attendance.CodeAlreadyCheckedOut, second.Code)
	assert.True(t, second.CheckOutAt.Equal(first.CheckOutAt))
	assert.Equal(t, first.Worked, second.Worked)
}

func TestCheckOutShortDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, "u1", at(17, 9, 0))
	require.NoError(t, err)

	res, err := f.svc.CheckOut(ctx, "u1", at(17, 15, 0))
	require.NoError(t, err)
	assert.False(t, res.IsComplete)
	assert.Equal(t, 3*time.Hour, res.Shortfall)
	assert.True(t, res.ActualHours.Equal(decimal.NewFromInt(6)))
}

func TestCheckOutWithoutCheckIn(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.CheckOut(context.Background(), "u1", at(17, 17, 0))
	require.NoError(t, err)
	assert.Equal(t, attendance.OutcomeConflict, res.Outcome)
	assert.Equal(t, attendance.CodeNoCheckInToday, res.Code)
	assert.Equal(t, 0, f.store.Len())
}

func TestReentryResetsCheckIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, "u1", at(17, 8, 0))
	require.NoError(t, err)
	_, err = f.svc.CheckOut(ctx, "u1", at(17, 9, 0))
	require.NoError(t, err)

	res, err := f.svc.CheckIn(ctx, "u1", at(17, 10, 0))
	require.NoError(t, err)
	assert.Equal(t, attendance.OutcomeReopened, res.Outcome)
	assert.True(t, res.CheckInAt.Equal(at(17, 10, 0)))
	assert.True(t, res.ExpectedCompletion.Equal(at(17, 19, 0)))

	rec, err := f.store.FindByKey(ctx, "u1", "2025-06-17")
	require.NoError(t, err)
	assert.Equal(t, model.AttendanceStatusCheckedIn, rec.Status)
	assert.Nil(t, rec.CheckOutAt)
	assert.True(t, rec.CheckInAt.Equal(at(17, 10, 0)))
	assert.Equal(t, 1, f.store.Len())
}

func TestConcurrentCheckInCreatesOneRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := at(17, 8, 30)

	const n = 16
	results := make([]attendance.CheckInResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.CheckIn(ctx, "u1", now)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, res := range results {
		switch res.Outcome {
		case attendance.OutcomeAccepted:
			accepted++
		case attendance.OutcomeConflict:
			assert.Equal(t, attendance.CodeAlreadyCheckedIn, res.Code)
		default:
			t.Errorf("unexpected outcome %q", res.Outcome)
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, f.store.Len())
}

func TestGetToday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status, err := f.svc.GetToday(ctx, "u1", at(17, 8, 0))
	require.NoError(t, err)
	assert.Nil(t, status)

	_, err = f.svc.CheckIn(ctx, "u1", at(17, 8, 0))
	require.NoError(t, err)

	status, err = f.svc.GetToday(ctx, "u1", at(17, 12, 0))
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, "2025-06-17", status.WorkDate)
	assert.Equal(t, policy.TimingOnTime, status.Timing)
	assert.True(t, status.ExpectedCompletion.Equal(at(17, 17, 0)))
	assert.True(t, status.PreCompletionAt.Equal(at(17, 16, 50)))
	assert.Zero(t, status.Worked)
}

func TestAutoCloseAtMidnight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, "forgot", at(16, 8, 30))
	require.NoError(t, err)
	_, err = f.svc.CheckIn(ctx, "done", at(16, 8, 30))
	require.NoError(t, err)
	_, err = f.svc.CheckOut(ctx, "done", at(16, 18, 0))
	require.NoError(t, err)

	// 当天之内不会关闭
	n, err := f.svc.AutoClose(ctx, at(16, 23, 59))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.svc.AutoClose(ctx, at(17, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := f.store.FindByKey(ctx, "forgot", "2025-06-16")
	require.NoError(t, err)
	assert.Equal(t, model.AttendanceStatusAutoCheckoutMidnight, rec.Status)
	require.NotNil(t, rec.CheckOutAt)
	assert.True(t, rec.CheckOutAt.Equal(at(17, 0, 0)))

	// 第二次清扫没有可关闭的记录
	n, err = f.svc.AutoClose(ctx, at(17, 0, 10))
	require.NoError(t, err)
	assert.Zero(t, n)

	done, err := f.store.FindByKey(ctx, "done", "2025-06-16")
	require.NoError(t, err)
	assert.Equal(t, model.AttendanceStatusCheckedOut, done.Status)
}

func TestAutoClosedRecordCannotBeReopened(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Put(&model.AttendanceRecord{
		UserID:     "u1",
		WorkDate:   "2025-06-17",
		CheckInAt:  at(17, 8, 0),
		CheckOutAt: func() *time.Time { t := at(18, 0, 0); return &t }(),
		Status:     model.AttendanceStatusAutoCheckoutMidnight,
	})

	res, err := f.svc.CheckIn(ctx, "u1", at(17, 9, 0))
	require.NoError(t, err)
	assert.Equal(t, attendance.OutcomeConflict, res.Outcome)
	assert.Equal(t, attendance.CodeAlreadyCheckedOut, res.Code)
	require.NotNil(t, res.CheckOutAt)
}

func TestCheckOutRejectsClosedRecordWithoutCheckOutTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Put(&model.AttendanceRecord{
		UserID:    "u1",
		WorkDate:  "2025-06-17",
		CheckInAt: at(17, 8, 0),
		Status:    model.AttendanceStatusCheckedOut,
	})

	var (
		res attendance.CheckOutResult
		err error
	)
	require.NotPanics(t, func() {
		res, err = f.svc.CheckOut(ctx, "u1", at(17, 18, 0))
	})
	require.ErrorIs(t, err, attendance.ErrInconsistentRecord)
	assert.False(t, attendance.IsRetryable(err))
	assert.Empty(t, res.Outcome)
}

func TestOpenRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, "a", at(17, 8, 0))
	require.NoError(t, err)
	_, err = f.svc.CheckIn(ctx, "b", at(17, 8, 5))
	require.NoError(t, err)
	_, err = f.svc.CheckOut(ctx, "b", at(17, 12, 0))
	require.NoError(t, err)

	open, err := f.svc.OpenRecords(ctx, clock.NewDate(2025, time.June, 17))
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "a", open[0].UserID)
}

func TestLocalLockerRespectsContext(t *testing.T) {
	l := attendance.NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, attendance.ErrLockBusy)
	assert.True(t, attendance.IsRetryable(err))

	unlock()
	unlock2, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock2()
}
