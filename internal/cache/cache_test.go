package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AttendBot/internal/attendance"
	"AttendBot/internal/clock"
	"AttendBot/internal/model"
	"AttendBot/internal/policy"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisLockerMutualExclusion(t *testing.T) {
	_, rdb := newTestRedis(t)
	locker := NewRedisLocker(rdb, "test", time.Second, 2*time.Second)
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "attendance:u1:2025-06-17")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestRedisLockerBusy(t *testing.T) {
	_, rdb := newTestRedis(t)
	locker := NewRedisLocker(rdb, "test", time.Minute, 50*time.Millisecond)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "k")
	require.NoError(t, err)

	_, err = locker.Lock(ctx, "k")
	assert.ErrorIs(t, err, attendance.ErrLockBusy)

	unlock()
	unlock2, err := locker.Lock(ctx, "k")
	require.NoError(t, err)
	unlock2()
}

func TestRedisLockerUnlockOnlyOwnToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	locker := NewRedisLocker(rdb, "test", time.Second, 50*time.Millisecond)
	ctx := context.Background()

	ok, token, err := locker.TryLock(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	// 锁过期后被别人拿走，旧令牌不能把它删掉
	mr.FastForward(2 * time.Second)
	ok, _, err = locker.TryLock(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locker.Unlock(ctx, "k", token))
	assert.True(t, mr.Exists("test:lock:k"))
}

func TestReminderMarks(t *testing.T) {
	_, rdb := newTestRedis(t)
	marks := NewReminderMarks(rdb, "test")
	ctx := context.Background()
	checkIn := time.Date(2025, 6, 17, 1, 30, 0, 0, time.UTC)

	ok, err := marks.TryMarkReminderSent(ctx, "u1", "2025-06-17", model.ReminderKindPreCompletion, checkIn)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = marks.TryMarkReminderSent(ctx, "u1", "2025-06-17", model.ReminderKindPreCompletion, checkIn)
	require.NoError(t, err)
	assert.False(t, ok)

	// 不同类型互不影响
	ok, err = marks.TryMarkReminderSent(ctx, "u1", "2025-06-17", model.ReminderKindFinal, checkIn)
	require.NoError(t, err)
	assert.True(t, ok)

	// 重新签到后是新的检查点
	ok, err = marks.TryMarkReminderSent(ctx, "u1", "2025-06-17", model.ReminderKindPreCompletion, checkIn.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, marks.UnmarkReminderSent(ctx, "u1", "2025-06-17", model.ReminderKindPreCompletion, checkIn))
	ok, err = marks.TryMarkReminderSent(ctx, "u1", "2025-06-17", model.ReminderKindPreCompletion, checkIn)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMessageProcessingMarks(t *testing.T) {
	mr, rdb := newTestRedis(t)
	marks := NewReminderMarks(rdb, "test")
	ctx := context.Background()

	ok, err := marks.TryMarkMessageProcessing(ctx, "m1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = marks.TryMarkMessageProcessing(ctx, "m1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, marks.MarkMessageProcessed(ctx, "m1", 0))
	val, err := mr.Get("test:message:processed:m1")
	require.NoError(t, err)
	assert.Equal(t, "completed", val)

	require.NoError(t, marks.UnmarkMessageProcessing(ctx, "m1"))
	assert.False(t, mr.Exists("test:message:processed:m1"))
}

type countingHolidays struct {
	calls int32
	days  map[clock.LocalDate]bool
}

func (c *countingHolidays) IsHoliday(_ context.Context, d clock.LocalDate) (bool, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.days[d], nil
}

func TestHolidayCacheReadThrough(t *testing.T) {
	mr, rdb := newTestRedis(t)
	national := clock.NewDate(2025, time.September, 2)
	source := &countingHolidays{days: map[clock.LocalDate]bool{national: true}}
	cache := NewHolidayCache(rdb, "test", source, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := cache.IsHoliday(ctx, national)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&source.calls))

	ok, err := cache.IsHoliday(ctx, national.AddDays(1))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int32(2), atomic.LoadInt32(&source.calls))

	require.NoError(t, cache.Invalidate(ctx, national))
	_, err = cache.IsHoliday(ctx, national)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&source.calls))

	// Redis 不可用时回源
	mr.Close()
	ok, err = cache.IsHoliday(ctx, national)
	require.NoError(t, err)
	assert.True(t, ok)
}

var _ policy.HolidayLookup = (*countingHolidays)(nil)
