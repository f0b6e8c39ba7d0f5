package cache

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"AttendBot/internal/clock"
	"AttendBot/internal/policy"
	"AttendBot/storage/redis"
)

const (
	holidayPrefix   = "holiday"
	holidayCacheTTL = 6 * time.Hour
)

// HolidayCache 节假日查询的读穿缓存。Redis 不可用时直接回源
type HolidayCache struct {
	rdb    goredis.UniversalClient
	prefix string
	source policy.HolidayLookup
	logger *zap.Logger
}

var _ policy.HolidayLookup = (*HolidayCache)(nil)

func NewHolidayCache(rdb goredis.UniversalClient, prefix string, source policy.HolidayLookup, logger *zap.Logger) *HolidayCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HolidayCache{rdb: rdb, prefix: prefix, source: source, logger: logger}
}

func (c *HolidayCache) key(date clock.LocalDate) string {
	return redis.JoinKey(c.prefix, holidayPrefix, date.String())
}

func (c *HolidayCache) IsHoliday(ctx context.Context, date clock.LocalDate) (bool, error) {
	val, err := c.rdb.Get(ctx, c.key(date)).Result()
	switch {
	case err == nil:
		return val == "1", nil
	case err != goredis.Nil:
		c.logger.Warn("Holiday cache read failed, falling back to source",
			zap.String("date", date.String()),
			zap.Error(err),
		)
	}

	holiday, err := c.source.IsHoliday(ctx, date)
	if err != nil {
		return false, err
	}

	val = "0"
	if holiday {
		val = "1"
	}
	if err := c.rdb.Set(ctx, c.key(date), val, holidayCacheTTL).Err(); err != nil {
		c.logger.Warn("Failed to cache holiday lookup", zap.String("date", date.String()), zap.Error(err))
	}
	return holiday, nil
}

// Invalidate 节假日日历变更后清除缓存
func (c *HolidayCache) Invalidate(ctx context.Context, dates ...clock.LocalDate) error {
	if len(dates) == 0 {
		return nil
	}
	keys := make([]string, 0, len(dates))
	for _, d := range dates {
		keys = append(keys, c.key(d))
	}
	return c.rdb.Del(ctx, keys...).Err()
}
