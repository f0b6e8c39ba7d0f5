package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"AttendBot/pkg/errors"
	"AttendBot/pkg/logger"
	"AttendBot/pkg/response"
	"AttendBot/storage/redis"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 时间窗口
	Window time.Duration
	// 时间窗口内最大请求数
	MaxRequests int
	// 限流键前缀
	KeyPrefix string
}

// RateLimiter 基于 zset 的滑动窗口限流，按用户计数，无身份时按 IP
type RateLimiter struct {
	rdb    goredis.UniversalClient
	prefix string
	config RateLimitConfig
}

func NewRateLimiter(rdb goredis.UniversalClient, prefix string, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{rdb: rdb, prefix: prefix, config: config}
}

func (rl *RateLimiter) key(ctx context.Context, c *app.RequestContext) string {
	identifier := "ip:" + c.ClientIP()
	if userID, ok := GetUserID(ctx, c); ok {
		identifier = "user:" + userID
	}
	return redis.JoinKey(rl.prefix, rl.config.KeyPrefix, identifier)
}

// Allow 记录本次请求并返回窗口内的请求数
func (rl *RateLimiter) Allow(ctx context.Context, key string, now time.Time) (bool, int, error) {
	windowStart := now.Add(-rl.config.Window)

	pipe := rl.rdb.Pipeline()
	// 先移除窗口外的记录
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, key, goredis.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, rl.config.Window+10*time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to execute pipeline: %w", err)
	}

	count := int(card.Val())
	return count <= rl.config.MaxRequests, count, nil
}

// Middleware Redis 故障时放行，限流不应影响签到
func (rl *RateLimiter) Middleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		allowed, count, err := rl.Allow(ctx, rl.key(ctx, c), time.Now())
		if err != nil {
			logger.Logger.Warn("Rate limit check failed, allowing request", zap.Error(err))
			c.Next(ctx)
			return
		}

		remaining := rl.config.MaxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.MaxRequests))
		c.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			response.Error(ctx, c, errors.RateLimited)
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}
