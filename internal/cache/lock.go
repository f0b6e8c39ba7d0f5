package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"AttendBot/internal/attendance"
	"AttendBot/storage/redis"
)

// 分布式锁：同一 (user, work_date) 的修改在多实例间串行，SetNX + TTL 防止持锁进程崩溃后死锁
const (
	lockPrefix = "lock"

	defaultLockTTL   = 5 * time.Second
	defaultLockWait  = 3 * time.Second
	lockRetryBackoff = 25 * time.Millisecond
)

// 只删除自己持有的锁，避免 TTL 过期后误删别人的锁
var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

var _ attendance.Locker = (*RedisLocker)(nil)

// NewRedisLocker ttl 为锁的最长持有时间，wait 为获取锁的最长等待时间
func NewRedisLocker(rdb goredis.UniversalClient, prefix string, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &RedisLocker{rdb: rdb, prefix: prefix, ttl: ttl, wait: wait}
}

// TryLock 单次尝试，返回是否拿到锁以及持有令牌
func (l *RedisLocker) TryLock(ctx context.Context, key string) (bool, string, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, redis.JoinKey(l.prefix, lockPrefix, key), token, l.ttl).Result()
	if err != nil {
		return false, "", fmt.Errorf("%w: acquire lock %s: %v", attendance.ErrStoreUnavailable, key, err)
	}
	return ok, token, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	return unlockScript.Run(ctx, l.rdb, []string{redis.JoinKey(l.prefix, lockPrefix, key)}, token).Err()
}

// Lock 在 wait 时间内轮询获取锁，超时返回 ErrLockBusy
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(lockRetryBackoff)
	defer ticker.Stop()

	for {
		ok, token, err := l.TryLock(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// 释放锁不受调用方 ctx 取消影响
				unlockCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = l.Unlock(unlockCtx, key, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", attendance.ErrLockBusy, key)
		case <-ticker.C:
		}
	}
}
