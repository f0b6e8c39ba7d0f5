package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"AttendBot/internal/model"
	"AttendBot/storage/redis"
)

const (
	// 某个检查点的提醒已投递，轮询器据此去重
	reminderSentPrefix = "reminder:sent"
	// 消费端消息幂等
	messageProcessedPrefix = "message:processed"

	// 检查点最晚在当天结束前过期，保留两天足够覆盖跨零点的窗口
	reminderSentTTL = 48 * time.Hour
	processedTTL    = 48 * time.Hour
)

// ReminderMarks 基于 Redis 的提醒去重标记
type ReminderMarks struct {
	rdb    goredis.UniversalClient
	prefix string
}

func NewReminderMarks(rdb goredis.UniversalClient, prefix string) *ReminderMarks {
	return &ReminderMarks{rdb: rdb, prefix: prefix}
}

// reminderKey 包含签到时间：重新签到后检查点移动，需要能再次提醒
func (m *ReminderMarks) reminderKey(userID, workDate string, kind model.ReminderKind, checkIn time.Time) string {
	return redis.JoinKey(m.prefix, reminderSentPrefix, workDate, userID, string(kind), strconv.FormatInt(checkIn.Unix(), 10))
}

// TryMarkReminderSent 原子性地标记提醒已投递（SETNX）
// 返回 true 表示首次标记，false 表示该检查点已经提醒过
func (m *ReminderMarks) TryMarkReminderSent(ctx context.Context, userID, workDate string, kind model.ReminderKind, checkIn time.Time) (bool, error) {
	ok, err := m.rdb.SetNX(ctx, m.reminderKey(userID, workDate, kind, checkIn), "1", reminderSentTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return ok, nil
}

// UnmarkReminderSent 投递失败时清除标记，允许下一次轮询在容差窗口内重试
func (m *ReminderMarks) UnmarkReminderSent(ctx context.Context, userID, workDate string, kind model.ReminderKind, checkIn time.Time) error {
	return m.rdb.Del(ctx, m.reminderKey(userID, workDate, kind, checkIn)).Err()
}

// TryMarkMessageProcessing 尝试原子性地标记消息正在处理（使用 SETNX）
// 返回 true 表示成功标记（首次处理），false 表示已被标记（重复消息或正在处理）
func (m *ReminderMarks) TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	key := redis.JoinKey(m.prefix, messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}

	result, err := m.rdb.SetNX(ctx, key, "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return result, nil
}

// UnmarkMessageProcessing 取消消息处理标记（处理失败时调用，允许重试）
func (m *ReminderMarks) UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	return m.rdb.Del(ctx, redis.JoinKey(m.prefix, messageProcessedPrefix, messageID)).Err()
}

// MarkMessageProcessed 标记消息已处理（处理成功时调用，延长 TTL）
func (m *ReminderMarks) MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	key := redis.JoinKey(m.prefix, messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}
	return m.rdb.Set(ctx, key, "completed", ttl).Err()
}
