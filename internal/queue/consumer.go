package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"AttendBot/internal/model"
	"AttendBot/pkg/errors"
	"AttendBot/pkg/metrics"
	"AttendBot/storage/mq"
)

// Notifier 提醒的最终送达渠道（聊天消息等），由外部实现
type Notifier interface {
	NotifyReminder(ctx context.Context, msg model.ReminderMessage) error
}

// MessageMarker 消费端幂等
type MessageMarker interface {
	TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error)
	UnmarkMessageProcessing(ctx context.Context, messageID string) error
	MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error
}

type ReminderConsumer struct {
	notifier Notifier
	marker   MessageMarker
	logger   *zap.Logger
	metrics  *metrics.AttendanceMetrics
}

func NewReminderConsumer(notifier Notifier, marker MessageMarker, logger *zap.Logger, m *metrics.AttendanceMetrics) *ReminderConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderConsumer{notifier: notifier, marker: marker, logger: logger, metrics: m}
}

// Handle 处理一条提醒消息。重复消息返回 SkipMessageError，通知失败时清除标记以便重新投递后重试
func (c *ReminderConsumer) Handle(ctx context.Context, body []byte) error {
	var msg model.ReminderMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		// 格式错误的消息重试也没有意义
		return &errors.SkipMessageError{Reason: fmt.Sprintf("malformed reminder message: %v", err)}
	}

	processing, err := c.marker.TryMarkMessageProcessing(ctx, msg.MessageID, 24*time.Hour)
	if err != nil {
		c.logger.Warn("Failed to check message processed status",
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
		// 检查失败时继续处理，可能重复提醒
	} else if !processing {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("Message %s already processed", msg.MessageID)}
	}

	if err := c.notifier.NotifyReminder(ctx, msg); err != nil {
		if uerr := c.marker.UnmarkMessageProcessing(ctx, msg.MessageID); uerr != nil {
			c.logger.Warn("Failed to unmark message", zap.String("message_id", msg.MessageID), zap.Error(uerr))
		}
		c.metrics.RecordReminder(ctx, string(msg.Kind), "notify_failed")
		return fmt.Errorf("failed to notify reminder %s: %w", msg.MessageID, err)
	}

	if err := c.marker.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
		c.logger.Warn("Failed to mark message as processed",
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
	}

	c.metrics.RecordReminder(ctx, string(msg.Kind), "delivered")
	c.logger.Info("Reminder delivered",
		zap.String("message_id", msg.MessageID),
		zap.String("user_id", msg.UserID),
		zap.String("kind", string(msg.Kind)),
	)
	return nil
}

// Start 阻塞消费提醒队列
func (c *ReminderConsumer) Start(ctx context.Context, prefetch int) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.ReminderQueue,
		ConsumerTag:   "attendance_reminder_consumer",
		PrefetchCount: prefetch,
		Handler:       c.Handle,
	})
}
