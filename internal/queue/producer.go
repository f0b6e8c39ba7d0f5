package queue

import (
	"context"

	"go.uber.org/zap"

	"AttendBot/internal/model"
	"AttendBot/storage/mq"
)

// ReminderRoutingKey attendance.reminder.<kind>
func ReminderRoutingKey(kind model.ReminderKind) string {
	return mq.ReminderExchange + "." + string(kind)
}

// ReminderPublisher 把提醒事件发布到 RabbitMQ
type ReminderPublisher struct {
	logger *zap.Logger
}

func NewReminderPublisher(logger *zap.Logger) *ReminderPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderPublisher{logger: logger}
}

// PublishReminder 发布提醒消息
func (p *ReminderPublisher) PublishReminder(ctx context.Context, msg model.ReminderMessage) error {
	routingKey := ReminderRoutingKey(msg.Kind)

	err := mq.PublishMessage(ctx, mq.ReminderExchange, routingKey, msg.MessageID, msg)
	if err != nil {
		p.logger.Error("Failed to publish reminder message",
			zap.String("message_id", msg.MessageID),
			zap.String("user_id", msg.UserID),
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		return err
	}

	p.logger.Debug("Published reminder message",
		zap.String("message_id", msg.MessageID),
		zap.String("batch_id", msg.BatchID),
		zap.String("user_id", msg.UserID),
		zap.String("routing_key", routingKey),
	)
	return nil
}
