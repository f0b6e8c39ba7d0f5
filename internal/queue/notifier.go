package queue

import (
	"context"

	"go.uber.org/zap"

	"AttendBot/internal/model"
)

// LogNotifier 只记录日志的通知渠道，未接入聊天平台时使用
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyReminder(_ context.Context, msg model.ReminderMessage) error {
	n.logger.Info("Attendance reminder",
		zap.String("user_id", msg.UserID),
		zap.String("work_date", msg.WorkDate),
		zap.String("kind", string(msg.Kind)),
		zap.String("expected_completion", msg.ExpectedCompletion),
	)
	return nil
}
