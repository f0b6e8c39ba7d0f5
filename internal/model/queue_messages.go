package model

// ReminderKind 提醒类型
type ReminderKind string

const (
	ReminderKindAdvance       ReminderKind = "advance"        // 更早一档提醒（可选）
	ReminderKindPreCompletion ReminderKind = "pre_completion" // 完成前提醒
	ReminderKindFinal         ReminderKind = "final"          // 到点提醒
)

// ReminderMessage 提醒事件，由轮询器发布，worker 消费后交给外部通知渠道
type ReminderMessage struct {
	MessageID          string       `json:"message_id"` // 消息唯一ID，用于幂等性检查
	BatchID            string       `json:"batch_id"`   // 同一次轮询产生的消息共享
	UserID             string       `json:"user_id"`
	WorkDate           string       `json:"work_date"`
	Kind               ReminderKind `json:"kind"`
	CheckInAt          string       `json:"check_in_at"`         // RFC3339, UTC
	Checkpoint         string       `json:"checkpoint"`          // RFC3339, UTC
	ExpectedCompletion string       `json:"expected_completion"` // RFC3339, UTC
	ScheduledAt        string       `json:"scheduled_at"`
}
