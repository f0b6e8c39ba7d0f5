package attendance

import (
	"context"
	"time"

	"AttendBot/internal/model"
)

// RecordPatch 记录的部分更新
type RecordPatch struct {
	CheckInAt     *time.Time
	CheckOutAt    *time.Time
	ClearCheckOut bool
	Status        model.AttendanceStatus
}

// Apply 把补丁应用到内存中的记录上
func (p RecordPatch) Apply(rec *model.AttendanceRecord) {
	if p.CheckInAt != nil {
		rec.CheckInAt = p.CheckInAt.UTC()
	}
	if p.ClearCheckOut {
		rec.CheckOutAt = nil
	}
	if p.CheckOutAt != nil {
		out := p.CheckOutAt.UTC()
		rec.CheckOutAt = &out
	}
	if p.Status != "" {
		rec.Status = p.Status
	}
}

// Store 考勤记录存储。日期参数均为本地日期键 "YYYY-MM-DD"
type Store interface {
	// FindByKey 不存在时返回 (nil, nil)
	FindByKey(ctx context.Context, userID, workDate string) (*model.AttendanceRecord, error)
	// Create 同一 key 已存在时返回 ErrDuplicateKey
	Create(ctx context.Context, rec *model.AttendanceRecord) error
	Update(ctx context.Context, id int64, patch RecordPatch) error
	// ListOpen 指定日期仍处于签到状态的记录
	ListOpen(ctx context.Context, workDate string) ([]*model.AttendanceRecord, error)
	// ListOpenBefore 早于指定日期且仍处于签到状态的记录
	ListOpenBefore(ctx context.Context, workDate string) ([]*model.AttendanceRecord, error)
	// ListByUserBetween 用户在 [from, to] 闭区间内的记录，按日期升序
	ListByUserBetween(ctx context.Context, userID, from, to string) ([]*model.AttendanceRecord, error)
}
