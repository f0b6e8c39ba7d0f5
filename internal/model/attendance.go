package model

import "time"

// AttendanceStatus 考勤记录状态
type AttendanceStatus string

const (
	AttendanceStatusCheckedIn            AttendanceStatus = "CHECKED_IN"             // 已签到，未签退
	AttendanceStatusCheckedOut           AttendanceStatus = "CHECKED_OUT"            // 已签退
	AttendanceStatusAutoCheckoutMidnight AttendanceStatus = "AUTO_CHECKOUT_MIDNIGHT" // 当天未签退，零点由系统关闭
)

// AttendanceRecord 每个用户每个工作日一条记录，(user_id, work_date) 唯一
type AttendanceRecord struct {
	BaseModel
	UserID     string           `gorm:"type:varchar(64);not null;uniqueIndex:idx_attendance_user_date,priority:1" json:"user_id"`
	WorkDate   string           `gorm:"type:varchar(10);not null;uniqueIndex:idx_attendance_user_date,priority:2;index:idx_attendance_date_status,priority:1" json:"work_date"`
	CheckInAt  time.Time        `gorm:"type:timestamptz;not null" json:"check_in_at"`
	CheckOutAt *time.Time       `gorm:"type:timestamptz" json:"check_out_at,omitempty"`
	Status     AttendanceStatus `gorm:"type:varchar(32);not null;default:'CHECKED_IN';index:idx_attendance_date_status,priority:2" json:"status"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string {
	return "attendance_records"
}

// IsOpen 签到后尚未关闭
func (r *AttendanceRecord) IsOpen() bool {
	return r.Status == AttendanceStatusCheckedIn
}

// Worked 已关闭记录的实际时长，未关闭时为 0
func (r *AttendanceRecord) Worked() time.Duration {
	if r.CheckOutAt == nil {
		return 0
	}
	return r.CheckOutAt.Sub(r.CheckInAt)
}

// Clone 深拷贝，内存存储返回副本时使用
func (r *AttendanceRecord) Clone() *AttendanceRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.CheckOutAt != nil {
		out := *r.CheckOutAt
		c.CheckOutAt = &out
	}
	return &c
}
