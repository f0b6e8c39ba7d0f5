package policy

import (
	"errors"
	"fmt"
	"time"

	"AttendBot/internal/clock"
)

// Timing 被接受的签到时机
type Timing string

const (
	TimingOnTime Timing = "on_time" // 签到窗口内，按偏移量计算应完成时间
	TimingEarly  Timing = "early"   // 窗口开启前，按固定下班时刻计算应完成时间
)

// Reason 拒绝原因代码，文案由外部消息层负责
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonNonWorkingDay Reason = "non_working_day"
	ReasonHoliday       Reason = "holiday"
	ReasonTooLate       Reason = "too_late"
)

// Policy 考勤制度参数
type Policy struct {
	Zone clock.Zone

	CheckInOpen      clock.TimeOfDay // 签到窗口开启（含）
	CheckInClose     clock.TimeOfDay // 签到窗口关闭（含）
	StandardEndOfDay clock.TimeOfDay // 提前签到时的固定应完成时刻

	// WorkdayDuration 签到到应完成的总时长，已包含午休
	WorkdayDuration time.Duration
	// FullDayThreshold 月报中"满勤日"的实际工时下限
	FullDayThreshold time.Duration

	// PreCompletionOffset 完成前提醒的提前量
	PreCompletionOffset time.Duration
	// AdvanceNoticeOffset 更早一档的提醒提前量，0 表示关闭
	AdvanceNoticeOffset time.Duration
	// ReminderTolerance 检查点前后的容差窗口
	ReminderTolerance time.Duration
}

// Default 默认制度：08:00-11:00 签到，9 小时工作日，17:00 固定下班，提前 10 分钟提醒
func Default(zone clock.Zone) Policy {
	return Policy{
		Zone:                zone,
		CheckInOpen:         clock.TimeOfDay{Hour: 8},
		CheckInClose:        clock.TimeOfDay{Hour: 11},
		StandardEndOfDay:    clock.TimeOfDay{Hour: 17},
		WorkdayDuration:     9 * time.Hour,
		FullDayThreshold:    9 * time.Hour,
		PreCompletionOffset: 10 * time.Minute,
		AdvanceNoticeOffset: 0,
		ReminderTolerance:   2 * time.Minute,
	}
}

var ErrInvalidPolicy = errors.New("invalid attendance policy")

// Validate 校验参数之间的约束
func (p Policy) Validate() error {
	if p.CheckInOpen.Offset() >= p.CheckInClose.Offset() {
		return fmt.Errorf("%w: check-in open %s must be before close %s", ErrInvalidPolicy, p.CheckInOpen, p.CheckInClose)
	}
	if p.CheckInClose.Offset() >= 24*time.Hour || p.StandardEndOfDay.Offset() >= 24*time.Hour {
		return fmt.Errorf("%w: wall-clock times must fall within one day", ErrInvalidPolicy)
	}
	if p.StandardEndOfDay.Offset() <= p.CheckInOpen.Offset() {
		return fmt.Errorf("%w: standard end of day %s must be after check-in open %s", ErrInvalidPolicy, p.StandardEndOfDay, p.CheckInOpen)
	}
	if p.WorkdayDuration <= 0 || p.FullDayThreshold <= 0 {
		return fmt.Errorf("%w: workday duration and full-day threshold must be positive", ErrInvalidPolicy)
	}
	if p.ReminderTolerance <= 0 {
		return fmt.Errorf("%w: reminder tolerance must be positive", ErrInvalidPolicy)
	}
	if p.PreCompletionOffset <= 0 || p.PreCompletionOffset >= p.WorkdayDuration {
		return fmt.Errorf("%w: pre-completion offset %s out of range", ErrInvalidPolicy, p.PreCompletionOffset)
	}
	if p.AdvanceNoticeOffset < 0 || p.AdvanceNoticeOffset >= p.WorkdayDuration {
		return fmt.Errorf("%w: advance notice offset %s out of range", ErrInvalidPolicy, p.AdvanceNoticeOffset)
	}
	if p.AdvanceNoticeOffset > 0 && p.AdvanceNoticeOffset <= p.PreCompletionOffset {
		return fmt.Errorf("%w: advance notice offset must be larger than pre-completion offset", ErrInvalidPolicy)
	}
	return nil
}
