package attendance

import (
	"time"

	"github.com/shopspring/decimal"

	"AttendBot/internal/model"
	"AttendBot/internal/policy"
)

// Outcome 一次签到/签退请求的结果类别
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted" // 新建或关闭记录
	OutcomeReopened Outcome = "reopened" // 当天签退后再次签到
	OutcomeRejected Outcome = "rejected" // 制度拒绝，未修改任何数据
	OutcomeConflict Outcome = "conflict" // 状态冲突，返回已有记录，未修改任何数据
)

// 状态冲突代码
const (
	CodeAlreadyCheckedIn  = "already_checked_in"
	CodeAlreadyCheckedOut = "already_checked_out"
	CodeNoCheckInToday    = "no_checkin_today"
)

// CheckInResult 签到结果。拒绝和冲突同样携带足够的状态供消息层组织回复
type CheckInResult struct {
	Outcome            Outcome
	Code               string // 拒绝原因或冲突代码，成功时为空
	UserID             string
	WorkDate           string
	Timing             policy.Timing
	CheckInAt          time.Time
	ExpectedCompletion time.Time
	CheckOutAt         *time.Time
}

// OK 是否写入了记录
func (r CheckInResult) OK() bool {
	return r.Outcome == OutcomeAccepted || r.Outcome == OutcomeReopened
}

// CheckOutResult 签退结果
type CheckOutResult struct {
	Outcome            Outcome
	Code               string
	UserID             string
	WorkDate           string
	Status             model.AttendanceStatus
	CheckInAt          time.Time
	CheckOutAt         time.Time
	ExpectedCompletion time.Time
	Worked             time.Duration
	ActualHours        decimal.Decimal
	IsComplete         bool
	Shortfall          time.Duration // 距满勤还差的时长，满勤时为 0
}

func (r CheckOutResult) OK() bool {
	return r.Outcome == OutcomeAccepted
}

// TodayStatus 当天记录的只读视图
type TodayStatus struct {
	Record             *model.AttendanceRecord
	WorkDate           string
	Timing             policy.Timing
	ExpectedCompletion time.Time
	PreCompletionAt    time.Time
	Worked             time.Duration
	IsComplete         bool
}

// Hours 时长转换为小时，保留两位小数
func Hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d / time.Second)).
		Div(decimal.NewFromInt(3600)).
		Round(2)
}
