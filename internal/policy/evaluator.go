package policy

import (
	"context"
	"time"

	"go.uber.org/zap"

	"AttendBot/internal/clock"
)

// Classification 签到时刻判定结果
type Classification struct {
	Accepted bool
	Timing   Timing
	Reason   Reason
}

// Decision 一次签到请求的完整制度判定
type Decision struct {
	WorkDate clock.LocalDate
	Local    clock.LocalTime
	Timing   Timing
	Reason   Reason
}

func (d Decision) Accepted() bool {
	return d.Reason == ReasonNone
}

// Evaluator 纯判定逻辑：工作日、签到窗口、应完成时间
type Evaluator struct {
	policy   Policy
	holidays HolidayLookup
	logger   *zap.Logger
}

func NewEvaluator(p Policy, holidays HolidayLookup, logger *zap.Logger) *Evaluator {
	if holidays == nil {
		holidays = NoHolidays{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{policy: p, holidays: holidays, logger: logger}
}

func (e *Evaluator) Policy() Policy {
	return e.policy
}

func (e *Evaluator) Zone() clock.Zone {
	return e.policy.Zone
}

// IsWorkingDay 周一至周五且不是节假日。
// 周末直接判定为非工作日；节假日查询失败时按"不是节假日"处理
func (e *Evaluator) IsWorkingDay(ctx context.Context, date clock.LocalDate) (bool, Reason) {
	if date.IsWeekend() {
		return false, ReasonNonWorkingDay
	}

	holiday, err := e.holidays.IsHoliday(ctx, date)
	if err != nil {
		e.logger.Warn("Holiday lookup failed, treating date as a working day",
			zap.String("date", date.String()),
			zap.Error(err),
		)
		return true, ReasonNone
	}
	if holiday {
		return false, ReasonHoliday
	}
	return true, ReasonNone
}

// ClassifyCheckIn 判定本地时刻是否可以签到。
// [open, close] 闭区间为准时；零点到 open 之前为提前签到；close 之后拒绝
func (e *Evaluator) ClassifyCheckIn(local clock.LocalTime) Classification {
	since := local.SinceMidnight()

	switch {
	case since < e.policy.CheckInOpen.Offset():
		return Classification{Accepted: true, Timing: TimingEarly}
	case since <= e.policy.CheckInClose.Offset():
		return Classification{Accepted: true, Timing: TimingOnTime}
	default:
		return Classification{Accepted: false, Reason: ReasonTooLate}
	}
}

// ExpectedCompletion 应完成时间。
// 准时签到：签到时间 + WorkdayDuration；提前签到：当天固定的 StandardEndOfDay，与实际到达时间无关
func (e *Evaluator) ExpectedCompletion(checkIn time.Time, timing Timing) time.Time {
	if timing == TimingEarly {
		return e.policy.Zone.At(e.policy.Zone.DateKey(checkIn), e.policy.StandardEndOfDay)
	}
	return checkIn.UTC().Add(e.policy.WorkdayDuration)
}

// CompletionFor 根据已存储的签到时间重新判定时机并计算应完成时间。
// 窗口关闭之后的签到（只可能来自导入数据）按偏移量计算
func (e *Evaluator) CompletionFor(checkIn time.Time) (time.Time, Timing) {
	timing := TimingOnTime
	if c := e.ClassifyCheckIn(e.policy.Zone.ToLocal(checkIn)); c.Accepted {
		timing = c.Timing
	}
	return e.ExpectedCompletion(checkIn, timing), timing
}

// Evaluate 先判定工作日，再判定签到时刻
func (e *Evaluator) Evaluate(ctx context.Context, now time.Time) Decision {
	local := e.policy.Zone.ToLocal(now)
	d := Decision{WorkDate: local.Date(), Local: local}

	if ok, reason := e.IsWorkingDay(ctx, d.WorkDate); !ok {
		d.Reason = reason
		return d
	}

	c := e.ClassifyCheckIn(local)
	if !c.Accepted {
		d.Reason = c.Reason
		return d
	}
	d.Timing = c.Timing
	return d
}

// IsFullDay 实际工时是否达到满勤
func (e *Evaluator) IsFullDay(worked time.Duration) bool {
	return worked >= e.policy.FullDayThreshold
}
