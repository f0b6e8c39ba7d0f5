// Package reminder 计算每个用户的提醒检查点。
//
// 不保存任何调度状态：每次轮询都根据签到时间和当前时间重新计算，
// 只要 |now - checkpoint| 落在容差窗口内就视为到期。轮询间隔必须小于 2 × 容差，
// 否则检查点可能被整个跳过，这一点由外部轮询器保证。
package reminder

import (
	"time"

	"AttendBot/internal/model"
	"AttendBot/internal/policy"
)

// Checkpoint 某一类提醒应当触发的时刻
type Checkpoint struct {
	Kind model.ReminderKind
	At   time.Time
}

type Scheduler struct {
	evaluator *policy.Evaluator
}

func New(evaluator *policy.Evaluator) *Scheduler {
	return &Scheduler{evaluator: evaluator}
}

// Tolerance 制度配置的容差
func (s *Scheduler) Tolerance() time.Duration {
	return s.evaluator.Policy().ReminderTolerance
}

// CompletionCheckpoint 到点提醒 = 应完成时间
func (s *Scheduler) CompletionCheckpoint(checkIn time.Time) time.Time {
	completion, _ := s.evaluator.CompletionFor(checkIn)
	return completion
}

// PreCompletionCheckpoint 完成前提醒 = 应完成时间 - PreCompletionOffset
func (s *Scheduler) PreCompletionCheckpoint(checkIn time.Time) time.Time {
	return s.CompletionCheckpoint(checkIn).Add(-s.evaluator.Policy().PreCompletionOffset)
}

// AdvanceCheckpoint 更早一档的提醒，未开启时返回 false
func (s *Scheduler) AdvanceCheckpoint(checkIn time.Time) (time.Time, bool) {
	offset := s.evaluator.Policy().AdvanceNoticeOffset
	if offset <= 0 {
		return time.Time{}, false
	}
	return s.CompletionCheckpoint(checkIn).Add(-offset), true
}

// Checkpoints 按时间顺序返回所有启用的检查点
func (s *Scheduler) Checkpoints(checkIn time.Time) []Checkpoint {
	completion := s.CompletionCheckpoint(checkIn)
	p := s.evaluator.Policy()

	cps := make([]Checkpoint, 0, 3)
	if p.AdvanceNoticeOffset > 0 {
		cps = append(cps, Checkpoint{Kind: model.ReminderKindAdvance, At: completion.Add(-p.AdvanceNoticeOffset)})
	}
	cps = append(cps,
		Checkpoint{Kind: model.ReminderKindPreCompletion, At: completion.Add(-p.PreCompletionOffset)},
		Checkpoint{Kind: model.ReminderKindFinal, At: completion},
	)
	return cps
}

// IsDue |now - checkpoint| <= tolerance
func IsDue(checkpoint, now time.Time, tolerance time.Duration) bool {
	d := now.Sub(checkpoint)
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}

func (s *Scheduler) ShouldSendPreCompletionReminder(checkIn, now time.Time) bool {
	return IsDue(s.PreCompletionCheckpoint(checkIn), now, s.Tolerance())
}

func (s *Scheduler) ShouldSendFinalReminder(checkIn, now time.Time) bool {
	return IsDue(s.CompletionCheckpoint(checkIn), now, s.Tolerance())
}

// Due 当前时刻到期的检查点
func (s *Scheduler) Due(checkIn, now time.Time) []Checkpoint {
	var due []Checkpoint
	for _, cp := range s.Checkpoints(checkIn) {
		if IsDue(cp.At, now, s.Tolerance()) {
			due = append(due, cp)
		}
	}
	return due
}
