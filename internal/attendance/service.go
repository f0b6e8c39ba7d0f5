package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"AttendBot/internal/clock"
	"AttendBot/internal/model"
	"AttendBot/internal/policy"
	"AttendBot/internal/reminder"
	"AttendBot/pkg/metrics"
)

// Service 考勤记录引擎：持有每用户每天的记录，所有修改都先经过制度判定
type Service struct {
	store     Store
	evaluator *policy.Evaluator
	reminders *reminder.Scheduler
	locker    Locker
	logger    *zap.Logger
	metrics   *metrics.AttendanceMetrics
}

type Option func(*Service)

func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.AttendanceMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, evaluator *policy.Evaluator, opts ...Option) *Service {
	s := &Service{
		store:     store,
		evaluator: evaluator,
		reminders: reminder.New(evaluator),
		locker:    NewLocalLocker(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

func (s *Service) Evaluator() *policy.Evaluator {
	return s.evaluator
}

func (s *Service) zone() clock.Zone {
	return s.evaluator.Zone()
}

// CheckIn 签到。
// 先做工作日和时间窗口判定，拒绝时不做任何修改；通过后在 (user, date) 锁内：
// 无记录则新建，已签退则重新打开，已签到或已被零点关闭则返回冲突
func (s *Service) CheckIn(ctx context.Context, userID string, now time.Time) (CheckInResult, error) {
	now = now.UTC()
	decision := s.evaluator.Evaluate(ctx, now)
	workDate := decision.WorkDate.String()

	if !decision.Accepted() {
		s.logger.Info("Check-in rejected by policy",
			zap.String("user_id", userID),
			zap.String("work_date", workDate),
			zap.String("reason", string(decision.Reason)),
			zap.String("local_time", decision.Local.Format("15:04:05")),
		)
		s.metrics.RecordCheckIn(ctx, string(OutcomeRejected), string(decision.Reason))
		return CheckInResult{
			Outcome:  OutcomeRejected,
			Code:     string(decision.Reason),
			UserID:   userID,
			WorkDate: workDate,
		}, nil
	}

	unlock, err := s.locker.Lock(ctx, lockKey(userID, workDate))
	if err != nil {
		return CheckInResult{}, fmt.Errorf("check-in %s on %s: %w", userID, workDate, err)
	}
	defer unlock()

	rec, err := s.store.FindByKey(ctx, userID, workDate)
	if err != nil {
		return CheckInResult{}, fmt.Errorf("check-in %s on %s: find record: %w", userID, workDate, err)
	}

	var result CheckInResult
	switch {
	case rec == nil:
		result, err = s.create(ctx, userID, workDate, now, decision.Timing)
	case rec.Status == model.AttendanceStatusCheckedOut:
		result, err = s.reopen(ctx, rec, now, decision.Timing)
	case rec.Status == model.AttendanceStatusCheckedIn:
		result = s.conflict(rec, CodeAlreadyCheckedIn)
	default:
		result = s.conflict(rec, CodeAlreadyCheckedOut)
	}
	if err != nil {
		return CheckInResult{}, err
	}

	s.metrics.RecordCheckIn(ctx, string(result.Outcome), result.Code)
	return result, nil
}

func (s *Service) create(ctx context.Context, userID, workDate string, now time.Time, timing policy.Timing) (CheckInResult, error) {
	rec := &model.AttendanceRecord{
		UserID:    userID,
		WorkDate:  workDate,
		CheckInAt: now,
		Status:    model.AttendanceStatusCheckedIn,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			s.logger.Warn("Concurrent check-in lost the create race",
				zap.String("user_id", userID),
				zap.String("work_date", workDate),
			)
		}
		return CheckInResult{}, fmt.Errorf("check-in %s on %s: create record: %w", userID, workDate, err)
	}

	completion := s.evaluator.ExpectedCompletion(now, timing)
	s.logger.Info("Checked in",
		zap.String("user_id", userID),
		zap.String("work_date", workDate),
		zap.String("timing", string(timing)),
		zap.Time("check_in_at", now),
		zap.Time("expected_completion", completion),
	)

	return CheckInResult{
		Outcome:            OutcomeAccepted,
		UserID:             userID,
		WorkDate:           workDate,
		Timing:             timing,
		CheckInAt:          now,
		ExpectedCompletion: completion,
	}, nil
}

// reopen 当天签退后再次进入：覆盖签到时间，清空签退时间，提醒检查点随之重新计算
func (s *Service) reopen(ctx context.Context, rec *model.AttendanceRecord, now time.Time, timing policy.Timing) (CheckInResult, error) {
	patch := RecordPatch{
		CheckInAt:     &now,
		ClearCheckOut: true,
		Status:        model.AttendanceStatusCheckedIn,
	}
	if err := s.store.Update(ctx, rec.ID, patch); err != nil {
		return CheckInResult{}, fmt.Errorf("check-in %s on %s: reopen record: %w", rec.UserID, rec.WorkDate, err)
	}

	completion := s.evaluator.ExpectedCompletion(now, timing)
	s.logger.Info("Reopened attendance record",
		zap.String("user_id", rec.UserID),
		zap.String("work_date", rec.WorkDate),
		zap.Time("previous_check_in_at", rec.CheckInAt),
		zap.Time("check_in_at", now),
		zap.Time("expected_completion", completion),
	)

	return CheckInResult{
		Outcome:            OutcomeReopened,
		UserID:             rec.UserID,
		WorkDate:           rec.WorkDate,
		Timing:             timing,
		CheckInAt:          now,
		ExpectedCompletion: completion,
	}, nil
}

func (s *Service) conflict(rec *model.AttendanceRecord, code string) CheckInResult {
	completion, timing := s.evaluator.CompletionFor(rec.CheckInAt)
	result := CheckInResult{
		Outcome:            OutcomeConflict,
		Code:               code,
		UserID:             rec.UserID,
		WorkDate:           rec.WorkDate,
		Timing:             timing,
		CheckInAt:          rec.CheckInAt,
		ExpectedCompletion: completion,
	}
	if rec.CheckOutAt != nil {
		out := *rec.CheckOutAt
		result.CheckOutAt = &out
	}
	return result
}

// CheckOut 签退。重复签退是正常路径：返回已存储的时间，不做修改
func (s *Service) CheckOut(ctx context.Context, userID string, now time.Time) (CheckOutResult, error) {
	now = now.UTC()
	workDate := s.zone().DateKey(now).String()

	unlock, err := s.locker.Lock(ctx, lockKey(userID, workDate))
	if err != nil {
		return CheckOutResult{}, fmt.Errorf("check-out %s on %s: %w", userID, workDate, err)
	}
	defer unlock()

	rec, err := s.store.FindByKey(ctx, userID, workDate)
	if err != nil {
		return CheckOutResult{}, fmt.Errorf("check-out %s on %s: find record: %w", userID, workDate, err)
	}

	if rec == nil {
		s.metrics.RecordCheckOut(ctx, string(OutcomeConflict), CodeNoCheckInToday)
		return CheckOutResult{
			Outcome:  OutcomeConflict,
			Code:     CodeNoCheckInToday,
			UserID:   userID,
			WorkDate: workDate,
		}, nil
	}

	if !rec.IsOpen() {
		if rec.CheckOutAt == nil {
			return CheckOutResult{}, fmt.Errorf("check-out %s on %s: record %d is %s without check-out time: %w",
				userID, workDate, rec.ID, rec.Status, ErrInconsistentRecord)
		}
		s.metrics.RecordCheckOut(ctx, string(OutcomeConflict), CodeAlreadyCheckedOut)
		result := s.checkOutResult(rec, *rec.CheckOutAt)
		result.Outcome = OutcomeConflict
		result.Code = CodeAlreadyCheckedOut
		return result, nil
	}

	// 时钟回拨等异常情况下保证签退时间不早于签到时间
	checkOutAt := now
	if checkOutAt.Before(rec.CheckInAt) {
		checkOutAt = rec.CheckInAt
	}

	patch := RecordPatch{CheckOutAt: &checkOutAt, Status: model.AttendanceStatusCheckedOut}
	if err := s.store.Update(ctx, rec.ID, patch); err != nil {
		return CheckOutResult{}, fmt.Errorf("check-out %s on %s: update record: %w", userID, workDate, err)
	}
	patch.Apply(rec)

	result := s.checkOutResult(rec, checkOutAt)
	result.Outcome = OutcomeAccepted

	s.logger.Info("Checked out",
		zap.String("user_id", userID),
		zap.String("work_date", workDate),
		zap.Duration("worked", result.Worked),
		zap.Bool("complete", result.IsComplete),
		zap.Duration("shortfall", result.Shortfall),
	)
	s.metrics.RecordCheckOut(ctx, string(OutcomeAccepted), "")
	return result, nil
}

func (s *Service) checkOutResult(rec *model.AttendanceRecord, checkOutAt time.Time) CheckOutResult {
	completion, _ := s.evaluator.CompletionFor(rec.CheckInAt)
	worked := checkOutAt.Sub(rec.CheckInAt)
	threshold := s.evaluator.Policy().FullDayThreshold

	var shortfall time.Duration
	if worked < threshold {
		shortfall = threshold - worked
	}

	return CheckOutResult{
		UserID:             rec.UserID,
		WorkDate:           rec.WorkDate,
		Status:             rec.Status,
		CheckInAt:          rec.CheckInAt,
		CheckOutAt:         checkOutAt,
		ExpectedCompletion: completion,
		Worked:             worked,
		ActualHours:        Hours(worked),
		IsComplete:         s.evaluator.IsFullDay(worked),
		Shortfall:          shortfall,
	}
}

// GetToday 查询当天记录，不存在时返回 nil
func (s *Service) GetToday(ctx context.Context, userID string, now time.Time) (*TodayStatus, error) {
	workDate := s.zone().DateKey(now).String()

	rec, err := s.store.FindByKey(ctx, userID, workDate)
	if err != nil {
		return nil, fmt.Errorf("get today %s on %s: %w", userID, workDate, err)
	}
	if rec == nil {
		return nil, nil
	}

	completion, timing := s.evaluator.CompletionFor(rec.CheckInAt)
	status := &TodayStatus{
		Record:             rec,
		WorkDate:           workDate,
		Timing:             timing,
		ExpectedCompletion: completion,
		PreCompletionAt:    s.reminders.PreCompletionCheckpoint(rec.CheckInAt),
	}
	if rec.CheckOutAt != nil {
		status.Worked = rec.Worked()
		status.IsComplete = s.evaluator.IsFullDay(status.Worked)
	}
	return status, nil
}

// OpenRecords 指定日期仍处于签到状态的记录，供提醒轮询使用
func (s *Service) OpenRecords(ctx context.Context, workDate clock.LocalDate) ([]*model.AttendanceRecord, error) {
	records, err := s.store.ListOpen(ctx, workDate.String())
	if err != nil {
		return nil, fmt.Errorf("list open records on %s: %w", workDate, err)
	}
	return records, nil
}

// AutoClose 零点清扫：把当前本地日期之前仍未签退的记录关闭为 AUTO_CHECKOUT_MIDNIGHT，
// 签退时间记为该工作日结束时的本地零点。返回关闭的记录数
func (s *Service) AutoClose(ctx context.Context, now time.Time) (int, error) {
	today := s.zone().DateKey(now)

	records, err := s.store.ListOpenBefore(ctx, today.String())
	if err != nil {
		return 0, fmt.Errorf("auto-close before %s: %w", today, err)
	}

	closed := 0
	var errs []error
	for _, rec := range records {
		ok, err := s.autoCloseOne(ctx, rec.UserID, rec.WorkDate)
		if err != nil {
			s.logger.Error("Failed to auto-close attendance record",
				zap.String("user_id", rec.UserID),
				zap.String("work_date", rec.WorkDate),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		if ok {
			closed++
		}
	}

	s.metrics.RecordAutoClosed(ctx, int64(closed))
	if len(errs) > 0 {
		return closed, fmt.Errorf("auto-close before %s: %d of %d failed: %w", today, len(errs), len(records), errors.Join(errs...))
	}
	return closed, nil
}

func (s *Service) autoCloseOne(ctx context.Context, userID, workDate string) (bool, error) {
	date, err := clock.ParseDate(workDate)
	if err != nil {
		return false, err
	}

	unlock, err := s.locker.Lock(ctx, lockKey(userID, workDate))
	if err != nil {
		return false, err
	}
	defer unlock()

	// 锁内重新读取，期间用户可能已经签退
	rec, err := s.store.FindByKey(ctx, userID, workDate)
	if err != nil {
		return false, err
	}
	if rec == nil || !rec.IsOpen() {
		return false, nil
	}

	closeAt := s.zone().StartOfDay(date.AddDays(1))
	if closeAt.Before(rec.CheckInAt) {
		closeAt = rec.CheckInAt
	}

	patch := RecordPatch{CheckOutAt: &closeAt, Status: model.AttendanceStatusAutoCheckoutMidnight}
	if err := s.store.Update(ctx, rec.ID, patch); err != nil {
		return false, err
	}

	s.logger.Info("Auto-closed attendance record at midnight",
		zap.String("user_id", userID),
		zap.String("work_date", workDate),
		zap.Time("check_out_at", closeAt),
	)
	return true, nil
}
