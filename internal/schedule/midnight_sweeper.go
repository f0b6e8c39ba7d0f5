package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"

	"AttendBot/internal/clock"
)

// AutoCloser 关闭前一天及更早仍未签退的记录
type AutoCloser interface {
	AutoClose(ctx context.Context, now time.Time) (int, error)
}

// MidnightSweeper 每天本地时间 sweepAt（默认 00:05）执行一次零点清扫
type MidnightSweeper struct {
	closer  AutoCloser
	zone    clock.Zone
	sweepAt clock.TimeOfDay
	logger  *zap.Logger
}

func NewMidnightSweeper(closer AutoCloser, zone clock.Zone, sweepAt clock.TimeOfDay, logger *zap.Logger) *MidnightSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MidnightSweeper{closer: closer, zone: zone, sweepAt: sweepAt, logger: logger}
}

// NextRun now 之后的下一次清扫时间（今天或明天的 sweepAt）
func (s *MidnightSweeper) NextRun(now time.Time) time.Time {
	today := s.zone.DateKey(now)
	next := s.zone.At(today, s.sweepAt)
	if !next.After(now) {
		next = s.zone.At(today.AddDays(1), s.sweepAt)
	}
	return next
}

// Sweep 执行一次清扫
func (s *MidnightSweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	n, err := s.closer.AutoClose(ctx, now)
	if err != nil {
		s.logger.Error("Midnight sweep failed", zap.Int("closed", n), zap.Error(err))
		return n, err
	}
	s.logger.Info("Midnight sweep completed", zap.Int("closed", n))
	return n, nil
}

// Run 启动时先补扫一次（覆盖停机期间错过的清扫），之后每天定时执行
func (s *MidnightSweeper) Run(ctx context.Context, now func() time.Time) {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	_, _ = s.Sweep(runCtx, now())
	cancel()

	for {
		current := now()
		next := s.NextRun(current)
		delay := next.Sub(current)
		s.logger.Info("Scheduled next midnight sweep",
			zap.Time("next_run", next),
			zap.Duration("delay", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			_, _ = s.Sweep(runCtx, now())
			cancel()
		}
	}
}
