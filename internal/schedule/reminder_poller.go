package schedule

// 提醒轮询器：每个周期扫描当天未签退的记录，根据签到时间重新计算检查点，
// 落在容差窗口内的检查点经 Redis 去重后发布到消息队列。不为每个用户维护定时器

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"AttendBot/internal/clock"
	"AttendBot/internal/model"
	"AttendBot/internal/reminder"
	"AttendBot/pkg/metrics"
	"AttendBot/pkg/snowflake"
)

// OpenRecordSource 当天未签退的记录
type OpenRecordSource interface {
	OpenRecords(ctx context.Context, workDate clock.LocalDate) ([]*model.AttendanceRecord, error)
}

// Deduper 每个 (user, date, kind, check-in) 检查点最多提醒一次
type Deduper interface {
	TryMarkReminderSent(ctx context.Context, userID, workDate string, kind model.ReminderKind, checkIn time.Time) (bool, error)
	UnmarkReminderSent(ctx context.Context, userID, workDate string, kind model.ReminderKind, checkIn time.Time) error
}

// Publisher 提醒事件的出口
type Publisher interface {
	PublishReminder(ctx context.Context, msg model.ReminderMessage) error
}

// TickResult 一次轮询的统计
type TickResult struct {
	Skipped    bool
	Scanned    int
	Published  int
	Duplicates int
	Failed     int
}

type ReminderPoller struct {
	source      OpenRecordSource
	reminders   *reminder.Scheduler
	zone        clock.Zone
	deduper     Deduper
	publisher   Publisher
	concurrency int
	logger      *zap.Logger
	metrics     *metrics.AttendanceMetrics

	jobRunning  bool
	jobMu       sync.Mutex
	lastJobTime time.Time
}

type PollerOption func(*ReminderPoller)

func WithPollerLogger(l *zap.Logger) PollerOption {
	return func(p *ReminderPoller) { p.logger = l }
}

func WithPollerMetrics(m *metrics.AttendanceMetrics) PollerOption {
	return func(p *ReminderPoller) { p.metrics = m }
}

// WithConcurrency 同时处理的记录数上限
func WithConcurrency(n int) PollerOption {
	return func(p *ReminderPoller) { p.concurrency = n }
}

func NewReminderPoller(source OpenRecordSource, reminders *reminder.Scheduler, zone clock.Zone, deduper Deduper, publisher Publisher, opts ...PollerOption) *ReminderPoller {
	p := &ReminderPoller{
		source:      source,
		reminders:   reminders,
		zone:        zone,
		deduper:     deduper,
		publisher:   publisher,
		concurrency: 16,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.concurrency <= 0 {
		p.concurrency = 1
	}
	return p
}

// LastRun 上一次轮询开始的时间
func (p *ReminderPoller) LastRun() time.Time {
	p.jobMu.Lock()
	defer p.jobMu.Unlock()
	return p.lastJobTime
}

// Tick 执行一次轮询。上一次尚未结束时直接跳过
func (p *ReminderPoller) Tick(ctx context.Context, now time.Time) (TickResult, error) {
	p.jobMu.Lock()
	if p.jobRunning {
		p.jobMu.Unlock()
		p.logger.Info("Reminder poll already running, skipping")
		return TickResult{Skipped: true}, nil
	}
	p.jobRunning = true
	p.lastJobTime = now
	p.jobMu.Unlock()

	defer func() {
		p.jobMu.Lock()
		p.jobRunning = false
		p.jobMu.Unlock()
	}()

	started := time.Now()
	workDate := p.zone.DateKey(now)

	records, err := p.source.OpenRecords(ctx, workDate)
	if err != nil {
		p.logger.Error("Failed to load open records", zap.String("work_date", workDate.String()), zap.Error(err))
		return TickResult{}, fmt.Errorf("reminder poll %s: %w", workDate, err)
	}

	result := TickResult{Scanned: len(records)}
	if len(records) == 0 {
		p.metrics.RecordPoll(ctx, time.Since(started), 0)
		return result, nil
	}

	batchID := ""
	if id, err := snowflake.NextID(); err == nil {
		batchID = strconv.FormatInt(id, 10)
	} else {
		p.logger.Warn("Failed to generate batch ID", zap.Error(err))
	}

	var published, duplicates, failed int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			for _, cp := range p.reminders.Due(rec.CheckInAt, now) {
				sent, err := p.deliver(gctx, rec, cp, batchID, now)
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
				case sent:
					atomic.AddInt64(&published, 1)
				default:
					atomic.AddInt64(&duplicates, 1)
				}
			}
			// 单条失败不影响其他用户
			return nil
		})
	}
	_ = g.Wait()

	result.Published = int(published)
	result.Duplicates = int(duplicates)
	result.Failed = int(failed)

	p.metrics.RecordPoll(ctx, time.Since(started), len(records))
	p.logger.Info("Reminder poll completed",
		zap.String("work_date", workDate.String()),
		zap.Int("scanned", result.Scanned),
		zap.Int("published", result.Published),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", time.Since(started)),
	)

	if result.Failed > 0 {
		return result, fmt.Errorf("reminder poll %s: %d reminders failed", workDate, result.Failed)
	}
	return result, nil
}

// deliver 先占去重标记再发布，发布失败时释放标记，下一次轮询仍在窗口内即可重试
func (p *ReminderPoller) deliver(ctx context.Context, rec *model.AttendanceRecord, cp reminder.Checkpoint, batchID string, now time.Time) (bool, error) {
	fields := []zap.Field{
		zap.String("user_id", rec.UserID),
		zap.String("work_date", rec.WorkDate),
		zap.String("kind", string(cp.Kind)),
		zap.Time("checkpoint", cp.At),
	}

	first, err := p.deduper.TryMarkReminderSent(ctx, rec.UserID, rec.WorkDate, cp.Kind, rec.CheckInAt)
	if err != nil {
		p.logger.Warn("Failed to mark reminder", append(fields, zap.Error(err))...)
		p.metrics.RecordReminder(ctx, string(cp.Kind), "failed")
		return false, err
	}
	if !first {
		p.metrics.RecordReminder(ctx, string(cp.Kind), "duplicate")
		return false, nil
	}

	msg := model.ReminderMessage{
		MessageID:          ReminderMessageID(rec.UserID, rec.WorkDate, cp.Kind, rec.CheckInAt),
		BatchID:            batchID,
		UserID:             rec.UserID,
		WorkDate:           rec.WorkDate,
		Kind:               cp.Kind,
		CheckInAt:          rec.CheckInAt.UTC().Format(time.RFC3339),
		Checkpoint:         cp.At.UTC().Format(time.RFC3339),
		ExpectedCompletion: p.reminders.CompletionCheckpoint(rec.CheckInAt).UTC().Format(time.RFC3339),
		ScheduledAt:        now.UTC().Format(time.RFC3339),
	}

	if err := p.publisher.PublishReminder(ctx, msg); err != nil {
		p.logger.Error("Failed to publish reminder", append(fields, zap.Error(err))...)
		if uerr := p.deduper.UnmarkReminderSent(ctx, rec.UserID, rec.WorkDate, cp.Kind, rec.CheckInAt); uerr != nil {
			p.logger.Warn("Failed to release reminder mark", append(fields, zap.Error(uerr))...)
		}
		p.metrics.RecordReminder(ctx, string(cp.Kind), "failed")
		return false, err
	}

	p.metrics.RecordReminder(ctx, string(cp.Kind), "published")
	p.logger.Info("Reminder published", fields...)
	return true, nil
}

// ReminderMessageID 同一检查点的消息 ID 固定，消费端据此幂等
func ReminderMessageID(userID, workDate string, kind model.ReminderKind, checkIn time.Time) string {
	return fmt.Sprintf("reminder:%s:%s:%s:%d", userID, workDate, kind, checkIn.Unix())
}

// Run 按固定间隔轮询直到 ctx 结束
func (p *ReminderPoller) Run(ctx context.Context, interval time.Duration, now func() time.Time) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("Reminder poller started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Reminder poller stopped")
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, interval)
			if _, err := p.Tick(runCtx, now()); err != nil {
				p.logger.Error("Reminder poll run failed", zap.Error(err))
			}
			cancel()
		}
	}
}
