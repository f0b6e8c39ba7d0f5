package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AttendanceMetrics 考勤相关指标。所有方法对 nil 接收者安全，未初始化时直接跳过
type AttendanceMetrics struct {
	CheckInTotal     metric.Int64Counter
	CheckOutTotal    metric.Int64Counter
	AutoClosedTotal  metric.Int64Counter
	ReminderTotal    metric.Int64Counter
	PollDuration     metric.Float64Histogram
	OpenRecordsGauge metric.Int64Gauge
}

var (
	// 全局指标实例
	metrics *AttendanceMetrics
	meter   = otel.Meter("attendbot")
)

// InitMetrics 使用全局 MeterProvider 初始化指标
func InitMetrics() error {
	m, err := NewAttendanceMetrics(meter)
	if err != nil {
		return err
	}
	metrics = m
	return nil
}

// GetMetrics 获取全局指标实例，未初始化时为 nil
func GetMetrics() *AttendanceMetrics {
	return metrics
}

func NewAttendanceMetrics(meter metric.Meter) (*AttendanceMetrics, error) {
	var err error
	m := &AttendanceMetrics{}

	m.CheckInTotal, err = meter.Int64Counter(
		"attendance_check_in_total",
		metric.WithDescription("Total number of check-in requests by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.CheckOutTotal, err = meter.Int64Counter(
		"attendance_check_out_total",
		metric.WithDescription("Total number of check-out requests by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.AutoClosedTotal, err = meter.Int64Counter(
		"attendance_auto_closed_total",
		metric.WithDescription("Total number of records closed by the midnight sweep"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	m.ReminderTotal, err = meter.Int64Counter(
		"attendance_reminder_total",
		metric.WithDescription("Total number of reminders by kind and result"),
		metric.WithUnit("{reminder}"),
	)
	if err != nil {
		return nil, err
	}

	m.PollDuration, err = meter.Float64Histogram(
		"attendance_reminder_poll_duration_seconds",
		metric.WithDescription("Time spent on one reminder poll"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.OpenRecordsGauge, err = meter.Int64Gauge(
		"attendance_open_records",
		metric.WithDescription("Open records seen by the last reminder poll"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordCheckIn 记录签到结果，code 为拒绝原因或冲突代码
func (m *AttendanceMetrics) RecordCheckIn(ctx context.Context, outcome, code string) {
	if m == nil {
		return
	}
	m.CheckInTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("code", code),
	))
}

// RecordCheckOut 记录签退结果
func (m *AttendanceMetrics) RecordCheckOut(ctx context.Context, outcome, code string) {
	if m == nil {
		return
	}
	m.CheckOutTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("code", code),
	))
}

func (m *AttendanceMetrics) RecordAutoClosed(ctx context.Context, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.AutoClosedTotal.Add(ctx, n)
}

// RecordReminder result: published / duplicate / failed / delivered
func (m *AttendanceMetrics) RecordReminder(ctx context.Context, kind, result string) {
	if m == nil {
		return
	}
	m.ReminderTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("result", result),
	))
}

// RecordPoll 记录一次提醒轮询的耗时和扫描到的未签退记录数
func (m *AttendanceMetrics) RecordPoll(ctx context.Context, duration time.Duration, open int) {
	if m == nil {
		return
	}
	m.PollDuration.Record(ctx, duration.Seconds())
	m.OpenRecordsGauge.Record(ctx, int64(open))
}
