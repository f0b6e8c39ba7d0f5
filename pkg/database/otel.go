package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey  = "otel:span"
	startKey = "otel:start"

	maxStatementLength = 300
)

// TracingPlugin 为每条 SQL 生成 span 并记录耗时。不记录参数值
type TracingPlugin struct {
	tracer   trace.Tracer
	queries  metric.Int64Counter
	duration metric.Float64Histogram
}

func NewTracingPlugin(serviceName string) (*TracingPlugin, error) {
	meter := otel.Meter(serviceName + ".gorm")

	queries, err := meter.Int64Counter(
		"db.queries.total",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		return nil, err
	}

	return &TracingPlugin{
		tracer:   otel.Tracer(serviceName + ".gorm"),
		queries:  queries,
		duration: duration,
	}, nil
}

func (p *TracingPlugin) Name() string {
	return "attendbot:otel"
}

// Initialize 实现 gorm.Plugin
func (p *TracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		name   string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, h := range hooks {
		if err := h.before("otel:before_"+h.name, p.before(h.name)); err != nil {
			return err
		}
		if err := h.after("otel:after_"+h.name, p.after); err != nil {
			return err
		}
	}
	return nil
}

// before SQL 此时还未生成，span 名使用回调名，after 中再补充语句
func (p *TracingPlugin) before(name string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, span := p.tracer.Start(ctx, "gorm."+name,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(semconv.DBSystemPostgreSQL),
		)
		db.InstanceSet(spanKey, span)
		db.InstanceSet(startKey, time.Now())
		db.Statement.Context = ctx
	}
}

func (p *TracingPlugin) after(db *gorm.DB) {
	v, ok := db.InstanceGet(spanKey)
	if !ok {
		return
	}
	span, ok := v.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	op := operation(db)
	stmt := db.Statement.SQL.String()
	if len(stmt) > maxStatementLength {
		stmt = stmt[:maxStatementLength] + "..."
	}
	span.SetAttributes(
		semconv.DBOperation(op),
		attribute.String("db.sql.table", db.Statement.Table),
		semconv.DBStatement(stmt),
		attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
	)

	status := "success"
	if err := db.Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	labels := metric.WithAttributes(
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", db.Statement.Table),
		attribute.String("db.status", status),
	)
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	p.queries.Add(ctx, 1, labels)
	if start, ok := db.InstanceGet(startKey); ok {
		if t, ok := start.(time.Time); ok {
			p.duration.Record(ctx, time.Since(t).Seconds(), labels)
		}
	}
}

// operation 从 SQL 前缀推断操作类型
func operation(db *gorm.DB) string {
	sql := strings.TrimSpace(db.Statement.SQL.String())
	if i := strings.IndexByte(sql, ' '); i > 0 {
		sql = sql[:i]
	}
	switch strings.ToUpper(sql) {
	case "SELECT":
		return "select"
	case "INSERT":
		return "insert"
	case "UPDATE":
		return "update"
	case "DELETE":
		return "delete"
	default:
		return "query"
	}
}
