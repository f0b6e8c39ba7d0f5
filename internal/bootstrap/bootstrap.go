// Package bootstrap 组装 server、scheduler、worker 共用的组件
package bootstrap

import (
	"context"

	"go.uber.org/zap"

	"AttendBot/config"
	"AttendBot/internal/attendance"
	"AttendBot/internal/cache"
	"AttendBot/internal/policy"
	"AttendBot/internal/repository"
	"AttendBot/pkg/logger"
	"AttendBot/pkg/metrics"
	pkgotel "AttendBot/pkg/otel"
	"AttendBot/storage/database"
	"AttendBot/storage/redis"
)

// Telemetry 未配置 OTLP endpoint 时只初始化 noop 指标
func Telemetry(ctx context.Context, serviceName string) func(context.Context) error {
	shutdown := func(context.Context) error { return nil }

	cfg := config.Cfg
	if cfg.OTLPEndpoint != "" {
		fn, err := pkgotel.InitOpenTelemetry(ctx, pkgotel.Config{
			ServiceName:  serviceName,
			Environment:  cfg.Environment,
			OTLPEndpoint: cfg.OTLPEndpoint,
			SampleRatio:  cfg.OTLPSampler,
		})
		if err != nil {
			logger.Logger.Warn("Failed to initialize OpenTelemetry, continuing without export", zap.Error(err))
		} else {
			shutdown = fn
		}
	}

	if err := metrics.InitMetrics(); err != nil {
		logger.Logger.Warn("Failed to initialize attendance metrics", zap.Error(err))
	}
	return shutdown
}

// Engine 考勤引擎及其依赖，需要数据库和 Redis 已初始化
type Engine struct {
	Policy    policy.Policy
	Evaluator *policy.Evaluator
	Records   *repository.AttendanceRepository
	Holidays  *cache.HolidayCache
	Calendar  *repository.HolidayRepository
	Service   *attendance.Service
}

func NewEngine() (*Engine, error) {
	cfg := config.Cfg

	p, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	rdb := redis.Client()
	calendar := repository.NewHolidayRepository(database.DB())
	holidays := cache.NewHolidayCache(rdb, cfg.RedisPrefix, calendar,
		logger.Component("holiday-cache"),
	)
	evaluator := policy.NewEvaluator(p, holidays, logger.Component("policy"))
	records := repository.NewAttendanceRepository(database.DB())

	svc := attendance.NewService(records, evaluator,
		attendance.WithLocker(cache.NewRedisLocker(rdb, cfg.RedisPrefix, cfg.LockTTL, cfg.LockWait)),
		attendance.WithLogger(logger.Component("attendance")),
		attendance.WithMetrics(metrics.GetMetrics()),
	)

	return &Engine{
		Policy:    p,
		Evaluator: evaluator,
		Records:   records,
		Holidays:  holidays,
		Calendar:  calendar,
		Service:   svc,
	}, nil
}
