package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"AttendBot/config"
	"AttendBot/internal/bootstrap"
	"AttendBot/internal/cache"
	"AttendBot/internal/queue"
	"AttendBot/internal/reminder"
	"AttendBot/internal/schedule"
	"AttendBot/pkg/logger"
	"AttendBot/pkg/metrics"
	"AttendBot/pkg/snowflake"
	"AttendBot/storage"
	"AttendBot/storage/redis"
)

func main() {
	logger.Init("scheduler")
	defer logger.Sync()

	cfg := config.Cfg
	if err := cfg.Validate(); err != nil {
		logger.Logger.Fatal("Invalid attendance configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	shutdownTelemetry := bootstrap.Telemetry(ctx, cfg.ServiceName+"-scheduler")
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Logger.Warn("Failed to shutdown telemetry", zap.Error(err))
		}
	}()

	if err := storage.Init(true, true, true); err != nil {
		logger.Logger.Fatal("Failed to initialize storage for scheduler", zap.Error(err))
	}
	defer storage.Close()

	// 与 worker 和 server 使用不同的 machineID
	if err := snowflake.Init(cfg.SnowflakeMachineID, cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake for scheduler", zap.Error(err))
	}

	engine, err := bootstrap.NewEngine()
	if err != nil {
		logger.Logger.Fatal("Failed to build attendance engine", zap.Error(err))
	}

	poller := schedule.NewReminderPoller(
		engine.Service,
		reminder.New(engine.Evaluator),
		engine.Policy.Zone,
		cache.NewReminderMarks(redis.Client(), cfg.RedisPrefix),
		queue.NewReminderPublisher(logger.Component("reminder-publisher")),
		schedule.WithPollerLogger(logger.Component("reminder-poller")),
		schedule.WithPollerMetrics(metrics.GetMetrics()),
		schedule.WithConcurrency(cfg.ReminderConcurrency),
	)
	sweeper := schedule.NewMidnightSweeper(engine.Service, engine.Policy.Zone, cfg.SweepTime(),
		logger.Component("midnight-sweeper"))

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", cfg.ServiceName+"-scheduler"),
		zap.String("environment", cfg.Environment),
		zap.Duration("poll_interval", cfg.ReminderPollInterval),
		zap.Duration("tolerance", cfg.ReminderTolerance),
		zap.String("sweep_at", cfg.SweepTime().String()),
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		poller.Run(ctx, cfg.ReminderPollInterval, time.Now)
	}()
	go func() {
		defer wg.Done()
		sweeper.Run(ctx, time.Now)
	}()

	<-ctx.Done()
	wg.Wait()

	logger.Logger.Info("Scheduler service shutting down gracefully")
}
