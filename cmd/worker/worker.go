package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"AttendBot/config"
	"AttendBot/internal/bootstrap"
	"AttendBot/internal/cache"
	"AttendBot/internal/queue"
	"AttendBot/pkg/logger"
	"AttendBot/pkg/metrics"
	"AttendBot/storage"
	"AttendBot/storage/redis"
)

const reminderPrefetch = 16

func main() {
	logger.Init("worker")
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	cfg := config.Cfg
	shutdownTelemetry := bootstrap.Telemetry(ctx, cfg.ServiceName+"-worker")
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Logger.Warn("Failed to shutdown telemetry", zap.Error(err))
		}
	}()

	// worker 只做投递，不访问考勤表
	if err := storage.Init(false, true, true); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	// 聊天渠道由外部接入，这里先写日志
	consumer := queue.NewReminderConsumer(
		queue.NewLogNotifier(logger.Component("notifier")),
		cache.NewReminderMarks(redis.Client(), cfg.RedisPrefix),
		logger.Component("reminder-consumer"),
		metrics.GetMetrics(),
	)

	logger.Logger.Info("Worker service starting",
		zap.String("service", cfg.ServiceName+"-worker"),
		zap.String("environment", cfg.Environment),
	)

	if err := consumer.Start(ctx, reminderPrefetch); err != nil {
		logger.Logger.Error("Reminder consumer stopped", zap.Error(err))
	}

	logger.Logger.Info("Worker service shutting down gracefully")
}
