package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"go.uber.org/zap"

	cfgpkg "AttendBot/config"
	"AttendBot/internal/bootstrap"
	"AttendBot/internal/handler"
	"AttendBot/internal/middleware"
	"AttendBot/internal/report"
	"AttendBot/internal/router"
	"AttendBot/pkg/logger"
	"AttendBot/storage"
	"AttendBot/storage/redis"
)

func main() {
	// 日志部分
	logger.Init("server")
	defer logger.Sync()

	cfg := cfgpkg.Cfg
	if err := cfg.Validate(); err != nil {
		logger.Logger.Fatal("Invalid attendance configuration", zap.Error(err))
	}

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

	shutdownTelemetry := bootstrap.Telemetry(ctx, cfg.ServiceName)
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Logger.Warn("Failed to shutdown telemetry", zap.Error(err))
		}
	}()

	// server 不发布消息，不需要 MQ
	if err := storage.Init(true, true, false); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	engine, err := bootstrap.NewEngine()
	if err != nil {
		logger.Logger.Fatal("Failed to build attendance engine", zap.Error(err))
	}

	if err := bootstrap.SeedHolidays(ctx, engine.Calendar, engine.Holidays, cfg.Holidays, logger.Component("holidays")); err != nil {
		logger.Logger.Fatal("Failed to seed holidays", zap.Error(err))
	}

	reports := report.NewAggregator(engine.Records, engine.Evaluator, logger.Component("report"),
		report.WithHolidayCalendar(engine.Calendar),
	)
	attendanceHandler := handler.NewAttendanceHandler(engine.Service, reports, nil)

	logger.Logger.Info("Server starting",
		zap.String("service", cfg.ServiceName),
		zap.String("port", cfg.ServerPort),
		zap.String("environment", cfg.Environment),
		zap.String("timezone", engine.Policy.Zone.Name()),
	)

	addr := net.JoinHostPort(cfg.ServerHost, cfg.ServerPort)
	serverOpts := []config.Option{server.WithHostPorts(addr)}

	var opts router.Options
	if cfg.OTLPEndpoint != "" {
		tracerOpt, tracing := middleware.NewServerTracerConfig()
		serverOpts = append(serverOpts, tracerOpt)
		opts.Tracing = tracing

		metricsMW, err := middleware.MetricsMiddleware()
		if err != nil {
			logger.Logger.Warn("Failed to initialize HTTP metrics", zap.Error(err))
		} else {
			opts.Metrics = metricsMW
		}
	}
	if cfg.RateLimitEnabled {
		opts.RateLimiter = middleware.NewRateLimiter(redis.Client(), cfg.RedisPrefix, middleware.RateLimitConfig{
			Window:      time.Second,
			MaxRequests: cfg.RateLimitRPS,
			KeyPrefix:   "rate:limit",
		})
	}

	h := server.Default(serverOpts...)
	router.Register(h, attendanceHandler, opts)

	// 优雅关闭：在单独的 goroutine 中监听关闭信号并调用 Shutdown
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	logger.Logger.Info("Server shutting down gracefully")
}
