package router

import (
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"

	"AttendBot/internal/handler"
	"AttendBot/internal/middleware"
)

// Options 可选中间件，nil 表示不启用
type Options struct {
	Tracing     app.HandlerFunc
	Metrics     app.HandlerFunc
	RateLimiter *middleware.RateLimiter
}

func Register(h *server.Hertz, attendance *handler.AttendanceHandler, opts Options) {
	h.Use(middleware.RecoverMiddleware())
	if opts.Tracing != nil {
		h.Use(opts.Tracing)
	}
	h.Use(middleware.RequestIDMiddleware())
	h.Use(middleware.CORSMiddleware())
	if opts.Metrics != nil {
		h.Use(opts.Metrics)
	}

	h.GET("/healthz", handler.Health)

	v1 := h.Group("/v1")

	// 考勤路由，身份由网关注入
	att := v1.Group("/attendance")
	att.Use(middleware.IdentityMiddleware())
	if opts.RateLimiter != nil {
		att.Use(opts.RateLimiter.Middleware())
	}
	{
		att.POST("/check-in", attendance.CheckIn)
		att.POST("/check-out", attendance.CheckOut)
		att.GET("/today", attendance.GetToday)
		att.GET("/reports/monthly", attendance.GetMonthlyReport)
	}
}
