package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"AttendBot/pkg/response"
)

// Health 存活探针
// GET /healthz
func Health(ctx context.Context, c *app.RequestContext) {
	response.Success(ctx, c, map[string]string{"status": "ok"})
}
