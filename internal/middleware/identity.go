package middleware

import (
	"context"
	"strings"
	"unicode"

	"github.com/cloudwego/hertz/pkg/app"

	"AttendBot/pkg/errors"
	"AttendBot/pkg/response"
)

const (
	IdentityKey    = "user_id"
	UserIDHeader   = "X-User-ID"
	maxUserIDBytes = 64
)

// IdentityMiddleware 身份由前置的消息网关注入 X-User-ID，这里只做格式校验
func IdentityMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		userID := strings.TrimSpace(string(c.GetHeader(UserIDHeader)))
		if userID == "" {
			response.Error(ctx, c, errors.Unauthorized)
			c.Abort()
			return
		}
		if !validUserID(userID) {
			response.Error(ctx, c, errors.InvalidUserID)
			c.Abort()
			return
		}

		c.Set(IdentityKey, userID)
		c.Next(ctx)
	}
}

func validUserID(id string) bool {
	if len(id) > maxUserIDBytes {
		return false
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// GetUserID 从上下文中获取用户ID
func GetUserID(ctx context.Context, c *app.RequestContext) (string, bool) {
	userID, exists := c.Get(IdentityKey)
	if !exists {
		return "", false
	}

	id, ok := userID.(string)
	if !ok {
		return "", false
	}

	return id, true
}
