package middleware

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, max int) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRateLimiter(rdb, "test", RateLimitConfig{Window: time.Second, MaxRequests: max, KeyPrefix: "rate"}), mr
}

func TestRateLimiterWindow(t *testing.T) {
	rl, _ := newLimiter(t, 2)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 2; i++ {
		ok, _, err := rl.Allow(ctx, "k", now.Add(time.Duration(i)*time.Millisecond))
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, count, err := rl.Allow(ctx, "k", now.Add(5*time.Millisecond))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, count)

	// 窗口滑过后重新放行
	ok, _, err = rl.Allow(ctx, "k", now.Add(2*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)
}

func newEngine(mw ...app.HandlerFunc) *server.Hertz {
	h := server.Default(server.WithHostPorts("127.0.0.1:0"))
	h.Use(RequestIDMiddleware())
	h.Use(IdentityMiddleware())
	h.Use(mw...)
	h.GET("/ping", func(ctx context.Context, c *app.RequestContext) {
		userID, _ := GetUserID(ctx, c)
		c.String(http.StatusOK, userID)
	})
	return h
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newLimiter(t, 1)
	h := newEngine(rl.Middleware())
	header := ut.Header{Key: UserIDHeader, Value: "u1"}

	w := ut.PerformRequest(h.Engine, http.MethodGet, "/ping", nil, header)
	assert.Equal(t, http.StatusOK, w.Result().StatusCode())
	assert.Equal(t, "0", string(w.Result().Header.Peek("X-RateLimit-Remaining")))

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/ping", nil, header)
	assert.Equal(t, http.StatusTooManyRequests, w.Result().StatusCode())

	// 另一个用户不受影响
	w = ut.PerformRequest(h.Engine, http.MethodGet, "/ping", nil, ut.Header{Key: UserIDHeader, Value: "u2"})
	assert.Equal(t, http.StatusOK, w.Result().StatusCode())
}

func TestRateLimitFailsOpen(t *testing.T) {
	rl, mr := newLimiter(t, 1)
	mr.Close()
	h := newEngine(rl.Middleware())

	w := ut.PerformRequest(h.Engine, http.MethodGet, "/ping", nil, ut.Header{Key: UserIDHeader, Value: "u1"})
	assert.Equal(t, http.StatusOK, w.Result().StatusCode())
}

func TestIdentityAndRequestID(t *testing.T) {
	h := newEngine()

	w := ut.PerformRequest(h.Engine, http.MethodGet, "/ping", nil, ut.Header{Key: UserIDHeader, Value: " u1 "})
	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "u1", string(resp.Body()))
	assert.NotEmpty(t, resp.Header.Peek(RequestIDHeader))

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/ping", nil,
		ut.Header{Key: UserIDHeader, Value: "u1"},
		ut.Header{Key: RequestIDHeader, Value: "req-1"},
	)
	assert.Equal(t, "req-1", string(w.Result().Header.Peek(RequestIDHeader)))

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode())
}

func TestRecoverMiddleware(t *testing.T) {
	h := server.Default(server.WithHostPorts("127.0.0.1:0"))
	h.Use(RecoverMiddleware())
	h.GET("/boom", func(ctx context.Context, c *app.RequestContext) {
		panic("boom")
	})

	w := ut.PerformRequest(h.Engine, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), "INTERNAL_SERVER_ERROR")
}
