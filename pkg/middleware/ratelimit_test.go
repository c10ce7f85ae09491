package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/loanorigination/pkg/config"
	"github.com/wyfcoding/loanorigination/pkg/ratelimit"
)

func TestTokenBucketExhaustion(t *testing.T) {
	limiter := NewRateLimiter(2, 0)
	require.True(t, limiter.Allow())
	require.True(t, limiter.Allow())
	require.False(t, limiter.Allow())
}

func TestTokenBucketRefill(t *testing.T) {
	// 高补充速率下短暂等待即可恢复令牌
	limiter := NewRateLimiter(1, 1000)
	require.True(t, limiter.Allow())
	require.False(t, limiter.Allow())

	time.Sleep(10 * time.Millisecond)
	require.True(t, limiter.Allow())
}

// stubRateLimiter 模拟 Redis 不可用的限流器
type stubRateLimiter struct {
	err error
	res *ratelimit.Result
}

func (s *stubRateLimiter) Allow(_ context.Context, _ string, _ ratelimit.Limit) (*ratelimit.Result, error) {
	return s.res, s.err
}

func newRateLimitRouter(limiter ratelimit.RateLimiter, cfg config.RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(limiter, cfg))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestRateLimitMiddlewareFallsBackWhenRedisDown(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, QPS: 0, Burst: 2}
	r := newRateLimitRouter(&stubRateLimiter{err: errors.New("redis: connection refused")}, cfg)

	// Redis 故障时本地令牌桶兜底：突发额度内放行，耗尽后拒绝
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitMiddlewareRejectsWhenLimitExceeded(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, QPS: 1, Burst: 1}
	stub := &stubRateLimiter{res: &ratelimit.Result{Allowed: false, RetryAfter: time.Second}}
	r := newRateLimitRouter(stub, cfg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: false}
	r := newRateLimitRouter(&stubRateLimiter{err: errors.New("should not be called")}, cfg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
}
