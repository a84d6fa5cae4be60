package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gemfashion/storefront/core"
)

// Limiter admits at most a fixed number of requests per key and window
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, resetAt time.Time, err error)
}

type window struct {
	count   int
	resetAt time.Time
}

// WindowLimiter is an in-process fixed window limiter
type WindowLimiter struct {
	max    int
	period time.Duration

	mu      sync.Mutex
	windows map[string]*window
}

// NewWindowLimiter admits max requests per key every period. max <= 0
// disables limiting.
func NewWindowLimiter(max int, period time.Duration) *WindowLimiter {
	return &WindowLimiter{max: max, period: period, windows: make(map[string]*window)}
}

// Allow counts a request for key
func (l *WindowLimiter) Allow(_ context.Context, key string) (bool, time.Time, error) {
	now := time.Now()
	if l.max <= 0 {
		return true, now, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.period)}
		l.windows[key] = w
		if len(l.windows) > 1024 {
			l.sweepLocked(now)
		}
	}
	w.count++
	return w.count <= l.max, w.resetAt, nil
}

func (l *WindowLimiter) sweepLocked(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}

// RedisLimiter shares request counts between instances through Redis
type RedisLimiter struct {
	client *core.RedisClient
	max    int
	period time.Duration
}

// NewRedisLimiter admits max requests per key every period
func NewRedisLimiter(client *core.RedisClient, max int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, max: max, period: period}
}

// Allow increments the key's counter, starting its window on first use
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Time, error) {
	if l.max <= 0 {
		return true, time.Now(), nil
	}
	key = "ratelimit:" + key

	count, err := l.client.Incr(ctx, key)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.period); err != nil {
			return false, time.Time{}, fmt.Errorf("failed to start rate limit window: %w", err)
		}
	}

	ttl, err := l.client.TTL(ctx, key)
	if err != nil || ttl <= 0 {
		// a counter without expiry would block the key forever
		_ = l.client.Expire(ctx, key, l.period)
		ttl = l.period
	}
	return count <= int64(l.max), time.Now().Add(ttl), nil
}

// rateLimit guards assistant messages per client. Limiter failures let the
// request through.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		allowed, resetAt, err := s.deps.Limiter.Allow(ctx, "assistant:"+c.GetString(clientIDKey))
		if err != nil {
			s.logger.WarnWithContext(ctx, "Rate limiter unavailable", map[string]interface{}{
				"error": err.Error(),
			})
			c.Next()
			return
		}
		if !allowed {
			retry := int(time.Until(resetAt).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{
				Error: "Too many messages. Please wait a moment and try again.",
				Kind:  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
