package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/rideparty/internal/handlers"
	"github.com/HammerMeetNail/rideparty/internal/logging"
)

// Counter increments a windowed counter and returns the new count.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter counts with INCR and EXPIRE in one pipeline.
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RateLimiter caps requests per caller per fixed window. Authenticated
// callers are keyed by user id, others by client IP. It fails open when the
// counter is missing or errors.
type RateLimiter struct {
	counter Counter
	limit   int64
	window  time.Duration
	prefix  string
	now     func() time.Time
}

func NewRateLimiter(counter Counter, limit int64, window time.Duration, prefix string) *RateLimiter {
	return &RateLimiter{
		counter: counter,
		limit:   limit,
		window:  window,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.counter == nil || rl.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		windowEnd := rl.now().Truncate(rl.window).Add(rl.window)
		key := fmt.Sprintf("%s:%s:%d", rl.prefix, callerKey(r), windowEnd.Unix())

		count, err := rl.counter.Incr(r.Context(), key, rl.window)
		if err != nil {
			logging.Warn("Rate limit counter unavailable", logging.Fields{"error": err, "prefix": rl.prefix})
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.limit - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", windowEnd.Unix()))

		if count > rl.limit {
			retry := int64(windowEnd.Sub(rl.now()).Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
			writeJSONError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func callerKey(r *http.Request) string {
	if user := handlers.GetUserFromContext(r.Context()); user != nil {
		return "user:" + user.ID.String()
	}
	return "ip:" + getClientIP(r)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip, _, err := net.SplitHostPort(first); err == nil {
			return ip
		}
		return first
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// NewAuthRateLimiter is the stricter limiter for login and register.
func NewAuthRateLimiter(counter Counter) *RateLimiter {
	return NewRateLimiter(counter, 5, time.Minute, "ratelimit:auth")
}

// NewJoinRateLimiter limits join attempts and join requests.
func NewJoinRateLimiter(counter Counter, perMinute int64) *RateLimiter {
	return NewRateLimiter(counter, perMinute, time.Minute, "ratelimit:join")
}
