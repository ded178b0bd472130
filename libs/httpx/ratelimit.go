package httpx

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a fixed-window limiter kept in process memory. Each route
// gets its own bucket per client, so a burst of login attempts does not use
// up the same client's booking allowance.
type RateLimiter struct {
	limit    int
	window   time.Duration
	now      func() time.Time
	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	count     int
	resetTime time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		visitors: map[string]*visitor{},
	}
}

func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count, retryAfter := rl.hit(limitKey(r))
			if !admit(w, rl.limit, count, retryAfter) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// hit counts one request for key and returns the count in the current window
// with the time left until it resets.
func (rl *RateLimiter) hit(key string) (int, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v := rl.visitors[key]
	if v == nil || !now.Before(v.resetTime) {
		if v == nil && len(rl.visitors) >= 4096 {
			rl.sweep(now)
		}
		v = &visitor{resetTime: now.Add(rl.window)}
		rl.visitors[key] = v
	}
	v.count++
	return v.count, v.resetTime.Sub(now)
}

// sweep drops expired windows; caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, v := range rl.visitors {
		if !now.Before(v.resetTime) {
			delete(rl.visitors, k)
		}
	}
}

// admit writes the rate limit headers and, once count exceeds limit, a 429.
// It reports whether the request may proceed.
func admit(w http.ResponseWriter, limit int, count int, retryAfter time.Duration) bool {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if count <= limit {
		return true
	}
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	h.Set("Retry-After", strconv.Itoa(secs))
	http.Error(w, "too many attempts, try again later", http.StatusTooManyRequests)
	return false
}

// limitKey buckets by route and client, for example
// "api.v1.admin.login:203.0.113.7".
func limitKey(r *http.Request) string {
	return routeBucket(r.URL.Path) + ":" + clientKey(r)
}

func routeBucket(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "root"
	}
	return strings.ReplaceAll(path, "/", ".")
}

func clientKey(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		parts := strings.Split(ip, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
