package httpx

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a per-client token bucket kept in process memory. It is the
// fallback when no Redis is configured.
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	idle   time.Duration
	mu     sync.Mutex
	byKey  map[string]*bucket
	swept  time.Time
	nowFun func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewRateLimiter allows limit requests per window per client.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:  rate.Every(window / time.Duration(limit)),
		burst:  limit,
		idle:   2 * window,
		byKey:  map[string]*bucket{},
		nowFun: time.Now,
	}
}

func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(ClientKey(r)) {
				WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.nowFun()
	if now.Sub(rl.swept) > rl.idle {
		for k, b := range rl.byKey {
			if now.Sub(b.seen) > rl.idle {
				delete(rl.byKey, k)
			}
		}
		rl.swept = now
	}

	b := rl.byKey[key]
	if b == nil {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.byKey[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// ClientKey identifies the caller by the first X-Forwarded-For hop, falling back to
// the remote address.
func ClientKey(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		first, _, _ := strings.Cut(ip, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
