package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL         = 10 * time.Minute
	limiterCleanupInterval = 5 * time.Minute
)

// RateLimiter keeps one token bucket per client.
type RateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
	log      zerolog.Logger
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess atomic.Int64
}

// NewRateLimiter starts a limiter allowing rps requests per second with the
// given burst. Stop releases its cleanup goroutine.
func NewRateLimiter(rps float64, burst int, log zerolog.Logger) *RateLimiter {
	rl := &RateLimiter{
		rate:  rate.Limit(rps),
		burst: burst,
		log:   log,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go rl.cleanup(limiterCleanupInterval)
	return rl
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	cutoff := rl.now().Add(-limiterIdleTTL).UnixNano()
	rl.limiters.Range(func(key, value any) bool {
		if value.(*limiterEntry).lastAccess.Load() < cutoff {
			rl.limiters.Delete(key)
		}
		return true
	})
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := rl.now().UnixNano()
	if v, ok := rl.limiters.Load(key); ok {
		e := v.(*limiterEntry)
		e.lastAccess.Store(now)
		return e.limiter
	}
	e := &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
	e.lastAccess.Store(now)
	actual, _ := rl.limiters.LoadOrStore(key, e)
	return actual.(*limiterEntry).limiter
}

// clientKey identifies the caller by user header, then forwarded address,
// then remote address.
func clientKey(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(HeaderUserID)); id != "" {
		return "user:" + id
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return "ip:" + strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}

// Middleware rejects requests over the limit with 429. /health is exempt.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		key := clientKey(r)
		lim := rl.limiter(key)
		w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(float64(rl.rate), 'f', -1, 64))

		if !lim.Allow() {
			rl.log.Warn().
				Str("client_id", key).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("Rate limit exceeded")

			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "1")
			WriteError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}

		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", max(int(lim.Tokens()), 0)))
		next.ServeHTTP(w, r)
	})
}
