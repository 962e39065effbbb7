// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/zacanbrcom/auditorium-booking/internal/core"
)

type RateLimitConfig struct {
	Limit redis_rate.Limit

	// KeyFunc names the bucket a request is counted against. Defaults to
	// KeyByIP.
	KeyFunc func(*http.Request) string

	// Skip exempts requests from limiting entirely.
	Skip func(*http.Request) bool
}

// RateLimiter counts requests in Redis when a client is configured and in
// process otherwise. A Redis failure falls back to the in-process
// counters for that request.
type RateLimiter struct {
	shared *redis_rate.Limiter
	local  *localLimiter
	cfg    RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}

	rl := &RateLimiter{
		local: newLocalLimiter(cfg.Limit),
		cfg:   cfg,
	}
	if rdb != nil {
		rl.shared = redis_rate.NewLimiter(rdb)
	}
	return rl
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.cfg.Skip != nil && rl.cfg.Skip(r) {
			next.ServeHTTP(w, r)
			return
		}

		res := rl.allow(r.Context(), rl.cfg.KeyFunc(r))
		writeLimitHeaders(w.Header(), rl.cfg.Limit, res)

		if res.Allowed == 0 {
			LoggerFromContext(r.Context()).Info("rate limited",
				"remaining", res.Remaining,
				"retry_after", res.RetryAfter,
			)
			writeLimited(w, res.RetryAfter)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ctx context.Context, key string) *redis_rate.Result {
	if rl.shared != nil {
		res, err := rl.shared.Allow(ctx, key, rl.cfg.Limit)
		if err == nil {
			return res
		}
		LoggerFromContext(ctx).Warn("redis rate limiter unavailable, counting locally",
			"error", err,
		)
	}
	return rl.local.allow(key)
}

// KeyByIP keys by client address, trusting the nearest proxy hop.
func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + clientIP(r)
}

// KeyByIdentity keys reservation writes by the resolved caller so that
// one account cannot flood the approval queue from many addresses.
// Requests without an identity are keyed by address in the same
// namespace.
func KeyByIdentity(r *http.Request) string {
	if id := IdentityFromContext(r.Context()); id != nil {
		return "ratelimit:booking:user:" + strings.ToLower(id.Email())
	}
	return "ratelimit:booking:ip:" + clientIP(r)
}

// SkipPaths exempts exact request paths, such as health checks.
func SkipPaths(paths ...string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		return slices.Contains(paths, r.URL.Path)
	}
}

// PerWindow builds a limit of rate requests per window.
func PerWindow(rate, burst int, window time.Duration) redis_rate.Limit {
	if window <= 0 {
		window = time.Minute
	}
	return redis_rate.Limit{
		Rate:   rate,
		Burst:  burst,
		Period: window,
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return strings.TrimSpace(hops[len(hops)-1])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeLimitHeaders(h http.Header, limit redis_rate.Limit, res *redis_rate.Result) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("RateLimit-Policy", fmt.Sprintf("%d;w=%d", limit.Rate, int(limit.Period.Seconds())))
}

func writeLimited(w http.ResponseWriter, retryAfter time.Duration) {
	secs := max(int(math.Ceil(retryAfter.Seconds())), 1)

	w.Header().Set("Retry-After", strconv.Itoa(secs))
	core.JSON(w, http.StatusTooManyRequests, core.Response{
		Success: false,
		Error: &core.ErrorBody{
			Code:    "RATE_LIMITED",
			Message: fmt.Sprintf("too many requests, retry in %d seconds", secs),
		},
	})
}

const idleBucketTTL = 10 * time.Minute

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localLimiter keeps one token bucket per key. Buckets idle longer than
// idleBucketTTL are swept on access.
type localLimiter struct {
	limit redis_rate.Limit
	every rate.Limit

	mu        sync.Mutex
	buckets   map[string]*localBucket
	lastSweep time.Time
}

func newLocalLimiter(limit redis_rate.Limit) *localLimiter {
	return &localLimiter{
		limit:     limit,
		every:     rate.Limit(float64(limit.Rate) / limit.Period.Seconds()),
		buckets:   make(map[string]*localBucket),
		lastSweep: time.Now(),
	}
}

func (l *localLimiter) allow(key string) *redis_rate.Result {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > idleBucketTTL {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > idleBucketTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(l.every, l.limit.Burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	res := &redis_rate.Result{Limit: l.limit, RetryAfter: -1}

	reservation := b.limiter.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		res.RetryAfter = delay
	} else {
		res.Allowed = 1
	}
	res.Remaining = max(int(b.limiter.TokensAt(now)), 0)

	return res
}
