package api

import (
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/wonny/ffrank/pkg/logger"
	"github.com/wonny/ffrank/pkg/redis"
)

// RateLimiter throttles expensive routes
// The in-process token bucket always applies; when Redis is enabled the
// shared sliding window also applies across replicas.
type RateLimiter struct {
	local     *rate.Limiter
	shared    *redis.RateLimiter
	perSecond float64
	logger    *logger.Logger
}

// NewRateLimiter creates a limiter of perSecond requests with burst 2x
// Returns nil when perSecond <= 0 (disabled).
func NewRateLimiter(perSecond float64, shared *redis.RateLimiter, log *logger.Logger) *RateLimiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(2 * perSecond)
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		local:     rate.NewLimiter(rate.Limit(perSecond), burst),
		shared:    shared,
		perSecond: perSecond,
		logger:    log,
	}
}

// Middleware rejects requests over the limit with 429
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.local.Allow() {
			tooManyRequests(w)
			return
		}

		if l.shared != nil && l.shared.Enabled() {
			allowed, remaining, err := l.shared.Allow(r.Context(), redis.APIRateLimit("topk", l.perSecond))
			if err != nil {
				// Redis 장애 시 로컬 한도만 적용
				l.logger.WithError(err).Warn("Shared rate limit check failed")
			} else {
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
				if !allowed {
					tooManyRequests(w)
					return
				}
			}
		}

		next.ServeHTTP(w, r)
	})
}

func tooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":"rate limit exceeded"}`))
}
