package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rajasatyajit/incidentwatch/internal/logger"
	"github.com/rajasatyajit/incidentwatch/internal/ratelimit"
)

// Limiter is the fixed-window counter behind VoteThrottle
type Limiter interface {
	Allow(ctx context.Context, scope, key string, limit int, window time.Duration) (ratelimit.Decision, error)
}

// VoteThrottle caps vote submissions per client key per minute. A nil
// limiter or a non-positive limit disables it; limiter errors fail open.
func VoteThrottle(l Limiter, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil || perMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)
			d, err := l.Allow(r.Context(), "votes", key, perMinute, time.Minute)
			if err != nil {
				logger.WithContext(r.Context()).Warn("Vote throttle unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(d.ResetSec))
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(d.ResetSec))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
