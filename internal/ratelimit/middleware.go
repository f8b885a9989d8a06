package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"signet/internal/http/shared"
	"signet/pkg/requestcontext"
)

var throttledRequests = promauto.NewCounter(prometheus.CounterOpts{
	Name: "signet_throttled_requests_total",
	Help: "Requests rejected by the credential rate limiter",
})

// Middleware applies a per-IP limit to the routes it wraps. A limiter
// failure fails open; throttling is protection, not a dependency.
type Middleware struct {
	limiter Limiter
	logger  *slog.Logger
	limit   int
	window  time.Duration
}

func NewMiddleware(limiter Limiter, limit int, window time.Duration, logger *slog.Logger) *Middleware {
	return &Middleware{
		limiter: limiter,
		logger:  logger,
		limit:   limit,
		window:  window,
	}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := clientKey(ctx)

		result, err := m.limiter.Allow(ctx, key, m.limit, m.window)
		if err != nil {
			m.logger.Error("rate limit check failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		setRateLimitHeaders(w, result)

		if !result.Allowed {
			throttledRequests.Inc()
			m.logger.Warn("request throttled",
				"key", key,
				"request_id", requestcontext.RequestID(ctx),
			)
			retryAfter := max(int(time.Until(result.ResetAt).Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			shared.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "too many requests, slow down",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientKey(ctx context.Context) string {
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		return ip
	}
	return "unknown"
}

func setRateLimitHeaders(w http.ResponseWriter, result *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
