// Package httpapi assembles the public HTTP surface. Handlers stay thin and
// delegate to domain services; everything cross-cutting runs in middleware.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	commercehandler "signet/internal/commerce/handler"
	dochandler "signet/internal/document/handler"
	identityhandler "signet/internal/identity/handler"
	"signet/internal/http/shared"
	"signet/internal/platform/metrics"
	"signet/internal/platform/middleware"
	"signet/internal/ratelimit"
	"signet/pkg/requestcontext"
)

// HealthCheck probes one backing dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps collects everything the router mounts.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Auth      *identityhandler.Handler
	Documents *dochandler.Handler
	Commerce  *commercehandler.Handler
	// AuthThrottle, when set, wraps the credential endpoints.
	AuthThrottle *ratelimit.Middleware
	HealthChecks []HealthCheck
}

// NewRouter wires the full API surface with the platform middleware stack.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Latency(deps.Metrics))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if deps.AuthThrottle != nil {
				r.Use(deps.AuthThrottle.Handler)
			}
			deps.Auth.Register(r)
		})
		r.Route("/documents", deps.Documents.Register)
		r.Route("/shopify", deps.Commerce.Register)
		r.Get("/health", handleHealth(deps.Logger, deps.HealthChecks))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func handleHealth(logger *slog.Logger, checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := "ok"
		httpStatus := http.StatusOK
		for _, check := range checks {
			if err := check.Check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed",
					"dependency", check.Name,
					"error", err.Error(),
				)
				status = "degraded"
				httpStatus = http.StatusServiceUnavailable
			}
		}
		shared.WriteJSON(w, httpStatus, map[string]string{
			"status":    status,
			"timestamp": requestcontext.Now(ctx).Format(time.RFC3339),
		})
	}
}
