// Package httptransport assembles the HTTP surface: the middleware chain,
// health endpoints, the Prometheus scrape endpoint and the batch API.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"istr/internal/batch/handler"
	ratelimit "istr/internal/ratelimit/middleware"
	"istr/pkg/platform/httputil"
	authmw "istr/pkg/platform/middleware/auth"
	"istr/pkg/platform/middleware/metadata"
	"istr/pkg/platform/middleware/request"
	"istr/pkg/platform/middleware/requesttime"
)

// ScopeRun is required of bearer tokens when authentication is enabled.
const ScopeRun = "batch:run"

const readinessTimeout = 2 * time.Second

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Dependencies is everything NewRouter wires together. Only Logger and Batch
// are required.
type Dependencies struct {
	Logger    *slog.Logger
	Batch     *handler.Handler
	RateLimit *ratelimit.Middleware
	// Auth enables bearer-token authentication on the API when set.
	Auth     authmw.JWTValidator
	Gatherer prometheus.Gatherer
	Health   map[string]HealthCheck
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recovery(deps.Logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(deps.Logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(deps.Health))
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if deps.Auth != nil {
			r.Use(authmw.RequireAuth(deps.Auth, ScopeRun, deps.Logger))
		}
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.RateLimit)
		}
		deps.Batch.Register(r)
	})
	return r
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func readiness(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		resp := readinessResponse{Status: "ok", Checks: make(map[string]string, len(names))}
		status := http.StatusOK
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
