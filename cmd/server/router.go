package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fitgap/internal/platform/metrics"
	"fitgap/internal/platform/middleware"
	"fitgap/pkg/platform/httputil"
	"fitgap/pkg/platform/middleware/metadata"
	"fitgap/pkg/platform/middleware/requesttime"
)

type registrar interface {
	Register(r chi.Router)
}

// healthCheck pings one backing dependency.
type healthCheck func(ctx context.Context) error

// routes groups the handlers mounted behind authentication.
type routes struct {
	signOff     registrar
	signatories registrar
	decisionLog registrar
	comparisons registrar

	// health lists the dependencies /health checks, keyed by name.
	health map[string]healthCheck
}

// newRouter builds the HTTP surface. Health and metrics are public; every
// domain route requires a bearer token.
func newRouter(h routes, tokens middleware.JWTValidator, reg *prometheus.Registry, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(metrics.New(reg).Middleware)

	r.Get("/health", handleHealth(h.health, log))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	r.Group(func(api chi.Router) {
		api.Use(middleware.RequireActor(tokens, log))
		h.signOff.Register(api)
		h.signatories.Register(api)
		h.decisionLog.Register(api)
		h.comparisons.Register(api)
	})
	return r
}

// handleHealth reports 503 when any dependency check fails.
func handleHealth(checks map[string]healthCheck, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				log.WarnContext(r.Context(), "health check failed", "dependency", name, "error", err)
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = "unavailable"
				continue
			}
			body[name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
