// Package adminserver exposes the worker's health and metrics surface
// over HTTP: /healthz, /readyz, and /metrics. It generalizes the
// teacher's chi-based router down to the minimal admin API a background
// worker needs, dropping everything that belongs to a request-serving
// gateway (auth, CORS, request proxying).
package adminserver

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Pinger is implemented by the shared-state client; used by the
// readiness probe to verify the worker can still reach its backing
// store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New builds the admin HTTP handler. metricsHandler serves /metrics,
// typically promhttp.HandlerFor over the registry metrics.New
// registered collectors with.
func New(store Pinger, metricsHandler http.Handler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := store.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"not ready"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Handle("/metrics", metricsHandler)

	return r
}

// NewWithPrometheusHandler is a convenience constructor that wires the
// default promhttp.Handler() as the /metrics endpoint.
func NewWithPrometheusHandler(store Pinger, logger zerolog.Logger) http.Handler {
	return New(store, promhttp.Handler(), logger)
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("admin request")
			next.ServeHTTP(w, r)
		})
	}
}
