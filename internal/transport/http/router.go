package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck reports the availability of one backing dependency.
type HealthCheck func(ctx context.Context) error

// RouterDeps collects everything the HTTP surface needs.
type RouterDeps struct {
	Audit         *AuditHandler
	Alerts        *AlertsHandler
	Logger        *slog.Logger
	JWTSigningKey string
	// HealthChecks maps a dependency name to its probe. All must pass for
	// /healthz to report ok.
	HealthChecks map[string]HealthCheck
}

// NewRouter assembles the operator API.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Recovery(deps.Logger))
	r.Use(Logger(deps.Logger))

	r.Get("/healthz", handleHealth(deps.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RequireAdmin(deps.JWTSigningKey, deps.Logger))

		r.Get("/audit/logs", deps.Audit.handleQueryLogs)
		r.Get("/audit/logs/export", deps.Audit.handleExportLogs)

		r.Get("/alerts", deps.Alerts.handleQueryAlerts)
		r.Post("/alerts/{id}/resolve", deps.Alerts.handleResolveAlert)
	})

	return r
}

func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				report[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}
		writeJSON(w, status, report)
	}
}
