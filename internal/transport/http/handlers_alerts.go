package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"watchtower/internal/alert"
	"watchtower/internal/audit"
)

// AlertsHandler serves alert query and resolution endpoints.
type AlertsHandler struct {
	service *alert.Service
	logger  *slog.Logger
}

// NewAlertsHandler creates the alerts handler.
func NewAlertsHandler(service *alert.Service, logger *slog.Logger) *AlertsHandler {
	return &AlertsHandler{service: service, logger: logger}
}

type alertsResponse struct {
	Data []alert.Alert `json:"data"`
}

func (h *AlertsHandler) handleQueryAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	severity := audit.Severity(q.Get("severity"))
	var resolved *bool
	if v := q.Get("resolved"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "invalid resolved: must be true or false")
			return
		}
		resolved = &b
	}
	limit, err := parseIntParam(r, "limit")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	alerts, err := h.service.Query(r.Context(), severity, resolved, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "query alerts",
			"request_id", requestID(r.Context()),
			"error", err,
		)
		writeError(w, err)
		return
	}
	if alerts == nil {
		alerts = []alert.Alert{}
	}
	writeJSON(w, http.StatusOK, alertsResponse{Data: alerts})
}

type resolveRequest struct {
	ResolvedBy string `json:"resolvedBy"`
}

func (h *AlertsHandler) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid alert id")
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.ResolvedBy == "" {
		writeBadRequest(w, "resolvedBy is required")
		return
	}

	resolved, err := h.service.Resolve(r.Context(), id, req.ResolvedBy)
	if err != nil {
		h.logger.WarnContext(r.Context(), "resolve alert",
			"request_id", requestID(r.Context()),
			"alert_id", id,
			"error", err,
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}
