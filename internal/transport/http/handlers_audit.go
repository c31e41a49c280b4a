package httptransport

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"watchtower/internal/audit"
)

// AuditHandler serves the audit log query and export endpoints.
type AuditHandler struct {
	service *audit.Service
	logger  *slog.Logger
}

// NewAuditHandler creates the audit query handler.
func NewAuditHandler(service *audit.Service, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{service: service, logger: logger}
}

type pageMeta struct {
	Count       int    `json:"count"`
	HasNextPage bool   `json:"hasNextPage"`
	NextCursor  string `json:"nextCursor,omitempty"`
}

type logsResponse struct {
	Data []audit.Record `json:"data"`
	Meta pageMeta       `json:"meta"`
}

func (h *AuditHandler) handleQueryLogs(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	limit, err := parseIntParam(r, "limit")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	cursor := r.URL.Query().Get("cursor")

	page, err := h.service.QueryLogs(r.Context(), filters, cursor, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "query audit logs",
			"request_id", requestID(r.Context()),
			"error", err,
		)
		writeError(w, err)
		return
	}

	if page.Data == nil {
		page.Data = []audit.Record{}
	}
	writeJSON(w, http.StatusOK, logsResponse{
		Data: page.Data,
		Meta: pageMeta{Count: page.Count, HasNextPage: page.HasNextPage, NextCursor: page.NextCursor},
	})
}

func (h *AuditHandler) handleExportLogs(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	maxRows, err := parseIntParam(r, "maxRows")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		writeBadRequest(w, "format must be csv or json")
		return
	}

	records, err := h.service.ExportLogs(r.Context(), filters, maxRows)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "export audit logs",
			"request_id", requestID(r.Context()),
			"error", err,
		)
		writeError(w, err)
		return
	}

	filename := fmt.Sprintf("audit-log-%s.%s", time.Now().UTC().Format("2006-01-02"), format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if format == "json" {
		w.Header().Set("Content-Type", "application/json")
		if records == nil {
			records = []audit.Record{}
		}
		_ = json.NewEncoder(w).Encode(records)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	writeCSV(w, records)
}

var csvHeader = []string{
	"id", "timestamp", "actorType", "actorId", "actorName", "action",
	"targetType", "targetId", "severity", "ipAddress", "userAgent",
	"tenantId", "userId", "agentId", "details",
}

func writeCSV(w http.ResponseWriter, records []audit.Record) {
	cw := csv.NewWriter(w)
	_ = cw.Write(csvHeader)
	for _, rec := range records {
		details := ""
		if rec.Details != nil {
			if data, err := json.Marshal(rec.Details); err == nil {
				details = string(data)
			}
		}
		_ = cw.Write([]string{
			rec.ID.String(),
			rec.Timestamp.UTC().Format(time.RFC3339Nano),
			string(rec.ActorType),
			rec.ActorID,
			rec.ActorName,
			rec.Action,
			string(rec.TargetType),
			rec.TargetID,
			string(rec.Severity),
			rec.IPAddress,
			rec.UserAgent,
			rec.TenantID,
			rec.UserID,
			rec.AgentID,
			details,
		})
	}
	cw.Flush()
}

func parseFilters(r *http.Request) (audit.Filters, error) {
	q := r.URL.Query()
	f := audit.Filters{
		TenantID:   q.Get("tenantId"),
		AgentID:    q.Get("agentId"),
		UserID:     q.Get("userId"),
		Action:     q.Get("action"),
		TargetType: audit.TargetType(q.Get("targetType")),
		Severity:   audit.Severity(q.Get("severity")),
	}
	if v := q.Get("dateFrom"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return audit.Filters{}, fmt.Errorf("invalid dateFrom: must be RFC3339")
		}
		f.DateFrom = t
	}
	if v := q.Get("dateTo"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return audit.Filters{}, fmt.Errorf("invalid dateTo: must be RFC3339")
		}
		f.DateTo = t
	}
	return f, nil
}

func parseIntParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative integer", name)
	}
	return n, nil
}
