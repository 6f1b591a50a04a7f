package controller

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"envmon/internal/modules/readings/policy"
	"envmon/internal/modules/readings/report"
	"envmon/internal/modules/readings/service"
	"envmon/internal/modules/readings/types"
	"envmon/internal/utils"
)

const ingestSource = "http"

type listResponse struct {
	Items         []types.Reading `json:"items"`
	TotalMatching int             `json:"total_matching"`
	CountReturned int             `json:"count_returned"`
	Skip          int             `json:"skip"`
	Limit         int             `json:"limit"`
}

// writeServiceError maps service errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	if ve, ok := policy.AsValidationError(err); ok {
		utils.WriteErrorKind(w, http.StatusBadRequest, string(ve.Kind), ve.Message)
		return
	}
	var ce *policy.ConfigurationError
	if errors.As(err, &ce) {
		slog.Error(op+": invalid configuration", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, ce.Error())
		return
	}
	if errors.Is(err, service.ErrStoreUnavailable) {
		slog.Error(op+": store unavailable", "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "storage temporarily unavailable")
		return
	}
	slog.Error(op+" failed", "error", err)
	utils.WriteError(w, http.StatusInternalServerError, "internal error")
}

// authorize checks the shared API key from the X-API-KEY header or the
// api_key query parameter.
func (c *readingsControllerImpl) authorize(w http.ResponseWriter, r *http.Request) bool {
	if c.apiKey == "" {
		slog.Error("ingest refused: API_KEY is not configured")
		utils.WriteError(w, http.StatusInternalServerError, "API key not configured on server")
		return false
	}
	key := r.Header.Get("X-API-KEY")
	if key == "" {
		key = r.URL.Query().Get("api_key")
	}
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(c.apiKey)) != 1 {
		slog.Warn("ingest refused: missing or invalid API key", "remote_addr", r.RemoteAddr)
		utils.WriteError(w, http.StatusForbidden, "missing or invalid API key")
		return false
	}
	return true
}

func (c *readingsControllerImpl) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !c.authorize(w, r) {
		return
	}

	payload, err := utils.DecodeJSONObject(w, r)
	if err != nil {
		c.metrics.ReadingRejected(ingestSource, "invalid_body")
		utils.WriteErrorKind(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	reading, err := c.ingester.Ingest(r.Context(), payload)
	if err != nil {
		if ve, ok := policy.AsValidationError(err); ok {
			c.metrics.ReadingRejected(ingestSource, string(ve.Kind))
			slog.Info("reading rejected", "kind", ve.Kind, "message", ve.Message)
		}
		writeServiceError(w, "ingest", err)
		return
	}

	c.metrics.ReadingIngested(ingestSource, string(reading.Status))
	slog.Debug("reading stored", "id", reading.ID, "status", reading.Status)
	utils.WriteJSON(w, http.StatusCreated, map[string]any{
		"status": "success",
		"data":   reading,
	})
}

func (c *readingsControllerImpl) handleList(w http.ResponseWriter, r *http.Request) {
	filter, skip, limit, err := parseListQuery(r)
	if err != nil {
		writeServiceError(w, "list", err)
		return
	}

	page, err := c.querier.List(r.Context(), filter, skip, limit)
	if err != nil {
		writeServiceError(w, "list", err)
		return
	}
	items := page.Items
	if items == nil {
		items = []types.Reading{}
	}
	utils.WriteJSON(w, http.StatusOK, listResponse{
		Items:         items,
		TotalMatching: page.TotalMatching,
		CountReturned: len(items),
		Skip:          skip,
		Limit:         min(limit, service.MaxPageSize),
	})
}

func (c *readingsControllerImpl) handleStats(w http.ResponseWriter, r *http.Request) {
	tr, err := parseTimeRange(r)
	if err != nil {
		writeServiceError(w, "stats", err)
		return
	}
	summary, err := c.querier.Stats(r.Context(), tr)
	if err != nil {
		writeServiceError(w, "stats", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}

func (c *readingsControllerImpl) handleReport(w http.ResponseWriter, r *http.Request) {
	hours, err := parseIntParam(r, "hours", report.DefaultHours)
	if err != nil {
		writeServiceError(w, "report", err)
		return
	}
	rep, err := report.Generate(r.Context(), c.querier, hours, c.now())
	if err != nil {
		writeServiceError(w, "report", err)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		utils.WriteText(w, http.StatusOK, report.FormatText(rep))
		return
	}
	utils.WriteJSON(w, http.StatusOK, rep)
}

func (c *readingsControllerImpl) handleStatuses(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, report.StatusTable())
}
