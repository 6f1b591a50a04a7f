package controller

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"envmon/internal/modules/readings/report"
	"envmon/internal/modules/readings/types"
	"envmon/internal/modules/readings/views"
	"envmon/internal/utils"
)

const (
	summaryWindow = 24 * time.Hour
	alertsWindow  = 7 * 24 * time.Hour
	alertsLimit   = 10
)

func writeHTML(w http.ResponseWriter, op, failMsg string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		slog.Error(op+" render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, failMsg)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error(op+": write response failed", "error", err)
	}
}

func (c *readingsControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	summary, err := c.buildSummary(ctx)
	if err != nil {
		writeServiceError(w, "dashboard", err)
		return
	}
	rangeKey, _ := resolveHistoryRangeKey(r.URL.Query().Get("range"))
	status := parseStatusFilter(r)
	history, err := c.buildHistory(ctx, rangeKey, status, 1)
	if err != nil {
		writeServiceError(w, "dashboard", err)
		return
	}
	alerts, err := c.buildAlerts(ctx)
	if err != nil {
		writeServiceError(w, "dashboard", err)
		return
	}

	data := &views.DashboardData{
		Summary:  summary,
		History:  history,
		Alerts:   alerts,
		Ranges:   rangeOptions(rangeKey),
		Statuses: statusOptions(status),
		Legend:   report.StatusTable(),
	}
	writeHTML(w, "dashboard", "failed to render page", func(out io.Writer) error {
		return views.RenderDashboard(out, data)
	})
}

func (c *readingsControllerImpl) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	summary, err := c.buildSummary(r.Context())
	if err != nil {
		writeServiceError(w, "summary", err)
		return
	}
	writeHTML(w, "summary partial", "failed to render", func(out io.Writer) error {
		return views.RenderSummaryPartial(out, &summary)
	})
}

func (c *readingsControllerImpl) handleHistoryPartial(w http.ResponseWriter, r *http.Request) {
	rangeKey, ok := resolveHistoryRangeKey(r.URL.Query().Get("range"))
	if !ok {
		slog.Warn("history: invalid range", "range", r.URL.Query().Get("range"))
	}
	history, err := c.buildHistory(r.Context(), rangeKey, parseStatusFilter(r), parseHistoryPage(r))
	if err != nil {
		writeServiceError(w, "history", err)
		return
	}
	writeHTML(w, "history partial", "failed to render", func(out io.Writer) error {
		return views.RenderHistoryPartial(out, &history)
	})
}

func (c *readingsControllerImpl) handleAlertsPartial(w http.ResponseWriter, r *http.Request) {
	alerts, err := c.buildAlerts(r.Context())
	if err != nil {
		writeServiceError(w, "alerts", err)
		return
	}
	writeHTML(w, "alerts partial", "failed to render", func(out io.Writer) error {
		return views.RenderAlertsPartial(out, &alerts)
	})
}

func (c *readingsControllerImpl) buildSummary(ctx context.Context) (views.SummaryData, error) {
	latest, err := c.querier.Latest(ctx)
	if err != nil {
		return views.SummaryData{}, err
	}
	now := c.now().UTC()
	stats, err := c.querier.Stats(ctx, types.TimeRange{Start: now.Add(-summaryWindow), End: now})
	if err != nil {
		return views.SummaryData{}, err
	}
	return views.SummaryData{
		RangeLabel: historyRanges["24h"].Label,
		Latest:     latest,
		Stats:      stats,
		Thresholds: c.ingester.Thresholds(),
	}, nil
}

func (c *readingsControllerImpl) buildHistory(ctx context.Context, rangeKey string, status types.Status, page int) (views.HistoryData, error) {
	info := historyRanges[rangeKey]
	now := c.now().UTC()
	filter := types.Filter{
		TimeRange: types.TimeRange{Start: now.Add(-info.Duration), End: now},
		Status:    status,
	}

	result, err := c.querier.List(ctx, filter, (page-1)*historyPageSize, historyPageSize)
	if err != nil {
		return views.HistoryData{}, err
	}
	totalPages := (result.TotalMatching + historyPageSize - 1) / historyPageSize
	if totalPages < 1 {
		totalPages = 1
	}

	return views.HistoryData{
		RangeLabel:    info.Label,
		RangeKey:      rangeKey,
		Status:        status,
		Readings:      result.Items,
		TotalMatching: result.TotalMatching,
		CurrentPage:   page,
		TotalPages:    totalPages,
		HasPrev:       page > 1,
		HasNext:       page < totalPages,
		PrevPage:      page - 1,
		NextPage:      page + 1,
		PageItems:     buildHistoryPageItems(totalPages, page),
	}, nil
}

func (c *readingsControllerImpl) buildAlerts(ctx context.Context) (views.AlertsData, error) {
	now := c.now().UTC()
	alerts, err := c.querier.RecentAlerts(ctx, types.TimeRange{Start: now.Add(-alertsWindow), End: now}, alertsLimit)
	if err != nil {
		return views.AlertsData{}, err
	}
	return views.AlertsData{Alerts: alerts}, nil
}

// buildHistoryPageItems returns page numbers and ellipsis for the pagination bar.
func buildHistoryPageItems(totalPages, currentPage int) []views.PaginationItem {
	if totalPages <= 0 {
		return nil
	}
	const window = 2
	show := map[int]bool{1: true, totalPages: true}
	for p := currentPage - window; p <= currentPage+window; p++ {
		if p >= 1 && p <= totalPages {
			show[p] = true
		}
	}
	var items []views.PaginationItem
	prev := 0
	for p := 1; p <= totalPages; p++ {
		if !show[p] {
			continue
		}
		if prev != 0 && p > prev+1 {
			items = append(items, views.PaginationItem{Ellipsis: true})
		}
		items = append(items, views.PaginationItem{Page: p, Ellipsis: false})
		prev = p
	}
	return items
}

func rangeOptions(selected string) []views.RangeOption {
	out := make([]views.RangeOption, 0, len(historyRangeOrder))
	for _, key := range historyRangeOrder {
		out = append(out, views.RangeOption{Key: key, Label: historyRanges[key].Label, Selected: key == selected})
	}
	return out
}

func statusOptions(selected types.Status) []views.StatusOption {
	out := make([]views.StatusOption, 0, len(types.Statuses))
	for _, s := range types.Statuses {
		out = append(out, views.StatusOption{Status: s, Selected: s == selected})
	}
	return out
}
