package controller

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"envmon/internal/modules/readings/policy"
	"envmon/internal/modules/readings/service"
	"envmon/internal/modules/readings/types"
)

const (
	defaultHistoryRangeKey = "24h"
	historyPageSize        = 20
)

type historyRange struct {
	Duration time.Duration
	Label    string
}

var historyRanges = map[string]historyRange{
	"1h":  {Duration: time.Hour, Label: "Last 1 hour"},
	"6h":  {Duration: 6 * time.Hour, Label: "Last 6 hours"},
	"24h": {Duration: 24 * time.Hour, Label: "Last 24 hours"},
	"7d":  {Duration: 7 * 24 * time.Hour, Label: "Last 7 days"},
	"30d": {Duration: 30 * 24 * time.Hour, Label: "Last 30 days"},
}

var historyRangeOrder = []string{"1h", "6h", "24h", "7d", "30d"}

// firstParam returns the first non-empty value among names.
func firstParam(r *http.Request, names ...string) (name, value string) {
	q := r.URL.Query()
	for _, n := range names {
		if v := strings.TrimSpace(q.Get(n)); v != "" {
			return n, v
		}
	}
	return names[0], ""
}

func parseTimeParam(r *http.Request, names ...string) (time.Time, error) {
	name, s := firstParam(r, names...)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := policy.ParseTimestamp(s)
	if err != nil {
		return time.Time{}, policy.NewValidationError(policy.BadTimestamp, fmt.Sprintf("invalid '%s' %q (expected ISO-8601)", name, s))
	}
	return t, nil
}

// parseTimeRange reads start/end (or start_date/end_date). Ordering is
// checked by the query service.
func parseTimeRange(r *http.Request) (types.TimeRange, error) {
	start, err := parseTimeParam(r, "start", "start_date")
	if err != nil {
		return types.TimeRange{}, err
	}
	end, err := parseTimeParam(r, "end", "end_date")
	if err != nil {
		return types.TimeRange{}, err
	}
	return types.TimeRange{Start: start, End: end}, nil
}

func parseIntParam(r *http.Request, name string, def int) (int, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, policy.NewValidationError(policy.NonNumeric, fmt.Sprintf("invalid '%s' %q (expected integer)", name, s))
	}
	return n, nil
}

func parseListQuery(r *http.Request) (filter types.Filter, skip int, limit int, err error) {
	tr, err := parseTimeRange(r)
	if err != nil {
		return types.Filter{}, 0, 0, err
	}
	skip, err = parseIntParam(r, "skip", 0)
	if err != nil {
		return types.Filter{}, 0, 0, err
	}
	limit, err = parseIntParam(r, "limit", service.DefaultPageSize)
	if err != nil {
		return types.Filter{}, 0, 0, err
	}
	filter = types.Filter{
		TimeRange: tr,
		Status:    types.Status(strings.TrimSpace(r.URL.Query().Get("status"))),
	}
	return filter, skip, limit, nil
}

// resolveHistoryRangeKey falls back to the default range for empty or
// unknown keys; ok is false only for unknown keys.
func resolveHistoryRangeKey(key string) (string, bool) {
	if key == "" {
		return defaultHistoryRangeKey, true
	}
	if _, ok := historyRanges[key]; ok {
		return key, true
	}
	return defaultHistoryRangeKey, false
}

// parseStatusFilter ignores unknown statuses; the dashboard then shows all.
func parseStatusFilter(r *http.Request) types.Status {
	s := types.Status(strings.TrimSpace(r.URL.Query().Get("status")))
	if s == "" || s.Valid() {
		return s
	}
	slog.Warn("dashboard: unknown status filter", "status", s)
	return ""
}

// parseHistoryPage returns the 1-based page number from the request (default 1, min 1).
func parseHistoryPage(r *http.Request) int {
	s := r.URL.Query().Get("page")
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
