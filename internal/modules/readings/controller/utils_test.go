package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"envmon/internal/modules/readings/policy"
	"envmon/internal/modules/readings/service"
	"envmon/internal/modules/readings/types"
)

func Test_parseListQuery(t *testing.T) {
	t.Run("no params returns defaults", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/readings", nil)
		f, skip, limit, err := parseListQuery(req)
		if err != nil {
			t.Fatalf("parseListQuery() err = %v; want nil", err)
		}
		if !f.Start.IsZero() || !f.End.IsZero() || f.Status != "" {
			t.Errorf("filter = %+v; want empty", f)
		}
		if skip != 0 || limit != service.DefaultPageSize {
			t.Errorf("skip, limit = %d, %d; want 0, %d", skip, limit, service.DefaultPageSize)
		}
	})

	t.Run("reads every parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/readings?start=2025-01-01T00:00:00Z&end=2025-01-02T00:00:00Z&status=alert_humidity&skip=10&limit=5", nil)
		f, skip, limit, err := parseListQuery(req)
		if err != nil {
			t.Fatalf("parseListQuery() err = %v; want nil", err)
		}
		if !f.Start.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) || !f.End.Equal(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("range = %v..%v", f.Start, f.End)
		}
		if f.Status != types.StatusAlertHumidity || skip != 10 || limit != 5 {
			t.Errorf("status, skip, limit = %q, %d, %d", f.Status, skip, limit)
		}
	})

	t.Run("accepts start_date and end_date aliases", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/data?start_date=2025-01-01T10:00:00&end_date=2025-01-01", nil)
		f, _, _, err := parseListQuery(req)
		if err != nil {
			t.Fatalf("parseListQuery() err = %v; want nil", err)
		}
		if !f.Start.Equal(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)) {
			t.Errorf("Start = %v", f.Start)
		}
		if !f.End.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("End = %v", f.End)
		}
	})

	errCases := []struct {
		name     string
		query    string
		wantKind policy.ValidationKind
	}{
		{name: "bad start", query: "start=yesterday", wantKind: policy.BadTimestamp},
		{name: "bad end alias", query: "end_date=31/12/2025", wantKind: policy.BadTimestamp},
		{name: "non-integer skip", query: "skip=abc", wantKind: policy.NonNumeric},
		{name: "non-integer limit", query: "limit=1.5", wantKind: policy.NonNumeric},
	}
	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/readings?"+tt.query, nil)
			_, _, _, err := parseListQuery(req)
			ve, ok := policy.AsValidationError(err)
			if !ok || ve.Kind != tt.wantKind {
				t.Errorf("parseListQuery(%q) err = %v; want %s", tt.query, err, tt.wantKind)
			}
		})
	}
}

func Test_resolveHistoryRangeKey(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "", want: defaultHistoryRangeKey, wantOK: true},
		{in: "1h", want: "1h", wantOK: true},
		{in: "7d", want: "7d", wantOK: true},
		{in: "30d", want: "30d", wantOK: true},
		{in: "invalid", want: defaultHistoryRangeKey, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := resolveHistoryRangeKey(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("resolveHistoryRangeKey(%q) = (%q, %v); want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
			if _, known := historyRanges[got]; !known {
				t.Errorf("resolved key %q has no range", got)
			}
		})
	}
}

func Test_parseStatusFilter(t *testing.T) {
	tests := []struct {
		query string
		want  types.Status
	}{
		{query: "", want: ""},
		{query: "status=sensor_error", want: types.StatusSensorError},
		{query: "status=%20normal%20", want: types.StatusNormal},
		{query: "status=definitely-not", want: ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/partials/history?"+tt.query, nil)
		if got := parseStatusFilter(req); got != tt.want {
			t.Errorf("parseStatusFilter(%q) = %q; want %q", tt.query, got, tt.want)
		}
	}
}

func Test_parseHistoryPage(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "no page param returns 1", query: "", want: 1},
		{name: "valid page returns that page", query: "page=5", want: 5},
		{name: "invalid page (non-integer) returns 1", query: "page=abc", want: 1},
		{name: "page zero returns 1", query: "page=0", want: 1},
		{name: "negative page returns 1", query: "page=-3", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/partials/history?"+tt.query, nil)
			if got := parseHistoryPage(req); got != tt.want {
				t.Errorf("parseHistoryPage() = %d; want %d", got, tt.want)
			}
		})
	}
}

func Test_buildHistoryPageItems(t *testing.T) {
	t.Run("no pages", func(t *testing.T) {
		if got := buildHistoryPageItems(0, 1); got != nil {
			t.Errorf("buildHistoryPageItems(0, 1) = %v; want nil", got)
		}
	})

	t.Run("few pages are all shown", func(t *testing.T) {
		got := buildHistoryPageItems(3, 2)
		if len(got) != 3 {
			t.Fatalf("len = %d; want 3", len(got))
		}
		for i, it := range got {
			if it.Ellipsis || it.Page != i+1 {
				t.Errorf("item %d = %+v; want page %d", i, it, i+1)
			}
		}
	})

	t.Run("window with ellipsis on both sides", func(t *testing.T) {
		got := buildHistoryPageItems(20, 10)
		// 1 … 8 9 10 11 12 … 20
		want := []int{1, 0, 8, 9, 10, 11, 12, 0, 20}
		if len(got) != len(want) {
			t.Fatalf("items = %+v; want %d entries", got, len(want))
		}
		for i, w := range want {
			if w == 0 {
				if !got[i].Ellipsis {
					t.Errorf("item %d = %+v; want ellipsis", i, got[i])
				}
				continue
			}
			if got[i].Ellipsis || got[i].Page != w {
				t.Errorf("item %d = %+v; want page %d", i, got[i], w)
			}
		}
	})
}
