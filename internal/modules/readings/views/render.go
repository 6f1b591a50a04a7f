package views

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"time"

	"envmon/internal/modules/readings/policy"
	"envmon/internal/modules/readings/report"
	"envmon/internal/modules/readings/types"
)

var dashboardTmpl *template.Template

var funcs = template.FuncMap{
	"value": func(v *float64, unit string) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.1f%s", *v, unit)
	},
	"fixed": func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"ts": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04:05")
	},
	"statusColor": func(s types.Status) string { return report.Describe(s).Color },
	"statusText":  func(s types.Status) string { return report.Describe(s).Description },
}

// loadTemplatesFromFS loads dashboard templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("views").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates loads embedded dashboard templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

type RangeOption struct {
	Key      string
	Label    string
	Selected bool
}

type StatusOption struct {
	Status   types.Status
	Selected bool
}

// SummaryData is the view model for the summary cards.
type SummaryData struct {
	RangeLabel string
	Latest     *types.Reading
	Stats      types.Summary
	Thresholds policy.ThresholdConfig
}

// PaginationItem is one entry in the pagination bar: either a page number or an ellipsis.
type PaginationItem struct {
	Page     int
	Ellipsis bool
}

// HistoryData is the view model for the history partial.
type HistoryData struct {
	RangeLabel    string
	RangeKey      string       // for pagination links, e.g. "24h"
	Status        types.Status // active status filter, empty for all
	Readings      []types.Reading
	TotalMatching int
	CurrentPage   int
	TotalPages    int
	HasPrev       bool
	HasNext       bool
	PrevPage      int
	NextPage      int
	PageItems     []PaginationItem
}

type AlertsData struct {
	Alerts []types.Reading
}

type DashboardData struct {
	Summary  SummaryData
	History  HistoryData
	Alerts   AlertsData
	Ranges   []RangeOption
	Statuses []StatusOption
	Legend   []report.StatusInfo
}

func render(w io.Writer, name string, data any) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, name, data)
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	return render(w, "dashboard.html", data)
}

// RenderSummaryPartial executes only the summary partial into w.
// Use for HTMX fragment refresh.
func RenderSummaryPartial(w io.Writer, data *SummaryData) error {
	return render(w, "partials/summary.html", data)
}

func RenderHistoryPartial(w io.Writer, data *HistoryData) error {
	return render(w, "partials/history.html", data)
}

func RenderAlertsPartial(w io.Writer, data *AlertsData) error {
	return render(w, "partials/alerts.html", data)
}
