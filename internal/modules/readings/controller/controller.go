package controller

import (
	"net/http"
	"time"

	"envmon/internal/modules/readings/service"
)

// Recorder receives ingest outcomes; *metrics.Metrics satisfies it.
type Recorder interface {
	ReadingIngested(source, status string)
	ReadingRejected(source, reason string)
}

// NopRecorder discards ingest outcomes.
type NopRecorder struct{}

func (NopRecorder) ReadingIngested(string, string) {}
func (NopRecorder) ReadingRejected(string, string) {}

type ReadingsController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type readingsControllerImpl struct {
	ingester *service.Ingester
	querier  *service.Querier
	apiKey   string
	metrics  Recorder
	now      func() time.Time
}

func NewReadingsController(ingester *service.Ingester, querier *service.Querier, apiKey string, metrics Recorder) ReadingsController {
	if metrics == nil {
		metrics = NopRecorder{}
	}
	return &readingsControllerImpl{
		ingester: ingester,
		querier:  querier,
		apiKey:   apiKey,
		metrics:  metrics,
		now:      time.Now,
	}
}

func (c *readingsControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/readings", c.handleIngest)
	mux.HandleFunc("GET /api/v1/readings", c.handleList)
	mux.HandleFunc("GET /api/v1/stats", c.handleStats)
	mux.HandleFunc("GET /api/v1/report", c.handleReport)
	mux.HandleFunc("GET /api/v1/statuses", c.handleStatuses)

	// Legacy paths, still used by deployed firmware and scripts.
	mux.HandleFunc("POST /data", c.handleIngest)
	mux.HandleFunc("GET /data", c.handleList)
	mux.HandleFunc("GET /stats", c.handleStats)

	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /partials/summary", c.handleSummaryPartial)
	mux.HandleFunc("GET /partials/history", c.handleHistoryPartial)
	mux.HandleFunc("GET /partials/alerts", c.handleAlertsPartial)
}
