package readings

import (
	"log/slog"
	"net/http"

	"envmon/internal/modules/readings/controller"
	"envmon/internal/modules/readings/policy"
	"envmon/internal/modules/readings/repository"
	"envmon/internal/modules/readings/service"
	"envmon/internal/mqtt"
)

// Deps is what the readings feature needs from the application.
type Deps struct {
	Store      repository.Store
	Thresholds policy.ThresholdConfig
	APIKey     string
	// Metrics may be nil.
	Metrics controller.Recorder
	// Subscriber may be nil when MQTT ingest is disabled.
	Subscriber mqtt.MQTTSubscriber
	Logger     *slog.Logger
}

// RegisterFeature wires the HTTP routes and, when a subscriber is given, the
// MQTT ingest handler. Both paths share one Ingester.
func RegisterFeature(mux *http.ServeMux, deps Deps) error {
	ingester, err := service.NewIngester(deps.Store, deps.Thresholds)
	if err != nil {
		return err
	}
	querier := service.NewQuerier(deps.Store)

	rec := deps.Metrics
	if rec == nil {
		rec = controller.NopRecorder{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	readingsController := controller.NewReadingsController(ingester, querier, deps.APIKey, rec)
	readingsController.RegisterRoutes(mux)

	if deps.Subscriber != nil {
		registerMQTTHandler(deps.Subscriber, ingester, rec, logger)
	}
	return nil
}
