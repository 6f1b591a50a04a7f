package readings

import (
	"context"
	"fmt"
	"log/slog"

	"envmon/internal/modules/readings/controller"
	"envmon/internal/modules/readings/policy"
	"envmon/internal/modules/readings/service"
	"envmon/internal/mqtt"
	"envmon/internal/utils"
)

const mqttSource = "mqtt"

// mqttHandler stores MQTT payloads, which have the same shape as HTTP ingest
// bodies, through the shared Ingester.
func mqttHandler(ing *service.Ingester, rec controller.Recorder, logger *slog.Logger) mqtt.MessageHandler {
	return func(ctx context.Context, payload []byte) error {
		raw, err := utils.ParseJSONObject(payload)
		if err != nil {
			rec.ReadingRejected(mqttSource, "invalid_body")
			return fmt.Errorf("decode payload: %w", err)
		}

		reading, err := ing.Ingest(ctx, raw)
		if err != nil {
			if ve, ok := policy.AsValidationError(err); ok {
				rec.ReadingRejected(mqttSource, string(ve.Kind))
			}
			return err
		}

		rec.ReadingIngested(mqttSource, string(reading.Status))
		logger.Debug("stored mqtt reading",
			"id", reading.ID,
			"status", reading.Status,
			"timestamp", reading.Timestamp,
		)
		return nil
	}
}

func registerMQTTHandler(subscriber mqtt.MQTTSubscriber, ing *service.Ingester, rec controller.Recorder, logger *slog.Logger) {
	subscriber.SetMessageHandler(mqttHandler(ing, rec, logger))
}
