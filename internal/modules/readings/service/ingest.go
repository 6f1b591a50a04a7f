package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"envmon/internal/modules/readings/policy"
	"envmon/internal/modules/readings/repository"
	"envmon/internal/modules/readings/types"
)

// Payload keys. The legacy Portuguese names sent by the first firmware
// are accepted as aliases.
var (
	temperatureKeys = []string{"temperature", "temperatura"}
	humidityKeys    = []string{"humidity", "umidade"}
)

const timestampKey = "timestamp"

// TimestampPrecision is the resolution readings are stored with, the
// coarsest of the backends (BSON datetimes are milliseconds).
const TimestampPrecision = time.Millisecond

// ValidatedReading is a payload that passed the schema step. A zero
// Timestamp means the server assigns one.
type ValidatedReading struct {
	Temperature float64
	Humidity    float64
	Timestamp   time.Time
}

// ParsePayload turns a decoded JSON object into a ValidatedReading. It
// requires both measurements, accepts numbers or numeric strings, enforces
// the physical range and parses an optional ISO-8601 timestamp.
func ParsePayload(raw map[string]any) (ValidatedReading, error) {
	var out ValidatedReading

	tRaw, ok := lookup(raw, temperatureKeys)
	if !ok {
		return out, policy.NewValidationError(policy.MissingField, "missing required field: temperature")
	}
	hRaw, ok := lookup(raw, humidityKeys)
	if !ok {
		return out, policy.NewValidationError(policy.MissingField, "missing required field: humidity")
	}

	temperature, err := toFloat("temperature", tRaw)
	if err != nil {
		return out, err
	}
	humidity, err := toFloat("humidity", hRaw)
	if err != nil {
		return out, err
	}
	if err := policy.CheckPhysicalRange(temperature, humidity); err != nil {
		return out, err
	}
	out.Temperature = temperature
	out.Humidity = humidity

	if tsRaw, ok := raw[timestampKey]; ok && tsRaw != nil {
		s, isString := tsRaw.(string)
		if !isString {
			return ValidatedReading{}, policy.NewValidationError(policy.BadTimestamp, fmt.Sprintf("timestamp must be an ISO-8601 string, got %T", tsRaw))
		}
		if s != "" {
			ts, err := policy.ParseTimestamp(s)
			if err != nil {
				return ValidatedReading{}, err
			}
			out.Timestamp = ts
		}
	}
	return out, nil
}

func lookup(raw map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func toFloat(field string, v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		return policy.ParseSensorValue(field, x.String())
	case string:
		return policy.ParseSensorValue(field, x)
	default:
		return 0, policy.NewValidationError(policy.NonNumeric, fmt.Sprintf("%s must be a number, got %s", field, describe(v)))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, policy.NewValidationError(policy.NonNumeric, fmt.Sprintf("%s is not a finite number", field))
	}
	return f, nil
}

func describe(v any) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}

// Ingester validates, classifies and stores single readings.
type Ingester struct {
	store      repository.Store
	thresholds policy.ThresholdConfig
	now        func() time.Time
}

type IngesterOption func(*Ingester)

// WithClock replaces the clock used for readings without a timestamp.
func WithClock(now func() time.Time) IngesterOption {
	return func(i *Ingester) { i.now = now }
}

// NewIngester refuses to build an ingester around a broken threshold
// configuration.
func NewIngester(store repository.Store, thresholds policy.ThresholdConfig, opts ...IngesterOption) (*Ingester, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	i := &Ingester{store: store, thresholds: thresholds, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

func (i *Ingester) Thresholds() policy.ThresholdConfig {
	return i.thresholds
}

// Ingest validates raw, then classifies and inserts it. Nothing touches the
// store unless validation passed.
func (i *Ingester) Ingest(ctx context.Context, raw map[string]any) (types.Reading, error) {
	v, err := ParsePayload(raw)
	if err != nil {
		return types.Reading{}, err
	}
	return i.IngestValidated(ctx, v)
}

// IngestValidated classifies and inserts a reading that already passed
// validation (payload parsing or batch import).
func (i *Ingester) IngestValidated(ctx context.Context, v ValidatedReading) (types.Reading, error) {
	ts := v.Timestamp
	if ts.IsZero() {
		ts = i.now()
	}
	temperature, humidity := v.Temperature, v.Humidity
	r := types.Reading{
		Timestamp:   ts.UTC().Truncate(TimestampPrecision),
		Temperature: &temperature,
		Humidity:    &humidity,
		Status:      policy.Classify(temperature, humidity, i.thresholds),
	}
	id, err := i.store.Insert(ctx, r)
	if err != nil {
		return types.Reading{}, storeUnavailable("ingest reading", err)
	}
	r.ID = id
	return r, nil
}
