// Package policy classifies readings against threshold bands and checks the
// physical sanity of sensor values.
package policy

import (
	"fmt"
	"math"

	"envmon/internal/modules/readings/types"
)

// Physical domain of the sensor. Values outside these bounds mean the sensor
// itself is faulty.
const (
	TemperatureFloor = -50.0
	TemperatureCeil  = 100.0
	HumidityFloor    = 0.0
	HumidityCeil     = 100.0
)

type Band struct {
	Min float64
	Max float64
}

type Bands struct {
	Alert    Band
	Critical Band
}

type ThresholdConfig struct {
	Temperature Bands
	Humidity    Bands
}

func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{
		Temperature: Bands{
			Alert:    Band{Min: 5, Max: 30},
			Critical: Band{Min: 0, Max: 40},
		},
		Humidity: Bands{
			Alert:    Band{Min: 20, Max: 90},
			Critical: Band{Min: 10, Max: 95},
		},
	}
}

// Validate checks that every critical bound lies strictly outside its alert
// bound. All violations are reported together.
func (c ThresholdConfig) Validate() error {
	var problems []string
	problems = append(problems, c.Temperature.problems("temperature")...)
	problems = append(problems, c.Humidity.problems("humidity")...)
	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

func (b Bands) problems(name string) []string {
	var out []string
	if isBad(b.Alert.Min) || isBad(b.Alert.Max) || isBad(b.Critical.Min) || isBad(b.Critical.Max) {
		return []string{name + " thresholds must be finite numbers"}
	}
	if !(b.Critical.Min < b.Alert.Min) {
		out = append(out, fmt.Sprintf("%s critical_min (%g) must be less than alert_min (%g)", name, b.Critical.Min, b.Alert.Min))
	}
	if !(b.Alert.Min < b.Alert.Max) {
		out = append(out, fmt.Sprintf("%s alert_min (%g) must be less than alert_max (%g)", name, b.Alert.Min, b.Alert.Max))
	}
	if !(b.Alert.Max < b.Critical.Max) {
		out = append(out, fmt.Sprintf("%s alert_max (%g) must be less than critical_max (%g)", name, b.Alert.Max, b.Critical.Max))
	}
	return out
}

// Classify maps a reading to exactly one status. NaN stands for a missing
// value. The checks run in a fixed order and the first match wins:
// missing, physical range, temperature (critical then alert), humidity
// (critical then alert). Bounds compare strictly, so a value sitting on a
// bound falls into the more lenient band.
func Classify(temperature, humidity float64, cfg ThresholdConfig) types.Status {
	if math.IsNaN(temperature) || math.IsNaN(humidity) {
		return types.StatusReadingError
	}

	if temperature < TemperatureFloor || temperature > TemperatureCeil {
		return types.StatusSensorError
	}
	if humidity < HumidityFloor || humidity > HumidityCeil {
		return types.StatusSensorError
	}

	t := cfg.Temperature
	if temperature < t.Critical.Min || temperature > t.Critical.Max {
		return types.StatusCriticalTemperature
	} else if temperature < t.Alert.Min || temperature > t.Alert.Max {
		return types.StatusAlertTemperature
	}

	h := cfg.Humidity
	if humidity < h.Critical.Min || humidity > h.Critical.Max {
		return types.StatusCriticalHumidity
	} else if humidity < h.Alert.Min || humidity > h.Alert.Max {
		return types.StatusAlertHumidity
	}

	return types.StatusNormal
}

// ClassifyOptional classifies a reading whose values may be absent.
func ClassifyOptional(temperature, humidity *float64, cfg ThresholdConfig) types.Status {
	return Classify(valueOrNaN(temperature), valueOrNaN(humidity), cfg)
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func isBad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
