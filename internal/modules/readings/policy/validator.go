package policy

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSensorValue parses a numeric sensor value from text. NaN and Inf are
// not accepted as readings.
func ParseSensorValue(field, raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, newValidationError(NonNumeric, fmt.Sprintf("%s is empty", field))
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || isBad(v) {
		return 0, newValidationError(NonNumeric, fmt.Sprintf("%s is not a valid number: %q", field, raw))
	}
	return v, nil
}

// CheckPhysicalRange rejects values outside the sensor's physical domain.
func CheckPhysicalRange(temperature, humidity float64) error {
	if temperature < TemperatureFloor || temperature > TemperatureCeil {
		return newValidationError(OutOfRange, fmt.Sprintf("temperature outside valid range (%g to %g °C): %g", TemperatureFloor, TemperatureCeil, temperature))
	}
	if humidity < HumidityFloor || humidity > HumidityCeil {
		return newValidationError(OutOfRange, fmt.Sprintf("humidity outside valid range (%g%% to %g%%): %g", HumidityFloor, HumidityCeil, humidity))
	}
	return nil
}

// ValidateSensorValues is the advisory check used by batch import. Besides
// the physical range it rejects the 0/0 pair a disconnected sensor reports.
// The ingestion pipeline does not use it; it stores and labels instead.
func ValidateSensorValues(temperature, humidity float64) error {
	if isBad(temperature) || isBad(humidity) {
		return newValidationError(NonNumeric, "values are not valid numbers")
	}
	if err := CheckPhysicalRange(temperature, humidity); err != nil {
		return err
	}
	if temperature == 0 && humidity == 0 {
		return newValidationError(Suspicious, "suspicious values: temperature and humidity are both zero")
	}
	return nil
}

// ValidateRawSensorValues parses and validates a pair of textual values.
func ValidateRawSensorValues(rawTemperature, rawHumidity string) (temperature, humidity float64, err error) {
	temperature, err = ParseSensorValue("temperature", rawTemperature)
	if err != nil {
		return 0, 0, err
	}
	humidity, err = ParseSensorValue("humidity", rawHumidity)
	if err != nil {
		return 0, 0, err
	}
	if err := ValidateSensorValues(temperature, humidity); err != nil {
		return 0, 0, err
	}
	return temperature, humidity, nil
}
