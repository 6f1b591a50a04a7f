package types

import "time"

type Status string

const (
	StatusNormal              Status = "normal"
	StatusAlertTemperature    Status = "alert_temperature"
	StatusCriticalTemperature Status = "critical_temperature"
	StatusAlertHumidity       Status = "alert_humidity"
	StatusCriticalHumidity    Status = "critical_humidity"
	StatusSensorError         Status = "sensor_error"
	StatusReadingError        Status = "reading_error"
)

// Statuses lists every status label in presentation order.
var Statuses = []Status{
	StatusNormal,
	StatusAlertTemperature,
	StatusCriticalTemperature,
	StatusAlertHumidity,
	StatusCriticalHumidity,
	StatusSensorError,
	StatusReadingError,
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Reading is one stored observation. Temperature and Humidity are nil when
// the value was missing at the source.
type Reading struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	Status      Status    `json:"status"`
}

// HasValues reports whether both measured quantities are present.
func (r Reading) HasValues() bool {
	return r.Temperature != nil && r.Humidity != nil
}

// TimeRange bounds are inclusive; a zero bound is open.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (tr TimeRange) Contains(t time.Time) bool {
	if !tr.Start.IsZero() && t.Before(tr.Start) {
		return false
	}
	if !tr.End.IsZero() && t.After(tr.End) {
		return false
	}
	return true
}

type Filter struct {
	TimeRange
	// Status is an exact match; empty matches every status.
	Status Status
}

type SortDirection int

const (
	Descending SortDirection = iota
	Ascending
)

type Page struct {
	Items         []Reading `json:"items"`
	TotalMatching int       `json:"total_matching"`
}

type FieldStats struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// NumericAggregate is the raw store-side aggregate over readings that carry
// both temperature and humidity.
type NumericAggregate struct {
	Count       int
	Temperature FieldStats
	Humidity    FieldStats
}

type Summary struct {
	Temperature        *FieldStats    `json:"temperature"`
	Humidity           *FieldStats    `json:"humidity"`
	Count              int            `json:"count"`
	StatusDistribution map[Status]int `json:"status_distribution"`
}
