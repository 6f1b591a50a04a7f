// Package report builds period reports over stored readings: descriptive
// statistics per quantity, the status distribution, recent alerts and a
// rolling-window anomaly count.
package report

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"envmon/internal/modules/readings/policy"
	"envmon/internal/modules/readings/types"
)

const (
	DefaultHours      = 24
	MaxHours          = 24 * 366
	RecentAlertsLimit = 5
	AnomalyWindow     = 10
	AnomalyDeviations = 2.0
	// PageSize is how many readings Generate asks the source for at a time.
	PageSize = 5000
)

type QuantityStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
	Count  int     `json:"count"`
}

type Report struct {
	Hours              int                  `json:"hours"`
	Start              time.Time            `json:"start"`
	End                time.Time            `json:"end"`
	Empty              bool                 `json:"empty"`
	TotalRecords       int                  `json:"total_records"`
	Temperature        *QuantityStats       `json:"temperature"`
	Humidity           *QuantityStats       `json:"humidity"`
	StatusDistribution map[types.Status]int `json:"status_distribution"`
	TotalAlerts        int                  `json:"total_alerts"`
	RecentAlerts       []types.Reading      `json:"recent_alerts"`
	Anomalies          int                  `json:"anomalies"`
}

// SeriesSource is satisfied by service.Querier. Pages are in ascending time
// order; a page shorter than limit is the last one.
type SeriesSource interface {
	SeriesPage(ctx context.Context, tr types.TimeRange, skip, limit int) ([]types.Reading, error)
}

// Generate reports on every reading in the hours before now, reading the
// window page by page.
func Generate(ctx context.Context, src SeriesSource, hours int, now time.Time) (Report, error) {
	if hours < 1 || hours > MaxHours {
		return Report{}, policy.NewValidationError(policy.OutOfRange, fmt.Sprintf("hours must be between 1 and %d", MaxHours))
	}
	now = now.UTC()
	period := types.TimeRange{Start: now.Add(-time.Duration(hours) * time.Hour), End: now}

	acc := newAccumulator()
	for skip := 0; ; skip += PageSize {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		page, err := src.SeriesPage(ctx, period, skip, PageSize)
		if err != nil {
			return Report{}, err
		}
		acc.add(page)
		if len(page) < PageSize {
			break
		}
	}
	return acc.report(period, hours), nil
}

// Build computes the report for readings, which must be in ascending time
// order and already restricted to period.
func Build(readings []types.Reading, period types.TimeRange, hours int) Report {
	acc := newAccumulator()
	acc.add(readings)
	return acc.report(period, hours)
}

// accumulator folds ascending pages of readings into a report. Only the
// numeric columns, the last alerts and the last AnomalyWindow-1 readings are
// retained between pages.
type accumulator struct {
	total     int
	temps     []float64
	hums      []float64
	dist      map[types.Status]int
	alerts    int
	recent    []types.Reading
	anomalies int
	tail      []types.Reading
}

func newAccumulator() *accumulator {
	return &accumulator{dist: map[types.Status]int{}}
}

func (a *accumulator) add(page []types.Reading) {
	if len(page) == 0 {
		return
	}
	a.total += len(page)
	for _, rd := range page {
		if rd.Temperature != nil {
			a.temps = append(a.temps, *rd.Temperature)
		}
		if rd.Humidity != nil {
			a.hums = append(a.hums, *rd.Humidity)
		}
		a.dist[rd.Status]++
		if rd.Status != types.StatusNormal {
			a.alerts++
			a.recent = append(a.recent, rd)
			if len(a.recent) > RecentAlertsLimit {
				a.recent = a.recent[len(a.recent)-RecentAlertsLimit:]
			}
		}
	}

	// The readings carried over from the previous page complete the
	// windows of this page's first readings; their own flags were counted
	// already.
	joined := append(append([]types.Reading(nil), a.tail...), page...)
	for i, flagged := range DetectAnomalies(joined, AnomalyWindow, AnomalyDeviations) {
		if flagged && i >= len(a.tail) {
			a.anomalies++
		}
	}
	keep := AnomalyWindow - 1
	if keep > len(joined) {
		keep = len(joined)
	}
	a.tail = append(a.tail[:0], joined[len(joined)-keep:]...)
}

func (a *accumulator) report(period types.TimeRange, hours int) Report {
	r := Report{
		Hours:              hours,
		Start:              period.Start,
		End:                period.End,
		Empty:              a.total == 0,
		TotalRecords:       a.total,
		StatusDistribution: a.dist,
		TotalAlerts:        a.alerts,
		RecentAlerts:       append([]types.Reading{}, a.recent...),
		Anomalies:          a.anomalies,
	}
	if r.Empty {
		return r
	}
	r.Temperature = describe(a.temps)
	r.Humidity = describe(a.hums)
	return r
}

func describe(values []float64) *QuantityStats {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mean, std := meanStd(values)
	return &QuantityStats{
		Mean:   mean,
		Median: median(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		StdDev: std,
		Count:  len(values),
	}
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// meanStd returns the mean and the sample standard deviation. The deviation
// of fewer than two values is 0.
func meanStd(values []float64) (mean, std float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= n
	if n < 2 {
		return mean, 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / (n - 1))
}
