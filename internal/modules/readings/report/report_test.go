package report

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"envmon/internal/modules/readings/policy"
	"envmon/internal/modules/readings/types"
)

func f64(v float64) *float64 { return &v }

var base = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

func reading(minute int, temp, hum *float64, status types.Status) types.Reading {
	return types.Reading{Timestamp: base.Add(time.Duration(minute) * time.Minute), Temperature: temp, Humidity: hum, Status: status}
}

func TestBuild(t *testing.T) {
	readings := []types.Reading{
		reading(0, f64(20), f64(50), types.StatusNormal),
		reading(1, f64(22), f64(52), types.StatusNormal),
		reading(2, f64(35), f64(54), types.StatusAlertTemperature),
		reading(3, nil, f64(56), types.StatusReadingError),
	}
	period := types.TimeRange{Start: base, End: base.Add(time.Hour)}

	r := Build(readings, period, 1)

	if r.Empty || r.TotalRecords != 4 {
		t.Fatalf("Empty/TotalRecords = %v/%d; want false/4", r.Empty, r.TotalRecords)
	}
	if r.Temperature == nil || r.Temperature.Count != 3 {
		t.Fatalf("Temperature = %+v; want 3 values", r.Temperature)
	}
	if r.Temperature.Median != 22 || r.Temperature.Min != 20 || r.Temperature.Max != 35 {
		t.Errorf("Temperature = %+v; want median 22, min 20, max 35", *r.Temperature)
	}
	if math.Abs(r.Temperature.Mean-25.666666) > 1e-4 {
		t.Errorf("Temperature.Mean = %v; want ~25.667", r.Temperature.Mean)
	}
	// sample deviation of 50,52,54,56
	if math.Abs(r.Humidity.StdDev-2.581988) > 1e-4 {
		t.Errorf("Humidity.StdDev = %v; want ~2.582", r.Humidity.StdDev)
	}
	if r.Humidity.Median != 53 {
		t.Errorf("Humidity.Median = %v; want 53", r.Humidity.Median)
	}
	if r.TotalAlerts != 2 || len(r.RecentAlerts) != 2 {
		t.Errorf("alerts = %d/%d; want 2/2", r.TotalAlerts, len(r.RecentAlerts))
	}
	if r.StatusDistribution[types.StatusNormal] != 2 || r.StatusDistribution[types.StatusReadingError] != 1 {
		t.Errorf("StatusDistribution = %v", r.StatusDistribution)
	}
}

func TestBuild_recentAlertsKeepsLastFive(t *testing.T) {
	var readings []types.Reading
	for i := 0; i < 8; i++ {
		readings = append(readings, reading(i, f64(45), f64(50), types.StatusCriticalTemperature))
	}
	r := Build(readings, types.TimeRange{}, 24)
	if r.TotalAlerts != 8 {
		t.Errorf("TotalAlerts = %d; want 8", r.TotalAlerts)
	}
	if len(r.RecentAlerts) != RecentAlertsLimit {
		t.Fatalf("len(RecentAlerts) = %d; want %d", len(r.RecentAlerts), RecentAlertsLimit)
	}
	if !r.RecentAlerts[0].Timestamp.Equal(readings[3].Timestamp) || !r.RecentAlerts[4].Timestamp.Equal(readings[7].Timestamp) {
		t.Errorf("RecentAlerts span %v..%v; want the last five", r.RecentAlerts[0].Timestamp, r.RecentAlerts[4].Timestamp)
	}
}

func TestBuild_empty(t *testing.T) {
	r := Build(nil, types.TimeRange{}, 6)
	if !r.Empty || r.Temperature != nil || r.Humidity != nil {
		t.Errorf("Build(nil) = %+v; want empty report", r)
	}
	if r.StatusDistribution == nil || r.RecentAlerts == nil {
		t.Error("empty report should carry non-nil distribution and alerts")
	}
	if got := FormatText(r); !strings.Contains(got, "no readings found for the last 6 hours") {
		t.Errorf("FormatText() = %q", got)
	}
}

func TestDetectAnomalies(t *testing.T) {
	steady := func(n int) []types.Reading {
		var out []types.Reading
		for i := 0; i < n; i++ {
			out = append(out, reading(i, f64(20), f64(50), types.StatusNormal))
		}
		return out
	}

	t.Run("spike after a steady window", func(t *testing.T) {
		readings := append(steady(10), reading(10, f64(40), f64(50), types.StatusAlertTemperature))
		got := DetectAnomalies(readings, AnomalyWindow, AnomalyDeviations)
		for i, a := range got {
			if a != (i == 10) {
				t.Errorf("anomaly[%d] = %v; want %v", i, a, i == 10)
			}
		}
	})

	t.Run("series shorter than the window", func(t *testing.T) {
		readings := append(steady(8), reading(8, f64(40), f64(50), types.StatusAlertTemperature))
		for i, a := range DetectAnomalies(readings, AnomalyWindow, AnomalyDeviations) {
			if a {
				t.Errorf("anomaly[%d] = true; want none", i)
			}
		}
	})

	t.Run("missing values are never flagged", func(t *testing.T) {
		readings := append(steady(10), reading(10, nil, f64(50), types.StatusReadingError))
		if got := DetectAnomalies(readings, AnomalyWindow, AnomalyDeviations); got[10] {
			t.Error("reading without temperature flagged as anomaly")
		}
	})
}

func TestFormatText(t *testing.T) {
	readings := []types.Reading{
		reading(0, f64(20), f64(50), types.StatusNormal),
		reading(5, nil, f64(99), types.StatusCriticalHumidity),
	}
	out := FormatText(Build(readings, types.TimeRange{Start: base, End: base.Add(24 * time.Hour)}, 24))

	for _, want := range []string{
		"ENVIRONMENTAL MONITORING REPORT",
		"Period: last 24 hours",
		"Total records: 2",
		"TEMPERATURE:",
		"  Mean: 20.0°C",
		"HUMIDITY:",
		"  Max: 99.0%",
		"TOTAL ALERTS: 1",
		"2025-02-01 00:05:00 - critical_humidity (T: n/a°C, H: 99.0%)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatText() missing %q\n%s", want, out)
		}
	}
}

type fakeSource struct {
	got      types.TimeRange
	readings []types.Reading
	err      error
	calls    int
}

func (f *fakeSource) SeriesPage(_ context.Context, tr types.TimeRange, skip, limit int) ([]types.Reading, error) {
	f.got = tr
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if skip >= len(f.readings) {
		return nil, nil
	}
	end := skip + limit
	if end > len(f.readings) {
		end = len(f.readings)
	}
	return f.readings[skip:end], nil
}

func TestGenerate(t *testing.T) {
	now := base.Add(48 * time.Hour)

	t.Run("queries the trailing window", func(t *testing.T) {
		src := &fakeSource{readings: []types.Reading{reading(0, f64(21), f64(40), types.StatusNormal)}}
		r, err := Generate(context.Background(), src, 12, now)
		if err != nil {
			t.Fatalf("Generate() = %v", err)
		}
		if !src.got.Start.Equal(now.Add(-12*time.Hour)) || !src.got.End.Equal(now) {
			t.Errorf("queried %v..%v; want the 12 hours before %v", src.got.Start, src.got.End, now)
		}
		if r.Hours != 12 || r.TotalRecords != 1 {
			t.Errorf("report = %+v", r)
		}
	})

	t.Run("rejects bad hours", func(t *testing.T) {
		for _, h := range []int{0, -3, MaxHours + 1} {
			_, err := Generate(context.Background(), &fakeSource{}, h, now)
			ve, ok := policy.AsValidationError(err)
			if !ok || ve.Kind != policy.OutOfRange {
				t.Errorf("Generate(hours=%d) err = %v; want out_of_range", h, err)
			}
		}
	})

	t.Run("passes source errors through", func(t *testing.T) {
		boom := errors.New("boom")
		if _, err := Generate(context.Background(), &fakeSource{err: boom}, 1, now); !errors.Is(err, boom) {
			t.Errorf("Generate() err = %v; want boom", err)
		}
	})
}

func TestGenerate_readsEveryPage(t *testing.T) {
	// One reading every 30s for a week; alerts only in the last hour and a
	// few spikes straddling page boundaries.
	const n = 7 * 24 * 120
	now := base.Add(n * 30 * time.Second)
	readings := make([]types.Reading, n)
	for i := range readings {
		temp, status := 21.0+float64(i%7)*0.1, types.StatusNormal
		if i >= n-120 {
			temp, status = 33, types.StatusAlertTemperature
		}
		if i == PageSize || i == 2*PageSize+1 {
			temp = 60
		}
		readings[i] = types.Reading{
			ID:          strconv.Itoa(i + 1),
			Timestamp:   base.Add(time.Duration(i) * 30 * time.Second),
			Temperature: f64(temp),
			Humidity:    f64(50),
			Status:      status,
		}
	}

	src := &fakeSource{readings: readings}
	r, err := Generate(context.Background(), src, 168, now)
	if err != nil {
		t.Fatalf("Generate() = %v", err)
	}
	if src.calls != n/PageSize+1 {
		t.Errorf("source calls = %d; want %d", src.calls, n/PageSize+1)
	}
	if r.TotalRecords != n || r.Temperature.Count != n {
		t.Errorf("TotalRecords = %d, temperature count = %d; want %d", r.TotalRecords, r.Temperature.Count, n)
	}
	if r.TotalAlerts != 120 || r.StatusDistribution[types.StatusAlertTemperature] != 120 {
		t.Errorf("TotalAlerts = %d, distribution = %v; want 120 alerts", r.TotalAlerts, r.StatusDistribution)
	}
	if len(r.RecentAlerts) != RecentAlertsLimit || r.RecentAlerts[RecentAlertsLimit-1].ID != strconv.Itoa(n) {
		t.Errorf("RecentAlerts = %+v; want the last %d readings", r.RecentAlerts, RecentAlertsLimit)
	}

	whole := Build(readings, types.TimeRange{Start: r.Start, End: r.End}, 168)
	if r.Anomalies != whole.Anomalies || r.Anomalies == 0 {
		t.Errorf("Anomalies = %d; want %d (single pass), non-zero", r.Anomalies, whole.Anomalies)
	}
	if *r.Temperature != *whole.Temperature {
		t.Errorf("Temperature = %+v; want %+v", *r.Temperature, *whole.Temperature)
	}
}

func TestStatusTable(t *testing.T) {
	table := StatusTable()
	if len(table) != len(types.Statuses) {
		t.Fatalf("len(StatusTable()) = %d; want %d", len(table), len(types.Statuses))
	}
	for _, info := range table {
		if info.Color == "" || info.Description == "" {
			t.Errorf("status %s lacks metadata: %+v", info.Status, info)
		}
	}
	if got := Describe("mystery"); got.Color != "#6c757d" {
		t.Errorf("Describe(unknown).Color = %q", got.Color)
	}
}
