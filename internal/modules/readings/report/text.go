package report

import (
	"fmt"
	"strings"
)

const (
	rule       = "=================================================="
	textLayout = "2006-01-02 15:04"
)

// FormatText renders r as the plain-text report printed by envctl and served
// with format=text.
func FormatText(r Report) string {
	if r.Empty {
		return fmt.Sprintf("ERROR: no readings found for the last %d hours\n", r.Hours)
	}

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line(rule)
	line("ENVIRONMENTAL MONITORING REPORT")
	line(rule)
	line("Period: last %d hours", r.Hours)
	line("Total records: %d", r.TotalRecords)
	line("From %s to %s UTC", r.Start.UTC().Format(textLayout), r.End.UTC().Format(textLayout))
	line("")

	quantity := func(title, unit string, s *QuantityStats) {
		if s == nil {
			return
		}
		line("%s:", title)
		line("  Mean: %.1f%s", s.Mean, unit)
		line("  Median: %.1f%s", s.Median, unit)
		line("  Min: %.1f%s", s.Min, unit)
		line("  Max: %.1f%s", s.Max, unit)
		line("  Std dev: %.1f%s", s.StdDev, unit)
		line("")
	}
	quantity("TEMPERATURE", "°C", r.Temperature)
	quantity("HUMIDITY", "%", r.Humidity)

	line("TOTAL ALERTS: %d", r.TotalAlerts)
	line("ANOMALIES: %d", r.Anomalies)
	if len(r.RecentAlerts) > 0 {
		line("RECENT ALERTS:")
		for _, a := range r.RecentAlerts {
			line("  %s - %s (T: %s°C, H: %s%%)", a.Timestamp.UTC().Format("2006-01-02 15:04:05"), a.Status, value(a.Temperature), value(a.Humidity))
		}
	}
	line(rule)
	return b.String()
}

func value(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *v)
}
