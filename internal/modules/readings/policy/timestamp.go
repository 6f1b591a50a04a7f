package policy

import (
	"fmt"
	"strings"
	"time"
)

// Accepted ISO-8601 shapes. Layouts without a zone are read as UTC; a
// fractional second is accepted after the seconds field in every layout.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp and returns it in UTC. The
// zero instant (0001-01-01T00:00:00Z) is rejected: callers use the zero
// time to mean "no timestamp supplied".
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.IsZero() {
				return time.Time{}, newValidationError(BadTimestamp, fmt.Sprintf("timestamp %q is the zero time", s))
			}
			return t.UTC(), nil
		}
	}
	return time.Time{}, newValidationError(BadTimestamp, fmt.Sprintf("invalid timestamp %q (expected ISO-8601, e.g. 2025-01-02T15:04:05Z)", s))
}
