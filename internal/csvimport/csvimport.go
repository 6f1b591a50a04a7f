// Package csvimport loads historical readings from CSV exports. Each row is
// checked with the advisory validator, classified and stored like a live
// reading.
package csvimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"envmon/internal/modules/readings/policy"
	"envmon/internal/modules/readings/service"
	"envmon/internal/modules/readings/types"
)

// maxRowErrors bounds the row errors kept in a Result.
const maxRowErrors = 20

var (
	temperatureColumns = []string{"temperature", "temperatura"}
	humidityColumns    = []string{"humidity", "umidade"}
	timestampColumns   = []string{"timestamp"}
)

var ErrNoHeader = errors.New("csv has no header row")

type Ingester interface {
	IngestValidated(ctx context.Context, v service.ValidatedReading) (types.Reading, error)
}

type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

type Result struct {
	Rows     int
	Imported int
	Rejected map[policy.ValidationKind]int
	Statuses map[types.Status]int
	// Errors holds the first rejected rows, in file order.
	Errors []RowError
}

func (r *Result) reject(line int, err error) {
	kind := policy.NonNumeric
	if ve, ok := policy.AsValidationError(err); ok {
		kind = ve.Kind
	}
	r.Rejected[kind]++
	if len(r.Errors) < maxRowErrors {
		r.Errors = append(r.Errors, RowError{Line: line, Err: err})
	}
}

type columns struct {
	temperature int
	humidity    int
	timestamp   int
}

func findColumns(header []string) (columns, error) {
	idx := map[string]int{}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	pick := func(names []string) int {
		for _, n := range names {
			if i, ok := idx[n]; ok {
				return i
			}
		}
		return -1
	}

	cols := columns{
		temperature: pick(temperatureColumns),
		humidity:    pick(humidityColumns),
		timestamp:   pick(timestampColumns),
	}
	var missing []string
	if cols.temperature < 0 {
		missing = append(missing, strings.Join(temperatureColumns, "|"))
	}
	if cols.humidity < 0 {
		missing = append(missing, strings.Join(humidityColumns, "|"))
	}
	if len(missing) > 0 {
		return columns{}, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// Import reads CSV rows from r and stores every valid one through ing.
// Rows without a timestamp column or value are stamped with now. Invalid
// rows are counted and skipped; a store failure aborts the import and the
// partial Result is returned with the error.
func Import(ctx context.Context, r io.Reader, ing Ingester, now time.Time) (Result, error) {
	res := Result{
		Rejected: map[policy.ValidationKind]int{},
		Statuses: map[types.Status]int{},
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, ErrNoHeader
	}
	if err != nil {
		return res, fmt.Errorf("read header: %w", err)
	}
	cols, err := findColumns(header)
	if err != nil {
		return res, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if isBlank(record) {
			continue
		}
		res.Rows++

		v, err := parseRow(record, cols, now)
		if err != nil {
			res.reject(line, err)
			continue
		}

		reading, err := ing.IngestValidated(ctx, v)
		if err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		res.Imported++
		res.Statuses[reading.Status]++
	}
	return res, nil
}

func parseRow(record []string, cols columns, now time.Time) (service.ValidatedReading, error) {
	field := func(i int) (string, bool) {
		if i < 0 || i >= len(record) {
			return "", false
		}
		return record[i], true
	}

	rawT, ok := field(cols.temperature)
	if !ok {
		return service.ValidatedReading{}, policy.NewValidationError(policy.MissingField, "temperature column missing in row")
	}
	rawH, ok := field(cols.humidity)
	if !ok {
		return service.ValidatedReading{}, policy.NewValidationError(policy.MissingField, "humidity column missing in row")
	}
	temperature, humidity, err := policy.ValidateRawSensorValues(rawT, rawH)
	if err != nil {
		return service.ValidatedReading{}, err
	}

	ts := now
	if raw, ok := field(cols.timestamp); ok && strings.TrimSpace(raw) != "" {
		ts, err = policy.ParseTimestamp(strings.TrimSpace(raw))
		if err != nil {
			return service.ValidatedReading{}, err
		}
	}
	return service.ValidatedReading{Temperature: temperature, Humidity: humidity, Timestamp: ts}, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
