package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"envmon/internal/modules/readings/types"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/find-readings-desc.sql
var findReadingsDescSQL string

//go:embed sql/find-readings-asc.sql
var findReadingsAscSQL string

//go:embed sql/count-readings.sql
var countReadingsSQL string

//go:embed sql/aggregate-numeric.sql
var aggregateNumericSQL string

//go:embed sql/aggregate-status.sql
var aggregateStatusSQL string

// tsLayout is fixed width so that lexical order of stored timestamps is
// chronological order.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// Store is the ordered reading collection the services depend on. A limit
// below 1 passed to Find means no limit.
type Store interface {
	Insert(ctx context.Context, r types.Reading) (string, error)
	Find(ctx context.Context, f types.Filter, dir types.SortDirection, skip int, limit int) ([]types.Reading, error)
	Count(ctx context.Context, f types.Filter) (int, error)
	AggregateNumeric(ctx context.Context, f types.Filter) (types.NumericAggregate, error)
	AggregateStatusCounts(ctx context.Context, f types.Filter) (map[types.Status]int, error)
	Ping(ctx context.Context) error
}

type sqliteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) Store {
	return &sqliteStore{db: db}
}

func formatTS(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(tsLayout)
}

func filterArgs(f types.Filter) []any {
	return []any{formatTS(f.Start), formatTS(f.End), string(f.Status)}
}

func (s *sqliteStore) Insert(ctx context.Context, r types.Reading) (string, error) {
	res, err := s.db.ExecContext(ctx, insertReadingSQL,
		formatTS(r.Timestamp),
		nullable(r.Temperature),
		nullable(r.Humidity),
		string(r.Status),
	)
	if err != nil {
		return "", fmt.Errorf("insert reading: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("insert reading: last insert id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *sqliteStore) Find(ctx context.Context, f types.Filter, dir types.SortDirection, skip int, limit int) ([]types.Reading, error) {
	query := findReadingsDescSQL
	if dir == types.Ascending {
		query = findReadingsAscSQL
	}
	if limit < 1 {
		limit = -1
	}
	args := append(filterArgs(f), limit, skip)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find readings: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings rows", "error", err)
		}
	}()
	return scanReadings(rows)
}

func (s *sqliteStore) Count(ctx context.Context, f types.Filter) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countReadingsSQL, filterArgs(f)...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return n, nil
}

func (s *sqliteStore) AggregateNumeric(ctx context.Context, f types.Filter) (types.NumericAggregate, error) {
	var (
		out              types.NumericAggregate
		tAvg, tMin, tMax sql.NullFloat64
		hAvg, hMin, hMax sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, aggregateNumericSQL, filterArgs(f)...).
		Scan(&out.Count, &tAvg, &tMin, &tMax, &hAvg, &hMin, &hMax)
	if err != nil {
		return types.NumericAggregate{}, fmt.Errorf("aggregate readings: %w", err)
	}
	out.Temperature = types.FieldStats{Avg: tAvg.Float64, Min: tMin.Float64, Max: tMax.Float64}
	out.Humidity = types.FieldStats{Avg: hAvg.Float64, Min: hMin.Float64, Max: hMax.Float64}
	return out, nil
}

func (s *sqliteStore) AggregateStatusCounts(ctx context.Context, f types.Filter) (map[types.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, aggregateStatusSQL, filterArgs(f)...)
	if err != nil {
		return nil, fmt.Errorf("aggregate statuses: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close status rows", "error", err)
		}
	}()
	out := make(map[types.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		if status == "" {
			continue
		}
		out[types.Status(status)] = n
	}
	return out, rows.Err()
}

func (s *sqliteStore) Ping(ctx context.Context) error {
	var ok int
	return s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&ok)
}

func scanReadings(rows *sql.Rows) ([]types.Reading, error) {
	out := []types.Reading{}
	for rows.Next() {
		var (
			rec         types.Reading
			id          int64
			ts          string
			status      string
			temperature sql.NullFloat64
			humidity    sql.NullFloat64
		)
		if err := rows.Scan(&id, &ts, &temperature, &humidity, &status); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		rec.ID = strconv.FormatInt(id, 10)
		rec.Timestamp = t.UTC()
		rec.Temperature = floatPtr(temperature)
		rec.Humidity = floatPtr(humidity)
		rec.Status = types.Status(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
