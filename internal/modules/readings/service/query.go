package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"envmon/internal/modules/readings/policy"
	"envmon/internal/modules/readings/repository"
	"envmon/internal/modules/readings/types"
)

const (
	MaxPageSize     = 1000
	DefaultPageSize = 100
	MaxSeriesSize   = 10000
)

type Querier struct {
	store repository.Store
}

func NewQuerier(store repository.Store) *Querier {
	return &Querier{store: store}
}

func checkRange(tr types.TimeRange) error {
	if !tr.Start.IsZero() && !tr.End.IsZero() && tr.Start.After(tr.End) {
		return policy.NewValidationError(policy.OutOfRange, "start must not be after end")
	}
	return nil
}

// List returns one page of readings, newest first, plus the number of
// readings matching the filter. limit is capped at MaxPageSize.
func (q *Querier) List(ctx context.Context, f types.Filter, skip, limit int) (types.Page, error) {
	if err := checkRange(f.TimeRange); err != nil {
		return types.Page{}, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return types.Page{}, policy.NewValidationError(policy.OutOfRange, fmt.Sprintf("unknown status %q", f.Status))
	}
	if skip < 0 {
		return types.Page{}, policy.NewValidationError(policy.OutOfRange, "skip must be >= 0")
	}
	if limit < 1 {
		return types.Page{}, policy.NewValidationError(policy.OutOfRange, "limit must be >= 1")
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	total, err := q.store.Count(ctx, f)
	if err != nil {
		return types.Page{}, storeUnavailable("count readings", err)
	}
	items, err := q.store.Find(ctx, f, types.Descending, skip, limit)
	if err != nil {
		return types.Page{}, storeUnavailable("find readings", err)
	}
	return types.Page{Items: items, TotalMatching: total}, nil
}

// Stats summarizes the readings in tr. An empty range is not an error: the
// numeric aggregates are nil and the distribution is empty.
func (q *Querier) Stats(ctx context.Context, tr types.TimeRange) (types.Summary, error) {
	if err := checkRange(tr); err != nil {
		return types.Summary{}, err
	}
	f := types.Filter{TimeRange: tr}

	agg, err := q.store.AggregateNumeric(ctx, f)
	if err != nil {
		return types.Summary{}, storeUnavailable("aggregate readings", err)
	}
	dist, err := q.store.AggregateStatusCounts(ctx, f)
	if err != nil {
		return types.Summary{}, storeUnavailable("aggregate statuses", err)
	}
	if dist == nil {
		dist = map[types.Status]int{}
	}

	out := types.Summary{Count: agg.Count, StatusDistribution: dist}
	if agg.Count > 0 {
		t := rounded(agg.Temperature)
		h := rounded(agg.Humidity)
		out.Temperature = &t
		out.Humidity = &h
	}
	return out, nil
}

func rounded(fs types.FieldStats) types.FieldStats {
	fs.Avg = decimal.NewFromFloat(fs.Avg).Round(2).InexactFloat64()
	return fs
}

// Series returns readings in tr in ascending time order, at most limit of
// them (MaxSeriesSize when limit < 1 or larger).
func (q *Querier) Series(ctx context.Context, tr types.TimeRange, limit int) ([]types.Reading, error) {
	return q.SeriesPage(ctx, tr, 0, limit)
}

// SeriesPage is Series starting after the first skip readings. Callers that
// need the whole range keep asking until a page comes back short.
func (q *Querier) SeriesPage(ctx context.Context, tr types.TimeRange, skip, limit int) ([]types.Reading, error) {
	if err := checkRange(tr); err != nil {
		return nil, err
	}
	if skip < 0 {
		return nil, policy.NewValidationError(policy.OutOfRange, "skip must be >= 0")
	}
	if limit < 1 || limit > MaxSeriesSize {
		limit = MaxSeriesSize
	}
	out, err := q.store.Find(ctx, types.Filter{TimeRange: tr}, types.Ascending, skip, limit)
	if err != nil {
		return nil, storeUnavailable("series", err)
	}
	return out, nil
}

// Latest returns the newest reading, or nil when the store is empty.
func (q *Querier) Latest(ctx context.Context) (*types.Reading, error) {
	out, err := q.store.Find(ctx, types.Filter{}, types.Descending, 0, 1)
	if err != nil {
		return nil, storeUnavailable("latest reading", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

// RecentAlerts returns up to n of the newest readings whose status is not
// normal, newest first.
func (q *Querier) RecentAlerts(ctx context.Context, tr types.TimeRange, n int) ([]types.Reading, error) {
	if n < 1 {
		return []types.Reading{}, nil
	}
	var merged []types.Reading
	for _, s := range types.Statuses {
		if s == types.StatusNormal {
			continue
		}
		found, err := q.store.Find(ctx, types.Filter{TimeRange: tr, Status: s}, types.Descending, 0, n)
		if err != nil {
			return nil, storeUnavailable("recent alerts", err)
		}
		merged = append(merged, found...)
	}
	sortNewestFirst(merged)
	if len(merged) > n {
		merged = merged[:n]
	}
	if merged == nil {
		merged = []types.Reading{}
	}
	return merged, nil
}

// sortNewestFirst orders by timestamp, then by store id. Ids are compared by
// length first so that numeric ids order numerically.
func sortNewestFirst(rs []types.Reading) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		if len(a.ID) != len(b.ID) {
			return len(a.ID) > len(b.ID)
		}
		return a.ID > b.ID
	})
}
