package service

import (
	"context"
	"errors"
	"math"
	"strconv"

	"envmon/internal/modules/readings/types"
)

var errFakeDown = errors.New("fake store down")

// fakeStore is an in-memory Store; err, when set, fails every call.
type fakeStore struct {
	readings []types.Reading
	inserts  int
	err      error
}

func (f *fakeStore) Insert(_ context.Context, r types.Reading) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.inserts++
	r.ID = strconv.Itoa(len(f.readings) + 1)
	f.readings = append(f.readings, r)
	return r.ID, nil
}

func (f *fakeStore) match(flt types.Filter) []types.Reading {
	var out []types.Reading
	for _, r := range f.readings {
		if !flt.Contains(r.Timestamp) {
			continue
		}
		if flt.Status != "" && r.Status != flt.Status {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (f *fakeStore) Find(_ context.Context, flt types.Filter, dir types.SortDirection, skip, limit int) ([]types.Reading, error) {
	if f.err != nil {
		return nil, f.err
	}
	m := f.match(flt)
	sortNewestFirst(m)
	if dir == types.Ascending {
		for i, j := 0, len(m)-1; i < j; i, j = i+1, j-1 {
			m[i], m[j] = m[j], m[i]
		}
	}
	out := []types.Reading{}
	for i := skip; i < len(m); i++ {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m[i])
	}
	return out, nil
}

func (f *fakeStore) Count(_ context.Context, flt types.Filter) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return len(f.match(flt)), nil
}

func (f *fakeStore) AggregateNumeric(_ context.Context, flt types.Filter) (types.NumericAggregate, error) {
	if f.err != nil {
		return types.NumericAggregate{}, f.err
	}
	var out types.NumericAggregate
	var tSum, hSum float64
	tMin, tMax := math.Inf(1), math.Inf(-1)
	hMin, hMax := math.Inf(1), math.Inf(-1)
	for _, r := range f.match(flt) {
		if !r.HasValues() {
			continue
		}
		out.Count++
		t, h := *r.Temperature, *r.Humidity
		tSum += t
		hSum += h
		tMin, tMax = math.Min(tMin, t), math.Max(tMax, t)
		hMin, hMax = math.Min(hMin, h), math.Max(hMax, h)
	}
	if out.Count == 0 {
		return out, nil
	}
	n := float64(out.Count)
	out.Temperature = types.FieldStats{Avg: tSum / n, Min: tMin, Max: tMax}
	out.Humidity = types.FieldStats{Avg: hSum / n, Min: hMin, Max: hMax}
	return out, nil
}

func (f *fakeStore) AggregateStatusCounts(_ context.Context, flt types.Filter) (map[types.Status]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[types.Status]int{}
	for _, r := range f.match(flt) {
		out[r.Status]++
	}
	return out, nil
}

func (f *fakeStore) Ping(context.Context) error {
	return f.err
}
