package report

import "envmon/internal/modules/readings/types"

// DetectAnomalies flags readings that sit more than k sample deviations away
// from the rolling mean of the window ending at them. Missing values are
// skipped inside a window and never flagged. A series shorter than window is
// reported as having no anomalies.
func DetectAnomalies(readings []types.Reading, window int, k float64) []bool {
	out := make([]bool, len(readings))
	if window < 1 || len(readings) < window {
		return out
	}
	temps := column(readings, func(r types.Reading) *float64 { return r.Temperature })
	hums := column(readings, func(r types.Reading) *float64 { return r.Humidity })
	for i := range readings {
		out[i] = outlier(temps, i, window, k) || outlier(hums, i, window, k)
	}
	return out
}

func column(readings []types.Reading, get func(types.Reading) *float64) []*float64 {
	out := make([]*float64, len(readings))
	for i, r := range readings {
		out[i] = get(r)
	}
	return out
}

func outlier(values []*float64, i, window int, k float64) bool {
	if values[i] == nil {
		return false
	}
	from := i - window + 1
	if from < 0 {
		from = 0
	}
	var win []float64
	for _, v := range values[from : i+1] {
		if v != nil {
			win = append(win, *v)
		}
	}
	mean, std := meanStd(win)
	v := *values[i]
	return v > mean+k*std || v < mean-k*std
}
