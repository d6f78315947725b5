package climate

import "math"

// Extract selects the observations of series that fall inside window,
// grouped by calendar year. Absent and non-finite values are dropped first
// and never create a year entry. An empty result is InsufficientData.
func Extract(series Series, window Window) (WindowedSample, error) {
	if err := window.Validate(); err != nil {
		return WindowedSample{}, err
	}

	byYear := make(map[int][]Sample)
	for _, o := range series.Observations {
		if !o.Present() {
			continue
		}
		v := *o.Value
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if !window.Contains(DayOfYear(o.Date)) {
			continue
		}
		y := o.Date.Year()
		byYear[y] = append(byYear[y], Sample{Date: o.Date, Value: v})
	}

	if len(byYear) == 0 {
		return WindowedSample{}, Insufficient("no %s values within %s", series.Variable, window)
	}
	return WindowedSample{Window: window, byYear: byYear}, nil
}

// NewWindowedSample builds a sample from pre-grouped values. Empty years are
// skipped.
func NewWindowedSample(window Window, byYear map[int][]float64) WindowedSample {
	out := make(map[int][]Sample, len(byYear))
	for y, vals := range byYear {
		if len(vals) == 0 {
			continue
		}
		samples := make([]Sample, len(vals))
		for i, v := range vals {
			samples[i] = Sample{Value: v}
		}
		out[y] = samples
	}
	return WindowedSample{Window: window, byYear: out}
}
