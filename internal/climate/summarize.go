package climate

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// SummaryPercentiles are the percentile levels reported by Summarize.
var SummaryPercentiles = []float64{5, 25, 50, 75, 95}

// Summary describes the pooled in-window distribution.
type Summary struct {
	Count       int                `json:"count"`
	Mean        float64            `json:"mean"`
	Min         float64            `json:"min"`
	Max         float64            `json:"max"`
	Percentiles map[string]float64 `json:"percentiles"`
}

// Summarize pools every year of sample into one set and describes it.
func Summarize(sample WindowedSample) (Summary, error) {
	values := sample.Values()
	if len(values) == 0 {
		return Summary{}, Insufficient("empty sample for climatology")
	}
	sort.Float64s(values)

	pct := make(map[string]float64, len(SummaryPercentiles))
	for _, p := range SummaryPercentiles {
		pct[percentileKey(p)] = Percentile(values, p)
	}

	return Summary{
		Count:       len(values),
		Mean:        stat.Mean(values, nil),
		Min:         values[0],
		Max:         values[len(values)-1],
		Percentiles: pct,
	}, nil
}

// Percentile returns the p-th percentile (0..100) of sorted using linear
// interpolation between the closest order statistics. sorted must be
// ascending and non-empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	if lo < 0 {
		return sorted[0]
	}
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func percentileKey(p float64) string {
	return "p" + strconv.FormatFloat(p, 'f', -1, 64)
}

// DayStats is one point of the daily climatology curve.
type DayStats struct {
	DayOfYear int     `json:"doy"`
	Count     int     `json:"count"`
	Mean      float64 `json:"mean"`
	Median    float64 `json:"median"`
	P10       float64 `json:"p10"`
	P90       float64 `json:"p90"`
}

// DailyCurve pools every present value of series by normalized day-of-year.
// Days with no values are omitted.
func DailyCurve(series Series) ([]DayStats, error) {
	buckets := make(map[int][]float64)
	for _, o := range series.Observations {
		if !o.Present() || math.IsNaN(*o.Value) || math.IsInf(*o.Value, 0) {
			continue
		}
		doy := DayOfYear(o.Date)
		buckets[doy] = append(buckets[doy], *o.Value)
	}
	if len(buckets) == 0 {
		return nil, Insufficient("no %s values in series", series.Variable)
	}

	curve := make([]DayStats, 0, len(buckets))
	for doy := 1; doy <= DaysPerYear; doy++ {
		vals, ok := buckets[doy]
		if !ok {
			continue
		}
		sort.Float64s(vals)
		curve = append(curve, DayStats{
			DayOfYear: doy,
			Count:     len(vals),
			Mean:      stat.Mean(vals, nil),
			Median:    Percentile(vals, 50),
			P10:       Percentile(vals, 10),
			P90:       Percentile(vals, 90),
		})
	}
	return curve, nil
}
