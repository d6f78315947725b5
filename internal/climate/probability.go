package climate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Comparison is the direction of a threshold test. Both are strict.
type Comparison string

const (
	GreaterThan Comparison = "gt"
	LessThan    Comparison = "lt"
)

// ParseComparison accepts "gt" or "lt".
func ParseComparison(s string) (Comparison, error) {
	switch Comparison(s) {
	case GreaterThan, LessThan:
		return Comparison(s), nil
	default:
		return "", Invalid("comparison %q must be gt or lt", s)
	}
}

// Satisfied reports whether v passes the comparison against threshold.
func (c Comparison) Satisfied(v, threshold float64) bool {
	if c == LessThan {
		return v < threshold
	}
	return v > threshold
}

// Confidence is the two-sided level of every interval reported here.
const Confidence = 0.95

// z95 is the standard normal quantile for a two-sided 95% interval (~1.95996).
var z95 = distuv.UnitNormal.Quantile(1 - (1-Confidence)/2)

// Period is the span of years actually present in a sample.
type Period struct {
	MinYear int `json:"min_year"`
	MaxYear int `json:"max_year"`
}

func (p Period) String() string {
	return fmt.Sprintf("%d–%d", p.MinYear, p.MaxYear)
}

// ProbabilityResult is the exceedance estimate over a pooled sample.
type ProbabilityResult struct {
	PointEstimate float64    `json:"probability"`
	CILow         float64    `json:"ci_low"`
	CIHigh        float64    `json:"ci_high"`
	NSamples      int        `json:"n_samples"`
	Exceedances   int        `json:"n_exceedances"`
	Threshold     float64    `json:"threshold"`
	Comparison    Comparison `json:"comparison"`
	Variable      string     `json:"variable"`
	Method        string     `json:"method"`
	Coverage      Period     `json:"coverage"`
}

// ProbabilityMethod is the provenance string for a pooled exceedance estimate.
func ProbabilityMethod(w Window) string {
	return fmt.Sprintf("DOY ±%dd; binomial proportion (Wilson 95%% CI)", w.RadiusDays)
}

// Estimate computes the pooled exceedance probability of sample with a
// Wilson score interval. An empty sample is InsufficientData.
func Estimate(sample WindowedSample, variable string, threshold float64, cmp Comparison) (ProbabilityResult, error) {
	if _, err := ParseComparison(string(cmp)); err != nil {
		return ProbabilityResult{}, err
	}
	values := sample.Values()
	n := len(values)
	if n == 0 {
		return ProbabilityResult{}, Insufficient("no samples to estimate %s %s %g", variable, cmp, threshold)
	}

	k := countSatisfying(values, threshold, cmp)
	low, high := WilsonInterval(k, n)
	minYear, maxYear := sample.Coverage()

	return ProbabilityResult{
		PointEstimate: float64(k) / float64(n),
		CILow:         low,
		CIHigh:        high,
		NSamples:      n,
		Exceedances:   k,
		Threshold:     threshold,
		Comparison:    cmp,
		Variable:      variable,
		Method:        ProbabilityMethod(sample.Window),
		Coverage:      Period{MinYear: minYear, MaxYear: maxYear},
	}, nil
}

func countSatisfying(values []float64, threshold float64, cmp Comparison) int {
	k := 0
	for _, v := range values {
		if cmp.Satisfied(v, threshold) {
			k++
		}
	}
	return k
}

// WilsonInterval returns the 95% Wilson score interval for k successes out
// of n trials, clamped to [0, 1]. n must be positive.
func WilsonInterval(k, n int) (low, high float64) {
	nf := float64(n)
	p := float64(k) / nf
	z2 := z95 * z95

	denom := 1 + z2/nf
	center := (p + z2/(2*nf)) / denom
	half := z95 * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf)) / denom

	// The interval always contains p; min/max only absorbs rounding at k=0
	// and k=n.
	low = math.Min(clamp01(center-half), p)
	high = math.Max(clamp01(center+half), p)
	return low, high
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
