package climate

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinTrendYears is the fewest distinct years a trend is computed from.
const MinTrendYears = 3

// SignificanceZ is the two-sided 95% cutoff applied to the Mann–Kendall Z.
const SignificanceZ = 1.96

// YearRate is the exceedance rate of a single year's in-window values.
type YearRate struct {
	Year        int     `json:"year"`
	Rate        float64 `json:"rate"`
	NSamples    int     `json:"n_samples"`
	Exceedances int     `json:"n_exceedances"`
}

// TrendResult describes the monotonic trend of the annual exceedance rate.
type TrendResult struct {
	AnnualRates   []YearRate `json:"annual_rates"`
	SlopePerYear  float64    `json:"slope_per_year"`
	S             int        `json:"mann_kendall_s"`
	VarianceS     float64    `json:"mann_kendall_var_s"`
	ZStatistic    float64    `json:"z_statistic"`
	PValue        float64    `json:"p_value"`
	IsSignificant bool       `json:"is_significant"`
	Years         int        `json:"n_years"`
	Method        string     `json:"method"`
	Coverage      Period     `json:"coverage"`
}

// TrendMethod is the provenance string for a trend estimate.
func TrendMethod(w Window) string {
	return fmt.Sprintf("DOY ±%dd annual exceedance rate; Theil–Sen slope; Mann–Kendall test (tie-corrected, two-sided 95%%)", w.RadiusDays)
}

// AnnualRates computes k/n per year present in sample, ascending by year.
func AnnualRates(sample WindowedSample, threshold float64, cmp Comparison) []YearRate {
	years := sample.Years()
	rates := make([]YearRate, 0, len(years))
	for _, y := range years {
		samples := sample.byYear[y]
		if len(samples) == 0 {
			continue
		}
		k := 0
		for _, s := range samples {
			if cmp.Satisfied(s.Value, threshold) {
				k++
			}
		}
		rates = append(rates, YearRate{
			Year:        y,
			Rate:        float64(k) / float64(len(samples)),
			NSamples:    len(samples),
			Exceedances: k,
		})
	}
	return rates
}

// Trend estimates the trend of the annual exceedance rate. Fewer than
// MinTrendYears years is InsufficientData even when the pooled sample is not
// empty.
func Trend(sample WindowedSample, threshold float64, cmp Comparison) (TrendResult, error) {
	if _, err := ParseComparison(string(cmp)); err != nil {
		return TrendResult{}, err
	}
	rates := AnnualRates(sample, threshold, cmp)
	result, err := TrendOf(rates)
	if err != nil {
		return TrendResult{}, err
	}
	result.Method = TrendMethod(sample.Window)
	return result, nil
}

// TrendOf fits the Theil–Sen slope and the Mann–Kendall test to rates. The
// input order does not matter; rates are sorted by year first.
func TrendOf(rates []YearRate) (TrendResult, error) {
	if len(rates) < MinTrendYears {
		return TrendResult{}, Insufficient("trend needs at least %d years with samples, have %d", MinTrendYears, len(rates))
	}

	sorted := append([]YearRate(nil), rates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })

	slope, err := SenSlope(sorted)
	if err != nil {
		return TrendResult{}, err
	}
	s, varS, z := MannKendall(sorted)

	return TrendResult{
		AnnualRates:   sorted,
		SlopePerYear:  slope,
		S:             s,
		VarianceS:     varS,
		ZStatistic:    z,
		PValue:        2 * distuv.UnitNormal.Survival(math.Abs(z)),
		IsSignificant: math.Abs(z) >= SignificanceZ,
		Years:         len(sorted),
		Coverage:      Period{MinYear: sorted[0].Year, MaxYear: sorted[len(sorted)-1].Year},
	}, nil
}

// SenSlope returns the median of all pairwise slopes between distinct years.
func SenSlope(rates []YearRate) (float64, error) {
	slopes := make(stats.Float64Data, 0, len(rates)*(len(rates)-1)/2)
	for i := 0; i < len(rates); i++ {
		for j := i + 1; j < len(rates); j++ {
			dx := float64(rates[j].Year - rates[i].Year)
			if dx == 0 {
				continue
			}
			slopes = append(slopes, (rates[j].Rate-rates[i].Rate)/dx)
		}
	}
	if len(slopes) == 0 {
		return 0, Insufficient("no distinct year pairs for slope")
	}
	return stats.Median(slopes)
}

// MannKendall returns S, its tie-corrected null variance and the
// continuity-corrected Z. rates must be sorted by year.
func MannKendall(rates []YearRate) (s int, varS, z float64) {
	n := len(rates)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s += sign(rates[j].Rate - rates[i].Rate)
		}
	}

	nf := float64(n)
	numerator := nf * (nf - 1) * (2*nf + 5)
	for _, t := range tieGroups(rates) {
		tf := float64(t)
		numerator -= tf * (tf - 1) * (2*tf + 5)
	}
	varS = numerator / 18

	if varS <= 0 {
		return s, varS, 0
	}
	switch {
	case s > 0:
		z = float64(s-1) / math.Sqrt(varS)
	case s < 0:
		z = float64(s+1) / math.Sqrt(varS)
	}
	return s, varS, z
}

// tieGroups returns the sizes of groups of equal rates with more than one member.
func tieGroups(rates []YearRate) []int {
	vals := make([]float64, len(rates))
	for i, r := range rates {
		vals[i] = r.Rate
	}
	sort.Float64s(vals)

	var groups []int
	run := 1
	for i := 1; i <= len(vals); i++ {
		if i < len(vals) && vals[i] == vals[i-1] {
			run++
			continue
		}
		if run > 1 {
			groups = append(groups, run)
		}
		run = 1
	}
	return groups
}

func sign(d float64) int {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	default:
		return 0
	}
}
