package climate

import (
	"fmt"
	"time"
)

// Query echoes the request parameters in every view.
type Query struct {
	Latitude   float64    `json:"lat"`
	Longitude  float64    `json:"lon"`
	Variable   string     `json:"variable"`
	Units      string     `json:"units"`
	TargetDate string     `json:"target_date"`
	Threshold  *float64   `json:"threshold,omitempty"`
	Comparison Comparison `json:"comparison,omitempty"`
	WindowDays int        `json:"window_days"`
}

// Provenance is attached to every view.
type Provenance struct {
	NSamples int      `json:"n_samples"`
	Period   string   `json:"period"`
	Coverage Period   `json:"coverage"`
	Method   string   `json:"method"`
	Source   []string `json:"source"`
}

// ProbabilityView is the response of the probability query.
type ProbabilityView struct {
	Query       Query      `json:"query"`
	Probability float64    `json:"probability"`
	CI95        [2]float64 `json:"ci_95"`
	Exceedances int        `json:"n_exceedances"`
	Provenance
}

// ClimatologyView is the response of the climatology query.
type ClimatologyView struct {
	Query       Query              `json:"query"`
	Count       int                `json:"count"`
	Mean        float64            `json:"mean"`
	Min         float64            `json:"min"`
	Max         float64            `json:"max"`
	Percentiles map[string]float64 `json:"percentiles"`
	Provenance
}

// TrendView is the response of the trend query. Probability is the pooled
// estimate over the same sample, for context.
type TrendView struct {
	Query         Query           `json:"query"`
	AnnualRates   []YearRate      `json:"annual_rates"`
	SlopePerYear  float64         `json:"slope_per_year"`
	ZStatistic    float64         `json:"z_statistic"`
	PValue        float64         `json:"p_value"`
	S             int             `json:"mann_kendall_s"`
	IsSignificant bool            `json:"is_significant"`
	NYears        int             `json:"n_years"`
	Probability   ProbabilityView `json:"probability"`
	Provenance
}

// CurveView is the response of the daily climatology curve query.
type CurveView struct {
	Query  Query      `json:"query"`
	Days   []DayStats `json:"days"`
	Method string     `json:"method"`
	Period string     `json:"period"`
	Source []string   `json:"source"`
}

// CurveMethod is the provenance string of the daily climatology curve.
const CurveMethod = "per day-of-year pooled mean, median, p10, p90 (Feb 29 folded onto Feb 28)"

// DateLayout formats target dates in views.
const DateLayout = "2006-01-02"

// FormatDate renders a target date for a Query.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// AssembleProbability builds the probability view.
func AssembleProbability(q Query, res ProbabilityResult, source []string) ProbabilityView {
	th := res.Threshold
	q.Threshold = &th
	q.Comparison = res.Comparison
	return ProbabilityView{
		Query:       q,
		Probability: res.PointEstimate,
		CI95:        [2]float64{res.CILow, res.CIHigh},
		Exceedances: res.Exceedances,
		Provenance:  provenance(res.NSamples, res.Coverage, res.Method, source),
	}
}

// AssembleClimatology builds the climatology view. Threshold and
// comparison are not part of it.
func AssembleClimatology(q Query, sum Summary, sample WindowedSample, source []string) ClimatologyView {
	q.Threshold = nil
	q.Comparison = ""
	minYear, maxYear := sample.Coverage()
	return ClimatologyView{
		Query:       q,
		Count:       sum.Count,
		Mean:        sum.Mean,
		Min:         sum.Min,
		Max:         sum.Max,
		Percentiles: sum.Percentiles,
		Provenance: provenance(sum.Count, Period{MinYear: minYear, MaxYear: maxYear},
			ClimatologyMethod(sample.Window), source),
	}
}

// ClimatologyMethod is the provenance string of the climatology view.
func ClimatologyMethod(w Window) string {
	return fmt.Sprintf("DOY ±%dd; pooled mean and linear-interpolated percentiles", w.RadiusDays)
}

// AssembleTrend builds the trend view around a pooled probability result.
func AssembleTrend(q Query, tr TrendResult, prob ProbabilityResult, source []string) TrendView {
	pv := AssembleProbability(q, prob, source)
	return TrendView{
		Query:         pv.Query,
		AnnualRates:   tr.AnnualRates,
		SlopePerYear:  tr.SlopePerYear,
		ZStatistic:    tr.ZStatistic,
		PValue:        tr.PValue,
		S:             tr.S,
		IsSignificant: tr.IsSignificant,
		NYears:        tr.Years,
		Probability:   pv,
		Provenance:    provenance(prob.NSamples, tr.Coverage, tr.Method, source),
	}
}

// AssembleCurve builds the daily curve view.
func AssembleCurve(q Query, days []DayStats, series Series) CurveView {
	q.Threshold = nil
	q.Comparison = ""
	q.TargetDate = ""
	var cov Period
	for _, o := range series.Observations {
		if !o.Present() {
			continue
		}
		y := o.Date.Year()
		if cov.MinYear == 0 || y < cov.MinYear {
			cov.MinYear = y
		}
		if y > cov.MaxYear {
			cov.MaxYear = y
		}
	}
	return CurveView{
		Query:  q,
		Days:   days,
		Method: CurveMethod,
		Period: cov.String(),
		Source: append([]string(nil), series.Source...),
	}
}

func provenance(n int, cov Period, method string, source []string) Provenance {
	return Provenance{
		NSamples: n,
		Period:   cov.String(),
		Coverage: cov,
		Method:   method,
		Source:   append([]string(nil), source...),
	}
}
