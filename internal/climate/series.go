package climate

import (
	"sort"
	"time"
)

// Observation is one daily value. Value is nil when the provider reported a
// gap, which is distinct from a measured zero.
type Observation struct {
	Date  time.Time `json:"date"`
	Value *float64  `json:"value"`
}

// Present reports whether the observation carries a value.
func (o Observation) Present() bool {
	return o.Value != nil
}

// Series is a date-ordered daily record for one (location, variable) pair.
// It must not be modified after NewSeries returns.
type Series struct {
	Variable     string
	Source       []string
	Observations []Observation
}

// NewSeries copies obs, normalizes dates to UTC midnight and sorts them.
func NewSeries(variable string, source []string, obs []Observation) Series {
	out := make([]Observation, len(obs))
	for i, o := range obs {
		d := o.Date.UTC()
		out[i] = Observation{
			Date:  time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
			Value: o.Value,
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return Series{
		Variable:     variable,
		Source:       append([]string(nil), source...),
		Observations: out,
	}
}

// Len returns the number of observations including gaps.
func (s Series) Len() int {
	return len(s.Observations)
}

// Missing returns the number of absent observations.
func (s Series) Missing() int {
	n := 0
	for _, o := range s.Observations {
		if !o.Present() {
			n++
		}
	}
	return n
}

// Float returns a pointer to v, for building observations.
func Float(v float64) *float64 {
	return &v
}

// Sample is one windowed (date, value) pair.
type Sample struct {
	Date  time.Time
	Value float64
}

// WindowedSample holds the in-window values of a series grouped by year.
// Years with no in-window values have no entry.
type WindowedSample struct {
	Window Window
	byYear map[int][]Sample
}

// Years returns the years present, ascending.
func (w WindowedSample) Years() []int {
	years := make([]int, 0, len(w.byYear))
	for y := range w.byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Year returns a copy of the samples for year.
func (w WindowedSample) Year(year int) []Sample {
	return append([]Sample(nil), w.byYear[year]...)
}

// Values flattens all years into one pooled slice, year by year ascending.
func (w WindowedSample) Values() []float64 {
	out := make([]float64, 0, w.Len())
	for _, y := range w.Years() {
		for _, s := range w.byYear[y] {
			out = append(out, s.Value)
		}
	}
	return out
}

// Len returns the pooled sample count.
func (w WindowedSample) Len() int {
	n := 0
	for _, s := range w.byYear {
		n += len(s)
	}
	return n
}

// Coverage returns the first and last year actually present.
func (w WindowedSample) Coverage() (minYear, maxYear int) {
	years := w.Years()
	if len(years) == 0 {
		return 0, 0
	}
	return years[0], years[len(years)-1]
}
