package climate

import "time"

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dailySeries builds one observation per day for whole calendar years
// [firstYear, firstYear+years).
func dailySeries(variable string, firstYear, years int, value func(t time.Time) *float64) Series {
	var obs []Observation
	for d := date(firstYear, time.January, 1); d.Year() < firstYear+years; d = d.AddDate(0, 0, 1) {
		obs = append(obs, Observation{Date: d, Value: value(d)})
	}
	return NewSeries(variable, []string{"test"}, obs)
}

func constant(v float64) func(time.Time) *float64 {
	return func(time.Time) *float64 { return Float(v) }
}
