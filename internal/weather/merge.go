package weather

import (
	"github.com/i474232898/weather-likelihood/internal/climate"
)

// MergeSeries fills the absent days of primary with values from fallbacks,
// in order. Dates that only exist in a fallback are not added. A fallback is
// listed as a source only if it filled at least one day.
func MergeSeries(primary climate.Series, fallbacks ...climate.Series) climate.Series {
	obs := append([]climate.Observation(nil), primary.Observations...)
	source := append([]string(nil), primary.Source...)

	index := make(map[string]int, len(obs))
	for i, o := range obs {
		if !o.Present() {
			index[o.Date.Format(climate.DateLayout)] = i
		}
	}

	for _, fb := range fallbacks {
		if len(index) == 0 {
			break
		}
		filled := 0
		for _, o := range fb.Observations {
			if !o.Present() {
				continue
			}
			key := o.Date.Format(climate.DateLayout)
			i, ok := index[key]
			if !ok {
				continue
			}
			obs[i].Value = climate.Float(*o.Value)
			delete(index, key)
			filled++
		}
		if filled > 0 {
			source = append(source, fb.Source...)
		}
	}

	return climate.NewSeries(primary.Variable, source, obs)
}
