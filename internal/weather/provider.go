package weather

import (
	"context"
	"fmt"

	"github.com/i474232898/weather-likelihood/internal/climate"
)

// SeriesProvider abstracts an upstream archive of daily observations (e.g.
// NASA POWER, Open-Meteo). A provider that has no coverage for the request
// returns an error; it never returns a fabricated series.
type SeriesProvider interface {
	Name() string
	FetchDaily(ctx context.Context, loc Location, v Variable, years YearRange) (climate.Series, error)
}

// SeriesKey identifies a cached series.
type SeriesKey struct {
	Cell     Location
	Variable Variable
	Years    YearRange
}

func (k SeriesKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Cell.Key(), k.Variable, k.Years)
}

// NewSeriesKey builds the cache key for a location, snapping it to the grid.
func NewSeriesKey(loc Location, v Variable, years YearRange) SeriesKey {
	return SeriesKey{Cell: loc.GridCell(), Variable: v, Years: years}
}

// SeriesCache is the contract the in-memory cache (and any future persistent
// cache) must satisfy.
type SeriesCache interface {
	Get(key SeriesKey) (climate.Series, error)
	Put(key SeriesKey, series climate.Series)
}
