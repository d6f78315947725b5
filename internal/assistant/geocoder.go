package assistant

import (
	"context"
	"errors"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-likelihood/internal/weather"
)

// ErrNoGeocoderKey is returned when geocoding is attempted without an API key.
var ErrNoGeocoderKey = errors.New("geocoder api key not configured")

// GoogleGeocoder resolves place names through the Google Geocoding API.
type GoogleGeocoder struct {
	mu    sync.Mutex
	cache map[string]weather.Location
}

// NewGoogleGeocoder sets the process-wide key used by the geocoder package.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{cache: make(map[string]weather.Location)}
}

// Geocode looks up name. Results are cached for the life of the process.
func (g *GoogleGeocoder) Geocode(ctx context.Context, name string) (weather.Location, error) {
	if geocoder.ApiKey == "" {
		return weather.Location{}, ErrNoGeocoderKey
	}
	g.mu.Lock()
	loc, ok := g.cache[name]
	g.mu.Unlock()
	if ok {
		return loc, nil
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		l, err := geocoder.Geocoding(geocoder.Address{City: name})
		done <- result{l, err}
	}()

	select {
	case <-ctx.Done():
		return weather.Location{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return weather.Location{}, r.err
		}
		loc = weather.Location{Lat: r.loc.Latitude, Lon: r.loc.Longitude}
		g.mu.Lock()
		g.cache[name] = loc
		g.mu.Unlock()
		return loc, nil
	}
}
