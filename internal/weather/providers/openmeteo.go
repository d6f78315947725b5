package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-likelihood/internal/climate"
	"github.com/i474232898/weather-likelihood/internal/weather"
)

// OpenMeteoProvider implements weather.SeriesProvider for the Open-Meteo
// historical archive.
type OpenMeteoProvider struct {
	name    string
	source  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		source:  "Open-Meteo Historical Weather (ERA5)",
		baseURL: "https://archive-api.open-meteo.com/v1/archive",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newBreaker("openmeteo"),
	}
}

// WithBaseURL points the provider at another endpoint.
func (p *OpenMeteoProvider) WithBaseURL(u string) *OpenMeteoProvider {
	p.baseURL = u
	return p
}

// WithBackoff overrides the retry policy.
func (p *OpenMeteoProvider) WithBackoff(b BackoffConfig) *OpenMeteoProvider {
	p.httpCfg.Backoff = b
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) FetchDaily(ctx context.Context, loc weather.Location, v weather.Variable, years weather.YearRange) (climate.Series, error) {
	info, ok := v.Info()
	if !ok || info.OpenMeteo == "" {
		return climate.Series{}, fmt.Errorf("%w: openmeteo has no mapping for %s", errNoCoverage, v)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", loc.Lat))
		values.Set("longitude", fmt.Sprintf("%f", loc.Lon))
		values.Set("start_date", years.From().Format("2006-01-02"))
		values.Set("end_date", years.To().Format("2006-01-02"))
		values.Set("daily", info.OpenMeteo)
		values.Set("timezone", "UTC")
		values.Set("wind_speed_unit", "ms")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return climate.Series{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Daily map[string]json.RawMessage `json:"daily"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return climate.Series{}, fmt.Errorf("decode openmeteo response: %w", err)
	}

	var days []string
	var values []*float64
	if raw, ok := payload.Daily["time"]; !ok || json.Unmarshal(raw, &days) != nil {
		return climate.Series{}, fmt.Errorf("%w: openmeteo response has no daily time axis", errNoCoverage)
	}
	if raw, ok := payload.Daily[info.OpenMeteo]; !ok || json.Unmarshal(raw, &values) != nil {
		return climate.Series{}, fmt.Errorf("%w: %s not in openmeteo response", errNoCoverage, info.OpenMeteo)
	}
	if len(days) != len(values) {
		return climate.Series{}, fmt.Errorf("openmeteo returned %d dates and %d values", len(days), len(values))
	}

	obs := make([]climate.Observation, 0, len(days))
	for i, day := range days {
		d, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		obs = append(obs, climate.Observation{Date: d, Value: values[i]})
	}
	if len(obs) == 0 {
		return climate.Series{}, fmt.Errorf("%w: empty %s series", errNoCoverage, v)
	}

	return climate.NewSeries(string(v), []string{p.source}, obs), nil
}
