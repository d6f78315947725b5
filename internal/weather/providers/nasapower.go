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

// powerFillValue is the sentinel POWER uses for missing days when the
// response header does not state one.
const powerFillValue = -999.0

// NASAPowerProvider implements weather.SeriesProvider for the NASA POWER
// daily point API.
type NASAPowerProvider struct {
	name    string
	source  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewNASAPowerProvider(client *http.Client) *NASAPowerProvider {
	return &NASAPowerProvider{
		name:    "nasapower",
		source:  "NASA POWER (MERRA-2 derived)",
		baseURL: "https://power.larc.nasa.gov/api/temporal/daily/point",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newBreaker("nasapower"),
	}
}

// WithBaseURL points the provider at another endpoint.
func (p *NASAPowerProvider) WithBaseURL(u string) *NASAPowerProvider {
	p.baseURL = u
	return p
}

// WithBackoff overrides the retry policy.
func (p *NASAPowerProvider) WithBackoff(b BackoffConfig) *NASAPowerProvider {
	p.httpCfg.Backoff = b
	return p
}

func (p *NASAPowerProvider) Name() string {
	return p.name
}

func (p *NASAPowerProvider) FetchDaily(ctx context.Context, loc weather.Location, v weather.Variable, years weather.YearRange) (climate.Series, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("parameters", string(v))
		values.Set("community", "RE")
		values.Set("latitude", fmt.Sprintf("%.4f", loc.Lat))
		values.Set("longitude", fmt.Sprintf("%.4f", loc.Lon))
		values.Set("start", years.From().Format("20060102"))
		values.Set("end", years.To().Format("20060102"))
		values.Set("format", "JSON")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return climate.Series{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Header struct {
			FillValue *float64 `json:"fill_value"`
		} `json:"header"`
		Properties struct {
			Parameter map[string]map[string]*float64 `json:"parameter"`
		} `json:"properties"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return climate.Series{}, fmt.Errorf("decode power response: %w", err)
	}

	values, ok := payload.Properties.Parameter[string(v)]
	if !ok {
		return climate.Series{}, fmt.Errorf("%w: %s not in power response", errNoCoverage, v)
	}

	fill := powerFillValue
	if payload.Header.FillValue != nil {
		fill = *payload.Header.FillValue
	}

	obs := make([]climate.Observation, 0, len(values))
	for ymd, val := range values {
		d, err := time.Parse("20060102", ymd)
		if err != nil {
			continue
		}
		o := climate.Observation{Date: d}
		if val != nil && *val != fill {
			o.Value = climate.Float(*val)
		}
		obs = append(obs, o)
	}
	if len(obs) == 0 {
		return climate.Series{}, fmt.Errorf("%w: empty %s series", errNoCoverage, v)
	}

	return climate.NewSeries(string(v), []string{p.source}, obs), nil
}
