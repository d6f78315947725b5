package providers

import (
	"fmt"
	"net/http"

	"github.com/i474232898/weather-likelihood/internal/weather"
)

// Known lists the provider names accepted by Build.
var Known = []string{"nasapower", "openmeteo"}

// Build instantiates providers by name, in the given order.
func Build(names []string, client *http.Client) ([]weather.SeriesProvider, error) {
	provs := make([]weather.SeriesProvider, 0, len(names))
	for _, name := range names {
		switch name {
		case "nasapower":
			provs = append(provs, NewNASAPowerProvider(client))
		case "openmeteo":
			provs = append(provs, NewOpenMeteoProvider(client))
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
	}
	return provs, nil
}
