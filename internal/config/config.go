package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/i474232898/weather-likelihood/internal/climate"
	"github.com/i474232898/weather-likelihood/internal/weather"
	"github.com/i474232898/weather-likelihood/internal/weather/providers"
)

type AppConfig struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	// HTTPTimeout bounds one upstream provider request.
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	// Historical span requested from providers. End 0 = last complete year.
	HistoryStartYear int `mapstructure:"history_start_year"`
	HistoryEndYear   int `mapstructure:"history_end_year"`

	DefaultWindowDays int `mapstructure:"default_window_days"`
	MaxWindowDays     int `mapstructure:"max_window_days"`

	// Series cache retention.
	CacheMaxEntries    int           `mapstructure:"cache_max_entries"`
	CacheMaxAge        time.Duration `mapstructure:"cache_max_age"` // 0 = never expires
	CacheSweepInterval time.Duration `mapstructure:"cache_sweep_interval"`

	// Raw list values; parsed into the typed fields below by Load.
	PrewarmLocationsRaw string `mapstructure:"prewarm_locations"`
	PrewarmVariablesRaw string `mapstructure:"prewarm_variables"`
	ProvidersRaw        string `mapstructure:"providers"`

	GapFill        bool   `mapstructure:"gap_fill"`
	GeocoderAPIKey string `mapstructure:"geocoder_api_key"`

	PrewarmLocations []weather.Location `mapstructure:"-"`
	PrewarmVariables []weather.Variable `mapstructure:"-"`
	Providers        []string           `mapstructure:"-"`
}

// Load reads configuration from .env and the environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var err error
	if cfg.PrewarmLocations, err = ParseLocations(cfg.PrewarmLocationsRaw); err != nil {
		return nil, fmt.Errorf("invalid PREWARM_LOCATIONS: %w", err)
	}
	if cfg.PrewarmVariables, err = ParseVariables(cfg.PrewarmVariablesRaw); err != nil {
		return nil, fmt.Errorf("invalid PREWARM_VARIABLES: %w", err)
	}
	cfg.Providers = splitList(cfg.ProvidersRaw, ",")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_timeout", "60s")

	// NASA POWER daily data starts in 1981.
	v.SetDefault("history_start_year", 1981)
	v.SetDefault("history_end_year", 0)

	v.SetDefault("default_window_days", 15)
	v.SetDefault("max_window_days", 60)

	v.SetDefault("cache_max_entries", 256)
	v.SetDefault("cache_max_age", "24h")
	v.SetDefault("cache_sweep_interval", "15m")

	v.SetDefault("prewarm_locations", "")
	v.SetDefault("prewarm_variables", string(weather.VarTempMax))
	v.SetDefault("providers", "nasapower,openmeteo")
	v.SetDefault("gap_fill", false)
	v.SetDefault("geocoder_api_key", "")
}

// Validate checks that all configuration values are consistent.
func (c *AppConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}

	if c.HistoryStartYear < 1 {
		return fmt.Errorf("HISTORY_START_YEAR must be positive")
	}
	if c.HistoryEndYear != 0 && c.HistoryEndYear < c.HistoryStartYear {
		return fmt.Errorf("HISTORY_END_YEAR %d is before HISTORY_START_YEAR %d", c.HistoryEndYear, c.HistoryStartYear)
	}

	if c.MaxWindowDays < 0 || c.MaxWindowDays > climate.MaxRadius {
		return fmt.Errorf("MAX_WINDOW_DAYS must be between 0 and %d", climate.MaxRadius)
	}
	if c.DefaultWindowDays < 0 || c.DefaultWindowDays > c.MaxWindowDays {
		return fmt.Errorf("DEFAULT_WINDOW_DAYS must be between 0 and MAX_WINDOW_DAYS (%d)", c.MaxWindowDays)
	}

	if c.CacheMaxEntries < 1 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be at least 1")
	}
	if c.CacheMaxAge < 0 {
		return fmt.Errorf("CACHE_MAX_AGE must not be negative")
	}
	if c.CacheSweepInterval < time.Second {
		return fmt.Errorf("CACHE_SWEEP_INTERVAL must be at least 1 second")
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("PROVIDERS must name at least one provider")
	}
	for _, p := range c.Providers {
		if !slices.Contains(providers.Known, p) {
			return fmt.Errorf("unknown provider %q in PROVIDERS (known: %s)", p, strings.Join(providers.Known, ", "))
		}
	}
	return nil
}

// Years returns the configured historical span.
func (c *AppConfig) Years() weather.YearRange {
	return weather.YearRange{Start: c.HistoryStartYear, End: c.HistoryEndYear}
}

// ParseLocations parses "lat,lon;lat,lon".
func ParseLocations(s string) ([]weather.Location, error) {
	var locs []weather.Location
	for _, pair := range splitList(s, ";") {
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("location %q is not lat,lon", pair)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("location %q: %w", pair, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("location %q: %w", pair, err)
		}
		loc := weather.Location{Lat: lat, Lon: lon}
		if err := loc.Validate(); err != nil {
			return nil, fmt.Errorf("location %q: %w", pair, err)
		}
		locs = append(locs, loc)
	}
	return locs, nil
}

// ParseVariables parses a comma-separated list of variable codes.
func ParseVariables(s string) ([]weather.Variable, error) {
	var vars []weather.Variable
	for _, code := range splitList(s, ",") {
		v, err := weather.ParseVariable(code)
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
	return vars, nil
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}
