package config

import (
	"testing"
	"time"

	"github.com/i474232898/weather-likelihood/internal/weather"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Unexpected port: %s", cfg.Port)
	}
	if cfg.HTTPTimeout != 60*time.Second {
		t.Errorf("Unexpected http timeout: %v", cfg.HTTPTimeout)
	}
	if cfg.HistoryStartYear != 1981 || cfg.HistoryEndYear != 0 {
		t.Errorf("Unexpected history span: %d-%d", cfg.HistoryStartYear, cfg.HistoryEndYear)
	}
	if cfg.DefaultWindowDays != 15 || cfg.MaxWindowDays != 60 {
		t.Errorf("Unexpected windows: default %d max %d", cfg.DefaultWindowDays, cfg.MaxWindowDays)
	}
	if len(cfg.Providers) != 2 || cfg.Providers[0] != "nasapower" {
		t.Errorf("Unexpected providers: %v", cfg.Providers)
	}
	if len(cfg.PrewarmVariables) != 1 || cfg.PrewarmVariables[0] != weather.VarTempMax {
		t.Errorf("Unexpected prewarm variables: %v", cfg.PrewarmVariables)
	}
	if len(cfg.PrewarmLocations) != 0 {
		t.Errorf("Expected no prewarm locations, got %v", cfg.PrewarmLocations)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HISTORY_START_YEAR", "1991")
	t.Setenv("HISTORY_END_YEAR", "2020")
	t.Setenv("CACHE_MAX_AGE", "2h")
	t.Setenv("GAP_FILL", "true")
	t.Setenv("PROVIDERS", "OpenMeteo")
	t.Setenv("PREWARM_LOCATIONS", "30.04, 31.24; -33.9,18.4")
	t.Setenv("PREWARM_VARIABLES", "t2m_max,PRECTOTCORR")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Unexpected port: %s", cfg.Port)
	}
	if y := cfg.Years(); y.Start != 1991 || y.End != 2020 {
		t.Errorf("Unexpected years: %v", y)
	}
	if cfg.CacheMaxAge != 2*time.Hour {
		t.Errorf("Unexpected cache max age: %v", cfg.CacheMaxAge)
	}
	if !cfg.GapFill {
		t.Error("Expected gap fill enabled")
	}
	if len(cfg.Providers) != 1 || cfg.Providers[0] != "openmeteo" {
		t.Errorf("Unexpected providers: %v", cfg.Providers)
	}
	if len(cfg.PrewarmLocations) != 2 || cfg.PrewarmLocations[1].Lat != -33.9 {
		t.Errorf("Unexpected prewarm locations: %v", cfg.PrewarmLocations)
	}
	if len(cfg.PrewarmVariables) != 2 || cfg.PrewarmVariables[1] != weather.VarPrecip {
		t.Errorf("Unexpected prewarm variables: %v", cfg.PrewarmVariables)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadRejectsBadLists(t *testing.T) {
	tests := map[string][2]string{
		"location without lon": {"PREWARM_LOCATIONS", "30.04"},
		"latitude out of range": {"PREWARM_LOCATIONS", "95,10"},
		"unknown variable":      {"PREWARM_VARIABLES", "SNOW"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func validConfig() *AppConfig {
	return &AppConfig{
		Port:               "8080",
		LogLevel:           "info",
		HTTPTimeout:        time.Minute,
		HistoryStartYear:   1981,
		DefaultWindowDays:  15,
		MaxWindowDays:      60,
		CacheMaxEntries:    256,
		CacheMaxAge:        24 * time.Hour,
		CacheSweepInterval: 15 * time.Minute,
		Providers:          []string{"nasapower"},
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"end before start", func(c *AppConfig) { c.HistoryEndYear = 1970 }},
		{"default window above max", func(c *AppConfig) { c.DefaultWindowDays = 90 }},
		{"max window beyond half year", func(c *AppConfig) { c.MaxWindowDays = 200 }},
		{"unknown provider", func(c *AppConfig) { c.Providers = []string{"openweather"} }},
		{"no providers", func(c *AppConfig) { c.Providers = nil }},
		{"bad log level", func(c *AppConfig) { c.LogLevel = "verbose" }},
		{"zero cache entries", func(c *AppConfig) { c.CacheMaxEntries = 0 }},
		{"zero timeout", func(c *AppConfig) { c.HTTPTimeout = 0 }},
	}

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() accepted %s", tt.name)
			}
		})
	}
}

func TestParseLocationsEmpty(t *testing.T) {
	locs, err := ParseLocations(" ; ")
	if err != nil || len(locs) != 0 {
		t.Fatalf("ParseLocations = %v, %v", locs, err)
	}
}
