package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-likelihood/internal/assistant"
	"github.com/i474232898/weather-likelihood/internal/climate"
	"github.com/i474232898/weather-likelihood/internal/store"
	"github.com/i474232898/weather-likelihood/internal/weather"
)

type stubProvider struct {
	value func(time.Time) *float64
	err   error
}

func (p stubProvider) Name() string { return "stub" }

func (p stubProvider) FetchDaily(_ context.Context, _ weather.Location, v weather.Variable, years weather.YearRange) (climate.Series, error) {
	if p.err != nil {
		return climate.Series{}, p.err
	}
	var obs []climate.Observation
	for d := years.From(); !d.After(years.To()); d = d.AddDate(0, 0, 1) {
		obs = append(obs, climate.Observation{Date: d, Value: p.value(d)})
	}
	return climate.NewSeries(string(v), []string{"stub"}, obs), nil
}

func constant(v float64) func(time.Time) *float64 {
	return func(time.Time) *float64 { return climate.Float(v) }
}

func newTestApp(p weather.SeriesProvider) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(nil)})
	app.Use(RequestID())

	memStore := store.NewMemoryStore(10, time.Hour)
	svc := weather.NewService(memStore, []weather.SeriesProvider{p}, weather.Options{
		Years:         weather.YearRange{Start: 2010, End: 2019},
		MaxWindowDays: 60,
	}, nil)
	advisor := assistant.NewAdvisor(assistant.NewClassifier(nil), svc, 15, nil)
	RegisterRoutes(app, svc, advisor, memStore, Options{DefaultWindowDays: 15})
	return app
}

func doJSON(t *testing.T, app *fiber.App, req *http.Request, out any) *http.Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("decode %s: %v", body, err)
		}
	}
	return resp
}

func TestProbabilityConstantSeries(t *testing.T) {
	app := newTestApp(stubProvider{value: constant(30)})

	var view climate.ProbabilityView
	req := httptest.NewRequest(http.MethodGet, "/api/v1/probability?lat=30.04&lon=31.24&variable=T2M_MAX&target_date=2025-07-01&threshold=25", nil)
	resp := doJSON(t, app, req, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if view.Probability != 1 || view.NSamples != 310 {
		t.Fatalf("probability = %v, n = %d", view.Probability, view.NSamples)
	}
	if view.CI95[0] >= 1 {
		t.Fatalf("ci low = %v, want < 1", view.CI95[0])
	}
	if view.Query.WindowDays != 15 || view.Query.Comparison != climate.GreaterThan {
		t.Fatalf("query echo = %+v", view.Query)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Fatal("missing request id header")
	}
}

func TestQueryValidation(t *testing.T) {
	app := newTestApp(stubProvider{value: constant(30)})

	cases := []string{
		"/api/v1/probability?lon=31&variable=T2M_MAX&target_date=2025-07-01&threshold=25",
		"/api/v1/probability?lat=91&lon=31&variable=T2M_MAX&target_date=2025-07-01&threshold=25",
		"/api/v1/probability?lat=30&lon=31&variable=SNOW&target_date=2025-07-01&threshold=25",
		"/api/v1/probability?lat=30&lon=31&variable=T2M_MAX&target_date=07/01/2025&threshold=25",
		"/api/v1/probability?lat=30&lon=31&variable=T2M_MAX&target_date=2025-07-01",
		"/api/v1/probability?lat=30&lon=31&variable=T2M_MAX&target_date=2025-07-01&threshold=25&comparison=eq",
		"/api/v1/probability?lat=30&lon=31&variable=T2M_MAX&target_date=2025-07-01&threshold=25&window_days=-1",
		"/api/v1/trend?lat=30&lon=31&variable=T2M_MAX&target_date=2025-07-01&threshold=25&window_days=61",
	}
	for _, url := range cases {
		var body map[string]any
		resp := doJSON(t, app, httptest.NewRequest(http.MethodGet, url, nil), &body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected status %d, got %d", url, http.StatusBadRequest, resp.StatusCode)
		}
		if body["kind"] != string(climate.KindInvalidParameters) {
			t.Errorf("%s: kind = %v", url, body["kind"])
		}
	}
}

func TestClimatologyAcceptsVarAlias(t *testing.T) {
	app := newTestApp(stubProvider{value: constant(12.5)})

	var view climate.ClimatologyView
	req := httptest.NewRequest(http.MethodGet, "/api/v1/climatology?lat=30&lon=31&var=t2m&target_date=2025-01-15&window_days=3", nil)
	resp := doJSON(t, app, req, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if view.Count != 70 || view.Mean != 12.5 || view.Percentiles["p50"] != 12.5 {
		t.Fatalf("view = %+v", view)
	}
}

func TestInsufficientDataIs422(t *testing.T) {
	app := newTestApp(stubProvider{value: func(time.Time) *float64 { return nil }})

	var body map[string]any
	req := httptest.NewRequest(http.MethodGet, "/api/v1/probability?lat=30&lon=31&variable=T2M_MAX&target_date=2025-07-01&threshold=25", nil)
	resp := doJSON(t, app, req, &body)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, resp.StatusCode)
	}
	if body["kind"] != string(climate.KindInsufficientData) {
		t.Fatalf("kind = %v", body["kind"])
	}
}

func TestProviderFailureIs502(t *testing.T) {
	app := newTestApp(stubProvider{err: errors.New("server error: 503")})

	var body map[string]any
	req := httptest.NewRequest(http.MethodGet, "/api/v1/trend?lat=30&lon=31&variable=T2M_MAX&target_date=2025-07-01&threshold=25", nil)
	resp := doJSON(t, app, req, &body)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, resp.StatusCode)
	}
	if body["error"] != true || body["kind"] != string(climate.KindDataUnavailable) {
		t.Fatalf("body = %v", body)
	}
}

func TestCurveAndCacheStats(t *testing.T) {
	app := newTestApp(stubProvider{value: constant(20)})

	var curve climate.CurveView
	req := httptest.NewRequest(http.MethodGet, "/api/v1/climatology/curve?lat=30&lon=31&variable=T2M_MEAN", nil)
	resp := doJSON(t, app, req, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown variable: expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/climatology/curve?lat=30&lon=31&variable=T2M", nil)
	resp = doJSON(t, app, req, &curve)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if len(curve.Days) != 365 {
		t.Fatalf("days = %d, want 365", len(curve.Days))
	}

	var stats store.Stats
	resp = doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil), &stats)
	if resp.StatusCode != http.StatusOK || stats.Entries != 1 {
		t.Fatalf("status %d, stats %+v", resp.StatusCode, stats)
	}
}

func TestVariablesCatalogue(t *testing.T) {
	app := newTestApp(stubProvider{value: constant(20)})

	var body struct {
		Variables []weather.VariableInfo `json:"variables"`
		Period    string                 `json:"period"`
	}
	resp := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/variables", nil), &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if len(body.Variables) != 6 || body.Period != "2010-2019" {
		t.Fatalf("body = %+v", body)
	}
}

func TestAssistantQuery(t *testing.T) {
	app := newTestApp(stubProvider{value: constant(30)})

	payload := `{"query":"is it a good day for the beach?","lat":30.04,"lon":31.24,"date":"2025-07-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/query", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	var out assistant.Response
	resp := doJSON(t, app, req, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if out.Analysis.NeedsLocation || len(out.Findings) != 4 {
		t.Fatalf("response = %+v", out)
	}
	// Constant 30 always exceeds the wind and rain presets and never the heat or cold ones.
	if out.Risk != assistant.RiskHigh {
		t.Fatalf("risk = %s, want high", out.Risk)
	}
}

func TestAssistantRejectsHalfLocation(t *testing.T) {
	app := newTestApp(stubProvider{value: constant(30)})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/query", strings.NewReader(`{"query":"rain?","lat":30}`))
	req.Header.Set("Content-Type", "application/json")
	resp := doJSON(t, app, req, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}
