package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/i474232898/weather-likelihood/internal/climate"
	"github.com/i474232898/weather-likelihood/internal/weather"
)

type fakeProber struct {
	probs   map[weather.Variable]float64
	fail    map[weather.Variable]error
	queries []weather.Query
}

func (f *fakeProber) Probability(_ context.Context, q weather.Query) (climate.ProbabilityView, error) {
	f.queries = append(f.queries, q)
	if err := f.fail[q.Variable]; err != nil {
		return climate.ProbabilityView{}, err
	}
	p := f.probs[q.Variable]
	return climate.ProbabilityView{
		Probability: p,
		CI95:        [2]float64{p / 2, (1 + p) / 2},
		Provenance:  climate.Provenance{NSamples: 300},
	}, nil
}

func newTestAdvisor(p Prober) *Advisor {
	a := NewAdvisor(newTestClassifier(nil), p, 7, nil)
	a.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }
	return a
}

func TestRiskLevel(t *testing.T) {
	cases := map[float64]string{0: RiskLow, 0.19: RiskLow, 0.2: RiskModerate, 0.49: RiskModerate, 0.5: RiskHigh, 1: RiskHigh}
	for mean, want := range cases {
		if got := RiskLevel(mean); got != want {
			t.Errorf("RiskLevel(%v) = %s, want %s", mean, got, want)
		}
	}
}

func TestAskScoresFisherPresets(t *testing.T) {
	p := &fakeProber{probs: map[weather.Variable]float64{
		weather.VarWind:     0.6,
		weather.VarPrecip:   0.3,
		weather.VarTempMean: 0,
	}}
	a := newTestAdvisor(p)
	resp, err := a.Ask(context.Background(), Request{Query: "is it safe to go fishing near hurghada on 2025-08-01?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Analysis.Persona != PersonaFisher {
		t.Fatalf("persona = %s", resp.Analysis.Persona)
	}
	if len(resp.Findings) != 3 || len(p.queries) != 3 {
		t.Fatalf("findings = %d, queries = %d", len(resp.Findings), len(p.queries))
	}
	if resp.Risk != RiskModerate {
		t.Fatalf("risk = %s, want moderate", resp.Risk)
	}
	q := p.queries[0]
	if q.WindowDays != 7 || q.TargetDate.Month() != time.August || q.Location.Lat != 27.2574 {
		t.Fatalf("query = %+v", q)
	}
	if resp.TargetDate != "2025-08-01" {
		t.Fatalf("target date = %s", resp.TargetDate)
	}
	if !strings.Contains(resp.Message, "rough wind") {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestAskFailedChecksAreNotCountedAsZero(t *testing.T) {
	p := &fakeProber{
		probs: map[weather.Variable]float64{weather.VarWind: 0.8},
		fail: map[weather.Variable]error{
			weather.VarPrecip:   climate.Unavailable(errors.New("timeout"), "all providers failed"),
			weather.VarTempMean: climate.Insufficient("no samples"),
		},
	}
	a := newTestAdvisor(p)
	resp, err := a.Ask(context.Background(), Request{Query: "boat trip", Persona: "fisher", Location: &weather.Location{Lat: 27, Lon: 34}})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Risk != RiskHigh {
		t.Fatalf("risk = %s, want high", resp.Risk)
	}
	var failed int
	for _, f := range resp.Findings {
		if f.Error != "" {
			failed++
			if f.Probability != nil {
				t.Errorf("failed finding %s carries a probability", f.Label)
			}
		}
	}
	if failed != 2 {
		t.Fatalf("failed findings = %d, want 2", failed)
	}
}

func TestAskAllChecksFail(t *testing.T) {
	down := climate.Unavailable(errors.New("503"), "all providers failed")
	p := &fakeProber{fail: map[weather.Variable]error{
		weather.VarTempMax: down, weather.VarTempMin: down, weather.VarWind: down, weather.VarPrecip: down,
	}}
	a := newTestAdvisor(p)
	resp, err := a.Ask(context.Background(), Request{Query: "weather in cairo"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Risk != RiskUnknown {
		t.Fatalf("risk = %s, want unknown", resp.Risk)
	}
	if !strings.Contains(resp.Message, "unavailable") {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestAskWithoutLocation(t *testing.T) {
	p := &fakeProber{}
	a := newTestAdvisor(p)
	resp, err := a.Ask(context.Background(), Request{Query: "will it rain tomorrow"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !resp.Analysis.NeedsLocation || len(p.queries) != 0 {
		t.Fatalf("resp = %+v, queries = %d", resp, len(p.queries))
	}
	if resp.TargetDate != "2025-03-11" {
		t.Fatalf("target date = %s", resp.TargetDate)
	}
}

func TestAskRejectsBadInput(t *testing.T) {
	a := newTestAdvisor(&fakeProber{})
	cases := []Request{
		{Query: "   "},
		{Query: "rain in cairo", TargetDate: "03/10/2025"},
		{Query: "rain", Location: &weather.Location{Lat: 95, Lon: 0}},
	}
	for _, req := range cases {
		if _, err := a.Ask(context.Background(), req); !errors.Is(err, climate.ErrInvalidParameters) {
			t.Errorf("%+v: err = %v, want invalid parameters", req, err)
		}
	}
}

func TestPresetsDefaultToGeneral(t *testing.T) {
	if got := len(Presets("astronaut")); got != 4 {
		t.Fatalf("presets = %d, want the 4 general checks", got)
	}
}
