package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/i474232898/weather-likelihood/internal/weather"
)

type countingSweeper struct {
	mu    sync.Mutex
	calls int
}

func (c *countingSweeper) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 1
}

type recordingWarmer struct {
	mu   sync.Mutex
	seen map[string]int
}

func (r *recordingWarmer) Prewarm(_ context.Context, loc weather.Location, v weather.Variable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[loc.Key()+"/"+string(v)]++
	if v == weather.VarWind {
		return errors.New("upstream down")
	}
	return nil
}

func TestPrewarmVisitsEveryPair(t *testing.T) {
	warmer := &recordingWarmer{seen: make(map[string]int)}
	s := New(Config{
		Locations: []weather.Location{{Lat: 30, Lon: 31}, {Lat: -33.9, Lon: 18.4}},
		Variables: []weather.Variable{weather.VarTempMax, weather.VarWind},
	}, nil, warmer, nil)

	s.prewarm()

	if len(warmer.seen) != 4 {
		t.Fatalf("expected 4 pairs, got %v", warmer.seen)
	}
	for k, n := range warmer.seen {
		if n != 1 {
			t.Fatalf("%s visited %d times", k, n)
		}
	}
}

func TestSweepDelegatesToCache(t *testing.T) {
	sw := &countingSweeper{}
	s := New(Config{}, sw, nil, nil)

	s.sweep()
	s.sweep()

	if sw.calls != 2 {
		t.Fatalf("expected 2 sweeps, got %d", sw.calls)
	}
}

func TestStartStop(t *testing.T) {
	s := New(Config{}, &countingSweeper{}, nil, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Stop()
}
