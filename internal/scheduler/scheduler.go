package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/weather-likelihood/internal/weather"
)

// Sweeper drops expired cache entries.
type Sweeper interface {
	Sweep() int
}

// Prewarmer fetches and caches a series ahead of requests.
type Prewarmer interface {
	Prewarm(ctx context.Context, loc weather.Location, v weather.Variable) error
}

// Config lists what the scheduler maintains.
type Config struct {
	SweepInterval time.Duration
	Locations     []weather.Location
	Variables     []weather.Variable
	// FetchTimeout bounds one prewarm fetch.
	FetchTimeout time.Duration
	// Concurrency bounds parallel prewarm fetches.
	Concurrency int
}

// Scheduler periodically sweeps the series cache and refreshes prewarmed series.
type Scheduler struct {
	scheduler *gocron.Scheduler
	cache     Sweeper
	warmer    Prewarmer
	cfg       Config
	log       *zap.SugaredLogger
}

// New creates a new Scheduler.
func New(cfg Config, cache Sweeper, warmer Prewarmer, log *zap.SugaredLogger) *Scheduler {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 15 * time.Minute
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 2 * time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		cache:     cache,
		warmer:    warmer,
		cfg:       cfg,
		log:       log,
	}
}

// Start schedules the periodic jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.cfg.SweepInterval).SingletonMode().Do(s.sweep); err != nil {
		return err
	}

	if len(s.cfg.Locations) == 0 || len(s.cfg.Variables) == 0 || s.warmer == nil {
		s.log.Info("scheduler: no prewarm locations configured; only sweeping cache")
	} else {
		if _, err := s.scheduler.Every(s.cfg.SweepInterval).SingletonMode().Do(s.prewarm); err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) sweep() {
	if s.cache == nil {
		return
	}
	if n := s.cache.Sweep(); n > 0 {
		s.log.Infow("scheduler: swept expired series", "count", n)
	}
}

// prewarm fetches every configured (location, variable) pair, at most
// Concurrency at a time. Failures are logged; the job never aborts early.
func (s *Scheduler) prewarm() {
	s.log.Debug("scheduler: running prewarm job")

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, loc := range s.cfg.Locations {
		for _, v := range s.cfg.Variables {
			loc, v := loc, v
			g.Go(func() error {
				ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FetchTimeout)
				defer cancel()

				if err := s.warmer.Prewarm(ctx, loc, v); err != nil {
					s.log.Warnw("scheduler: prewarm failed", "location", loc.Key(), "variable", v, "error", err)
				}
				return nil
			})
		}
	}
	_ = g.Wait()
	s.log.Debug("scheduler: completed prewarm job")
}
