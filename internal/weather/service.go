package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/weather-likelihood/internal/climate"
)

// Options tunes a Service.
type Options struct {
	// Years is the historical span requested from providers. End 0 means the
	// last complete year.
	Years YearRange
	// MaxWindowDays bounds the window radius of a query.
	MaxWindowDays int
	// GapFill fills absent days of the primary series from later providers.
	GapFill bool
}

// Service runs the request pipeline: validate, fetch, extract, estimate, assemble.
type Service struct {
	cache     SeriesCache
	providers []SeriesProvider
	opts      Options
	log       *zap.SugaredLogger
	now       func() time.Time
}

// NewService creates a new Service.
func NewService(cache SeriesCache, providers []SeriesProvider, opts Options, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.MaxWindowDays <= 0 {
		opts.MaxWindowDays = climate.MaxRadius
	}
	return &Service{
		cache:     cache,
		providers: providers,
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

// Years returns the resolved historical span.
func (s *Service) Years() YearRange {
	return s.opts.Years.Resolve(s.now())
}

// Probability answers the probability view.
func (s *Service) Probability(ctx context.Context, q Query) (climate.ProbabilityView, error) {
	sample, series, err := s.sample(ctx, q)
	if err != nil {
		return climate.ProbabilityView{}, err
	}
	res, err := climate.Estimate(sample, string(q.Variable), q.Threshold, q.Comparison)
	if err != nil {
		return climate.ProbabilityView{}, err
	}
	return climate.AssembleProbability(q.climateQuery(), res, series.Source), nil
}

// Climatology answers the climatology view. Threshold and comparison are
// ignored.
func (s *Service) Climatology(ctx context.Context, q Query) (climate.ClimatologyView, error) {
	if q.Comparison == "" {
		q.Comparison = climate.GreaterThan
	}
	sample, series, err := s.sample(ctx, q)
	if err != nil {
		return climate.ClimatologyView{}, err
	}
	sum, err := climate.Summarize(sample)
	if err != nil {
		return climate.ClimatologyView{}, err
	}
	return climate.AssembleClimatology(q.climateQuery(), sum, sample, series.Source), nil
}

// Trend answers the trend view, with the pooled probability for context.
func (s *Service) Trend(ctx context.Context, q Query) (climate.TrendView, error) {
	sample, series, err := s.sample(ctx, q)
	if err != nil {
		return climate.TrendView{}, err
	}
	prob, err := climate.Estimate(sample, string(q.Variable), q.Threshold, q.Comparison)
	if err != nil {
		return climate.TrendView{}, err
	}
	tr, err := climate.Trend(sample, q.Threshold, q.Comparison)
	if err != nil {
		return climate.TrendView{}, err
	}
	return climate.AssembleTrend(q.climateQuery(), tr, prob, series.Source), nil
}

// Curve answers the daily climatology curve for a location and variable.
func (s *Service) Curve(ctx context.Context, loc Location, v Variable) (climate.CurveView, error) {
	q := Query{Location: loc, Variable: v, TargetDate: s.now(), Comparison: climate.GreaterThan}
	if err := q.Validate(s.opts.MaxWindowDays); err != nil {
		return climate.CurveView{}, err
	}
	series, err := s.Series(ctx, loc, v)
	if err != nil {
		return climate.CurveView{}, err
	}
	days, err := climate.DailyCurve(series)
	if err != nil {
		return climate.CurveView{}, err
	}
	return climate.AssembleCurve(q.climateQuery(), days, series), nil
}

func (s *Service) sample(ctx context.Context, q Query) (climate.WindowedSample, climate.Series, error) {
	if err := q.Validate(s.opts.MaxWindowDays); err != nil {
		return climate.WindowedSample{}, climate.Series{}, err
	}
	window, err := climate.NewWindow(q.TargetDate, q.WindowDays)
	if err != nil {
		return climate.WindowedSample{}, climate.Series{}, err
	}
	series, err := s.Series(ctx, q.Location, q.Variable)
	if err != nil {
		return climate.WindowedSample{}, climate.Series{}, err
	}
	sample, err := climate.Extract(series, window)
	if err != nil {
		return climate.WindowedSample{}, climate.Series{}, err
	}
	return sample, series, nil
}

// Series returns the daily series for the grid cell of loc, from cache when
// possible. Provider failures surface as DataUnavailable.
func (s *Service) Series(ctx context.Context, loc Location, v Variable) (climate.Series, error) {
	key := NewSeriesKey(loc, v, s.Years())

	if s.cache != nil {
		if series, err := s.cache.Get(key); err == nil {
			s.log.Debugw("series cache hit", "key", key.String())
			return series, nil
		}
	}

	series, err := s.fetch(ctx, key)
	if err != nil {
		return climate.Series{}, err
	}
	if s.cache != nil {
		s.cache.Put(key, series)
	}
	return series, nil
}

// Prewarm fetches and caches the series for loc and v.
func (s *Service) Prewarm(ctx context.Context, loc Location, v Variable) error {
	_, err := s.Series(ctx, loc, v)
	return err
}

func (s *Service) fetch(ctx context.Context, key SeriesKey) (climate.Series, error) {
	if len(s.providers) == 0 {
		s.log.Errorw("no providers configured", "key", key.String())
		return climate.Series{}, climate.Unavailable(nil, "no series providers configured")
	}

	var errs []error
	for i, p := range s.providers {
		started := time.Now()
		series, err := p.FetchDaily(ctx, key.Cell, key.Variable, key.Years)
		if err != nil {
			s.log.Warnw("provider fetch failed", "provider", p.Name(), "key", key.String(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		s.log.Infow("series fetched", "provider", p.Name(), "key", key.String(),
			"observations", series.Len(), "missing", series.Missing(), "took", time.Since(started))

		if s.opts.GapFill && series.Missing() > 0 && i+1 < len(s.providers) {
			series = s.fillGaps(ctx, key, series, s.providers[i+1:])
		}
		return series, nil
	}

	return climate.Series{}, climate.Unavailable(errors.Join(errs...),
		"no provider could supply %s at %s for %s", key.Variable, key.Cell.Key(), key.Years)
}

// fillGaps fetches the remaining providers concurrently and merges them into
// primary in provider order. Failed fallbacks are logged and skipped.
func (s *Service) fillGaps(ctx context.Context, key SeriesKey, primary climate.Series, rest []SeriesProvider) climate.Series {
	fallbacks := make([]climate.Series, len(rest))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range rest {
		i, p := i, p
		g.Go(func() error {
			series, err := p.FetchDaily(gctx, key.Cell, key.Variable, key.Years)
			if err != nil {
				s.log.Warnw("gap-fill fetch failed", "provider", p.Name(), "key", key.String(), "error", err)
				return nil
			}
			fallbacks[i] = series
			return nil
		})
	}
	_ = g.Wait()

	merged := MergeSeries(primary, fallbacks...)
	s.log.Debugw("gap fill applied", "key", key.String(), "missing_before", primary.Missing(), "missing_after", merged.Missing())
	return merged
}
