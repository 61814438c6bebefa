package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"networth/internal/application/port"
	"networth/internal/domain"
	"networth/internal/domain/model"
	"networth/internal/metrics"
)

// FxOptions tunes how the converter walks its fallback chain.
type FxOptions struct {
	// MaxSourceAge rejects a live rate older than this and tries the next
	// source. Zero accepts any age.
	MaxSourceAge time.Duration
	// MaxStale is the staleness bound of the last-known cache. Zero
	// disables the cache fallback.
	MaxStale time.Duration
	// PreferCacheWithin, when positive, serves a cached rate younger than
	// this before consulting secondary sources once the primary failed.
	PreferCacheWithin time.Duration
}

// FxConverter converts currencies through a ranked chain of sources.
// Entry 0 is the primary; any later entry yields IsFallback rates.
type FxConverter struct {
	reporting string
	chain     []port.FxSource
	cache     port.FxCache
	opts      FxOptions
	now       func() time.Time
}

func NewFxConverter(reportingCurrency string, chain []port.FxSource, cache port.FxCache, opts FxOptions) *FxConverter {
	return &FxConverter{
		reporting: strings.ToUpper(reportingCurrency),
		chain:     chain,
		cache:     cache,
		opts:      opts,
		now:       time.Now,
	}
}

func (c *FxConverter) ReportingCurrency() string { return c.reporting }

// ToReporting returns the rate from currency into the reporting currency.
func (c *FxConverter) ToReporting(ctx context.Context, from string) (model.FxRate, error) {
	return c.Rate(ctx, from, c.reporting)
}

// Rate resolves from->to. Same-currency requests never touch a source.
// When every source fails, the last known rate within MaxStale is returned
// flagged Cached; otherwise the error wraps domain.ErrRateUnavailable.
func (c *FxConverter) Rate(ctx context.Context, from, to string) (model.FxRate, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		metrics.FxResolutions.WithLabelValues("identity").Inc()
		return model.Identity(from, c.now()), nil
	}

	var errs []error
	for i, src := range c.chain {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if i == 1 && c.opts.PreferCacheWithin > 0 {
			if r, ok := c.cached(ctx, from, to, c.opts.PreferCacheWithin); ok {
				return r, nil
			}
		}

		r, err := src.Rate(ctx, from, to)
		if err == nil {
			err = c.check(r)
		}
		if err != nil {
			log.Warn().
				Str("source", src.Name()).
				Str("pair", from+"/"+to).
				Err(err).
				Msg("fx source failed")
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}

		r.Base, r.Quote = from, to
		r.IsFallback = i > 0
		r.Cached = false
		if r.Source == "" {
			r.Source = src.Name()
		}
		if r.AsOf.IsZero() {
			r.AsOf = c.now()
		}
		c.remember(ctx, r)
		if r.IsFallback {
			metrics.FxResolutions.WithLabelValues("fallback").Inc()
		} else {
			metrics.FxResolutions.WithLabelValues("primary").Inc()
		}
		return r, nil
	}

	if r, ok := c.cached(ctx, from, to, c.opts.MaxStale); ok {
		return r, nil
	}

	metrics.FxResolutions.WithLabelValues("unavailable").Inc()
	if len(errs) == 0 {
		errs = append(errs, errors.New("no fx sources configured"))
	}
	return model.FxRate{}, fmt.Errorf("%w: %s/%s: %w", domain.ErrRateUnavailable, from, to, errors.Join(errs...))
}

func (c *FxConverter) check(r model.FxRate) error {
	if !r.Rate.IsPositive() {
		return fmt.Errorf("non-positive rate %s", r.Rate)
	}
	if c.opts.MaxSourceAge > 0 && !r.AsOf.IsZero() && r.Age(c.now()) > c.opts.MaxSourceAge {
		return fmt.Errorf("rate from %s is older than %s", r.AsOf.Format(time.DateOnly), c.opts.MaxSourceAge)
	}
	return nil
}

func (c *FxConverter) cached(ctx context.Context, from, to string, bound time.Duration) (model.FxRate, bool) {
	if c.cache == nil || bound <= 0 {
		return model.FxRate{}, false
	}
	// The lookup must still work after the refresh deadline fired.
	r, ok, err := c.cache.GetRate(context.WithoutCancel(ctx), from, to)
	if err != nil {
		log.Warn().Err(err).Str("pair", from+"/"+to).Msg("fx cache read failed")
		return model.FxRate{}, false
	}
	if !ok || r.Age(c.now()) > bound {
		return model.FxRate{}, false
	}
	r.IsFallback = true
	r.Cached = true
	metrics.FxResolutions.WithLabelValues("cached").Inc()
	log.Info().
		Str("pair", from+"/"+to).
		Str("source", r.Source).
		Time("as_of", r.AsOf).
		Msg("using cached fx rate")
	return r, true
}

func (c *FxConverter) remember(ctx context.Context, r model.FxRate) {
	if c.cache == nil {
		return
	}
	if err := c.cache.PutRate(context.WithoutCancel(ctx), r); err != nil {
		log.Warn().Err(err).Str("pair", r.Base+"/"+r.Quote).Msg("fx cache write failed")
	}
}
