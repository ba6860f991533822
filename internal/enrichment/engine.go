// Package enrichment fills missing game attributes on catalog records from a
// cache first and a metadata provider second, never overwriting data a
// record already has.
package enrichment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/gameaugment/internal/cache"
	"github.com/lepinkainen/gameaugment/internal/catalog"
	apperrors "github.com/lepinkainen/gameaugment/internal/errors"
	"github.com/lepinkainen/gameaugment/internal/provider"
	"github.com/lepinkainen/gameaugment/internal/ratelimit"
)

// Engine enriches records one at a time. It is not safe for concurrent use.
type Engine struct {
	cache    cache.Store
	provider provider.Provider
	limiter  *ratelimit.Limiter
	detector *catalog.Detector
	sink     Sink
	logger   *slog.Logger

	providerDisabled bool
}

// Option is a functional option for configuring the Engine.
type Option func(*Engine)

// WithDetector sets the presence rules, e.g. custom sentinels.
func WithDetector(d *catalog.Detector) Option {
	return func(e *Engine) {
		if d != nil {
			e.detector = d
		}
	}
}

// WithSink sets where events are sent.
func WithSink(s Sink) Option {
	return func(e *Engine) {
		if s != nil {
			e.sink = s
		}
	}
}

// WithLogger sets the logger for engine-level messages.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine. A nil limiter disables throttling.
func New(store cache.Store, p provider.Provider, limiter *ratelimit.Limiter, opts ...Option) *Engine {
	if limiter == nil {
		limiter = ratelimit.New(p.Name(), 0)
	}
	e := &Engine{
		cache:    store,
		provider: p,
		limiter:  limiter,
		detector: catalog.NewDetector(nil),
		sink:     discardSink{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result reports what happened to one record.
type Result struct {
	Name    string
	Missing []catalog.Attribute
	Filled  []catalog.Attribute
	Source  string
}

// Run enriches records in order, modifying them in place. It returns early
// only when ctx is cancelled; per-record failures are logged and skipped.
func (e *Engine) Run(ctx context.Context, records []*catalog.Record) error {
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("enrichment interrupted after %d of %d records: %w", i, len(records), err)
		}
		if _, err := e.enrich(ctx, i, rec); err != nil {
			return fmt.Errorf("enrichment interrupted after %d of %d records: %w", i, len(records), err)
		}
	}
	return nil
}

// EnrichRecord fills the missing attributes of rec. The only error returned
// is cancellation of ctx while waiting for the rate limiter.
func (e *Engine) EnrichRecord(ctx context.Context, rec *catalog.Record) (Result, error) {
	return e.enrich(ctx, 0, rec)
}

func (e *Engine) enrich(ctx context.Context, index int, rec *catalog.Record) (Result, error) {
	name, ok := rec.Name()
	if !ok {
		e.sink.Emit(Event{Index: index, Outcome: OutcomeSkipped, Err: ErrNoName})
		return Result{}, nil
	}

	res := Result{Name: name, Missing: e.detector.Missing(rec)}
	key := catalog.NormalizeKey(name)
	base := Event{Index: index, Record: name, Key: key}

	if len(res.Missing) == 0 {
		e.emit(base, OutcomeSkipped, "", "", nil)
		return res, nil
	}

	bundle, source, err := e.lookup(ctx, base, name, key, res.Missing)
	if err != nil {
		return res, err
	}
	res.Source = source

	for _, attr := range res.Missing {
		value, ok := bundle.Value(attr)
		if !ok {
			e.emit(base, OutcomeNotFound, attr, source, nil)
			continue
		}
		if err := rec.Set(attr.Field(), value); err != nil {
			e.logger.Warn("Failed to set attribute", "game", name, "attribute", string(attr), "error", err)
			e.emit(base, OutcomeNotFound, attr, source, err)
			continue
		}
		res.Filled = append(res.Filled, attr)
		e.emit(base, OutcomeFound, attr, source, nil)
	}

	return res, nil
}

// lookup returns the bundle for key from the cache or, on a miss, from the
// provider. Provider failures yield an empty bundle and are not cached.
//
// A tags-only cache entry is a hit only when tags are all that is missing.
// Otherwise the provider is asked and its answer replaces the entry; if the
// provider fails, the cached tags are still used.
func (e *Engine) lookup(ctx context.Context, base Event, name, key string, missing []catalog.Attribute) (catalog.Bundle, string, error) {
	cached, ok := e.cache.Get(key)
	if ok && cached.Covers(missing) {
		e.emit(base, OutcomeCacheHit, "", SourceCache, nil)
		return cached, SourceCache, nil
	}

	fallback, fallbackSource := catalog.Bundle{}, e.provider.Name()
	if ok {
		fallback, fallbackSource = cached, SourceCache
	}

	source := e.provider.Name()
	e.emit(base, OutcomeCacheMiss, "", source, nil)

	if e.providerDisabled {
		e.emit(base, OutcomeError, "", source, ErrProviderDisabled)
		return fallback, fallbackSource, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return catalog.Bundle{}, source, err
	}

	bundle, err := e.provider.Fetch(ctx, name)
	e.limiter.Done()
	if err != nil {
		if ctx.Err() != nil {
			return catalog.Bundle{}, source, ctx.Err()
		}
		e.emit(base, OutcomeError, "", source, err)
		if apperrors.IsRateLimitError(err) {
			e.disableProvider(err)
		}
		return fallback, fallbackSource, nil
	}

	if err := e.cache.Put(key, bundle); err != nil {
		e.logger.Warn("Failed to cache lookup result", "game", name, "error", err)
	}
	return bundle, source, nil
}

// disableProvider stops further provider calls for this run. It logs once.
func (e *Engine) disableProvider(err error) {
	if e.providerDisabled {
		return
	}
	e.providerDisabled = true
	e.logger.Warn("Provider rate limit reached; skipping further lookups for this run",
		"provider", e.provider.Name(), "error", err)
}

// ProviderDisabled reports whether the provider was switched off by a rate
// limit response.
func (e *Engine) ProviderDisabled() bool {
	return e.providerDisabled
}

func (e *Engine) emit(base Event, outcome Outcome, attr catalog.Attribute, source string, err error) {
	ev := base
	ev.Outcome = outcome
	ev.Attribute = attr
	ev.Source = source
	ev.Err = err
	e.sink.Emit(ev)
}
