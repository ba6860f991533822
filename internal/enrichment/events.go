package enrichment

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/lepinkainen/gameaugment/internal/catalog"
)

// Outcome classifies one engine decision.
type Outcome string

const (
	// OutcomeSkipped: the record needed nothing, or could not be looked up.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeCacheHit: the bundle came from the cache.
	OutcomeCacheHit Outcome = "cache_hit"
	// OutcomeCacheMiss: the provider had to be consulted.
	OutcomeCacheMiss Outcome = "cache_miss"
	// OutcomeFound: a missing attribute was filled.
	OutcomeFound Outcome = "found"
	// OutcomeNotFound: the bundle had no value for a missing attribute.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeError: the provider lookup failed.
	OutcomeError Outcome = "error"
)

// SourceCache marks values that came from the cache.
const SourceCache = "cache"

var (
	// ErrNoName is attached to skipped events for records without a usable name.
	ErrNoName = errors.New("record has no usable name")
	// ErrProviderDisabled is attached to error events once the provider has
	// been switched off for the rest of the run.
	ErrProviderDisabled = errors.New("provider disabled for the rest of the run")
)

// Event describes one decision. Record-level outcomes (skipped, cache_hit,
// cache_miss, error) leave Attribute empty.
type Event struct {
	Index     int
	Record    string
	Key       string
	Attribute catalog.Attribute
	Outcome   Outcome
	Source    string
	Err       error
}

// Sink receives engine events.
type Sink interface {
	Emit(Event)
}

// MultiSink fans events out to several sinks in order.
type MultiSink []Sink

// Emit forwards ev to every sink.
func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}

type discardSink struct{}

func (discardSink) Emit(Event) {}

// LogSink writes events as human-readable log lines.
type LogSink struct {
	Logger *slog.Logger
}

// NewLogSink returns a LogSink on logger, or on the default logger when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{Logger: logger}
}

// Emit logs ev. Attribute results are Info, bookkeeping is Debug.
func (s *LogSink) Emit(ev Event) {
	attrs := []any{"game", ev.Record}
	switch ev.Outcome {
	case OutcomeFound:
		s.Logger.Info("Found attribute", append(attrs, "attribute", string(ev.Attribute), "source", ev.Source)...)
	case OutcomeNotFound:
		s.Logger.Info("Attribute not found", append(attrs, "attribute", string(ev.Attribute), "source", ev.Source)...)
	case OutcomeCacheHit:
		s.Logger.Debug("Cache hit", append(attrs, "key", ev.Key)...)
	case OutcomeCacheMiss:
		s.Logger.Debug("Cache miss, querying provider", append(attrs, "key", ev.Key, "provider", ev.Source)...)
	case OutcomeSkipped:
		if ev.Err != nil {
			s.Logger.Warn("Skipping record", "index", ev.Index, "error", ev.Err)
			return
		}
		s.Logger.Debug("Nothing missing", attrs...)
	case OutcomeError:
		if errors.Is(ev.Err, ErrProviderDisabled) {
			s.Logger.Debug("Provider lookup skipped", append(attrs, "provider", ev.Source)...)
			return
		}
		s.Logger.Warn("Provider lookup failed", append(attrs, "provider", ev.Source, "error", ev.Err)...)
	}
}

// Tally counts outcomes for the end-of-run summary. It is safe for
// concurrent use.
type Tally struct {
	mu        sync.Mutex
	records   map[Outcome]int
	found     map[catalog.Attribute]int
	notFound  map[catalog.Attribute]int
	processed int
}

// NewTally returns an empty Tally.
func NewTally() *Tally {
	return &Tally{
		records:  make(map[Outcome]int),
		found:    make(map[catalog.Attribute]int),
		notFound: make(map[catalog.Attribute]int),
	}
}

// Emit counts ev.
func (t *Tally) Emit(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Outcome {
	case OutcomeFound:
		t.found[ev.Attribute]++
	case OutcomeNotFound:
		t.notFound[ev.Attribute]++
	case OutcomeSkipped, OutcomeCacheHit, OutcomeCacheMiss:
		t.processed++
		t.records[ev.Outcome]++
	case OutcomeError:
		t.records[ev.Outcome]++
	}
}

// Records returns how many records were seen.
func (t *Tally) Records() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.processed
}

// Count returns the number of record-level events with outcome o.
func (t *Tally) Count(o Outcome) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.records[o]
}

// Found returns how many records had attr filled.
func (t *Tally) Found(attr catalog.Attribute) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.found[attr]
}

// NotFound returns how many records still lack attr after lookup.
func (t *Tally) NotFound(attr catalog.Attribute) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.notFound[attr]
}
