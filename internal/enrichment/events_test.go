package enrichment

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lepinkainen/gameaugment/internal/catalog"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []Event
}

func (r *recordingSink) Emit(ev Event) { r.events = append(r.events, ev) }

func TestMultiSink_FansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	sink := MultiSink{a, nil, b}

	sink.Emit(Event{Record: "Chrono Trigger", Outcome: OutcomeCacheHit})

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestLogSink_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sink := NewLogSink(logger)

	sink.Emit(Event{Record: "Chrono Trigger", Outcome: OutcomeCacheHit})
	sink.Emit(Event{Record: "Chrono Trigger", Outcome: OutcomeFound, Attribute: catalog.AttrImage, Source: "cache"})
	sink.Emit(Event{Record: "Chrono Trigger", Outcome: OutcomeNotFound, Attribute: catalog.AttrScore, Source: "rawg"})
	sink.Emit(Event{Record: "Broken", Outcome: OutcomeError, Source: "rawg", Err: errors.New("boom")})
	sink.Emit(Event{Record: "Later", Outcome: OutcomeError, Source: "rawg", Err: ErrProviderDisabled})
	sink.Emit(Event{Index: 4, Outcome: OutcomeSkipped, Err: ErrNoName})

	out := buf.String()
	assert.NotContains(t, out, "Cache hit")
	assert.Contains(t, out, `msg="Found attribute" game="Chrono Trigger" attribute=image source=cache`)
	assert.Contains(t, out, `msg="Attribute not found" game="Chrono Trigger" attribute=score source=rawg`)
	assert.Contains(t, out, `msg="Provider lookup failed" game=Broken provider=rawg error=boom`)
	assert.NotContains(t, out, "Later")
	assert.Contains(t, out, `msg="Skipping record" index=4`)
}

func TestTally(t *testing.T) {
	tally := NewTally()
	for _, ev := range []Event{
		{Outcome: OutcomeSkipped},
		{Outcome: OutcomeCacheHit},
		{Outcome: OutcomeFound, Attribute: catalog.AttrYear},
		{Outcome: OutcomeCacheMiss},
		{Outcome: OutcomeError},
		{Outcome: OutcomeNotFound, Attribute: catalog.AttrYear},
		{Outcome: OutcomeFound, Attribute: catalog.AttrYear},
	} {
		tally.Emit(ev)
	}

	assert.Equal(t, 3, tally.Records())
	assert.Equal(t, 1, tally.Count(OutcomeError))
	assert.Equal(t, 2, tally.Found(catalog.AttrYear))
	assert.Equal(t, 1, tally.NotFound(catalog.AttrYear))
	assert.Equal(t, 0, tally.Found(catalog.AttrImage))
}

func TestMetricsSink(t *testing.T) {
	m := NewMetricsSink()
	m.Emit(Event{Outcome: OutcomeCacheMiss, Source: "rawg"})
	m.Emit(Event{Outcome: OutcomeCacheMiss, Source: "rawg"})
	m.Emit(Event{Outcome: OutcomeFound, Attribute: catalog.AttrImage, Source: "rawg"})
	m.Emit(Event{Outcome: OutcomeError, Source: "rawg"})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.records.WithLabelValues("cache_miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attributes.WithLabelValues("image", "found", "rawg")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("rawg")))

	path := filepath.Join(t.TempDir(), "gameaugment.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `gameaugment_records_total{outcome="cache_miss"} 2`)
	assert.Contains(t, string(data), `gameaugment_provider_errors_total{provider="rawg"} 1`)
}

func TestSummary(t *testing.T) {
	tally := NewTally()
	tally.Emit(Event{Outcome: OutcomeCacheMiss})
	tally.Emit(Event{Outcome: OutcomeFound, Attribute: catalog.AttrImage})
	tally.Emit(Event{Outcome: OutcomeNotFound, Attribute: catalog.AttrScore})

	out := Summary(tally)
	lines := strings.Split(out, "\n")
	require.Greater(t, len(lines), len(catalog.Attributes()))
	assert.Contains(t, out, "╭")
	assert.Contains(t, out, "ATTRIBUTE")
	assert.Contains(t, out, "image")
	assert.Contains(t, out, "RECORDS 1")
}
