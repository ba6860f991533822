package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lepinkainen/gameaugment/internal/cache"
	"github.com/lepinkainen/gameaugment/internal/catalog"
	"github.com/lepinkainen/gameaugment/internal/config"
	"github.com/lepinkainen/gameaugment/internal/enrichment"
	apperrors "github.com/lepinkainen/gameaugment/internal/errors"
	"github.com/lepinkainen/gameaugment/internal/provider"
	"github.com/lepinkainen/gameaugment/internal/ratelimit"
)

var newProvider = provider.New

// EnrichCmd represents the enrich command. Empty flags fall back to config.
type EnrichCmd struct {
	Input        string `short:"f" help:"Input JSON file (array of game objects)" type:"path"`
	Output       string `short:"o" help:"Output JSON file; must differ from the input" type:"path"`
	Cache        string `help:"Cache file" type:"path"`
	CacheBackend string `help:"Cache backend: json or sqlite"`
	Provider     string `help:"Metadata provider: rawg or igdb"`
	Interval     string `help:"Minimum delay between provider calls, e.g. 1.1s"`
	Timeout      string `help:"HTTP timeout per provider request, e.g. 10s"`
	MetricsFile  string `help:"Write Prometheus metrics to this textfile when done" type:"path"`
	DryRun       bool   `help:"Enrich and report without writing the output file"`
}

// apply copies explicitly set flags over cfg.
func (e *EnrichCmd) apply(cfg *config.Config) error {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Input, e.Input)
	set(&cfg.Output, e.Output)
	set(&cfg.Cache.Path, e.Cache)
	set(&cfg.Cache.Backend, e.CacheBackend)
	set(&cfg.Provider, e.Provider)
	set(&cfg.MetricsFile, e.MetricsFile)
	cfg.DryRun = e.DryRun

	for _, d := range []struct {
		flag string
		raw  string
		dst  *time.Duration
	}{
		{"--interval", e.Interval, &cfg.Interval},
		{"--timeout", e.Timeout, &cfg.HTTPTimeout},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return apperrors.NewConfigError(fmt.Errorf("%s: %w", d.flag, err))
		}
		*d.dst = parsed
	}
	return nil
}

func (e *EnrichCmd) Run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	runCfg := *cfg
	if err := e.apply(&runCfg); err != nil {
		return err
	}
	if err := runCfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runEnrich(ctx, &runCfg, out)
}

func runEnrich(ctx context.Context, cfg *config.Config, out io.Writer) error {
	records, err := catalog.Load(cfg.Input)
	if err != nil {
		return err
	}
	slog.Info("Loaded records", "path", cfg.Input, "count", len(records))

	store, err := cache.Open(cfg.Cache.Backend, cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close cache", "error", err)
		}
	}()

	p, err := newProvider(cfg)
	if err != nil {
		return err
	}

	if desc, ok := p.(fmt.Stringer); ok {
		slog.Debug("Provider configured", "provider", desc.String())
	}

	tally := enrichment.NewTally()
	metrics := enrichment.NewMetricsSink()
	engine := enrichment.New(store, p, ratelimit.New(p.Name(), cfg.Interval),
		enrichment.WithDetector(catalog.NewDetector(cfg.Sentinels)),
		enrichment.WithSink(enrichment.MultiSink{enrichment.NewLogSink(nil), tally, metrics}),
	)

	slog.Info("Starting enrichment",
		"provider", p.Name(), "cache", store.Path(), "backend", store.Backend(),
		"cached_entries", store.Len(), "interval", cfg.Interval)

	if err := engine.Run(ctx, records); err != nil {
		slog.Warn("Enrichment stopped; output not written", "error", err)
		return err
	}

	if _, err := fmt.Fprintln(out, enrichment.Summary(tally)); err != nil {
		return err
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			slog.Warn("Failed to write metrics", "error", err)
		}
	}

	if cfg.DryRun {
		_, err := fmt.Fprintln(out, "Dry run, output not written.")
		return err
	}

	if err := catalog.Save(cfg.Output, records); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Done. Output written to %s\n", cfg.Output)
	return err
}
