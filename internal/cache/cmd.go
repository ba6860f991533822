package cache

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/lepinkainen/gameaugment/internal/config"
)

// Location overrides the configured cache file and backend for the operator
// commands.
type Location struct {
	Path    string `help:"Cache file (defaults to cache.path from config)" type:"path"`
	Backend string `help:"Cache backend: json or sqlite (defaults to cache.backend from config)"`
}

func (l Location) resolve(cfg *config.Config) (string, string, error) {
	c := *cfg
	if l.Path != "" {
		c.Cache.Path = l.Path
	}
	if l.Backend != "" {
		c.Cache.Backend = l.Backend
	}
	if err := c.ValidateCache(); err != nil {
		return "", "", err
	}
	return c.Cache.Backend, c.Cache.Path, nil
}

// StatsCmd prints where the cache lives and how many entries it holds.
type StatsCmd struct {
	Location
}

func (s *StatsCmd) Run(cfg *config.Config, out io.Writer) error {
	backend, path, err := s.resolve(cfg)
	if err != nil {
		return err
	}

	store, err := Open(backend, path)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer func() { _ = store.Close() }()

	_, err = fmt.Fprintf(out, "backend: %s\npath:    %s\nentries: %d\n", store.Backend(), store.Path(), store.Len())
	return err
}

// ClearCmd drops every cached entry so the next run refetches everything.
type ClearCmd struct {
	Location
}

func (c *ClearCmd) Run(cfg *config.Config, out io.Writer) error {
	backend, path, err := c.resolve(cfg)
	if err != nil {
		return err
	}

	store, err := Open(backend, path)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer func() { _ = store.Close() }()

	entries := store.Len()
	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	slog.Info("Cache cleared", "backend", backend, "path", path, "rows_deleted", entries)
	_, err = fmt.Fprintf(out, "Removed %d cached entries from %s\n", entries, path)
	return err
}
