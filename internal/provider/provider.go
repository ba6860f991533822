// Package provider defines the metadata lookup capability the enrichment
// engine consumes and selects a concrete backend from configuration.
package provider

import (
	"context"
	"fmt"

	"github.com/lepinkainen/gameaugment/internal/catalog"
	"github.com/lepinkainen/gameaugment/internal/config"
	"github.com/lepinkainen/gameaugment/internal/provider/igdb"
	"github.com/lepinkainen/gameaugment/internal/provider/rawg"
)

// Provider looks up game metadata by name.
//
// Fetch returns an empty bundle and a nil error when the provider has no
// match. Any failure is returned as an error and the bundle is empty; one
// call may issue several requests but counts as one throttled operation.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, name string) (catalog.Bundle, error)
}

// New returns the provider selected by cfg.Provider.
func New(cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderRAWG:
		return rawg.NewClient(cfg.RAWG.APIKey,
			rawg.WithBaseURL(cfg.RAWG.BaseURL),
			rawg.WithTimeout(cfg.HTTPTimeout),
		), nil
	case config.ProviderIGDB:
		return igdb.NewClient(cfg.IGDB.ClientID, cfg.IGDB.ClientSecret,
			igdb.WithTimeout(cfg.HTTPTimeout),
		), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
