// Package config builds the run configuration once at startup from defaults,
// an optional config file, environment variables and CLI overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	apperrors "github.com/lepinkainen/gameaugment/internal/errors"
	"github.com/spf13/viper"
)

const (
	ProviderRAWG = "rawg"
	ProviderIGDB = "igdb"

	// BackendJSON stores the cache as one JSON document.
	BackendJSON = "json"
	// BackendSQLite stores the cache in a SQLite table.
	BackendSQLite = "sqlite"

	// DefaultInterval is the minimum spacing between live provider calls.
	DefaultInterval = 1100 * time.Millisecond
)

// Config is the resolved configuration for one run. It is passed to
// constructors explicitly and never re-read mid-run.
type Config struct {
	Input       string
	Output      string
	Provider    string
	Cache       CacheConfig
	Interval    time.Duration
	HTTPTimeout time.Duration
	RAWG        RAWGConfig
	IGDB        IGDBConfig
	Sentinels   []string
	MetricsFile string
	DryRun      bool
}

// CacheConfig selects the cache backend and its file.
type CacheConfig struct {
	Backend string
	Path    string
}

// RAWGConfig holds RAWG credentials.
type RAWGConfig struct {
	APIKey  string
	BaseURL string
}

// IGDBConfig holds the Twitch application credentials used for IGDB.
type IGDBConfig struct {
	ClientID     string
	ClientSecret string
}

// SetDefaults registers default values for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input", "games.json")
	v.SetDefault("output", "games_enriched.json")
	v.SetDefault("provider", ProviderRAWG)
	v.SetDefault("cache.backend", BackendJSON)
	v.SetDefault("cache.path", "game_cache.json")
	v.SetDefault("ratelimit.interval", DefaultInterval)
	v.SetDefault("http.timeout", 10*time.Second)
	v.SetDefault("rawg.baseurl", "https://api.rawg.io/api")
	v.SetDefault("sentinels", []string{"N/A", "unknown"})
	v.SetDefault("metrics.file", "")
}

// Init prepares v: defaults, environment variables and the optional config
// file. A missing config file is not an error; configFile forces a path.
func Init(v *viper.Viper, configFile string) error {
	SetDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Bind specific environment variables to config keys
	for key, env := range map[string]string{
		"rawg.apikey":       "RAWG_API_KEY",
		"igdb.clientid":     "IGDB_CLIENT_ID",
		"igdb.clientsecret": "IGDB_CLIENT_SECRET",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind environment variable %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			slog.Debug("Config file not found, using defaults and environment")
			return nil
		}
		return apperrors.NewConfigError(fmt.Errorf("read config file: %w", err))
	}
	slog.Debug("Loaded config file", "path", v.ConfigFileUsed())
	return nil
}

// FromViper converts the viper state into a Config.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Input:    v.GetString("input"),
		Output:   v.GetString("output"),
		Provider: strings.ToLower(strings.TrimSpace(v.GetString("provider"))),
		Cache: CacheConfig{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("cache.backend"))),
			Path:    v.GetString("cache.path"),
		},
		Interval:    v.GetDuration("ratelimit.interval"),
		HTTPTimeout: v.GetDuration("http.timeout"),
		RAWG: RAWGConfig{
			APIKey:  v.GetString("rawg.apikey"),
			BaseURL: v.GetString("rawg.baseurl"),
		},
		IGDB: IGDBConfig{
			ClientID:     v.GetString("igdb.clientid"),
			ClientSecret: v.GetString("igdb.clientsecret"),
		},
		Sentinels:   v.GetStringSlice("sentinels"),
		MetricsFile: v.GetString("metrics.file"),
	}
}

// ValidateCache checks the settings needed to open the cache.
func (c *Config) ValidateCache() error {
	var result *multierror.Error
	result = multierror.Append(result, c.cacheErrors()...)
	return wrap(result)
}

// Validate checks everything an enrichment run needs, including provider
// credentials. All problems are reported together.
func (c *Config) Validate() error {
	var result *multierror.Error
	result = multierror.Append(result, c.cacheErrors()...)

	if strings.TrimSpace(c.Input) == "" {
		result = multierror.Append(result, errors.New("input file is required"))
	}
	if strings.TrimSpace(c.Output) == "" && !c.DryRun {
		result = multierror.Append(result, errors.New("output file is required"))
	}
	if c.Input != "" && c.Output != "" && samePath(c.Input, c.Output) {
		result = multierror.Append(result, fmt.Errorf("output %q must differ from input", c.Output))
	}
	if c.Interval < 0 {
		result = multierror.Append(result, fmt.Errorf("rate limit interval must not be negative, got %s", c.Interval))
	}
	if c.HTTPTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout))
	}

	switch c.Provider {
	case ProviderRAWG:
		if c.RAWG.APIKey == "" {
			result = multierror.Append(result, errors.New("RAWG_API_KEY is not set"))
		}
	case ProviderIGDB:
		if c.IGDB.ClientID == "" {
			result = multierror.Append(result, errors.New("IGDB_CLIENT_ID is not set"))
		}
		if c.IGDB.ClientSecret == "" {
			result = multierror.Append(result, errors.New("IGDB_CLIENT_SECRET is not set"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unknown provider %q (valid: %s, %s)", c.Provider, ProviderRAWG, ProviderIGDB))
	}

	return wrap(result)
}

// CheckBackend reports whether name is a known cache backend.
func CheckBackend(name string) error {
	switch name {
	case BackendJSON, BackendSQLite:
		return nil
	default:
		return fmt.Errorf("unknown cache backend %q (valid: %s, %s)", name, BackendJSON, BackendSQLite)
	}
}

func (c *Config) cacheErrors() []error {
	var errs []error
	if err := CheckBackend(c.Cache.Backend); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		errs = append(errs, errors.New("cache path is required"))
	}
	return errs
}

// samePath compares paths after resolving them against the working
// directory, so a relative default and an absolute flag still match.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

func wrap(result *multierror.Error) error {
	if err := result.ErrorOrNil(); err != nil {
		return apperrors.NewConfigError(err)
	}
	return nil
}
