package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/gameaugment/internal/cache"
	"github.com/lepinkainen/gameaugment/internal/config"
	"github.com/spf13/viper"
)

// CLI represents the complete command structure for the gameaugment application
type CLI struct {
	// Global flags
	Config   string `help:"Path to config file (default: ./config.yaml if present)" type:"path"`
	LogLevel string `help:"Log level" default:"info" enum:"debug,info,warn,error"`
	JSONLogs bool   `help:"Write logs as JSON even on a terminal"`

	Enrich EnrichCmd `cmd:"" help:"Fill missing game attributes from the cache and a metadata provider"`
	Cache  CacheCmd  `cmd:"" help:"Inspect or reset the lookup cache"`
}

// CacheCmd groups the cache maintenance subcommands
type CacheCmd struct {
	Stats cache.StatsCmd `cmd:"" help:"Show cache location and entry count"`
	Clear cache.ClearCmd `cmd:"" help:"Remove every cached entry"`
}

// Execute runs the Kong-based CLI
func Execute() {
	if err := Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// Run parses args and executes the selected command. Logs go to stderr,
// command output to stdout.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer, opts ...kong.Option) error {
	var cli CLI

	parser, err := kong.New(&cli, append([]kong.Option{
		kong.Name("gameaugment"),
		kong.Description("Enrich a JSON game catalog with cover art, release data, publishers and tags."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	}, opts...)...)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	initLogging(stderr, cli.LogLevel, cli.JSONLogs)

	cfg, err := initConfig(viper.GetViper(), cli.Config)
	if err != nil {
		return err
	}

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.BindTo(stdout, (*io.Writer)(nil))
	return kctx.Run(cfg)
}

func initConfig(v *viper.Viper, configFile string) (*config.Config, error) {
	if err := config.Init(v, configFile); err != nil {
		return nil, err
	}
	return config.FromViper(v), nil
}
