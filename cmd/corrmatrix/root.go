package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/corrmatrix"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "corrmatrix",
	Short: "Pearson user-user similarity matrices",
	Long: `corrmatrix computes the full user-user Pearson similarity matrix of a
ratings file under a fixed memory budget and serves top-K neighbor lists
from it.

Configuration is read from built-in defaults, an optional YAML file
(--config or CORRMATRIX_CONFIG) and CORRMATRIX_* environment variables,
in that order. Flags override all of them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the running build.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig loads the layered config and applies the global flags.
func loadConfig(cmd *cobra.Command) (*Config, *corrmatrix.Logger, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	return cfg, newLogger(cfg.Log), nil
}

func newLogger(c LogConfig) *corrmatrix.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.Level))
	if c.Format == "json" {
		return corrmatrix.NewJSONLogger(level)
	}
	return corrmatrix.NewTextLogger(level)
}

// Exit statuses by failure site.
const (
	exitGeneric = 1
	exitInit    = 2
	exitWrite   = 3
	exitClose   = 4
	exitSpill   = 5
	exitLoad    = 6
)

func exitCode(err error) int {
	var ioErr *corrmatrix.IOError
	if !errors.As(err, &ioErr) {
		return exitGeneric
	}
	switch ioErr.Site {
	case corrmatrix.SiteInit:
		return exitInit
	case corrmatrix.SiteWrite:
		return exitWrite
	case corrmatrix.SiteClose:
		return exitClose
	case corrmatrix.SiteSpill:
		return exitSpill
	case corrmatrix.SiteLoad:
		return exitLoad
	}
	return exitGeneric
}
