// cmd/portfolio/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/chand1012/personal-site/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// cli carries state shared by every subcommand.
type cli struct {
	cfg      *config.Config
	logger   *slog.Logger
	logLevel *slog.LevelVar
}

func run() error {
	// Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := &cli{logger: logger, logLevel: logLevel}
	return c.rootCmd().ExecuteContext(ctx)
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "portfolio",
		Short:         "Personal site backend: GitHub stats, blog mirror and OG images",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env.local overrides nothing already in the environment
			if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to load .env.local: %w", err)
			}
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			setLogLevel(cfg.LogLevel, c.logLevel)
			c.cfg = cfg
			c.logger.Debug("Configuration loaded", "cache_driver", cfg.CacheDriver)
			return nil
		},
	}

	root.AddCommand(c.serveCmd())
	root.AddCommand(c.syncStatsCmd())
	root.AddCommand(c.syncBlogCmd())
	root.AddCommand(c.rateLimitCmd())
	return root
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
