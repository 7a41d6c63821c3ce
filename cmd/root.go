package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tinylink/urlshortener/internal/config"
	"github.com/tinylink/urlshortener/internal/database"
	"github.com/tinylink/urlshortener/internal/logger"
	"github.com/tinylink/urlshortener/internal/repository"
	"github.com/tinylink/urlshortener/internal/services"
)

// Version is set at build time with -ldflags "-X github.com/tinylink/urlshortener/cmd.Version=...".
var Version = ""

// Cfg is the configuration loaded before any subcommand runs.
var Cfg *config.Config

// Logger is the process logger, built from Cfg.Log.
var Logger *zap.Logger

var configFile string

// RootCmd is the base command for the CLI application.
// Subcommands register themselves from their own init() functions.
var RootCmd = &cobra.Command{
	Use:   "urlshortener",
	Short: "A URL shortener with click statistics",
	Long: `A URL shortener that creates short codes for long URLs, redirects
visitors, and keeps per-link click statistics.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		Cfg, err = config.LoadConfig(configFile)
		if err != nil {
			return err
		}
		if Version != "" {
			Cfg.Version = Version
		}
		Logger, err = logger.New(Cfg.Log)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if Logger != nil {
			_ = Logger.Sync()
		}
	},
}

// Execute is called from main.go.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./configs/config.yaml)")
}

// OpenStore connects to the configured link store, with the local fallback
// and the redirect cache when configured. The caller closes it.
func OpenStore(ctx context.Context, withCache bool) (repository.LinkRepository, error) {
	repo, err := database.Open(ctx, Cfg.Database, Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open link store: %w", err)
	}
	if !withCache {
		return repo, nil
	}
	cached, err := database.WithCache(ctx, repo, Cfg.Cache, Logger)
	if err != nil {
		Logger.Warn("redirect cache disabled", zap.Error(err))
		return repo, nil
	}
	return cached, nil
}

// NewLinkService builds the link service from Cfg.
func NewLinkService(repo repository.LinkRepository) *services.LinkService {
	return services.NewLinkService(repo,
		services.WithBaseURL(Cfg.Server.BaseURL),
		services.WithLimits(services.Limits{
			GenerateAttempts:   Cfg.Links.GenerateAttempts,
			RegenerateAttempts: Cfg.Links.RegenerateAttempts,
			MaxSaveAttempts:    Cfg.Links.MaxSaveAttempts,
		}),
		services.WithLogger(Logger),
	)
}
