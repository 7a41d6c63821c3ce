package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tinylink/urlshortener/cmd"
	"github.com/tinylink/urlshortener/internal/api"
	"github.com/tinylink/urlshortener/internal/services"
)

// RunServerCmd represents the 'run-server' command.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Starts the URL shortener HTTP server.",
	Long: `Connects to the link store, creates the schema if needed, and serves
the API and the redirects until SIGINT or SIGTERM.`,
	RunE: func(c *cobra.Command, args []string) error {
		cfg := cmd.Cfg
		logger := cmd.Logger

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// The store must be reachable before the listener starts.
		linkRepo, err := cmd.OpenStore(ctx, true)
		if err != nil {
			return err
		}
		defer linkRepo.Close()

		if err := linkRepo.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate link store: %w", err)
		}

		linkService := cmd.NewLinkService(linkRepo)
		clickService := services.NewClickService(linkRepo, logger)

		gin.SetMode(cfg.Server.GinMode)
		router := gin.New()
		router.Use(gin.Recovery())
		api.SetupRoutes(router, linkService, clickService, api.Options{
			Version:        cfg.Version,
			MetricsEnabled: cfg.Metrics.Enabled,
			Logger:         logger,
		})

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: router,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("version", cfg.Version))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutdown signal received, stopping server", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server stopped")
		return nil
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}
