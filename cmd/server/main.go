package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/yukikurage/task-insights-api/internal/config"
	"github.com/yukikurage/task-insights-api/internal/logging"
	"github.com/yukikurage/task-insights-api/internal/services"
)

var (
	cfg    *config.Config
	logger zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "task-insights",
	Short: "Personal task tracking API with completion analytics",
	Long: `task-insights serves a JSON API for personal tasks.

It records every completion change, keeps overdue status current,
raises due-date notifications and reports productivity analytics.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if errs := config.Validate(cfg); len(errs) > 0 {
			return errors.Join(errs...)
		}

		logger = logging.New(cfg.LogLevel, !cfg.IsProduction())
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		gin.SetMode(cfg.GinMode)

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		router, err := a.router(ctx)
		if err != nil {
			return err
		}

		scheduler := services.NewSchedulerService(time.UTC, logger)
		if err := a.schedule(scheduler); err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()

		srv := &http.Server{
			Addr:    cfg.ServerAddr,
			Handler: router,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.ServerAddr).Int("jobs", scheduler.Entries()).Msg("server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the schema and seed statuses",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		logger.Info().Str("driver", cfg.DBDriver).Msg("migrations applied")
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the overdue, notification and dedupe jobs once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		return a.sweep(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
}
