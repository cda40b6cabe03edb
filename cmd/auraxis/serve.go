package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/auraxis/internal/export"
	"github.com/alfredjeanlab/auraxis/internal/model"
	"github.com/alfredjeanlab/auraxis/internal/scheduler"
	"github.com/alfredjeanlab/auraxis/internal/server"
	"github.com/alfredjeanlab/auraxis/internal/store/postgres"
	"github.com/alfredjeanlab/auraxis/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the reconcile loops for every class",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		// Connect to Postgres.
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("error closing store", "err", err)
			}
		}()

		publisher, err := newPublisher(cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("error closing publisher", "err", err)
			}
		}()

		provider, shutdownMetrics, err := telemetry.NewMeterProvider(context.Background(), telemetryConfig(cfg), logger)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownMetrics(ctx); err != nil {
				logger.Error("error flushing metrics", "err", err)
			}
		}()
		metrics, err := telemetry.NewReconcileMetrics(provider)
		if err != nil {
			return err
		}

		engine, err := newEngine(cfg, logger, store, publisher, metrics)
		if err != nil {
			return err
		}

		status := server.NewStatusServer(store, engine, logger.With("component", "http"))

		jobs := make([]scheduler.Job, 0, len(model.Classes)+1)
		for _, class := range engine.Classes() {
			jobs = append(jobs, scheduler.Job{
				Name:     "reconcile:" + class.String(),
				Interval: classInterval(cfg, class),
				Run:      tickJob(status, class),
			})
		}

		if cfg.BackupInterval > 0 {
			dests := newDestinations(context.Background(), cfg, logger)
			if len(dests) > 0 {
				jobs = append(jobs, scheduler.Job{
					Name:     "backup",
					Interval: cfg.BackupInterval,
					Run: func(ctx context.Context) error {
						return export.Backup(ctx, store, dests, logger)
					},
				})
			}
		}

		sched, err := scheduler.New(logger, jobs...)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var httpServer *http.Server
		if cfg.HTTPAddr != "" {
			httpServer = &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           status.NewHTTPHandler(cfg.AuthToken),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				logger.Info("HTTP server listening", "addr", cfg.HTTPAddr, "auth", cfg.AuthToken != "")
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", "err", err)
				}
			}()
		}

		sched.Start(ctx)
		logger.Info("auraxis started",
			"jobs", len(jobs),
			"alert_interval", cfg.AlertInterval,
			"dashboard_interval", cfg.DashInterval,
			"tracker_interval", cfg.TrackerInterval,
		)

		<-ctx.Done()
		logger.Info("received signal, shutting down")
		if httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", "err", err)
			}
			cancel()
			logger.Info("HTTP server stopped")
		}
		sched.Stop()
		logger.Info("scheduler stopped")
		logger.Info("shutdown complete")
		return nil
	},
}

// tickJob adapts one class to a scheduler job, recording each result.
func tickJob(status *server.StatusServer, class model.Class) func(context.Context) error {
	return func(ctx context.Context) error {
		return status.Tick(ctx, class)
	}
}

