package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/alfredjeanlab/auraxis/internal/auraxis"
	"github.com/alfredjeanlab/auraxis/internal/config"
	"github.com/alfredjeanlab/auraxis/internal/events"
	"github.com/alfredjeanlab/auraxis/internal/export"
	"github.com/alfredjeanlab/auraxis/internal/fetch"
	"github.com/alfredjeanlab/auraxis/internal/model"
	"github.com/alfredjeanlab/auraxis/internal/reconcile"
	"github.com/alfredjeanlab/auraxis/internal/sink"
	"github.com/alfredjeanlab/auraxis/internal/store"
	"github.com/alfredjeanlab/auraxis/internal/telemetry"
)

// newSource builds the telemetry client every tracker reads through.
func newSource(cfg *config.Config, logger *slog.Logger) *auraxis.Client {
	gw := fetch.NewGateway(
		fetch.WithMaxRetries(cfg.MaxRetries),
		fetch.WithLogger(logger.With("component", "fetch")),
	)

	opts := []auraxis.Option{}
	if cfg.CensusURL != "" {
		opts = append(opts, auraxis.WithCensusURL(cfg.CensusURL))
	}
	if cfg.AlertsURL != "" {
		opts = append(opts, auraxis.WithAlertsURL(cfg.AlertsURL))
	}
	if cfg.PopulationURL != "" {
		opts = append(opts, auraxis.WithPopulationURL(cfg.PopulationURL))
	}
	if len(cfg.IgnoredRegions) > 0 {
		ids := make([]string, len(cfg.IgnoredRegions))
		for i, id := range cfg.IgnoredRegions {
			ids[i] = strconv.Itoa(id)
		}
		opts = append(opts, auraxis.WithIgnoredRegions(ids...))
	}
	return auraxis.NewClient(gw, cfg.ServiceID, opts...)
}

// newPublisher connects to NATS when configured and falls back to a no-op.
func newPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info("events disabled (AURAXIS_NATS_URL not set)")
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	logger.Info("events enabled", "nats_url", cfg.NATSURL)
	return pub, nil
}

// newEngine wires the reconcile engine over reg. The caller owns reg and pub.
func newEngine(cfg *config.Config, logger *slog.Logger, reg store.Registry, pub events.Publisher, metrics *telemetry.ReconcileMetrics) (*reconcile.Engine, error) {
	if err := cfg.RequireUpstream(); err != nil {
		return nil, err
	}
	session, err := sink.NewDiscordSession(cfg.DiscordToken)
	if err != nil {
		return nil, err
	}
	trackers := reconcile.NewTrackers(newSource(cfg, logger), cfg.AlertGrace)
	return reconcile.NewEngine(reg, sink.NewDiscordAdapter(session), trackers,
		reconcile.WithPublisher(pub),
		reconcile.WithMetrics(metrics),
		reconcile.WithLogger(logger.With("component", "reconcile")),
		reconcile.WithConcurrency(cfg.Concurrency),
	), nil
}

// newDestinations builds every configured backup destination. A destination
// that fails to initialize is logged and skipped.
func newDestinations(ctx context.Context, cfg *config.Config, logger *slog.Logger) []export.Destination {
	var dests []export.Destination

	if cfg.BackupS3Bucket != "" {
		s3Dest, err := export.NewS3Destination(ctx, export.S3Options{
			Bucket:    cfg.BackupS3Bucket,
			Key:       cfg.BackupS3Key,
			Region:    cfg.BackupS3Region,
			Endpoint:  cfg.BackupS3Endpoint,
			Snapshots: cfg.BackupS3Snapshots,
		})
		if err != nil {
			logger.Error("failed to create S3 backup destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("backup S3 destination enabled", "bucket", cfg.BackupS3Bucket, "key", cfg.BackupS3Key)
		}
	}

	if cfg.BackupGitRepo != "" {
		dests = append(dests, export.NewGitDestination(cfg.BackupGitRepo, cfg.BackupGitFile, cfg.BackupGitBranch))
		logger.Info("backup git destination enabled", "repo", cfg.BackupGitRepo, "file", cfg.BackupGitFile)
	}

	if cfg.BackupFile != "" {
		dests = append(dests, export.NewFileDestination(cfg.BackupFile))
		logger.Info("backup file destination enabled", "path", cfg.BackupFile)
	}
	return dests
}

// telemetryConfig maps metric settings onto the telemetry package.
func telemetryConfig(cfg *config.Config) telemetry.Config {
	return telemetry.Config{
		Enabled:  cfg.MetricsEnabled,
		Endpoint: cfg.MetricsEndpoint,
		Insecure: cfg.MetricsInsecure,
		Interval: cfg.MetricsInterval,
		Version:  version,
	}
}

// classInterval picks the tick interval for a class.
func classInterval(cfg *config.Config, class model.Class) time.Duration {
	switch class {
	case model.ClassAlert:
		return cfg.AlertInterval
	case model.ClassServerDashboard, model.ClassOutfitDashboard:
		return cfg.DashInterval
	default:
		return cfg.TrackerInterval
	}
}
