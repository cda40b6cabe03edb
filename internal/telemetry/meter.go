// Package telemetry provides OpenTelemetry metrics for reconciliation.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	// ServiceName is reported as service.name.
	ServiceName = "auraxis"

	// DefaultInterval is the default export interval.
	DefaultInterval = 60 * time.Second
)

// Config controls metric export. A zero Config disables metrics.
type Config struct {
	Enabled  bool
	Endpoint string
	Insecure bool
	Interval time.Duration
	Version  string
}

// ShutdownFunc flushes and stops the provider.
type ShutdownFunc func(context.Context) error

// NewMeterProvider returns a no-op provider when cfg is disabled, otherwise an
// SDK provider exporting over OTLP/HTTP. The returned shutdown func is never nil.
func NewMeterProvider(ctx context.Context, cfg Config, logger *slog.Logger) (metric.MeterProvider, ShutdownFunc, error) {
	noopShutdown := func(context.Context) error { return nil }
	if !cfg.Enabled || cfg.Endpoint == "" {
		logger.Info("metrics disabled, using no-op meter provider")
		return noop.NewMeterProvider(), noopShutdown, nil
	}
	version := cfg.Version
	if version == "" {
		version = "unknown"
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(version),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create resource: %w", err)
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create OTLP metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp)

	logger.Info("metrics initialized", "endpoint", cfg.Endpoint, "insecure", cfg.Insecure, "interval", interval)
	return mp, mp.Shutdown, nil
}
