package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName scopes every reconcile instrument.
const MeterName = "github.com/alfredjeanlab/auraxis/reconcile"

// Retirement reasons recorded on the rows counter.
const (
	ReasonTerminal  = "terminal"
	ReasonNotFound  = "sink_not_found"
	ReasonEscalated = "escalated"
	ReasonGone      = "entity_gone"
)

// ReconcileMetrics holds the reconcile instruments. A nil *ReconcileMetrics
// records nothing.
type ReconcileMetrics struct {
	tickDuration  metric.Float64Histogram
	entities      metric.Int64Gauge
	applies       metric.Int64Counter
	fetchFailures metric.Int64Counter
	rowsRetired   metric.Int64Counter
}

// NewReconcileMetrics creates the instruments. It returns nil when provider is nil.
func NewReconcileMetrics(provider metric.MeterProvider) (*ReconcileMetrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(MeterName)

	tickDuration, err := meter.Float64Histogram(
		"auraxis_tick_duration_seconds",
		metric.WithDescription("Duration of one reconcile tick"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, err
	}
	entities, err := meter.Int64Gauge(
		"auraxis_entities",
		metric.WithDescription("Distinct tracked entities seen in the last tick"),
		metric.WithUnit("{entity}"),
	)
	if err != nil {
		return nil, err
	}
	applies, err := meter.Int64Counter(
		"auraxis_sink_applies_total",
		metric.WithDescription("Sink writes by outcome"),
		metric.WithUnit("{apply}"),
	)
	if err != nil {
		return nil, err
	}
	fetchFailures, err := meter.Int64Counter(
		"auraxis_fetch_failures_total",
		metric.WithDescription("Entity fetches that failed"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}
	rowsRetired, err := meter.Int64Counter(
		"auraxis_rows_retired_total",
		metric.WithDescription("Registry rows deleted by reason"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	return &ReconcileMetrics{
		tickDuration:  tickDuration,
		entities:      entities,
		applies:       applies,
		fetchFailures: fetchFailures,
		rowsRetired:   rowsRetired,
	}, nil
}

// RecordTick records a tick's duration and entity count.
func (m *ReconcileMetrics) RecordTick(ctx context.Context, class string, entities int, d time.Duration, success bool) {
	if m == nil {
		return
	}
	m.tickDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("class", class),
		attribute.Bool("success", success),
	))
	m.entities.Record(ctx, int64(entities), metric.WithAttributes(attribute.String("class", class)))
}

// RecordApply counts one sink write.
func (m *ReconcileMetrics) RecordApply(ctx context.Context, class, outcome string) {
	if m == nil {
		return
	}
	m.applies.Add(ctx, 1, metric.WithAttributes(
		attribute.String("class", class),
		attribute.String("outcome", outcome),
	))
}

// RecordFetchFailure counts one failed entity fetch.
func (m *ReconcileMetrics) RecordFetchFailure(ctx context.Context, class string) {
	if m == nil {
		return
	}
	m.fetchFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("class", class)))
}

// RecordRetired counts deleted registry rows.
func (m *ReconcileMetrics) RecordRetired(ctx context.Context, class, reason string, rows int64) {
	if m == nil || rows <= 0 {
		return
	}
	m.rowsRetired.Add(ctx, rows, metric.WithAttributes(
		attribute.String("class", class),
		attribute.String("reason", reason),
	))
}
