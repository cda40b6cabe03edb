// Package reconcile mirrors remote entity state into registered sinks.
//
// Each tick enumerates the entities of one class from the registry, observes
// every entity concurrently, fans the resulting renderings out to the entity's
// rows and cleans up rows that can no longer be serviced.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/auraxis/internal/events"
	"github.com/alfredjeanlab/auraxis/internal/model"
	"github.com/alfredjeanlab/auraxis/internal/sink"
	"github.com/alfredjeanlab/auraxis/internal/store"
	"github.com/alfredjeanlab/auraxis/internal/telemetry"
)

// DefaultConcurrency bounds the entity tasks running at once within a tick.
const DefaultConcurrency = 8

// ErrEntityGone is returned by a Tracker when the upstream no longer knows the
// entity. Its rows are deleted at once without waiting for a second strike.
var ErrEntityGone = errors.New("entity no longer exists upstream")

// Tracker observes the remote state of one entity class.
type Tracker interface {
	Class() model.Class
	// Observe fetches and renders one entity. A returned error counts as a
	// fetch failure for escalation unless it wraps ErrEntityGone.
	Observe(ctx context.Context, entityID string, now time.Time) (*Observation, error)
}

// Observation is the rendered state of one entity.
type Observation struct {
	// Renderings is keyed by row variant; "" is the default.
	Renderings map[string]sink.Rendering
	// Done means the entity reached its terminal state and its rows can go.
	Done bool
}

// Single returns an observation with one default rendering.
func Single(r sink.Rendering, done bool) *Observation {
	return &Observation{Renderings: map[string]sink.Rendering{"": r}, Done: done}
}

// For picks the rendering for row, falling back to the default variant.
func (o *Observation) For(row *model.Row) (sink.Rendering, bool) {
	if r, ok := o.Renderings[row.Variant]; ok {
		return r, true
	}
	r, ok := o.Renderings[""]
	return r, ok
}

// Report summarizes one tick.
type Report struct {
	Class     model.Class   `json:"class"`
	Entities  int           `json:"entities"`
	Applied   int           `json:"applied"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Retired   int64         `json:"retired"`
	Flagged   int           `json:"flagged"`
	Escalated int           `json:"escalated"`
	Gone      int           `json:"gone"`
	Recovered int           `json:"recovered"`
	Duration  time.Duration `json:"duration_ns"`
}

func (r *Report) merge(o *Report) {
	r.Applied += o.Applied
	r.Skipped += o.Skipped
	r.Failed += o.Failed
	r.Retired += o.Retired
	r.Flagged += o.Flagged
	r.Escalated += o.Escalated
	r.Gone += o.Gone
	r.Recovered += o.Recovered
}

// Engine runs reconcile ticks.
type Engine struct {
	registry    store.Registry
	applier     sink.Applier
	trackers    map[model.Class]Tracker
	publisher   events.Publisher
	metrics     *telemetry.ReconcileMetrics
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher publishes lifecycle events.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.publisher = p
		}
	}
}

// WithMetrics records reconcile metrics.
func WithMetrics(m *telemetry.ReconcileMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithConcurrency bounds concurrent entity tasks per tick.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine serving the given trackers.
func NewEngine(registry store.Registry, applier sink.Applier, trackers []Tracker, opts ...Option) *Engine {
	e := &Engine{
		registry:    registry,
		applier:     applier,
		trackers:    make(map[model.Class]Tracker, len(trackers)),
		publisher:   &events.NoopPublisher{},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, t := range trackers {
		e.trackers[t.Class()] = t
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classes returns the classes the engine has trackers for, in model order.
func (e *Engine) Classes() []model.Class {
	var out []model.Class
	for _, c := range model.Classes {
		if _, ok := e.trackers[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Tick reconciles every entity of class once. Only registry enumeration
// errors are returned; per-entity failures are folded into the report.
func (e *Engine) Tick(ctx context.Context, class model.Class) (Report, error) {
	report := Report{Class: class}
	tracker, ok := e.trackers[class]
	if !ok {
		return report, fmt.Errorf("no tracker for class %q", class)
	}

	start := e.now()
	entities, err := e.registry.ListEntities(ctx, class)
	if err != nil {
		e.metrics.RecordTick(ctx, class.String(), 0, e.now().Sub(start), false)
		return report, fmt.Errorf("list %s entities: %w", class, err)
	}
	report.Entities = len(entities)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(e.concurrency)
	for _, ent := range entities {
		g.Go(func() error {
			r := e.reconcileEntity(ctx, tracker, ent, start)
			mu.Lock()
			report.merge(r)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = e.now().Sub(start)
	e.metrics.RecordTick(ctx, class.String(), report.Entities, report.Duration, true)
	e.publish(ctx, events.TopicTickCompleted, events.TickCompleted{
		Class:    class,
		Entities: report.Entities,
		Applied:  report.Applied,
		Retired:  report.Retired,
		Flagged:  report.Flagged,
		Duration: report.Duration.String(),
	})
	e.logger.Info("reconcile tick completed",
		"class", class,
		"entities", report.Entities,
		"applied", report.Applied,
		"skipped", report.Skipped,
		"retired", report.Retired,
		"flagged", report.Flagged,
		"escalated", report.Escalated,
		"duration", report.Duration,
	)
	return report, nil
}

// reconcileEntity never returns an error; everything is recorded on the report.
func (e *Engine) reconcileEntity(ctx context.Context, tracker Tracker, ent model.Entity, now time.Time) *Report {
	r := &Report{}
	key := ent.Key
	log := e.logger.With("class", key.Class, "entity", key.ID)

	obs, err := tracker.Observe(ctx, key.ID, now)
	switch {
	case errors.Is(err, ErrEntityGone):
		e.retireGone(ctx, log, key, r)
		return r
	case err != nil:
		if ctx.Err() != nil {
			// Shutting down; an aborted fetch is not an upstream failure.
			return r
		}
		e.escalate(ctx, log, ent, err, r)
		return r
	}

	if ent.Error {
		if err := e.registry.SetErrorFlag(ctx, key, false); err != nil {
			log.Error("failed to clear error flag", "err", err)
		} else {
			r.Recovered++
			e.publish(ctx, events.TopicEntityRecovered, events.EntityRecovered{Key: key})
		}
	}

	rows, err := e.registry.ListRows(ctx, key)
	if err != nil {
		log.Error("failed to list rows", "err", err)
		return r
	}
	for _, row := range rows {
		e.applyRow(ctx, log, obs, row, r)
	}

	if obs.Done {
		n, err := e.registry.DeleteRows(ctx, key)
		if err != nil {
			log.Error("failed to retire entity", "err", err)
			return r
		}
		r.Retired += n
		e.metrics.RecordRetired(ctx, key.Class.String(), telemetry.ReasonTerminal, n)
		e.publish(ctx, events.TopicEntityRetired, events.EntityRetired{Key: key, Rows: n})
		log.Info("entity reached terminal state", "rows", n)
	}
	return r
}

func (e *Engine) applyRow(ctx context.Context, log *slog.Logger, obs *Observation, row *model.Row, r *Report) {
	rendering, ok := obs.For(row)
	if !ok {
		log.Warn("no rendering for row variant", "row", row.ID, "variant", row.Variant)
		r.Failed++
		return
	}

	res := e.applier.Apply(ctx, rendering, row)
	e.metrics.RecordApply(ctx, row.Class.String(), res.Outcome.String())
	switch res.Outcome {
	case sink.OK:
		r.Applied++
	case sink.Skipped:
		r.Skipped++
	case sink.NotFound:
		r.Failed++
		if err := e.registry.DeleteRow(ctx, row.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error("failed to delete unreachable sink", "row", row.ID, "err", err)
			return
		}
		r.Retired++
		e.metrics.RecordRetired(ctx, row.Class.String(), telemetry.ReasonNotFound, 1)
		e.publish(ctx, events.TopicSinkRetired, events.SinkRetired{Row: row, Outcome: res.Outcome.String()})
		log.Info("removed sink that no longer exists", "row", row.ID, "location", row.Location())
	case sink.Forbidden:
		r.Failed++
		log.Debug("missing access to sink", "row", row.ID, "location", row.Location(), "err", res.Err)
	default:
		r.Failed++
		log.Error("failed to update sink", "row", row.ID, "location", row.Location(), "err", res.Err)
	}
}

// escalate applies the two-strike policy to a failed fetch.
func (e *Engine) escalate(ctx context.Context, log *slog.Logger, ent model.Entity, cause error, r *Report) {
	key := ent.Key
	e.metrics.RecordFetchFailure(ctx, key.Class.String())

	if !ent.Error {
		if err := e.registry.SetErrorFlag(ctx, key, true); err != nil {
			log.Error("failed to set error flag", "err", err)
			return
		}
		r.Flagged++
		e.publish(ctx, events.TopicEntityFlagged, events.EntityFlagged{Key: key, Error: cause.Error()})
		log.Warn("fetch failed, entity flagged", "err", cause)
		return
	}

	n, err := e.registry.DeleteRows(ctx, key)
	if err != nil {
		log.Error("failed to delete escalated entity", "err", err)
		return
	}
	r.Escalated++
	r.Retired += n
	e.metrics.RecordRetired(ctx, key.Class.String(), telemetry.ReasonEscalated, n)
	e.publish(ctx, events.TopicEntityEscalated, events.EntityEscalated{Key: key, Rows: n, Error: cause.Error()})
	log.Warn("fetch failed twice, entity dropped", "rows", n, "err", cause)
}

func (e *Engine) retireGone(ctx context.Context, log *slog.Logger, key model.EntityKey, r *Report) {
	n, err := e.registry.DeleteRows(ctx, key)
	if err != nil {
		log.Error("failed to delete missing entity", "err", err)
		return
	}
	r.Gone++
	r.Retired += n
	e.metrics.RecordRetired(ctx, key.Class.String(), telemetry.ReasonGone, n)
	e.publish(ctx, events.TopicEntityGone, events.EntityGone{Key: key, Rows: n})
	log.Info("entity no longer exists upstream, rows deleted", "rows", n)
}

func (e *Engine) publish(ctx context.Context, topic string, event any) {
	if err := e.publisher.Publish(ctx, topic, event); err != nil {
		e.logger.Warn("failed to publish event", "topic", topic, "err", err)
	}
}
