// Package server exposes reconcile status and manual triggers over HTTP.
package server

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/auraxis/internal/model"
	"github.com/alfredjeanlab/auraxis/internal/reconcile"
	"github.com/alfredjeanlab/auraxis/internal/store"
)

// Ticker runs one reconcile tick for a class.
type Ticker interface {
	Tick(ctx context.Context, class model.Class) (reconcile.Report, error)
	Classes() []model.Class
}

// Compile-time check that the engine satisfies Ticker.
var _ Ticker = (*reconcile.Engine)(nil)

// TickStatus is the outcome of the most recent tick for one class.
type TickStatus struct {
	Report     reconcile.Report `json:"report"`
	Error      string           `json:"error,omitempty"`
	FinishedAt time.Time        `json:"finished_at"`
	Trigger    string           `json:"trigger"` // TriggerSchedule or TriggerAPI
}

// Tick triggers.
const (
	TriggerSchedule = "schedule"
	TriggerAPI      = "api"
)

// StatusServer tracks tick results and serves them with the registry.
type StatusServer struct {
	registry store.Registry
	ticker   Ticker
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.RWMutex
	last  map[model.Class]TickStatus
	slots map[model.Class]chan struct{} // one tick per class at a time
}

// NewStatusServer returns a server over reg and t.
func NewStatusServer(reg store.Registry, t Ticker, logger *slog.Logger) *StatusServer {
	return &StatusServer{
		registry: reg,
		ticker:   t,
		logger:   logger,
		now:      time.Now,
		last:     make(map[model.Class]TickStatus),
		slots:    make(map[model.Class]chan struct{}),
	}
}

// Tick runs a scheduled tick through the ticker and records its outcome.
func (s *StatusServer) Tick(ctx context.Context, class model.Class) error {
	_, err := s.tick(ctx, class, TriggerSchedule)
	return err
}

// tick waits for any running tick of the same class, so scheduled and API
// ticks never overlap and each failure strike spans a full tick.
func (s *StatusServer) tick(ctx context.Context, class model.Class, trigger string) (TickStatus, error) {
	slot := s.slot(class)
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return TickStatus{}, ctx.Err()
	}
	defer func() { <-slot }()

	report, err := s.ticker.Tick(ctx, class)
	st := TickStatus{Report: report, FinishedAt: s.now().UTC(), Trigger: trigger}
	st.Report.Class = class
	if err != nil {
		st.Error = err.Error()
	}
	s.mu.Lock()
	s.last[class] = st
	s.mu.Unlock()
	return st, err
}

func (s *StatusServer) slot(class model.Class) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.slots[class]
	if !ok {
		ch = make(chan struct{}, 1)
		s.slots[class] = ch
	}
	return ch
}

// Statuses returns the latest status per class in class order. Classes that
// have not ticked yet are omitted.
func (s *StatusServer) Statuses() []TickStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TickStatus, 0, len(s.last))
	for _, st := range s.last {
		out = append(out, st)
	}
	order := make(map[model.Class]int, len(model.Classes))
	for i, c := range model.Classes {
		order[c] = i
	}
	sort.Slice(out, func(i, j int) bool {
		return order[out[i].Report.Class] < order[out[j].Report.Class]
	})
	return out
}
