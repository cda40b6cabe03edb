package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/alfredjeanlab/auraxis/internal/model"
	"github.com/alfredjeanlab/auraxis/internal/reconcile"
	"github.com/alfredjeanlab/auraxis/internal/store"
)

type mockRegistry struct {
	rows    map[string]*model.Row
	listErr error
}

func newMockRegistry(rows ...*model.Row) *mockRegistry {
	m := &mockRegistry{rows: make(map[string]*model.Row)}
	for _, r := range rows {
		m.rows[r.ID] = r
	}
	return m
}

func (m *mockRegistry) ListEntities(context.Context, model.Class) ([]model.Entity, error) {
	return nil, errors.New("not used")
}

func (m *mockRegistry) ListRows(context.Context, model.EntityKey) ([]*model.Row, error) {
	return nil, errors.New("not used")
}

func (m *mockRegistry) ListAllRows(context.Context) ([]*model.Row, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*model.Row, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRegistry) GetRow(_ context.Context, id string) (*model.Row, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

func (m *mockRegistry) InsertRow(_ context.Context, row *model.Row) error {
	m.rows[row.ID] = row
	return nil
}

func (m *mockRegistry) DeleteRow(_ context.Context, id string) error {
	if _, ok := m.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *mockRegistry) DeleteRows(context.Context, model.EntityKey) (int64, error) {
	return 0, errors.New("not used")
}

func (m *mockRegistry) SetErrorFlag(context.Context, model.EntityKey, bool) error {
	return errors.New("not used")
}

func (m *mockRegistry) RunInTransaction(ctx context.Context, fn func(tx store.Registry) error) error {
	return fn(m)
}

func (m *mockRegistry) Close() error { return nil }

// fakeTicker returns canned reports and records calls.
type fakeTicker struct {
	mu        sync.Mutex
	calls     []model.Class
	err       error
	started   chan struct{} // signalled when a tick begins, if set
	release   chan struct{} // ticks block on it, if set
	active    int
	maxActive int
}

func (f *fakeTicker) Tick(_ context.Context, class model.Class) (reconcile.Report, error) {
	f.mu.Lock()
	f.calls = append(f.calls, class)
	f.active++
	f.maxActive = max(f.maxActive, f.active)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return reconcile.Report{Class: class}, f.err
	}
	return reconcile.Report{Class: class, Entities: 2, Applied: 3}, nil
}

func (f *fakeTicker) Classes() []model.Class { return model.Classes }

func newTestServer(rows ...*model.Row) (*StatusServer, *mockRegistry, *fakeTicker) {
	reg := newMockRegistry(rows...)
	ticker := &fakeTicker{}
	return NewStatusServer(reg, ticker, slog.New(slog.NewTextHandler(io.Discard, nil))), reg, ticker
}
