package reconcile

import (
	"context"
	"sort"
	"sync"

	"github.com/alfredjeanlab/auraxis/internal/model"
	"github.com/alfredjeanlab/auraxis/internal/store"
)

// mockRegistry is an in-memory registry safe for concurrent entity tasks.
type mockRegistry struct {
	mu   sync.Mutex
	rows map[string]*model.Row
}

func newMockRegistry(rows ...*model.Row) *mockRegistry {
	m := &mockRegistry{rows: make(map[string]*model.Row)}
	for _, r := range rows {
		m.rows[r.ID] = r
	}
	return m
}

func (m *mockRegistry) ListEntities(_ context.Context, class model.Class) ([]model.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID := map[string]*model.Entity{}
	for _, r := range m.rows {
		if r.Class != class {
			continue
		}
		ent, ok := byID[r.EntityID]
		if !ok {
			ent = &model.Entity{Key: r.Key()}
			byID[r.EntityID] = ent
		}
		ent.Rows++
		ent.Error = ent.Error || r.Error
	}
	out := make([]model.Entity, 0, len(byID))
	for _, e := range byID {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.ID < out[j].Key.ID })
	return out, nil
}

func (m *mockRegistry) ListRows(_ context.Context, key model.EntityKey) ([]*model.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Row
	for _, r := range m.rows {
		if r.Key() == key {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRegistry) ListAllRows(_ context.Context) ([]*model.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Row
	for _, r := range m.rows {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRegistry) GetRow(_ context.Context, id string) (*model.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRegistry) InsertRow(_ context.Context, row *model.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[row.ID] = row
	return nil
}

func (m *mockRegistry) DeleteRow(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *mockRegistry) DeleteRows(_ context.Context, key model.EntityKey) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.rows {
		if r.Key() == key {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *mockRegistry) SetErrorFlag(_ context.Context, key model.EntityKey, flag bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Key() == key {
			r.Error = flag
		}
	}
	return nil
}

func (m *mockRegistry) RunInTransaction(_ context.Context, fn func(tx store.Registry) error) error {
	return fn(m)
}

func (m *mockRegistry) Close() error { return nil }

// count returns the number of rows for key.
func (m *mockRegistry) count(key model.EntityKey) int {
	rows, _ := m.ListRows(context.Background(), key)
	return len(rows)
}

// flagged reports whether any row of key carries the error flag.
func (m *mockRegistry) flagged(key model.EntityKey) bool {
	rows, _ := m.ListRows(context.Background(), key)
	for _, r := range rows {
		if r.Error {
			return true
		}
	}
	return false
}
