package export

import (
	"context"
	"errors"
	"sort"

	"github.com/alfredjeanlab/auraxis/internal/model"
	"github.com/alfredjeanlab/auraxis/internal/store"
)

// mockRegistry is a minimal in-memory registry for export tests.
type mockRegistry struct {
	rows      map[string]*model.Row
	insertErr error
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

func (m *mockRegistry) ListAllRows(_ context.Context) ([]*model.Row, error) {
	var out []*model.Row
	for _, r := range m.rows {
		out = append(out, r)
	}
	// Reverse ID order; ExportJSONL must sort.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
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
	if m.insertErr != nil {
		return m.insertErr
	}
	m.rows[row.ID] = row
	return nil
}

func (m *mockRegistry) DeleteRow(context.Context, string) error { return errors.New("not used") }

func (m *mockRegistry) DeleteRows(context.Context, model.EntityKey) (int64, error) {
	return 0, errors.New("not used")
}

func (m *mockRegistry) SetErrorFlag(context.Context, model.EntityKey, bool) error {
	return errors.New("not used")
}

// RunInTransaction applies fn to a copy and commits it only on success.
func (m *mockRegistry) RunInTransaction(ctx context.Context, fn func(tx store.Registry) error) error {
	tx := &mockRegistry{rows: make(map[string]*model.Row), insertErr: m.insertErr}
	for id, r := range m.rows {
		tx.rows[id] = r
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.rows = tx.rows
	return nil
}

func (m *mockRegistry) Close() error { return nil }
