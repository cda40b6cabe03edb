package store

import (
	"context"

	"github.com/alfredjeanlab/auraxis/internal/model"
)

// Registry defines the persistence interface for sink registry rows.
//
// The registry owns row identity and deletion; reconciliation only asks for
// deletions through these methods.
type Registry interface {
	// Enumeration
	ListEntities(ctx context.Context, class model.Class) ([]model.Entity, error)
	ListRows(ctx context.Context, key model.EntityKey) ([]*model.Row, error)
	ListAllRows(ctx context.Context) ([]*model.Row, error)
	GetRow(ctx context.Context, id string) (*model.Row, error)

	// Mutation
	InsertRow(ctx context.Context, row *model.Row) error
	DeleteRow(ctx context.Context, id string) error
	DeleteRows(ctx context.Context, key model.EntityKey) (int64, error) // returns rows deleted
	SetErrorFlag(ctx context.Context, key model.EntityKey, flag bool) error

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Registry) error) error

	// Lifecycle
	Close() error
}
