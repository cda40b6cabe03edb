// Package postgres implements the store.Registry interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/auraxis/internal/model"
	"github.com/alfredjeanlab/auraxis/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Registry backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Registry.
var _ store.Registry = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Reconcile ticks fan out one query per entity; keep the pool modest.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewWithDB wraps an already-open database handle. Migrations are not run.
func NewWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) ListEntities(ctx context.Context, class model.Class) ([]model.Entity, error) {
	return queryListEntities(ctx, s.db, class)
}

func (s *PostgresStore) ListRows(ctx context.Context, key model.EntityKey) ([]*model.Row, error) {
	return queryListRows(ctx, s.db, key)
}

func (s *PostgresStore) ListAllRows(ctx context.Context) ([]*model.Row, error) {
	return queryListAllRows(ctx, s.db)
}

func (s *PostgresStore) GetRow(ctx context.Context, id string) (*model.Row, error) {
	return queryGetRow(ctx, s.db, id)
}

func (s *PostgresStore) InsertRow(ctx context.Context, row *model.Row) error {
	return queryInsertRow(ctx, s.db, row)
}

func (s *PostgresStore) DeleteRow(ctx context.Context, id string) error {
	return queryDeleteRow(ctx, s.db, id)
}

func (s *PostgresStore) DeleteRows(ctx context.Context, key model.EntityKey) (int64, error) {
	return queryDeleteRows(ctx, s.db, key)
}

func (s *PostgresStore) SetErrorFlag(ctx context.Context, key model.EntityKey, flag bool) error {
	return querySetErrorFlag(ctx, s.db, key, flag)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Registry) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Registry using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Registry.
var _ store.Registry = (*txStore)(nil)

func (s *txStore) ListEntities(ctx context.Context, class model.Class) ([]model.Entity, error) {
	return queryListEntities(ctx, s.tx, class)
}

func (s *txStore) ListRows(ctx context.Context, key model.EntityKey) ([]*model.Row, error) {
	return queryListRows(ctx, s.tx, key)
}

func (s *txStore) ListAllRows(ctx context.Context) ([]*model.Row, error) {
	return queryListAllRows(ctx, s.tx)
}

func (s *txStore) GetRow(ctx context.Context, id string) (*model.Row, error) {
	return queryGetRow(ctx, s.tx, id)
}

func (s *txStore) InsertRow(ctx context.Context, row *model.Row) error {
	return queryInsertRow(ctx, s.tx, row)
}

func (s *txStore) DeleteRow(ctx context.Context, id string) error {
	return queryDeleteRow(ctx, s.tx, id)
}

func (s *txStore) DeleteRows(ctx context.Context, key model.EntityKey) (int64, error) {
	return queryDeleteRows(ctx, s.tx, key)
}

func (s *txStore) SetErrorFlag(ctx context.Context, key model.EntityKey, flag bool) error {
	return querySetErrorFlag(ctx, s.tx, key, flag)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Registry) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
