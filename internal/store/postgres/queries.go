package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/auraxis/internal/model"
	"github.com/alfredjeanlab/auraxis/internal/store"
)

// rowColumns is the column list used for SELECT statements on the sinks table.
const rowColumns = `id, class, entity_id, kind, channel_id, message_id, variant, error, created_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queryListEntities returns one entry per distinct entity of a class. The error
// flag is true when any of the entity's rows carries it.
func queryListEntities(ctx context.Context, db executor, class model.Class) ([]model.Entity, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT entity_id, bool_or(error), COUNT(*)
		FROM sinks
		WHERE class = $1
		GROUP BY entity_id
		ORDER BY entity_id`,
		string(class),
	)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var entities []model.Entity
	for rows.Next() {
		e := model.Entity{Key: model.EntityKey{Class: class}}
		if err := rows.Scan(&e.Key.ID, &e.Error, &e.Rows); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	return entities, nil
}

func queryListRows(ctx context.Context, db executor, key model.EntityKey) ([]*model.Row, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+rowColumns+` FROM sinks WHERE class = $1 AND entity_id = $2 ORDER BY created_at, id`,
		string(key.Class), key.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func queryListAllRows(ctx context.Context, db executor) ([]*model.Row, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+rowColumns+` FROM sinks ORDER BY class, entity_id, created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list all rows: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func queryGetRow(ctx context.Context, db executor, id string) (*model.Row, error) {
	row := db.QueryRowContext(ctx, `SELECT `+rowColumns+` FROM sinks WHERE id = $1`, id)
	r, err := scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func queryInsertRow(ctx context.Context, db executor, r *model.Row) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sinks (
			id, class, entity_id, kind, channel_id, message_id, variant, error, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`,
		r.ID,
		string(r.Class),
		r.EntityID,
		string(r.Kind),
		r.ChannelID,
		nullString(r.MessageID),
		r.Variant,
		r.Error,
		r.CreatedAt,
	)
	return err
}

func queryDeleteRow(ctx context.Context, db executor, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM sinks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func queryDeleteRows(ctx context.Context, db executor, key model.EntityKey) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM sinks WHERE class = $1 AND entity_id = $2`,
		string(key.Class), key.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func querySetErrorFlag(ctx context.Context, db executor, key model.EntityKey, flag bool) error {
	_, err := db.ExecContext(ctx,
		`UPDATE sinks SET error = $3 WHERE class = $1 AND entity_id = $2`,
		string(key.Class), key.ID, flag,
	)
	return err
}
