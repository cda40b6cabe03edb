package postgres

import (
	"database/sql"

	"github.com/alfredjeanlab/auraxis/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanRow scans a single row into a model.Row.
// The row must contain columns in the order defined by rowColumns.
func scanRow(row scannable) (*model.Row, error) {
	var (
		r         model.Row
		class     string
		kind      string
		messageID sql.NullString
	)

	err := row.Scan(
		&r.ID,
		&class,
		&r.EntityID,
		&kind,
		&r.ChannelID,
		&messageID,
		&r.Variant,
		&r.Error,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Class = model.Class(class)
	r.Kind = model.SinkKind(kind)
	r.MessageID = messageID.String
	return &r, nil
}

// scanRows scans multiple rows into a slice of model.Row pointers.
func scanRows(rows *sql.Rows) ([]*model.Row, error) {
	var out []*model.Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
