// Package export backs up the sink registry as JSONL and restores it.
package export

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/auraxis/internal/model"
	"github.com/alfredjeanlab/auraxis/internal/store"
)

// FormatVersion is written in every header.
const FormatVersion = "1"

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version     string    `json:"version"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	RowCount    int       `json:"row_count"`
	EntityCount int       `json:"entity_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ExportJSONL writes every registry row to w, sorted by class, entity and ID.
func ExportJSONL(ctx context.Context, reg store.Registry, w io.Writer) error {
	rows, err := reg.ListAllRows(ctx)
	if err != nil {
		return fmt.Errorf("list rows: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.EntityID != b.EntityID {
			return a.EntityID < b.EntityID
		}
		return a.ID < b.ID
	})

	entities := make(map[model.EntityKey]struct{})
	for _, r := range rows {
		entities[r.Key()] = struct{}{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:     FormatVersion,
		Type:        "header",
		Timestamp:   time.Now().UTC(),
		RowCount:    len(rows),
		EntityCount: len(entities),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, r := range rows {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal row %s: %w", r.ID, err)
		}
		if err := enc.Encode(record{Type: "row", Data: data}); err != nil {
			return fmt.Errorf("encode row %s: %w", r.ID, err)
		}
	}
	return nil
}

// ImportResult counts what ImportJSONL did.
type ImportResult struct {
	Inserted int
	Skipped  int
}

// ImportJSONL restores rows from an export in one transaction. Rows whose ID
// already exists are skipped; invalid rows abort the import.
func ImportJSONL(ctx context.Context, reg store.Registry, r io.Reader) (ImportResult, error) {
	var (
		res  ImportResult
		rows []*model.Row
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	sawHeader := false
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec struct {
			Type    string          `json:"type"`
			Version string          `json:"version"`
			Data    json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		switch rec.Type {
		case "header":
			if rec.Version != FormatVersion {
				return res, fmt.Errorf("line %d: unsupported export version %q", line, rec.Version)
			}
			sawHeader = true
		case "row":
			var row model.Row
			if err := json.Unmarshal(rec.Data, &row); err != nil {
				return res, fmt.Errorf("line %d: %w", line, err)
			}
			if err := model.ValidateRow(&row); err != nil {
				return res, fmt.Errorf("line %d: %w", line, err)
			}
			rows = append(rows, &row)
		default:
			return res, fmt.Errorf("line %d: unknown record type %q", line, rec.Type)
		}
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("read export: %w", err)
	}
	if !sawHeader {
		return res, errors.New("export has no header")
	}

	err := reg.RunInTransaction(ctx, func(tx store.Registry) error {
		for _, row := range rows {
			if _, err := tx.GetRow(ctx, row.ID); err == nil {
				res.Skipped++
				continue
			} else if !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("check row %s: %w", row.ID, err)
			}
			if err := tx.InsertRow(ctx, row); err != nil {
				return fmt.Errorf("insert row %s: %w", row.ID, err)
			}
			res.Inserted++
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return res, nil
}
