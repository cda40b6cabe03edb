package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/auraxis/internal/store"
)

// Destination is a backup target (S3, git, a local file).
type Destination interface {
	// Write stores the complete JSONL payload.
	Write(ctx context.Context, data []byte) error
}

// Backup exports reg once and writes it to every destination. A failing
// destination does not stop the others; the first error is returned.
func Backup(ctx context.Context, reg store.Registry, dests []Destination, logger *slog.Logger) error {
	var buf bytes.Buffer
	if err := ExportJSONL(ctx, reg, &buf); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	data := buf.Bytes()

	var first error
	for i, dest := range dests {
		if err := dest.Write(ctx, data); err != nil {
			logger.Error("backup destination write failed", "destination", i, "err", err)
			if first == nil {
				first = fmt.Errorf("destination %d: %w", i, err)
			}
		}
	}
	logger.Info("registry backup completed", "destinations", len(dests), "bytes", len(data))
	return first
}
