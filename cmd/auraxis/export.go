package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/auraxis/internal/config"
	"github.com/alfredjeanlab/auraxis/internal/export"
	"github.com/alfredjeanlab/auraxis/internal/store"
	"github.com/alfredjeanlab/auraxis/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Export the sink registry as JSONL",
	GroupID: "registry",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		backup, _ := cmd.Flags().GetBool("backup")

		return withConfigStore(func(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg store.Registry) error {
			if backup {
				dests := newDestinations(ctx, cfg, logger)
				if len(dests) == 0 {
					return fmt.Errorf("no backup destinations configured")
				}
				return export.Backup(ctx, reg, dests, logger)
			}
			if output == "" || output == "-" {
				return export.ExportJSONL(ctx, reg, os.Stdout)
			}
			var buf bytes.Buffer
			if err := export.ExportJSONL(ctx, reg, &buf); err != nil {
				return err
			}
			return export.NewFileDestination(output).Write(ctx, buf.Bytes())
		})
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	Short:   "Restore sinks from a JSONL export (existing IDs are skipped)",
	GroupID: "registry",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		return withStore(func(ctx context.Context, reg store.Registry) error {
			res, err := export.ImportJSONL(ctx, reg, f)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			if jsonOutput {
				return printJSON(res)
			}
			fmt.Printf("%s %d rows, skipped %d existing\n", ui.RenderPass("imported"), res.Inserted, res.Skipped)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
	exportCmd.Flags().Bool("backup", false, "write to the configured backup destinations")
}
