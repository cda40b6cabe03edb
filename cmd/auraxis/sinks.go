package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/auraxis/internal/auraxis"
	"github.com/alfredjeanlab/auraxis/internal/config"
	"github.com/alfredjeanlab/auraxis/internal/idgen"
	"github.com/alfredjeanlab/auraxis/internal/model"
	"github.com/alfredjeanlab/auraxis/internal/reconcile"
	"github.com/alfredjeanlab/auraxis/internal/store"
	"github.com/alfredjeanlab/auraxis/internal/store/postgres"
	"github.com/alfredjeanlab/auraxis/internal/ui"
)

var sinksCmd = &cobra.Command{
	Use:     "sinks",
	Short:   "Manage registered sinks",
	GroupID: "registry",
}

var sinksAddCmd = &cobra.Command{
	Use:   "add <class> <entity-id>",
	Short: "Register a channel or message to mirror an entity",
	Long: `Register a sink for an entity. The entity is fetched once first and the
sink is rejected when the telemetry APIs do not know it.

Entity IDs by class:
  alert                              alert instance ID, e.g. 17-12345
  server_dashboard, *_tracker        server key, e.g. connery, soltech, genudine
  outfit_dashboard, outfit_tracker   platform/outfit_id, e.g. ps2:v2/37509488620604883`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, _ := cmd.Flags().GetString("channel")
		message, _ := cmd.Flags().GetString("message")
		variant, _ := cmd.Flags().GetString("variant")

		row, err := buildRow(args[0], args[1], channel, message, variant)
		if err != nil {
			return err
		}

		return withConfigStore(func(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg store.Registry) error {
			if err := cfg.RequireCensus(); err != nil {
				return err
			}
			trackers := reconcile.NewTrackers(newSource(cfg, logger), cfg.AlertGrace)
			if err := addSink(ctx, reg, trackers, row, time.Now()); err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(row)
			}
			fmt.Printf("%s %s -> %s\n", ui.RenderPass("added"), row.ID, row.Location())
			return nil
		})
	},
}

var sinksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sinks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		class, _ := cmd.Flags().GetString("class")
		flagged, _ := cmd.Flags().GetBool("flagged")

		return withStore(func(ctx context.Context, reg store.Registry) error {
			rows, err := reg.ListAllRows(ctx)
			if err != nil {
				return err
			}
			rows = filterRows(rows, model.Class(class), flagged)
			if jsonOutput {
				return printJSON(rows)
			}
			printRowTable(rows)
			return nil
		})
	},
}

var sinksRemoveCmd = &cobra.Command{
	Use:   "remove <id>...",
	Short: "Unregister sinks by row ID",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, reg store.Registry) error {
			var missing int
			for _, id := range args {
				err := reg.DeleteRow(ctx, id)
				switch {
				case errors.Is(err, store.ErrNotFound):
					fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderFail("not found"), id)
					missing++
				case err != nil:
					return err
				default:
					fmt.Printf("%s %s\n", ui.RenderPass("removed"), id)
				}
			}
			if missing > 0 {
				return fmt.Errorf("%d of %d rows not found", missing, len(args))
			}
			return nil
		})
	},
}

// buildRow turns CLI arguments into a validated registry row.
func buildRow(class, entityID, channel, message, variant string) (*model.Row, error) {
	c := model.Class(class)
	if !c.IsValid() {
		return nil, fmt.Errorf("unknown class %q (valid: %v)", class, classNames())
	}

	switch c {
	case model.ClassServerDashboard, model.ClassPopulationTracker, model.ClassTerritoryTracker:
		srv, ok := auraxis.ServerByKey(entityID)
		if !ok {
			return nil, fmt.Errorf("unknown server %q", entityID)
		}
		entityID = srv.Key
	case model.ClassOutfitDashboard, model.ClassOutfitTracker:
		platform, _, err := model.SplitOutfitEntityID(entityID)
		if err != nil {
			return nil, err
		}
		if !auraxis.ValidPlatform(platform) {
			return nil, fmt.Errorf("unknown platform %q", platform)
		}
	}

	if variant != "" && c != model.ClassOutfitTracker {
		return nil, fmt.Errorf("--variant only applies to %s", model.ClassOutfitTracker)
	}

	id, err := idgen.RowID()
	if err != nil {
		return nil, err
	}
	row := &model.Row{
		ID:        id,
		Class:     c,
		EntityID:  entityID,
		Kind:      c.SinkKind(),
		ChannelID: channel,
		MessageID: message,
		Variant:   variant,
		CreatedAt: time.Now().UTC(),
	}
	if err := model.ValidateRow(row); err != nil {
		return nil, err
	}
	return row, nil
}

// addSink inserts row once its entity has answered upstream, so the registry
// never holds an entity that was not fetchable when it was added.
func addSink(ctx context.Context, reg store.Registry, trackers []reconcile.Tracker, row *model.Row, now time.Time) error {
	if err := verifyEntity(ctx, trackers, row.Class, row.EntityID, now); err != nil {
		return err
	}
	return reg.InsertRow(ctx, row)
}

// verifyEntity observes the entity once through its class tracker.
func verifyEntity(ctx context.Context, trackers []reconcile.Tracker, class model.Class, entityID string, now time.Time) error {
	for _, t := range trackers {
		if t.Class() != class {
			continue
		}
		obs, err := t.Observe(ctx, entityID, now)
		if err != nil {
			return fmt.Errorf("fetch %s %s: %w", class, entityID, err)
		}
		if obs.Done {
			return fmt.Errorf("%s %s has already finished", class, entityID)
		}
		return nil
	}
	return fmt.Errorf("no tracker for class %s", class)
}

// filterRows keeps rows of class (all when empty), optionally only flagged
// ones, sorted for display.
func filterRows(rows []*model.Row, class model.Class, flaggedOnly bool) []*model.Row {
	var out []*model.Row
	for _, r := range rows {
		if class != "" && r.Class != class {
			continue
		}
		if flaggedOnly && !r.Error {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Class != out[j].Class {
			return out[i].Class < out[j].Class
		}
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func printRowTable(rows []*model.Row) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCLASS\tENTITY\tSINK\tVARIANT\tFLAGGED")
	var flagged int
	for _, r := range rows {
		mark := ""
		if r.Error {
			mark = "yes"
			flagged++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Class, r.EntityID, r.Location(), r.Variant, mark)
	}
	w.Flush()

	summary := fmt.Sprintf("\n%d sinks", len(rows))
	if flagged > 0 {
		summary += ", " + ui.RenderFail(fmt.Sprintf("%d flagged", flagged))
	}
	fmt.Println(summary)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// withStore opens the registry for one admin command.
func withStore(fn func(ctx context.Context, reg store.Registry) error) error {
	return withConfigStore(func(ctx context.Context, _ *config.Config, _ *slog.Logger, reg store.Registry) error {
		return fn(ctx, reg)
	})
}

// withConfigStore is withStore for commands that also need configuration.
func withConfigStore(fn func(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg store.Registry) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer reg.Close()
	return fn(context.Background(), cfg, logger, reg)
}

func init() {
	sinksAddCmd.Flags().String("channel", "", "Discord channel ID (required)")
	sinksAddCmd.Flags().String("message", "", "Discord message ID (message sinks)")
	sinksAddCmd.Flags().String("variant", "", `outfit tracker name variant ("faction")`)
	_ = sinksAddCmd.MarkFlagRequired("channel")

	sinksListCmd.Flags().String("class", "", "only list sinks of this class")
	sinksListCmd.Flags().Bool("flagged", false, "only list entities with a pending fetch failure")

	sinksCmd.AddCommand(sinksAddCmd, sinksListCmd, sinksRemoveCmd)
}
