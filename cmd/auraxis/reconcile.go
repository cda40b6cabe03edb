package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/auraxis/internal/model"
	"github.com/alfredjeanlab/auraxis/internal/reconcile"
	"github.com/alfredjeanlab/auraxis/internal/store/postgres"
	"github.com/alfredjeanlab/auraxis/internal/ui"
)

var reconcileCmd = &cobra.Command{
	Use:     "reconcile [class...]",
	Short:   "Run a single reconcile tick (all classes when none given)",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		classes, err := parseClasses(args)
		if err != nil {
			return err
		}
		if remote, _ := cmd.Flags().GetBool("remote"); remote {
			return reconcileRemote(classes)
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		publisher, err := newPublisher(cfg, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()

		engine, err := newEngine(cfg, logger, store, publisher, nil)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		reports := make([]reconcile.Report, 0, len(classes))
		for _, class := range classes {
			r, err := engine.Tick(ctx, class)
			if err != nil {
				return err
			}
			reports = append(reports, r)
		}

		if jsonOutput {
			return printJSON(reports)
		}
		printReports(reports)
		return nil
	},
}

// parseClasses validates class arguments; none means every class.
func parseClasses(args []string) ([]model.Class, error) {
	if len(args) == 0 {
		return model.Classes, nil
	}
	classes := make([]model.Class, 0, len(args))
	for _, a := range args {
		c := model.Class(strings.ReplaceAll(a, "-", "_"))
		if !c.IsValid() {
			return nil, fmt.Errorf("unknown class %q", a)
		}
		classes = append(classes, c)
	}
	return classes, nil
}

func printReports(reports []reconcile.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLASS\tENTITIES\tAPPLIED\tSKIPPED\tFAILED\tRETIRED\tFLAGGED\tDURATION")
	var failed, flagged int
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.Class, r.Entities, r.Applied, r.Skipped, r.Failed, r.Retired, r.Flagged+r.Escalated,
			r.Duration.Round(time.Millisecond))
		failed += r.Failed
		flagged += r.Flagged + r.Escalated
	}
	w.Flush()

	fmt.Println()
	if failed == 0 && flagged == 0 {
		fmt.Println(ui.RenderPass("all sinks reconciled"))
		return
	}
	fmt.Println(ui.RenderFail(fmt.Sprintf("%d sink writes failed, %d entities flagged", failed, flagged)))
}

// reconcileRemote asks a running server to tick, so results land in its
// status and metrics.
func reconcileRemote(classes []model.Class) error {
	c := newAPIClient()
	reports := make([]reconcile.Report, 0, len(classes))
	for _, class := range classes {
		st, err := c.Reconcile(context.Background(), class)
		if err != nil {
			return fmt.Errorf("reconcile %s: %w", class, err)
		}
		reports = append(reports, st.Report)
	}
	if jsonOutput {
		return printJSON(reports)
	}
	printReports(reports)
	return nil
}

func init() {
	reconcileCmd.ValidArgs = classNames()
	reconcileCmd.Flags().Bool("remote", false, "run the tick on a running server (see --url)")
}

func classNames() []string {
	names := make([]string, len(model.Classes))
	for i, c := range model.Classes {
		names[i] = c.String()
	}
	return names
}
