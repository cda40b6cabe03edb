package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/auraxis/internal/client"
	"github.com/alfredjeanlab/auraxis/internal/server"
	"github.com/alfredjeanlab/auraxis/internal/ui"
)

var (
	serverURL string
	authToken string
)

func defaultServerURL() string {
	if s := os.Getenv("AURAXIS_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

func newAPIClient() *client.HTTPClient {
	return client.NewHTTPClient(serverURL, authToken)
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show the latest tick per class from a running server",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ticks, err := newAPIClient().Status(context.Background())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(ticks)
		}
		if len(ticks) == 0 {
			fmt.Println(ui.RenderMuted("no ticks recorded yet"))
			return nil
		}
		printTicks(ticks, time.Now())
		return nil
	},
}

func printTicks(ticks []server.TickStatus, now time.Time) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLASS\tTRIGGER\tAGO\tENTITIES\tAPPLIED\tFAILED\tFLAGGED\tERROR")
	var failing int
	for _, t := range ticks {
		r := t.Report
		if t.Error != "" {
			failing++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.Class, t.Trigger, now.Sub(t.FinishedAt).Round(time.Second), r.Entities, r.Applied, r.Failed,
			r.Flagged+r.Escalated, t.Error)
	}
	w.Flush()
	if failing > 0 {
		fmt.Println()
		fmt.Println(ui.RenderFail(fmt.Sprintf("%d classes failed their last tick", failing)))
	}
}

func init() {
	for _, c := range []*cobra.Command{statusCmd, reconcileCmd} {
		c.Flags().StringVar(&serverURL, "url", defaultServerURL(), "status API URL of a running server")
		c.Flags().StringVar(&authToken, "token", os.Getenv("AURAXIS_AUTH_TOKEN"), "bearer token for the status API")
	}
}
