package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/auraxis/internal/config"
	"github.com/alfredjeanlab/auraxis/internal/events"
	"github.com/alfredjeanlab/auraxis/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream reconcile events from NATS",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")

		natsURL, _ := cmd.Flags().GetString("nats-url")
		if natsURL == "" {
			if cfg, err := config.Load(); err == nil {
				natsURL = cfg.NATSURL
			}
		}
		if natsURL == "" {
			return fmt.Errorf("no NATS server: set --nats-url or AURAXIS_NATS_URL")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return watchNATS(ctx, natsURL, topic)
	},
}

// watchNATS prints every event on topic until ctx is done.
func watchNATS(ctx context.Context, natsURL, topic string) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(topic)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			env, err := events.Decode(data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipping malformed event: %v\n", err)
				continue
			}
			if jsonOutput {
				fmt.Println(string(data))
				continue
			}
			fmt.Println(formatEvent(env))
		}
	}
}

// formatEvent renders one envelope as a single human-readable line.
func formatEvent(env events.Envelope) string {
	ts := ui.RenderMuted(env.At.Local().Format("15:04:05"))
	return ts + " " + describeEvent(env)
}

func describeEvent(env events.Envelope) string {
	switch env.Topic {
	case events.TopicTickCompleted:
		var e events.TickCompleted
		if decode(env, &e) {
			return fmt.Sprintf("tick %s: %d entities, %d applied, %d retired, %d flagged (%s)",
				e.Class, e.Entities, e.Applied, e.Retired, e.Flagged, e.Duration)
		}
	case events.TopicEntityRetired:
		var e events.EntityRetired
		if decode(env, &e) {
			return fmt.Sprintf("%s %s (%d rows)", ui.RenderAccent("retired"), e.Key, e.Rows)
		}
	case events.TopicEntityFlagged:
		var e events.EntityFlagged
		if decode(env, &e) {
			return fmt.Sprintf("%s %s: %s", ui.RenderFail("flagged"), e.Key, e.Error)
		}
	case events.TopicEntityEscalated:
		var e events.EntityEscalated
		if decode(env, &e) {
			return fmt.Sprintf("%s %s: %d rows removed after %s", ui.RenderFail("escalated"), e.Key, e.Rows, e.Error)
		}
	case events.TopicEntityGone:
		var e events.EntityGone
		if decode(env, &e) {
			return fmt.Sprintf("%s %s (%d rows)", ui.RenderAccent("gone"), e.Key, e.Rows)
		}
	case events.TopicEntityRecovered:
		var e events.EntityRecovered
		if decode(env, &e) {
			return fmt.Sprintf("%s %s", ui.RenderPass("recovered"), e.Key)
		}
	case events.TopicSinkRetired:
		var e events.SinkRetired
		if decode(env, &e) && e.Row != nil {
			return fmt.Sprintf("%s %s %s (%s)", ui.RenderAccent("sink retired"), e.Row.ID, e.Row.Location(), e.Outcome)
		}
	}
	return fmt.Sprintf("%s %s", env.Topic, string(env.Data))
}

func decode(env events.Envelope, v any) bool {
	return json.Unmarshal(env.Data, v) == nil
}

func init() {
	watchCmd.Flags().String("topic", events.TopicAll, "NATS subject to subscribe to")
	watchCmd.Flags().String("nats-url", "", "NATS server URL (default AURAXIS_NATS_URL)")
}
