package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alfredjeanlab/auraxis/internal/model"
)

// Event topic constants
const (
	// TopicAll matches every reconcile event.
	TopicAll = "auraxis.>"

	TopicTickCompleted = "auraxis.tick.completed"

	// Entity lifecycle
	TopicEntityRetired   = "auraxis.entity.retired"   // terminal state reached
	TopicEntityFlagged   = "auraxis.entity.flagged"   // first fetch failure
	TopicEntityEscalated = "auraxis.entity.escalated" // second consecutive failure
	TopicEntityGone      = "auraxis.entity.gone"      // upstream no longer knows it
	TopicEntityRecovered = "auraxis.entity.recovered" // fetch succeeded with flag set

	// Sink lifecycle
	TopicSinkRetired = "auraxis.sink.retired"
)

// Envelope wraps every published payload.
type Envelope struct {
	Topic string          `json:"topic"`
	At    time.Time       `json:"at"`
	Data  json.RawMessage `json:"data"`
}

// Decode parses a raw message into an envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	return env, nil
}

// Event types

type TickCompleted struct {
	Class    model.Class `json:"class"`
	Entities int         `json:"entities"`
	Applied  int         `json:"applied"`
	Retired  int64       `json:"retired"`
	Flagged  int         `json:"flagged"`
	Duration string      `json:"duration"`
}

type EntityRetired struct {
	Key  model.EntityKey `json:"key"`
	Rows int64           `json:"rows"`
}

type EntityFlagged struct {
	Key   model.EntityKey `json:"key"`
	Error string          `json:"error"`
}

type EntityEscalated struct {
	Key   model.EntityKey `json:"key"`
	Rows  int64           `json:"rows"`
	Error string          `json:"error"`
}

type EntityGone struct {
	Key  model.EntityKey `json:"key"`
	Rows int64           `json:"rows"`
}

type EntityRecovered struct {
	Key model.EntityKey `json:"key"`
}

type SinkRetired struct {
	Row     *model.Row `json:"row"`
	Outcome string     `json:"outcome"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// NoopPublisher drops every event. Used when AURAXIS_NATS_URL is unset, so the
// engine never needs a nil check.
type NoopPublisher struct{}

func (*NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (*NoopPublisher) Close() error { return nil }

// Subscriber streams raw envelopes for a topic pattern. The returned func
// unsubscribes and closes the channel.
type Subscriber interface {
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}
