package model

import (
	"fmt"
	"strings"
	"time"
)

// Class identifies a family of tracked entities. Entity IDs are only unique
// within a class.
type Class string

const (
	ClassAlert             Class = "alert"
	ClassServerDashboard   Class = "server_dashboard"
	ClassOutfitDashboard   Class = "outfit_dashboard"
	ClassPopulationTracker Class = "population_tracker"
	ClassTerritoryTracker  Class = "territory_tracker"
	ClassOutfitTracker     Class = "outfit_tracker"
)

// Classes lists every known class in scheduling order.
var Classes = []Class{
	ClassAlert,
	ClassServerDashboard,
	ClassOutfitDashboard,
	ClassPopulationTracker,
	ClassTerritoryTracker,
	ClassOutfitTracker,
}

// String returns the string representation of the class.
func (c Class) String() string {
	return string(c)
}

// IsValid checks whether the class is a known value.
func (c Class) IsValid() bool {
	for _, known := range Classes {
		if c == known {
			return true
		}
	}
	return false
}

// SinkKind returns the kind of sink rows of this class point at.
func (c Class) SinkKind() SinkKind {
	switch c {
	case ClassPopulationTracker, ClassTerritoryTracker, ClassOutfitTracker:
		return SinkChannel
	default:
		return SinkMessage
	}
}

// SinkKind distinguishes a message that is edited from a channel that is renamed.
type SinkKind string

const (
	SinkMessage SinkKind = "message"
	SinkChannel SinkKind = "channel"
)

// String returns the string representation of the sink kind.
func (k SinkKind) String() string {
	return string(k)
}

// IsValid checks whether the sink kind is a known value.
func (k SinkKind) IsValid() bool {
	return k == SinkMessage || k == SinkChannel
}

// VariantFaction asks outfit trackers to prefix the name with a faction indicator.
const VariantFaction = "faction"

// EntityKey addresses one tracked entity.
type EntityKey struct {
	Class Class  `json:"class"`
	ID    string `json:"id"`
}

func (k EntityKey) String() string {
	return string(k.Class) + ":" + k.ID
}

// Row associates a tracked entity with one sink.
type Row struct {
	ID        string    `json:"id"`
	Class     Class     `json:"class"`
	EntityID  string    `json:"entity_id"`
	Kind      SinkKind  `json:"kind"`
	ChannelID string    `json:"channel_id"`
	MessageID string    `json:"message_id,omitempty"`
	Variant   string    `json:"variant,omitempty"`
	Error     bool      `json:"error"`
	CreatedAt time.Time `json:"created_at"`
}

// Key returns the entity key the row belongs to.
func (r *Row) Key() EntityKey {
	return EntityKey{Class: r.Class, ID: r.EntityID}
}

// Location renders the sink address for logs.
func (r *Row) Location() string {
	if r.Kind == SinkMessage {
		return r.ChannelID + "/" + r.MessageID
	}
	return r.ChannelID
}

// Entity is one distinct tracked entity as enumerated from the registry.
type Entity struct {
	Key   EntityKey `json:"key"`
	Error bool      `json:"error"`
	Rows  int       `json:"rows"`
}

// OutfitEntityID joins a census platform and outfit ID into an entity ID.
func OutfitEntityID(platform, outfitID string) string {
	return platform + "/" + outfitID
}

// SplitOutfitEntityID reverses OutfitEntityID.
func SplitOutfitEntityID(id string) (platform, outfitID string, err error) {
	platform, outfitID, ok := strings.Cut(id, "/")
	if !ok || platform == "" || outfitID == "" {
		return "", "", fmt.Errorf("invalid outfit entity id %q", id)
	}
	return platform, outfitID, nil
}
