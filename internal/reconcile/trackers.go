package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alfredjeanlab/auraxis/internal/auraxis"
	"github.com/alfredjeanlab/auraxis/internal/model"
	"github.com/alfredjeanlab/auraxis/internal/render"
	"github.com/alfredjeanlab/auraxis/internal/sink"
)

// DefaultAlertGrace is how long an ended alert without a victor keeps being
// re-checked before its rows are retired.
const DefaultAlertGrace = 5 * time.Minute

// Source is the subset of *auraxis.Client the trackers read from.
type Source interface {
	Alert(ctx context.Context, instanceID string) (*auraxis.Alert, error)
	Population(ctx context.Context, s auraxis.Server) (*auraxis.Population, error)
	Territory(ctx context.Context, s auraxis.Server) (*auraxis.Territory, error)
	Outfit(ctx context.Context, platform, outfitID string) (*auraxis.Outfit, error)
}

// Compile-time check that the API client satisfies Source.
var _ Source = (*auraxis.Client)(nil)

// AlertTracker mirrors alert instances into status messages.
type AlertTracker struct {
	src   Source
	grace time.Duration
}

// NewAlertTracker creates an alert tracker. A non-positive grace uses
// DefaultAlertGrace.
func NewAlertTracker(src Source, grace time.Duration) *AlertTracker {
	if grace <= 0 {
		grace = DefaultAlertGrace
	}
	return &AlertTracker{src: src, grace: grace}
}

func (t *AlertTracker) Class() model.Class { return model.ClassAlert }

func (t *AlertTracker) Observe(ctx context.Context, id string, now time.Time) (*Observation, error) {
	a, err := t.src.Alert(ctx, id)
	if err != nil {
		return nil, err
	}
	complete := a.Ended()
	done := complete && alertSettled(a, now, t.grace)
	return Single(sink.Rendering{Embed: render.AlertEmbed(a, complete, now)}, done), nil
}

// alertSettled reports whether an ended alert can be retired. The victor is
// filled in shortly after the end, so without one the alert is held for grace.
func alertSettled(a *auraxis.Alert, now time.Time, grace time.Duration) bool {
	if a.Result.Draw || a.Winner() != auraxis.FactionNone {
		return true
	}
	return now.Sub(*a.TimeEnded) >= grace
}

// ServerDashboardTracker mirrors server population and territory into
// dashboard messages.
type ServerDashboardTracker struct {
	src Source
}

func NewServerDashboardTracker(src Source) *ServerDashboardTracker {
	return &ServerDashboardTracker{src: src}
}

func (t *ServerDashboardTracker) Class() model.Class { return model.ClassServerDashboard }

func (t *ServerDashboardTracker) Observe(ctx context.Context, id string, now time.Time) (*Observation, error) {
	s, err := lookupServer(id)
	if err != nil {
		return nil, err
	}
	pop, err := t.src.Population(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("population: %w", err)
	}
	ter, err := t.src.Territory(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("territory: %w", err)
	}
	return Single(sink.Rendering{Embed: render.ServerDashboardEmbed(s, pop, ter, now)}, false), nil
}

// OutfitDashboardTracker mirrors outfit online counts into dashboard messages.
type OutfitDashboardTracker struct {
	src Source
}

func NewOutfitDashboardTracker(src Source) *OutfitDashboardTracker {
	return &OutfitDashboardTracker{src: src}
}

func (t *OutfitDashboardTracker) Class() model.Class { return model.ClassOutfitDashboard }

func (t *OutfitDashboardTracker) Observe(ctx context.Context, id string, now time.Time) (*Observation, error) {
	o, err := observeOutfit(ctx, t.src, id)
	if err != nil {
		return nil, err
	}
	return Single(sink.Rendering{Embed: render.OutfitDashboardEmbed(o, now)}, false), nil
}

// PopulationTracker renames channels to a server's online count.
type PopulationTracker struct {
	src Source
}

func NewPopulationTracker(src Source) *PopulationTracker {
	return &PopulationTracker{src: src}
}

func (t *PopulationTracker) Class() model.Class { return model.ClassPopulationTracker }

func (t *PopulationTracker) Observe(ctx context.Context, id string, _ time.Time) (*Observation, error) {
	s, err := lookupServer(id)
	if err != nil {
		return nil, err
	}
	pop, err := t.src.Population(ctx, s)
	if err != nil {
		return nil, err
	}
	return Single(sink.Rendering{Name: render.PopulationName(s, pop)}, false), nil
}

// TerritoryTracker renames channels to a server's open continents.
type TerritoryTracker struct {
	src Source
}

func NewTerritoryTracker(src Source) *TerritoryTracker {
	return &TerritoryTracker{src: src}
}

func (t *TerritoryTracker) Class() model.Class { return model.ClassTerritoryTracker }

func (t *TerritoryTracker) Observe(ctx context.Context, id string, _ time.Time) (*Observation, error) {
	s, err := lookupServer(id)
	if err != nil {
		return nil, err
	}
	ter, err := t.src.Territory(ctx, s)
	if err != nil {
		return nil, err
	}
	return Single(sink.Rendering{Name: render.TerritoryName(s, ter)}, false), nil
}

// OutfitTracker renames channels to an outfit's online count, with and
// without a faction indicator.
type OutfitTracker struct {
	src Source
}

func NewOutfitTracker(src Source) *OutfitTracker {
	return &OutfitTracker{src: src}
}

func (t *OutfitTracker) Class() model.Class { return model.ClassOutfitTracker }

func (t *OutfitTracker) Observe(ctx context.Context, id string, _ time.Time) (*Observation, error) {
	o, err := observeOutfit(ctx, t.src, id)
	if err != nil {
		return nil, err
	}
	return &Observation{Renderings: map[string]sink.Rendering{
		"":                   {Name: render.OutfitName(o, false)},
		model.VariantFaction: {Name: render.OutfitName(o, true)},
	}}, nil
}

// observeOutfit maps a census miss to ErrEntityGone.
func observeOutfit(ctx context.Context, src Source, id string) (*auraxis.Outfit, error) {
	platform, outfitID, err := model.SplitOutfitEntityID(id)
	if err != nil {
		return nil, err
	}
	o, err := src.Outfit(ctx, platform, outfitID)
	if errors.Is(err, auraxis.ErrNotFound) {
		return nil, fmt.Errorf("outfit %s: %w", id, ErrEntityGone)
	}
	return o, err
}

func lookupServer(id string) (auraxis.Server, error) {
	s, ok := auraxis.ServerByKey(id)
	if !ok {
		return auraxis.Server{}, fmt.Errorf("unknown server %q", id)
	}
	return s, nil
}

// NewTrackers builds one tracker per class over src.
func NewTrackers(src Source, alertGrace time.Duration) []Tracker {
	return []Tracker{
		NewAlertTracker(src, alertGrace),
		NewServerDashboardTracker(src),
		NewOutfitDashboardTracker(src),
		NewPopulationTracker(src),
		NewTerritoryTracker(src),
		NewOutfitTracker(src),
	}
}
