package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/auraxis/internal/auraxis"
	"github.com/alfredjeanlab/auraxis/internal/fetch"
	"github.com/alfredjeanlab/auraxis/internal/idgen"
	"github.com/alfredjeanlab/auraxis/internal/model"
	"github.com/alfredjeanlab/auraxis/internal/reconcile"
	"github.com/alfredjeanlab/auraxis/internal/store"
)

// fakeSource answers tracker reads with fixed values.
type fakeSource struct {
	alert  *auraxis.Alert
	pop    *auraxis.Population
	outfit *auraxis.Outfit
	err    error
}

func (f *fakeSource) Alert(context.Context, string) (*auraxis.Alert, error) {
	return f.alert, f.err
}

func (f *fakeSource) Population(context.Context, auraxis.Server) (*auraxis.Population, error) {
	return f.pop, f.err
}

func (f *fakeSource) Territory(context.Context, auraxis.Server) (*auraxis.Territory, error) {
	return nil, f.err
}

func (f *fakeSource) Outfit(context.Context, string, string) (*auraxis.Outfit, error) {
	return f.outfit, f.err
}

// insertRecorder records InsertRow calls; every other method panics.
type insertRecorder struct {
	store.Registry
	inserted []*model.Row
}

func (r *insertRecorder) InsertRow(_ context.Context, row *model.Row) error {
	r.inserted = append(r.inserted, row)
	return nil
}

func TestBuildRow(t *testing.T) {
	for _, tc := range []struct {
		name     string
		class    string
		entity   string
		channel  string
		message  string
		variant  string
		wantErr  string
		wantKind model.SinkKind
		wantID   string
	}{
		{name: "Alert", class: "alert", entity: "17-12345", channel: "c", message: "m", wantKind: model.SinkMessage, wantID: "17-12345"},
		{name: "AlertWithoutMessage", class: "alert", entity: "17-12345", channel: "c", wantErr: "message_id"},
		{name: "DashboardNormalizesServer", class: "server_dashboard", entity: "Emerald", channel: "c", message: "m", wantKind: model.SinkMessage, wantID: "emerald"},
		{name: "UnknownServer", class: "territory_tracker", entity: "briggs", channel: "c", wantErr: "unknown server"},
		{name: "TrackerWithMessage", class: "population_tracker", entity: "connery", channel: "c", message: "m", wantErr: "message_id"},
		{name: "OutfitTracker", class: "outfit_tracker", entity: "ps2:v2/37509488620604883", channel: "c", variant: "faction", wantKind: model.SinkChannel, wantID: "ps2:v2/37509488620604883"},
		{name: "OutfitBadPlatform", class: "outfit_dashboard", entity: "xbox/1", channel: "c", message: "m", wantErr: "unknown platform"},
		{name: "OutfitMissingPlatform", class: "outfit_tracker", entity: "12345", channel: "c", wantErr: "invalid outfit entity id"},
		{name: "VariantOnWrongClass", class: "territory_tracker", entity: "connery", channel: "c", variant: "faction", wantErr: "--variant"},
		{name: "BadVariant", class: "outfit_tracker", entity: "ps2:v2/1", channel: "c", variant: "rainbow", wantErr: "variant"},
		{name: "UnknownClass", class: "weather", entity: "x", channel: "c", wantErr: "unknown class"},
		{name: "MissingChannel", class: "territory_tracker", entity: "connery", wantErr: "channel_id"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			row, err := buildRow(tc.class, tc.entity, tc.channel, tc.message, tc.variant)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("err = %v, want mention of %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.HasPrefix(row.ID, idgen.RowPrefix) {
				t.Errorf("ID = %q, want %s prefix", row.ID, idgen.RowPrefix)
			}
			if row.Kind != tc.wantKind {
				t.Errorf("Kind = %s, want %s", row.Kind, tc.wantKind)
			}
			if row.EntityID != tc.wantID {
				t.Errorf("EntityID = %q, want %q", row.EntityID, tc.wantID)
			}
			if row.CreatedAt.IsZero() {
				t.Error("CreatedAt not set")
			}
		})
	}
}

func TestFilterRows(t *testing.T) {
	rows := []*model.Row{
		{ID: "snk-3", Class: model.ClassTerritoryTracker, EntityID: "miller"},
		{ID: "snk-2", Class: model.ClassAlert, EntityID: "10-2", Error: true},
		{ID: "snk-1", Class: model.ClassAlert, EntityID: "10-1"},
		{ID: "snk-4", Class: model.ClassTerritoryTracker, EntityID: "connery", Error: true},
	}

	ids := func(rs []*model.Row) string {
		var out []string
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return strings.Join(out, ",")
	}

	if got := ids(filterRows(rows, "", false)); got != "snk-1,snk-2,snk-4,snk-3" {
		t.Errorf("all = %s", got)
	}
	if got := ids(filterRows(rows, model.ClassAlert, false)); got != "snk-1,snk-2" {
		t.Errorf("alert = %s", got)
	}
	if got := ids(filterRows(rows, "", true)); got != "snk-2,snk-4" {
		t.Errorf("flagged = %s", got)
	}
	if got := filterRows(rows, model.ClassOutfitTracker, false); len(got) != 0 {
		t.Errorf("outfit = %v", got)
	}
}

func TestAddSink(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	ended := now.Add(-time.Hour)
	victor := auraxis.FactionTR
	finished := &auraxis.Alert{InstanceID: "10-1", World: 10, Zone: 2, TimeStarted: ended.Add(-90 * time.Minute), TimeEnded: &ended}
	finished.Result.Victor = &victor

	for _, tc := range []struct {
		name       string
		class      model.Class
		entity     string
		src        *fakeSource
		wantErr    string
		wantGone   bool
		wantInsert bool
	}{
		{
			name: "Fetchable", class: model.ClassPopulationTracker, entity: "connery",
			src: &fakeSource{pop: &auraxis.Population{World: 1, VS: 10, NC: 20, TR: 30}}, wantInsert: true,
		},
		{
			name: "UnknownAlert", class: model.ClassAlert, entity: "no-such-instance",
			src: &fakeSource{err: &fetch.UpstreamError{Code: "http_404"}}, wantErr: "fetch alert no-such-instance",
		},
		{
			name: "OutfitGone", class: model.ClassOutfitTracker, entity: "ps2:v2/0",
			src: &fakeSource{err: auraxis.ErrNotFound}, wantErr: "fetch outfit_tracker", wantGone: true,
		},
		{
			name: "AlertAlreadyFinished", class: model.ClassAlert, entity: "10-1",
			src: &fakeSource{alert: finished}, wantErr: "already finished",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			reg := &insertRecorder{}
			row := &model.Row{ID: "snk-1", Class: tc.class, EntityID: tc.entity}
			trackers := reconcile.NewTrackers(tc.src, 0)

			err := addSink(context.Background(), reg, trackers, row, now)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("err = %v, want mention of %q", err, tc.wantErr)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantGone && !errors.Is(err, reconcile.ErrEntityGone) {
				t.Errorf("err = %v, want ErrEntityGone", err)
			}
			if got := len(reg.inserted) == 1; got != tc.wantInsert {
				t.Errorf("inserted = %d rows, want insert=%v", len(reg.inserted), tc.wantInsert)
			}
		})
	}
}
