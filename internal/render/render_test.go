package render

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/alfredjeanlab/auraxis/internal/auraxis"
)

func server(t *testing.T, key string) auraxis.Server {
	t.Helper()
	s, ok := auraxis.ServerByKey(key)
	if !ok {
		t.Fatalf("unknown server %q", key)
	}
	return s
}

func TestPopulationName(t *testing.T) {
	pop := &auraxis.Population{VS: 10, NC: 12, TR: 8}
	if got := PopulationName(server(t, "connery"), pop); got != "Connery: 30 online" {
		t.Errorf("PopulationName = %q", got)
	}
}

func TestTerritoryName(t *testing.T) {
	ter := &auraxis.Territory{Continents: []auraxis.ContinentState{
		{Continent: auraxis.Continents[0], Regions: 90, VS: 30, NC: 20, TR: 10},
		{Continent: auraxis.Continents[1], Regions: 90, Locked: auraxis.FactionNC},
		{Continent: auraxis.Continents[2], Regions: 90, VS: 1, NC: 1},
		{Continent: auraxis.Continents[3]},
		{Continent: auraxis.Continents[2], Regions: 80, Unowned: true},
	}}
	if got := TerritoryName(server(t, "miller"), ter); got != "Miller: Indar, Amerish" {
		t.Errorf("TerritoryName = %q", got)
	}
}

func TestOutfitName(t *testing.T) {
	tests := []struct {
		name        string
		online      int
		showFaction bool
		want        string
	}{
		{"plain", 12, false, "DPDG: 12 online"},
		{"faction", 12, true, "🔴 DPDG: 12 online"},
		{"unknown plain", auraxis.OnlineUnknown, false, "DPDG: ? online"},
		{"unknown faction", auraxis.OnlineUnknown, true, "🔴 DPDG: ? online"},
		{"zero", 0, false, "DPDG: 0 online"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &auraxis.Outfit{Alias: "DPDG", Faction: auraxis.FactionTR, OnlineCount: tt.online}
			if got := OutfitName(o, tt.showFaction); got != tt.want {
				t.Errorf("OutfitName = %q, want %q", got, tt.want)
			}
		})
	}
}

func fieldValue(fields []*discordgo.MessageEmbedField, name string) string {
	for _, f := range fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func TestAlertEmbed(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	victor := auraxis.FactionVS
	a := &auraxis.Alert{InstanceID: "13-777", World: 13, Zone: 344, TimeStarted: start, TimeEnded: &end, DurationMS: 5400000, Bracket: 4}
	a.Result.VS = 51
	a.Result.Victor = &victor

	e := AlertEmbed(a, true, end)
	if e.Title != "Oshur alert" {
		t.Errorf("Title = %q", e.Title)
	}
	if !strings.Contains(e.Description, "ps2alerts.com/alert/13-777") {
		t.Errorf("Description = %q", e.Description)
	}
	fields := e.Fields
	if got := fieldValue(fields, "Server"); got != "Cobalt" {
		t.Errorf("Server = %q", got)
	}
	if got := fieldValue(fields, "Result"); got != "VS win" {
		t.Errorf("Result = %q", got)
	}
	if got := fieldValue(fields, "Population"); got != "High" {
		t.Errorf("Population = %q", got)
	}
	if got := fieldValue(fields, "Status"); !strings.HasPrefix(got, "Ended <t:") {
		t.Errorf("Status = %q", got)
	}
}

func TestAlertEmbedRunningHasNoResult(t *testing.T) {
	a := &auraxis.Alert{InstanceID: "1-1", World: 1, Zone: 2, TimeStarted: time.Now()}
	e := AlertEmbed(a, false, time.Now())
	for _, f := range e.Fields {
		if f.Name == "Result" {
			t.Errorf("unexpected Result field %q", f.Value)
		}
	}
}

func TestAlertEmbedDraw(t *testing.T) {
	end := time.Now()
	a := &auraxis.Alert{InstanceID: "1-2", World: 1, TimeEnded: &end}
	a.Result.Draw = true
	e := AlertEmbed(a, true, end)
	last := e.Fields[len(e.Fields)-1]
	if last.Name != "Result" || last.Value != "Draw" {
		t.Errorf("last field = %+v", last)
	}
}

func TestServerDashboardEmbed(t *testing.T) {
	pop := &auraxis.Population{VS: 50, NC: 30, TR: 20}
	ter := &auraxis.Territory{Continents: []auraxis.ContinentState{
		{Continent: auraxis.Continents[0], Regions: 90, Locked: auraxis.FactionTR},
		{Continent: auraxis.Continents[1], Regions: 90, VS: 3, NC: 1, Unstable: true},
		{Continent: auraxis.Continents[3]},
	}}
	e := ServerDashboardEmbed(server(t, "jaeger"), pop, ter, time.Now())
	if e.Title != "Jaeger status" {
		t.Errorf("Title = %q", e.Title)
	}
	if len(e.Fields) != 4 {
		t.Fatalf("fields = %d, want 4 (population + 3 enabled continents)", len(e.Fields))
	}
	if e.Fields[0].Name != "Population - 100" || !strings.Contains(e.Fields[0].Value, "**VS**: 50  |  50%") {
		t.Errorf("population field = %+v", e.Fields[0])
	}
	if e.Fields[1].Value != "Locked by TR" {
		t.Errorf("Indar field = %+v", e.Fields[1])
	}
	if !strings.HasPrefix(e.Fields[2].Value, "*Currently unstable*") {
		t.Errorf("Hossin field = %+v", e.Fields[2])
	}
	if e.Fields[3].Name != "Amerish" || e.Fields[3].Value != "Locked" {
		t.Errorf("Amerish field = %+v", e.Fields[3])
	}
}

func TestOutfitDashboardEmbed(t *testing.T) {
	o := &auraxis.Outfit{Name: "Dapper Dogs", Alias: "DPDG", Faction: auraxis.FactionNC, OnlineCount: 3, MemberCount: 40}
	e := OutfitDashboardEmbed(o, time.Now())
	if e.Title != "[DPDG] Dapper Dogs" {
		t.Errorf("Title = %q", e.Title)
	}
	if e.Fields[0].Value != "3 / 40" {
		t.Errorf("online = %q", e.Fields[0].Value)
	}
	if e.Color != auraxis.FactionNC.Color() {
		t.Errorf("Color = %x", e.Color)
	}
}
