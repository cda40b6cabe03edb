package main

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alfredjeanlab/auraxis/internal/config"
	"github.com/alfredjeanlab/auraxis/internal/model"
	"github.com/alfredjeanlab/auraxis/internal/ui"
)

func TestMain(m *testing.M) {
	ui.ForceNoColor()
	os.Exit(m.Run())
}

func TestNewLoggerLevel(t *testing.T) {
	for _, tc := range []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	} {
		l := newLogger(tc.level)
		if !l.Enabled(context.Background(), tc.want) {
			t.Errorf("%s: level %v not enabled", tc.level, tc.want)
		}
		if tc.want > slog.LevelDebug && l.Enabled(context.Background(), tc.want-4) {
			t.Errorf("%s: level below %v enabled", tc.level, tc.want)
		}
	}
}

func TestClassInterval(t *testing.T) {
	cfg := &config.Config{
		AlertInterval:   time.Minute,
		DashInterval:    5 * time.Minute,
		TrackerInterval: 10 * time.Minute,
	}
	want := map[model.Class]time.Duration{
		model.ClassAlert:             time.Minute,
		model.ClassServerDashboard:   5 * time.Minute,
		model.ClassOutfitDashboard:   5 * time.Minute,
		model.ClassPopulationTracker: 10 * time.Minute,
		model.ClassTerritoryTracker:  10 * time.Minute,
		model.ClassOutfitTracker:     10 * time.Minute,
	}
	for class, d := range want {
		if got := classInterval(cfg, class); got != d {
			t.Errorf("classInterval(%s) = %v, want %v", class, got, d)
		}
	}
}

func TestParseClasses(t *testing.T) {
	all, err := parseClasses(nil)
	if err != nil || len(all) != len(model.Classes) {
		t.Fatalf("parseClasses(nil) = %v, %v", all, err)
	}

	got, err := parseClasses([]string{"alert", "outfit-tracker"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != model.ClassAlert || got[1] != model.ClassOutfitTracker {
		t.Errorf("got %v", got)
	}

	if _, err := parseClasses([]string{"alert", "weather"}); err == nil {
		t.Error("expected error for unknown class")
	}
}
