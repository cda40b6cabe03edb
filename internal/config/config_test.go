package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// envVars lists every variable Load reads; each test starts from a clean slate.
var envVars = []string{
	"AURAXIS_CONFIG", "AURAXIS_DATABASE_URL", "AURAXIS_DISCORD_TOKEN", "AURAXIS_SERVICE_ID",
	"AURAXIS_NATS_URL", "AURAXIS_LOG_LEVEL", "AURAXIS_HTTP_ADDR", "AURAXIS_AUTH_TOKEN", "AURAXIS_CENSUS_URL", "AURAXIS_ALERTS_URL",
	"AURAXIS_POPULATION_URL",
	"AURAXIS_MAX_RETRIES", "AURAXIS_CONCURRENCY", "AURAXIS_ALERT_GRACE", "AURAXIS_IGNORED_REGIONS",
	"AURAXIS_ALERT_INTERVAL", "AURAXIS_DASHBOARD_INTERVAL", "AURAXIS_TRACKER_INTERVAL",
	"AURAXIS_BACKUP_INTERVAL", "AURAXIS_BACKUP_S3_BUCKET", "AURAXIS_BACKUP_S3_ENDPOINT",
	"AURAXIS_BACKUP_S3_REGION", "AURAXIS_BACKUP_S3_KEY", "AURAXIS_BACKUP_S3_SNAPSHOTS",
	"AURAXIS_BACKUP_GIT_REPO", "AURAXIS_BACKUP_GIT_FILE", "AURAXIS_BACKUP_GIT_BRANCH",
	"AURAXIS_BACKUP_FILE", "AURAXIS_METRICS_ENABLED", "AURAXIS_METRICS_ENDPOINT",
	"AURAXIS_METRICS_INSECURE", "AURAXIS_METRICS_INTERVAL",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name        string
		env         map[string]string
		wantErr     string
		wantNATSURL string
		wantLevel   string
	}{
		{
			name:    "MissingDatabaseURL",
			env:     map[string]string{},
			wantErr: "AURAXIS_DATABASE_URL",
		},
		{
			name:      "Defaults",
			env:       map[string]string{"AURAXIS_DATABASE_URL": "postgres://localhost/auraxis"},
			wantLevel: "info",
		},
		{
			name: "Custom",
			env: map[string]string{
				"AURAXIS_DATABASE_URL": "postgres://db:5432/auraxis",
				"AURAXIS_NATS_URL":     "nats://localhost:4222",
				"AURAXIS_LOG_LEVEL":    "debug",
			},
			wantNATSURL: "nats://localhost:4222",
			wantLevel:   "debug",
		},
		{
			name: "BadLogLevel",
			env: map[string]string{
				"AURAXIS_DATABASE_URL": "postgres://localhost/auraxis",
				"AURAXIS_LOG_LEVEL":    "loud",
			},
			wantErr: "AURAXIS_LOG_LEVEL",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("err = %v, want mention of %s", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.DatabaseURL != tc.env["AURAXIS_DATABASE_URL"] {
				t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, tc.env["AURAXIS_DATABASE_URL"])
			}
			if cfg.NATSURL != tc.wantNATSURL {
				t.Errorf("NATSURL = %q, want %q", cfg.NATSURL, tc.wantNATSURL)
			}
			if cfg.LogLevel != tc.wantLevel {
				t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, tc.wantLevel)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("AURAXIS_DATABASE_URL", "postgres://localhost/auraxis")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	durations := map[string][2]time.Duration{
		"AlertGrace":      {cfg.AlertGrace, 5 * time.Minute},
		"AlertInterval":   {cfg.AlertInterval, time.Minute},
		"DashInterval":    {cfg.DashInterval, 5 * time.Minute},
		"TrackerInterval": {cfg.TrackerInterval, 10 * time.Minute},
		"BackupInterval":  {cfg.BackupInterval, 30 * time.Minute},
		"MetricsInterval": {cfg.MetricsInterval, 30 * time.Second},
	}
	for name, d := range durations {
		if d[0] != d[1] {
			t.Errorf("%s = %v, want %v", name, d[0], d[1])
		}
	}
	if cfg.MaxRetries != 2 || cfg.Concurrency != 8 {
		t.Errorf("MaxRetries = %d, Concurrency = %d", cfg.MaxRetries, cfg.Concurrency)
	}
	if cfg.BackupS3Region != "us-east-1" || cfg.BackupS3Key != "auraxis/sinks.jsonl" {
		t.Errorf("S3 defaults = %q %q", cfg.BackupS3Region, cfg.BackupS3Key)
	}
	if cfg.BackupGitFile != "sinks.jsonl" || cfg.BackupGitBranch != "main" {
		t.Errorf("git defaults = %q %q", cfg.BackupGitFile, cfg.BackupGitBranch)
	}
	if cfg.MetricsEnabled || cfg.BackupS3Snapshots {
		t.Error("booleans should default to false")
	}
	if cfg.IgnoredRegions != nil {
		t.Errorf("IgnoredRegions = %v, want none", cfg.IgnoredRegions)
	}
	if cfg.HTTPAddr != ":8080" || cfg.AuthToken != "" {
		t.Errorf("HTTPAddr = %q, AuthToken = %q", cfg.HTTPAddr, cfg.AuthToken)
	}
}

func TestLoadHTTPOff(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("AURAXIS_DATABASE_URL", "postgres://localhost/auraxis")
	t.Setenv("AURAXIS_HTTP_ADDR", "off")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != "" {
		t.Errorf("HTTPAddr = %q, want disabled", cfg.HTTPAddr)
	}
}

func TestLoadCustom(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("AURAXIS_DATABASE_URL", "postgres://localhost/auraxis")
	t.Setenv("AURAXIS_MAX_RETRIES", "0")
	t.Setenv("AURAXIS_CONCURRENCY", "3")
	t.Setenv("AURAXIS_ALERT_GRACE", "90s")
	t.Setenv("AURAXIS_IGNORED_REGIONS", "2201, 2202,18029")
	t.Setenv("AURAXIS_BACKUP_INTERVAL", "0s")
	t.Setenv("AURAXIS_BACKUP_S3_BUCKET", "my-bucket")
	t.Setenv("AURAXIS_BACKUP_S3_SNAPSHOTS", "true")
	t.Setenv("AURAXIS_BACKUP_GIT_REPO", "/tmp/repo")
	t.Setenv("AURAXIS_METRICS_ENABLED", "1")
	t.Setenv("AURAXIS_METRICS_ENDPOINT", "otel:4318")
	t.Setenv("AURAXIS_POPULATION_URL", "http://pop.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.MaxRetries)
	}
	if cfg.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want 3", cfg.Concurrency)
	}
	if cfg.AlertGrace != 90*time.Second {
		t.Errorf("AlertGrace = %v", cfg.AlertGrace)
	}
	if want := []int{2201, 2202, 18029}; !reflect.DeepEqual(cfg.IgnoredRegions, want) {
		t.Errorf("IgnoredRegions = %v, want %v", cfg.IgnoredRegions, want)
	}
	if cfg.BackupInterval != 0 {
		t.Errorf("BackupInterval = %v, want 0 (disabled)", cfg.BackupInterval)
	}
	if cfg.BackupS3Bucket != "my-bucket" || !cfg.BackupS3Snapshots {
		t.Errorf("S3 = %q snapshots=%v", cfg.BackupS3Bucket, cfg.BackupS3Snapshots)
	}
	if cfg.BackupGitRepo != "/tmp/repo" {
		t.Errorf("BackupGitRepo = %q", cfg.BackupGitRepo)
	}
	if !cfg.MetricsEnabled || cfg.MetricsEndpoint != "otel:4318" {
		t.Errorf("metrics = %v %q", cfg.MetricsEnabled, cfg.MetricsEndpoint)
	}
	if cfg.PopulationURL != "http://pop.test" {
		t.Errorf("PopulationURL = %q", cfg.PopulationURL)
	}
}

func TestLoadInvalid(t *testing.T) {
	for _, tc := range []struct {
		key, val string
	}{
		{"AURAXIS_ALERT_INTERVAL", "not-a-duration"},
		{"AURAXIS_ALERT_INTERVAL", "0s"},
		{"AURAXIS_TRACKER_INTERVAL", "-1m"},
		{"AURAXIS_CONCURRENCY", "0"},
		{"AURAXIS_MAX_RETRIES", "-1"},
		{"AURAXIS_MAX_RETRIES", "many"},
		{"AURAXIS_METRICS_ENABLED", "maybe"},
		{"AURAXIS_IGNORED_REGIONS", "1,two"},
	} {
		t.Run(tc.key+"="+tc.val, func(t *testing.T) {
			clearAllEnv(t)
			t.Setenv("AURAXIS_DATABASE_URL", "postgres://localhost/auraxis")
			t.Setenv(tc.key, tc.val)

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.key) {
				t.Fatalf("err = %v, want mention of %s", err, tc.key)
			}
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auraxis.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("AURAXIS_CONFIG", writeConfig(t, `
database_url = "postgres://file/auraxis"
service_id = "example"
log_level = "warn"

[reconcile]
concurrency = 4
alert_grace = "2m"
ignored_regions = [2201]
tracker_interval = "15m"

[backup]
s3_bucket = "file-bucket"
s3_snapshots = true

[metrics]
enabled = true
`))
	// Env wins over the file.
	t.Setenv("AURAXIS_TRACKER_INTERVAL", "20m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://file/auraxis" || cfg.ServiceID != "example" {
		t.Errorf("file values not applied: %q %q", cfg.DatabaseURL, cfg.ServiceID)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Concurrency != 4 || cfg.AlertGrace != 2*time.Minute {
		t.Errorf("reconcile = %d %v", cfg.Concurrency, cfg.AlertGrace)
	}
	if !reflect.DeepEqual(cfg.IgnoredRegions, []int{2201}) {
		t.Errorf("IgnoredRegions = %v", cfg.IgnoredRegions)
	}
	if cfg.TrackerInterval != 20*time.Minute {
		t.Errorf("TrackerInterval = %v, want env override 20m", cfg.TrackerInterval)
	}
	if cfg.DashInterval != 5*time.Minute {
		t.Errorf("DashInterval = %v, want default 5m", cfg.DashInterval)
	}
	if cfg.BackupS3Bucket != "file-bucket" || !cfg.BackupS3Snapshots || !cfg.MetricsEnabled {
		t.Errorf("backup/metrics = %q %v %v", cfg.BackupS3Bucket, cfg.BackupS3Snapshots, cfg.MetricsEnabled)
	}
}

func TestLoadFileErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		body string
	}{
		{"Syntax", `database_url = `},
		{"UnknownKey", "database_url = \"postgres://x\"\ngrpc_addr = \":9090\"\n"},
		{"WrongType", "database_url = \"postgres://x\"\n[reconcile]\nconcurrency = \"four\"\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			t.Setenv("AURAXIS_CONFIG", writeConfig(t, tc.body))
			if _, err := Load(); err == nil || !strings.Contains(err.Error(), "AURAXIS_CONFIG") {
				t.Fatalf("err = %v, want AURAXIS_CONFIG error", err)
			}
		})
	}

	clearAllEnv(t)
	t.Setenv("AURAXIS_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestRequireUpstream(t *testing.T) {
	for _, tc := range []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"Both", Config{DiscordToken: "tok", ServiceID: "svc"}, ""},
		{"NoToken", Config{ServiceID: "svc"}, "AURAXIS_DISCORD_TOKEN required"},
		{"Neither", Config{}, "AURAXIS_DISCORD_TOKEN and AURAXIS_SERVICE_ID required"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.RequireUpstream()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tc.wantErr {
				t.Fatalf("err = %v, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestRequireCensus(t *testing.T) {
	if err := (&Config{ServiceID: "svc"}).RequireCensus(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The Discord token is not needed to read upstream.
	err := (&Config{DiscordToken: "tok"}).RequireCensus()
	if err == nil || err.Error() != "AURAXIS_SERVICE_ID required" {
		t.Fatalf("err = %v", err)
	}
}

func TestEnvOrDefault(t *testing.T) {
	for _, tc := range []struct {
		name     string
		key      string
		envVal   string
		fallback string
		want     string
	}{
		{"EmptyUsesDefault", "TEST_ENVDEFAULT_EMPTY", "", "default-val", "default-val"},
		{"SetUsesEnv", "TEST_ENVDEFAULT_SET", "custom", "default-val", "custom"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.envVal)
			got := envOrDefault(tc.key, tc.fallback)
			if got != tc.want {
				t.Errorf("envOrDefault(%q, %q) = %q, want %q", tc.key, tc.fallback, got, tc.want)
			}
		})
	}
}
