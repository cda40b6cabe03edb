package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DatabaseURL  string // AURAXIS_DATABASE_URL (required)
	DiscordToken string // AURAXIS_DISCORD_TOKEN (required by serve and reconcile)
	ServiceID    string // AURAXIS_SERVICE_ID (census service ID, required by serve, reconcile and sinks add)
	NATSURL      string // AURAXIS_NATS_URL (optional, empty = no events)
	LogLevel     string // AURAXIS_LOG_LEVEL (default "info")
	HTTPAddr     string // AURAXIS_HTTP_ADDR (default ":8080"; "off" = no status API)
	AuthToken    string // AURAXIS_AUTH_TOKEN (optional, empty = auth disabled)

	// Upstream endpoints
	CensusURL     string // AURAXIS_CENSUS_URL (default census.daybreakgames.com)
	AlertsURL     string // AURAXIS_ALERTS_URL (default ps2alerts API)
	PopulationURL string // AURAXIS_POPULATION_URL (default per-platform aggregator hosts)

	// Reconcile settings
	MaxRetries      int           // AURAXIS_MAX_RETRIES (default 2)
	Concurrency     int           // AURAXIS_CONCURRENCY (default 8)
	AlertGrace      time.Duration // AURAXIS_ALERT_GRACE (default 5m)
	IgnoredRegions  []int         // AURAXIS_IGNORED_REGIONS (comma-separated facility region IDs)
	AlertInterval   time.Duration // AURAXIS_ALERT_INTERVAL (default 1m)
	DashInterval    time.Duration // AURAXIS_DASHBOARD_INTERVAL (default 5m)
	TrackerInterval time.Duration // AURAXIS_TRACKER_INTERVAL (default 10m)

	// Backup settings
	BackupInterval    time.Duration // AURAXIS_BACKUP_INTERVAL (default 30m; 0 = disabled)
	BackupS3Bucket    string        // AURAXIS_BACKUP_S3_BUCKET (enables S3 when set)
	BackupS3Endpoint  string        // AURAXIS_BACKUP_S3_ENDPOINT (custom endpoint for MinIO)
	BackupS3Region    string        // AURAXIS_BACKUP_S3_REGION (default "us-east-1")
	BackupS3Key       string        // AURAXIS_BACKUP_S3_KEY (default "auraxis/sinks.jsonl")
	BackupS3Snapshots bool          // AURAXIS_BACKUP_S3_SNAPSHOTS (keep timestamped copies)
	BackupGitRepo     string        // AURAXIS_BACKUP_GIT_REPO (enables git when set; path to clone)
	BackupGitFile     string        // AURAXIS_BACKUP_GIT_FILE (default "sinks.jsonl")
	BackupGitBranch   string        // AURAXIS_BACKUP_GIT_BRANCH (default "main")
	BackupFile        string        // AURAXIS_BACKUP_FILE (enables a local file copy when set)

	// Metrics settings
	MetricsEnabled  bool          // AURAXIS_METRICS_ENABLED
	MetricsEndpoint string        // AURAXIS_METRICS_ENDPOINT (OTLP/HTTP host:port)
	MetricsInsecure bool          // AURAXIS_METRICS_INSECURE
	MetricsInterval time.Duration // AURAXIS_METRICS_INTERVAL (default 30s)
}

// fileConfig is the optional TOML file named by AURAXIS_CONFIG. Its values
// replace the built-in defaults; environment variables still win.
type fileConfig struct {
	DatabaseURL   string `toml:"database_url"`
	NATSURL       string `toml:"nats_url"`
	LogLevel      string `toml:"log_level"`
	HTTPAddr      string `toml:"http_addr"`
	ServiceID     string `toml:"service_id"`
	CensusURL     string `toml:"census_url"`
	AlertsURL     string `toml:"alerts_url"`
	PopulationURL string `toml:"population_url"`

	Reconcile struct {
		MaxRetries      *int   `toml:"max_retries"`
		Concurrency     *int   `toml:"concurrency"`
		AlertGrace      string `toml:"alert_grace"`
		IgnoredRegions  []int  `toml:"ignored_regions"`
		AlertInterval   string `toml:"alert_interval"`
		DashInterval    string `toml:"dashboard_interval"`
		TrackerInterval string `toml:"tracker_interval"`
	} `toml:"reconcile"`

	Backup struct {
		Interval    string `toml:"interval"`
		S3Bucket    string `toml:"s3_bucket"`
		S3Endpoint  string `toml:"s3_endpoint"`
		S3Region    string `toml:"s3_region"`
		S3Key       string `toml:"s3_key"`
		S3Snapshots *bool  `toml:"s3_snapshots"`
		GitRepo     string `toml:"git_repo"`
		GitFile     string `toml:"git_file"`
		GitBranch   string `toml:"git_branch"`
		File        string `toml:"file"`
	} `toml:"backup"`

	Metrics struct {
		Enabled  *bool  `toml:"enabled"`
		Endpoint string `toml:"endpoint"`
		Insecure *bool  `toml:"insecure"`
		Interval string `toml:"interval"`
	} `toml:"metrics"`
}

func Load() (*Config, error) {
	var f fileConfig
	if path := os.Getenv("AURAXIS_CONFIG"); path != "" {
		md, err := toml.DecodeFile(path, &f)
		if err != nil {
			return nil, fmt.Errorf("AURAXIS_CONFIG: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("AURAXIS_CONFIG: unknown key %q", undecoded[0].String())
		}
	}

	c := &Config{
		DatabaseURL:      envOrDefault("AURAXIS_DATABASE_URL", f.DatabaseURL),
		DiscordToken:     os.Getenv("AURAXIS_DISCORD_TOKEN"),
		ServiceID:        envOrDefault("AURAXIS_SERVICE_ID", f.ServiceID),
		NATSURL:          envOrDefault("AURAXIS_NATS_URL", f.NATSURL),
		LogLevel:         envOrDefault("AURAXIS_LOG_LEVEL", or(f.LogLevel, "info")),
		HTTPAddr:         envOrDefault("AURAXIS_HTTP_ADDR", or(f.HTTPAddr, ":8080")),
		AuthToken:        os.Getenv("AURAXIS_AUTH_TOKEN"),
		CensusURL:        envOrDefault("AURAXIS_CENSUS_URL", f.CensusURL),
		AlertsURL:        envOrDefault("AURAXIS_ALERTS_URL", f.AlertsURL),
		PopulationURL:    envOrDefault("AURAXIS_POPULATION_URL", f.PopulationURL),
		IgnoredRegions:   f.Reconcile.IgnoredRegions,
		BackupS3Bucket:   envOrDefault("AURAXIS_BACKUP_S3_BUCKET", f.Backup.S3Bucket),
		BackupS3Endpoint: envOrDefault("AURAXIS_BACKUP_S3_ENDPOINT", f.Backup.S3Endpoint),
		BackupS3Region:   envOrDefault("AURAXIS_BACKUP_S3_REGION", or(f.Backup.S3Region, "us-east-1")),
		BackupS3Key:      envOrDefault("AURAXIS_BACKUP_S3_KEY", or(f.Backup.S3Key, "auraxis/sinks.jsonl")),
		BackupGitRepo:    envOrDefault("AURAXIS_BACKUP_GIT_REPO", f.Backup.GitRepo),
		BackupGitFile:    envOrDefault("AURAXIS_BACKUP_GIT_FILE", or(f.Backup.GitFile, "sinks.jsonl")),
		BackupGitBranch:  envOrDefault("AURAXIS_BACKUP_GIT_BRANCH", or(f.Backup.GitBranch, "main")),
		BackupFile:       envOrDefault("AURAXIS_BACKUP_FILE", f.Backup.File),
		MetricsEndpoint:  envOrDefault("AURAXIS_METRICS_ENDPOINT", f.Metrics.Endpoint),
	}
	if c.HTTPAddr == "off" {
		c.HTTPAddr = ""
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("AURAXIS_DATABASE_URL is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("AURAXIS_LOG_LEVEL: unknown level %q", c.LogLevel)
	}

	var errs []error
	durations := []struct {
		key  string
		val  string
		dst  *time.Duration
		zero bool // whether 0 is allowed
	}{
		{"AURAXIS_ALERT_GRACE", or(f.Reconcile.AlertGrace, "5m"), &c.AlertGrace, true},
		{"AURAXIS_ALERT_INTERVAL", or(f.Reconcile.AlertInterval, "1m"), &c.AlertInterval, false},
		{"AURAXIS_DASHBOARD_INTERVAL", or(f.Reconcile.DashInterval, "5m"), &c.DashInterval, false},
		{"AURAXIS_TRACKER_INTERVAL", or(f.Reconcile.TrackerInterval, "10m"), &c.TrackerInterval, false},
		{"AURAXIS_BACKUP_INTERVAL", or(f.Backup.Interval, "30m"), &c.BackupInterval, true},
		{"AURAXIS_METRICS_INTERVAL", or(f.Metrics.Interval, "30s"), &c.MetricsInterval, false},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(envOrDefault(d.key, d.val))
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", d.key, err))
		case v < 0 || (v == 0 && !d.zero):
			errs = append(errs, fmt.Errorf("%s: must be positive", d.key))
		default:
			*d.dst = v
		}
	}

	ints := []struct {
		key string
		val string
		min int
		dst *int
	}{
		{"AURAXIS_MAX_RETRIES", intOr(f.Reconcile.MaxRetries, 2), 0, &c.MaxRetries},
		{"AURAXIS_CONCURRENCY", intOr(f.Reconcile.Concurrency, 8), 1, &c.Concurrency},
	}
	for _, i := range ints {
		v, err := strconv.Atoi(envOrDefault(i.key, i.val))
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", i.key, err))
		case v < i.min:
			errs = append(errs, fmt.Errorf("%s: must be at least %d", i.key, i.min))
		default:
			*i.dst = v
		}
	}

	bools := []struct {
		key string
		val string
		dst *bool
	}{
		{"AURAXIS_BACKUP_S3_SNAPSHOTS", boolOr(f.Backup.S3Snapshots), &c.BackupS3Snapshots},
		{"AURAXIS_METRICS_ENABLED", boolOr(f.Metrics.Enabled), &c.MetricsEnabled},
		{"AURAXIS_METRICS_INSECURE", boolOr(f.Metrics.Insecure), &c.MetricsInsecure},
	}
	for _, b := range bools {
		v, err := strconv.ParseBool(envOrDefault(b.key, b.val))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.key, err))
			continue
		}
		*b.dst = v
	}

	if s := os.Getenv("AURAXIS_IGNORED_REGIONS"); s != "" {
		regions, err := parseIntList(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("AURAXIS_IGNORED_REGIONS: %w", err))
		}
		c.IgnoredRegions = regions
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// RequireUpstream reports the settings a reconcile run needs beyond Load.
func (c *Config) RequireUpstream() error {
	var missing []string
	if c.DiscordToken == "" {
		missing = append(missing, "AURAXIS_DISCORD_TOKEN")
	}
	if c.ServiceID == "" {
		missing = append(missing, "AURAXIS_SERVICE_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required", strings.Join(missing, " and "))
	}
	return nil
}

// RequireCensus reports the settings needed to read the telemetry APIs
// without writing to Discord.
func (c *Config) RequireCensus() error {
	if c.ServiceID == "" {
		return fmt.Errorf("AURAXIS_SERVICE_ID required")
	}
	return nil
}

func parseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func intOr(v *int, fallback int) string {
	if v != nil {
		return strconv.Itoa(*v)
	}
	return strconv.Itoa(fallback)
}

func boolOr(v *bool) string {
	return strconv.FormatBool(v != nil && *v)
}
