package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hacktown/internal/model"
)

// DefaultSourceURL is the published Hacktown programme spreadsheet.
const DefaultSourceURL = "https://docs.google.com/spreadsheets/d/e/2PACX-1vTUAuTwwFq_debnSmBPcUMg3B_9kx76J_BygLDCYkGb9BNG8AvIx27wouDrg6pL3r8Vo_oBFYx7eNp4/pubhtml?gid=0"

const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// SourceURL points at the spreadsheet published as HTML, one table per day.
	SourceURL string `yaml:"source_url" json:"source_url"`

	// FetchMode selects how SourceURL is retrieved:
	//   - "http" (default): plain GET
	//   - "browser": headless Chromium, for documents rendered by script
	FetchMode string `yaml:"fetch_mode" json:"fetch_mode"`

	FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds" json:"fetch_timeout_seconds"`
	UserAgent           string `yaml:"user_agent" json:"user_agent"`

	// Days maps table index to day label, in schedule order.
	Days []string `yaml:"days" json:"days"`

	// AllLabel is the synthetic "no filter" option shown in selectors.
	AllLabel string `yaml:"all_label" json:"all_label"`

	// DefaultStart replaces a missing start time.
	DefaultStart string `yaml:"default_start" json:"default_start"`

	// IgnoreExtraTables tolerates documents with more tables than Days.
	// Fewer tables is always an error.
	IgnoreExtraTables bool `yaml:"ignore_extra_tables" json:"ignore_extra_tables"`

	// Refresh is an optional cron expression that invalidates the cached
	// schedule. Empty means the schedule is fetched once per process.
	Refresh string `yaml:"refresh" json:"refresh"`

	// Timezone is the IANA zone used for calendar export.
	Timezone string `yaml:"timezone" json:"timezone"`

	// EventDates maps day labels to calendar dates (YYYY-MM-DD) for ICS export.
	EventDates map[string]string `yaml:"event_dates" json:"event_dates"`

	PageSize           int    `yaml:"page_size" json:"page_size"`
	SessionIdleMinutes int    `yaml:"session_idle_minutes" json:"session_idle_minutes"`
	LogLevel           string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := &Config{
		Listen:              "127.0.0.1:8080",
		SourceURL:           DefaultSourceURL,
		FetchMode:           FetchModeHTTP,
		FetchTimeoutSeconds: 15,
		UserAgent:           "hacktown/0.1",
		Days:                append([]string(nil), model.DefaultDays...),
		AllLabel:            model.DefaultAllLabel,
		DefaultStart:        model.DefaultStart,
		Timezone:            "America/Sao_Paulo",
		EventDates:          map[string]string{},
		PageSize:            10,
		SessionIdleMinutes:  12 * 60,
		LogLevel:            "info",
	}
	return cfg
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.SourceURL == "" {
		c.SourceURL = def.SourceURL
	}
	switch c.FetchMode {
	case FetchModeHTTP, FetchModeBrowser:
	default:
		c.FetchMode = FetchModeHTTP
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = def.FetchTimeoutSeconds
	}
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	if len(c.Days) == 0 {
		c.Days = def.Days
	}
	if c.AllLabel == "" {
		c.AllLabel = def.AllLabel
	}
	if c.DefaultStart == "" {
		c.DefaultStart = def.DefaultStart
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.EventDates == nil {
		c.EventDates = map[string]string{}
	}
	if c.PageSize <= 0 {
		c.PageSize = def.PageSize
	}
	if c.SessionIdleMinutes <= 0 {
		c.SessionIdleMinutes = def.SessionIdleMinutes
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate reports configuration that Normalize cannot repair.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Days))
	for _, d := range c.Days {
		if strings.TrimSpace(d) == "" {
			return errors.New("config: empty day label")
		}
		if d == c.AllLabel {
			return fmt.Errorf("config: day label %q collides with all_label", d)
		}
		if seen[d] {
			return fmt.Errorf("config: duplicate day label %q", d)
		}
		seen[d] = true
	}
	for day, date := range c.EventDates {
		if !seen[day] {
			return fmt.Errorf("config: event_dates has unknown day %q", day)
		}
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return fmt.Errorf("config: event_dates[%s]: %w", day, err)
		}
	}
	return nil
}

// FetchTimeout returns the configured fetch timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// SessionIdle returns how long an unused session is kept.
func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults and validate
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".hacktown-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
