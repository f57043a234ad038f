// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable read by Load.
const EnvVar = "PIXELWARDEN_CONFIG"

// Config is the master configuration for pixelwarden.
type Config struct {
	// Endpoints locates the game's API, image host and channel.
	Endpoints EndpointsConfig `yaml:"endpoints"`

	// Channel configures the shared update channel.
	Channel ChannelConfig `yaml:"channel"`

	// Painter configures template painting.
	Painter PainterConfig `yaml:"painter"`

	// Schedule configures the per-account loop timing.
	Schedule ScheduleConfig `yaml:"schedule"`

	// Accounts locates the accounts file.
	Accounts AccountsConfig `yaml:"accounts"`

	// Checkpoint configures on-disk canvas checkpoints.
	Checkpoint CheckpointConfig `yaml:"checkpoint"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log"`
}

// EndpointsConfig locates the game's services.
type EndpointsConfig struct {
	// API is the base of the REST API.
	API string `yaml:"api"`

	// Image is the base of the canvas image host.
	Image string `yaml:"image"`

	// Websocket is the update channel endpoint.
	Websocket string `yaml:"websocket"`

	// RequestTimeout bounds every HTTP request.
	// Default: 30s
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ChannelConfig configures the channel manager.
type ChannelConfig struct {
	// RefreshInterval is how often the channel token's expiry is checked.
	// Default: 60s
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// ExpiryMargin is how close to expiry a token is replaced.
	// Default: 5m
	ExpiryMargin time.Duration `yaml:"expiry_margin"`

	// ReconnectAttempts is how many re-dials happen before failing over.
	// Default: 3
	ReconnectAttempts int `yaml:"reconnect_attempts"`

	// ReconnectDelay is the pause before each re-dial.
	// Default: 5s
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`

	// TokenAttempts bounds channel token fetches.
	// Default: 3
	TokenAttempts int `yaml:"token_attempts"`

	// ImageAttempts bounds canvas image downloads.
	// Default: 3
	ImageAttempts int `yaml:"image_attempts"`

	// SyncTimeout bounds how long an account waits for the mirror to
	// be streaming before it skips painting this iteration.
	// Default: 2m
	SyncTimeout time.Duration `yaml:"sync_timeout"`
}

// PainterConfig configures template painting.
type PainterConfig struct {
	// Enabled turns painting on. With painting off the accounts only
	// keep the mirror in sync.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// JitterMin and JitterMax bound the pause after each repaint.
	// Default: 950ms and 2.3s
	JitterMin time.Duration `yaml:"jitter_min"`
	JitterMax time.Duration `yaml:"jitter_max"`

	// MaxAttempts is the number of scans tried before giving up.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// RetryDelay is the pause between failed scans.
	// Default: 5s
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// ScheduleConfig configures the timing of each account's loop.
type ScheduleConfig struct {
	// StartDelay is the range of the random delay before an account's
	// first iteration.
	// Default: [10s, 4m]
	StartDelay Range `yaml:"start_delay"`

	// IterationSleep is the range of the random sleep between
	// iterations.
	// Default: [60m, 120m]
	IterationSleep Range `yaml:"iteration_sleep"`

	// Cooldown is the pause after a failed iteration.
	// Default: 60s
	Cooldown time.Duration `yaml:"cooldown"`

	// Night configures the nightly pause.
	Night NightConfig `yaml:"night"`
}

// NightConfig configures the nightly pause. When the local hour falls
// between a start hour drawn from StartHours and an end hour drawn
// from EndHours, the account sleeps until the end hour plus a random
// Extra.
type NightConfig struct {
	// Enabled turns the nightly pause on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// StartHours is the inclusive range the night's start hour is
	// drawn from.
	// Default: [0, 2]
	StartHours [2]int `yaml:"start_hours"`

	// EndHours is the inclusive range the night's end hour is drawn
	// from.
	// Default: [6, 8]
	EndHours [2]int `yaml:"end_hours"`

	// Extra is the range of the additional sleep after the end hour.
	// Default: [2m, 45m]
	Extra Range `yaml:"extra"`
}

// Range is an inclusive duration range, written as a two-element YAML
// list: [10s, 4m].
type Range struct {
	Min time.Duration
	Max time.Duration
}

// UnmarshalYAML reads a two-element sequence of durations.
func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	var bounds []time.Duration
	if err := node.Decode(&bounds); err != nil {
		return err
	}
	if len(bounds) != 2 {
		return fmt.Errorf("line %d: range needs exactly two durations, got %d", node.Line, len(bounds))
	}
	r.Min, r.Max = bounds[0], bounds[1]
	return nil
}

// MarshalYAML writes the range as a two-element sequence.
func (r Range) MarshalYAML() (any, error) {
	return []string{r.Min.String(), r.Max.String()}, nil
}

func (r Range) valid() bool {
	return r.Min >= 0 && r.Max >= r.Min
}

// AccountsConfig locates the accounts file.
type AccountsConfig struct {
	// Path is the accounts file. A path ending in ".age" is decrypted
	// with Identity.
	// Default: accounts.json
	Path string `yaml:"path"`

	// Identity is the age identity file used to decrypt a sealed
	// accounts file.
	Identity string `yaml:"identity"`
}

// CheckpointConfig configures on-disk canvas checkpoints.
type CheckpointConfig struct {
	// Enabled turns checkpoints on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the checkpoint file.
	// Default: ${PIXELWARDEN_STATE}/canvas.ckpt
	Path string `yaml:"path"`

	// Interval is the pause between checkpoints.
	// Default: 5m
	Interval time.Duration `yaml:"interval"`

	// Compression is one of "none", "lz4" or "zstd".
	// Default: zstd
	Compression string `yaml:"compression"`

	// MaxAge is the oldest checkpoint still loaded at startup.
	// Default: 1h
	MaxAge time.Duration `yaml:"max_age"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	// Default: info
	Level string `yaml:"level"`

	// Format is "text", "json", or "auto" (text on a terminal).
	// Default: auto
	Format string `yaml:"format"`
}

// Default returns the default configuration. Every field is set, so a
// config file only needs the values it changes.
func Default() *Config {
	return &Config{
		Endpoints: EndpointsConfig{
			API:            "https://notpx.app/api/v1",
			Image:          "https://image.notpx.app/api/v2",
			Websocket:      "wss://notpx.app/connection/websocket",
			RequestTimeout: 30 * time.Second,
		},
		Channel: ChannelConfig{
			RefreshInterval:   60 * time.Second,
			ExpiryMargin:      5 * time.Minute,
			ReconnectAttempts: 3,
			ReconnectDelay:    5 * time.Second,
			TokenAttempts:     3,
			ImageAttempts:     3,
			SyncTimeout:       2 * time.Minute,
		},
		Painter: PainterConfig{
			Enabled:     true,
			JitterMin:   950 * time.Millisecond,
			JitterMax:   2300 * time.Millisecond,
			MaxAttempts: 3,
			RetryDelay:  5 * time.Second,
		},
		Schedule: ScheduleConfig{
			StartDelay:     Range{Min: 10 * time.Second, Max: 4 * time.Minute},
			IterationSleep: Range{Min: 60 * time.Minute, Max: 120 * time.Minute},
			Cooldown:       60 * time.Second,
			Night: NightConfig{
				Enabled:    true,
				StartHours: [2]int{0, 2},
				EndHours:   [2]int{6, 8},
				Extra:      Range{Min: 2 * time.Minute, Max: 45 * time.Minute},
			},
		},
		Accounts: AccountsConfig{
			Path: "accounts.json",
		},
		Checkpoint: CheckpointConfig{
			Enabled:     true,
			Path:        "${PIXELWARDEN_STATE}/canvas.ckpt",
			Interval:    5 * time.Minute,
			Compression: "zstd",
			MaxAge:      time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the PIXELWARDEN_CONFIG environment
// variable. If the variable is not set, the defaults are returned with
// variables expanded.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merged over
// Default.
//
// The config file is the single source of truth. Environment variables do not
// override config values. The only expansion performed is ${HOME} and
// similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		// An empty file keeps the defaults.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"PIXELWARDEN_STATE": defaultStateDir(),
		"HOME":              os.Getenv("HOME"),
	}

	c.Accounts.Path = expandVars(c.Accounts.Path, vars)
	c.Accounts.Identity = expandVars(c.Accounts.Identity, vars)
	c.Checkpoint.Path = expandVars(c.Checkpoint.Path, vars)
}

// defaultStateDir is where state lives when PIXELWARDEN_STATE is not
// set.
func defaultStateDir() string {
	if dir := os.Getenv("PIXELWARDEN_STATE"); dir != "" {
		return dir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "pixelwarden")
	}
	return filepath.Join(homeDir, ".cache", "pixelwarden")
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	for name, raw := range map[string]string{
		"endpoints.api":       c.Endpoints.API,
		"endpoints.image":     c.Endpoints.Image,
		"endpoints.websocket": c.Endpoints.Websocket,
	} {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL, got %q", name, raw))
		}
	}
	if c.Endpoints.RequestTimeout <= 0 {
		errs = append(errs, errors.New("endpoints.request_timeout must be positive"))
	}

	if c.Channel.RefreshInterval <= 0 {
		errs = append(errs, errors.New("channel.refresh_interval must be positive"))
	}
	if c.Channel.ExpiryMargin < 0 {
		errs = append(errs, errors.New("channel.expiry_margin must not be negative"))
	}
	if c.Channel.ReconnectAttempts < 0 {
		errs = append(errs, errors.New("channel.reconnect_attempts must not be negative"))
	}
	if c.Channel.ReconnectDelay < 0 {
		errs = append(errs, errors.New("channel.reconnect_delay must not be negative"))
	}
	if c.Channel.TokenAttempts < 1 || c.Channel.ImageAttempts < 1 {
		errs = append(errs, errors.New("channel.token_attempts and channel.image_attempts must be at least 1"))
	}
	if c.Channel.SyncTimeout <= 0 {
		errs = append(errs, errors.New("channel.sync_timeout must be positive"))
	}

	if c.Painter.JitterMin < 0 || c.Painter.JitterMax < c.Painter.JitterMin {
		errs = append(errs, fmt.Errorf("painter jitter range [%v, %v] is invalid", c.Painter.JitterMin, c.Painter.JitterMax))
	}
	if c.Painter.MaxAttempts < 1 {
		errs = append(errs, errors.New("painter.max_attempts must be at least 1"))
	}

	if !c.Schedule.StartDelay.valid() {
		errs = append(errs, errors.New("schedule.start_delay is not a valid range"))
	}
	if !c.Schedule.IterationSleep.valid() {
		errs = append(errs, errors.New("schedule.iteration_sleep is not a valid range"))
	}
	if c.Schedule.Cooldown <= 0 {
		errs = append(errs, errors.New("schedule.cooldown must be positive"))
	}
	night := c.Schedule.Night
	for name, hours := range map[string][2]int{"start_hours": night.StartHours, "end_hours": night.EndHours} {
		if hours[0] < 0 || hours[1] > 23 || hours[1] < hours[0] {
			errs = append(errs, fmt.Errorf("schedule.night.%s must be an hour range within 0-23, got %v", name, hours))
		}
	}
	if !night.Extra.valid() {
		errs = append(errs, errors.New("schedule.night.extra is not a valid range"))
	}

	if c.Accounts.Path == "" {
		errs = append(errs, errors.New("accounts.path is required"))
	}

	if c.Checkpoint.Enabled {
		if c.Checkpoint.Path == "" {
			errs = append(errs, errors.New("checkpoint.path is required when checkpoints are enabled"))
		}
		if c.Checkpoint.Interval <= 0 {
			errs = append(errs, errors.New("checkpoint.interval must be positive"))
		}
	}
	compressions := []string{"none", "lz4", "zstd"}
	if !contains(compressions, c.Checkpoint.Compression) {
		errs = append(errs, fmt.Errorf("checkpoint.compression must be one of: %v", compressions))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	formats := []string{"auto", "text", "json"}
	if !contains(formats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", formats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LogLevel returns the parsed log level, or info when Level is invalid.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// EnsurePaths creates the checkpoint directory if checkpoints are
// enabled.
func (c *Config) EnsurePaths() error {
	if !c.Checkpoint.Enabled || c.Checkpoint.Path == "" {
		return nil
	}
	dir := filepath.Dir(c.Checkpoint.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
