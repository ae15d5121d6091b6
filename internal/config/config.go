// Package config handles configuration loading, validation, and
// hot-reloading for wlchewing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete input method configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Keys configures the toggle chord and routing options.
	Keys KeysConfig `toml:"keys" json:"keys" yaml:"keys"`

	// Repeat overrides the compositor's key repeat parameters.
	Repeat RepeatConfig `toml:"repeat" json:"repeat" yaml:"repeat"`

	// Engine configures libchewing.
	Engine EngineConfig `toml:"engine" json:"engine" yaml:"engine"`

	// Control configures the D-Bus control interface.
	Control ControlConfig `toml:"control" json:"control" yaml:"control"`

	// Stats configures usage statistics persistence.
	Stats StatsConfig `toml:"stats" json:"stats" yaml:"stats"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// mu protects concurrent access to the config.
	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// KeysConfig holds key routing configuration.
type KeysConfig struct {
	// ToggleModifier is the XKB modifier name of the toggle chord,
	// e.g. "Control", "Shift", "Mod1".
	ToggleModifier string `toml:"toggle_modifier" json:"toggle_modifier" yaml:"toggle_modifier"`

	// ToggleKey is the keysym name of the toggle chord, e.g. "space".
	ToggleKey string `toml:"toggle_key" json:"toggle_key" yaml:"toggle_key"`

	// PassthroughWhenIdle sends editing keys to the application when
	// nothing is being composed.
	PassthroughWhenIdle bool `toml:"passthrough_when_idle" json:"passthrough_when_idle" yaml:"passthrough_when_idle"`

	// StartMode is "composing" or "forwarding".
	StartMode string `toml:"start_mode" json:"start_mode" yaml:"start_mode"`
}

// RepeatConfig holds key repeat overrides. Zero values keep what the
// compositor announces.
type RepeatConfig struct {
	// Enabled turns key repeat emulation on or off.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Rate is the number of repeats per second.
	Rate int `toml:"rate" json:"rate" yaml:"rate"`

	// DelayMs is the delay before the first repeat.
	DelayMs int `toml:"delay_ms" json:"delay_ms" yaml:"delay_ms"`
}

// EngineConfig holds libchewing configuration.
type EngineConfig struct {
	// Library is the shared object to load. Empty tries libchewing.so.3
	// and then libchewing.so.
	Library string `toml:"library" json:"library" yaml:"library"`

	// SystemPath is the system dictionary directory.
	SystemPath string `toml:"system_path" json:"system_path" yaml:"system_path"`

	// UserPath is the user phrase database.
	UserPath string `toml:"user_path" json:"user_path" yaml:"user_path"`

	// KeyboardLayout is a libchewing layout name such as "KB_DEFAULT".
	KeyboardLayout string `toml:"keyboard_layout" json:"keyboard_layout" yaml:"keyboard_layout"`

	CandidatesPerPage int  `toml:"candidates_per_page" json:"candidates_per_page" yaml:"candidates_per_page"`
	MaxChiSymbolLen   int  `toml:"max_chi_symbol_len" json:"max_chi_symbol_len" yaml:"max_chi_symbol_len"`
	SpaceAsSelection  bool `toml:"space_as_selection" json:"space_as_selection" yaml:"space_as_selection"`
}

// ControlConfig holds D-Bus control interface configuration.
type ControlConfig struct {
	// Enabled determines whether the control service is exported.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// BusName is the well-known session bus name to own.
	BusName string `toml:"bus_name" json:"bus_name" yaml:"bus_name"`
}

// StatsConfig holds usage statistics configuration.
type StatsConfig struct {
	// Enabled determines whether per-activation counters are stored.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the SQLite database file.
	Path string `toml:"path" json:"path" yaml:"path"`

	// RetentionDays prunes older rows at startup. Zero keeps everything.
	RetentionDays int `toml:"retention_days" json:"retention_days" yaml:"retention_days"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log output: "stdout", "stderr", "file" or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file (when Output is "file").
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of old log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays is the maximum age of log files in days.
	MaxAgeDays int `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`

	// Compress determines whether to compress rotated logs.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`

	// CrashDir receives crash reports.
	CrashDir string `toml:"crash_dir" json:"crash_dir" yaml:"crash_dir"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Keys: KeysConfig{
			ToggleModifier:      "Control",
			ToggleKey:           "space",
			PassthroughWhenIdle: false,
			StartMode:           "composing",
		},
		Repeat: RepeatConfig{
			Enabled: true,
		},
		Engine: EngineConfig{
			KeyboardLayout:    "KB_DEFAULT",
			CandidatesPerPage: 10,
			MaxChiSymbolLen:   18,
		},
		Control: ControlConfig{
			Enabled: true,
			BusName: "org.wlchewing.InputMethod",
		},
		Stats: StatsConfig{
			Enabled:       false,
			Path:          filepath.Join(DataDir(), "stats.db"),
			RetentionDays: 90,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(StateDir(), "wlchewing.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
			Compress:   true,
			CrashDir:   filepath.Join(StateDir(), "crashes"),
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// EnsureDirectories creates the directories the configured files live in.
func (c *Config) EnsureDirectories() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dirs := []string{c.Logging.CrashDir}
	if c.Stats.Enabled {
		dirs = append(dirs, filepath.Dir(c.Stats.Path))
	}
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// envPrefix is prepended to every environment override.
const envPrefix = "WLCHEWING_"

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Variables are prefixed with WLCHEWING_. Malformed
// numbers and booleans are ignored.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	envString("START_MODE", &c.Keys.StartMode)
	envString("TOGGLE_MODIFIER", &c.Keys.ToggleModifier)
	envString("TOGGLE_KEY", &c.Keys.ToggleKey)
	envBool("PASSTHROUGH_WHEN_IDLE", &c.Keys.PassthroughWhenIdle)

	envBool("REPEAT_ENABLED", &c.Repeat.Enabled)
	envInt("REPEAT_RATE", &c.Repeat.Rate)
	envInt("REPEAT_DELAY_MS", &c.Repeat.DelayMs)

	envString("CHEWING_LIBRARY", &c.Engine.Library)
	envString("CHEWING_SYSTEM_PATH", &c.Engine.SystemPath)
	envString("CHEWING_USER_PATH", &c.Engine.UserPath)
	envString("KEYBOARD_LAYOUT", &c.Engine.KeyboardLayout)

	envBool("CONTROL_ENABLED", &c.Control.Enabled)
	envString("BUS_NAME", &c.Control.BusName)

	envBool("STATS_ENABLED", &c.Stats.Enabled)
	envString("STATS_PATH", &c.Stats.Path)

	envString("LOG_LEVEL", &c.Logging.Level)
	envString("LOG_FORMAT", &c.Logging.Format)
	envString("LOG_OUTPUT", &c.Logging.Output)
	envString("LOG_PATH", &c.Logging.FilePath)
}

func envString(name string, dst *string) {
	if v := os.Getenv(envPrefix + name); v != "" {
		*dst = v
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(envPrefix + name); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(envPrefix + name); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Config{
		Version: c.Version,
		Keys:    c.Keys,
		Repeat:  c.Repeat,
		Engine:  c.Engine,
		Control: c.Control,
		Stats:   c.Stats,
		Logging: c.Logging,
	}
}
