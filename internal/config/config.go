// Package config handles configuration loading and validation for padscope.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete toolkit configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Captures configures artifact ingestion.
	Captures CapturesConfig `toml:"captures" json:"captures" yaml:"captures"`

	// Storage configures the capture store.
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`

	// Diff configures the submission diff engine.
	Diff DiffConfig `toml:"diff" json:"diff" yaml:"diff"`

	// Derive configures the derivation hypothesis tester.
	Derive DeriveConfig `toml:"derive" json:"derive" yaml:"derive"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// CapturesConfig configures where captured artifacts land and how they are
// checked before analysis.
type CapturesConfig struct {
	// DropDir is the directory the capture collaborators write artifact
	// JSON files into. The daemon watches it for new files.
	DropDir string `toml:"drop_dir" json:"drop_dir" yaml:"drop_dir"`

	// ValidateSchema enables JSON Schema validation of artifact files
	// before the model-level parse.
	ValidateSchema bool `toml:"validate_schema" json:"validate_schema" yaml:"validate_schema"`

	// DebounceMs is how long a dropped file must be stable before it is
	// ingested, in milliseconds.
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms" yaml:"debounce_ms"`
}

// StorageConfig configures the SQLite capture store.
type StorageConfig struct {
	// Path is the path to the database file.
	Path string `toml:"path" json:"path" yaml:"path"`
}

// DiffConfig configures the submission diff engine.
type DiffConfig struct {
	// ExpectedDivergent is the field-name denylist: fields already known
	// to legitimately differ per input method.
	ExpectedDivergent []string `toml:"expected_divergent" json:"expected_divergent" yaml:"expected_divergent"`
}

// DeriveConfig configures the derivation hypothesis tester.
type DeriveConfig struct {
	// SegmentWidth is the assumed fixed width of one opaque field segment.
	SegmentWidth int `toml:"segment_width" json:"segment_width" yaml:"segment_width"`

	// SegmentField names the opaque submission field under test.
	SegmentField string `toml:"segment_field" json:"segment_field" yaml:"segment_field"`

	// SessionKeys names the submission fields treated as session
	// identifiers or intermediate tokens, in priority order.
	SessionKeys []string `toml:"session_keys" json:"session_keys" yaml:"session_keys"`

	// Workers is the number of parallel hypothesis evaluators. 1 disables
	// parallelism.
	Workers int `toml:"workers" json:"workers" yaml:"workers"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `toml:"level" json:"level" yaml:"level"`
	Format string `toml:"format" json:"format" yaml:"format"`
	Output string `toml:"output" json:"output" yaml:"output"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Captures: CapturesConfig{
			DropDir:        defaultDropDir(),
			ValidateSchema: true,
			DebounceMs:     250,
		},
		Storage: StorageConfig{
			Path: defaultStorePath(),
		},
		Diff: DiffConfig{
			ExpectedDivergent: []string{"pwd", "password", "encPwd"},
		},
		Derive: DeriveConfig{
			SegmentWidth: 64,
			SegmentField: "encPwd",
			SessionKeys:  []string{"id", "keypadUuid"},
			Workers:      1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

func dataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "padscope")
}

func defaultDropDir() string   { return filepath.Join(dataDir(), "captures") }
func defaultStorePath() string { return filepath.Join(dataDir(), "padscope.db") }

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "padscope", "padscope.toml")
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.Captures.DropDir == "" {
		errs = append(errs, errors.New("captures.drop_dir must be set"))
	}
	if c.Captures.DebounceMs < 0 {
		errs = append(errs, fmt.Errorf("captures.debounce_ms must be >= 0, got %d", c.Captures.DebounceMs))
	}
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path must be set"))
	}
	if c.Derive.SegmentWidth <= 0 {
		errs = append(errs, fmt.Errorf("derive.segment_width must be positive, got %d", c.Derive.SegmentWidth))
	}
	if c.Derive.SegmentField == "" {
		errs = append(errs, errors.New("derive.segment_field must be set"))
	}
	if c.Derive.Workers < 1 {
		errs = append(errs, fmt.Errorf("derive.workers must be >= 1, got %d", c.Derive.Workers))
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not valid", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// ApplyEnvOverrides applies PADSCOPE_* environment variables over the
// loaded configuration. Useful for one-off runs against a different
// capture set without editing the config file.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PADSCOPE_DROP_DIR"); v != "" {
		c.Captures.DropDir = v
	}
	if v := os.Getenv("PADSCOPE_STORE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("PADSCOPE_SEGMENT_FIELD"); v != "" {
		c.Derive.SegmentField = v
	}
	if v := os.Getenv("PADSCOPE_SEGMENT_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Derive.SegmentWidth = n
		}
	}
	if v := os.Getenv("PADSCOPE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			c.Derive.Workers = n
		}
	}
	if v := os.Getenv("PADSCOPE_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}
