// Package config owns rmz's configuration: the settings file, the
// protected-path list, root-directory layout, and environment overrides.
// Settings live in TOML under <root>/config/; writes are atomic
// (temp file + rename) so a crash never leaves a half-written file.
package config

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Color output modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config is the engine-wide configuration, decoded from
// config/settings.toml. The zero values of optional fields mean
// "feature off" (no auto-clean age, no size cap).
type Config struct {
	// TrashRoot overrides the root directory. Normally empty — the root
	// is derived from RMZ_HOME or the platform data directory, and this
	// file lives inside it. Set it to relocate payloads elsewhere.
	TrashRoot string `toml:"trash_root"`

	// AutoCleanDays purges records older than this many days when
	// `purge --auto` runs. 0 disables age-based cleaning.
	AutoCleanDays int `toml:"auto_clean_days"`

	// MaxTotalSize caps the combined payload size, e.g. "10GB". When
	// `purge --auto` runs and the cap is exceeded, oldest records are
	// purged first until under the cap. Empty disables the cap.
	MaxTotalSize string `toml:"max_total_size"`

	// Color controls colored output: auto, always, never.
	Color string `toml:"color"`

	// Interactive enables the interactive picker when a selector is
	// ambiguous, instead of failing with the candidate list.
	Interactive bool `toml:"interactive"`

	// LogLevel is the baseline slog level: debug, info, warn, error.
	// CLI flags (--verbose, --debug, --quiet) override it.
	LogLevel string `toml:"log_level"`

	// LogMaxBytes rotates the operation log past this size.
	LogMaxBytes int64 `toml:"log_max_bytes"`

	// LogMaxArchives bounds how many rotated archives are kept.
	LogMaxArchives int `toml:"log_max_archives"`
}

// Defaults for configuration options. These work without any config file;
// the file only records deviations.
const (
	defaultLogLevel       = "warn"
	defaultLogMaxBytes    = 8 << 20 // 8 MiB before rotation
	defaultLogMaxArchives = 10
)

// DefaultConfig returns a Config populated with all default values. Used
// both as the starting point for TOML decoding (unset fields keep their
// defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Color:          ColorAuto,
		LogLevel:       defaultLogLevel,
		LogMaxBytes:    defaultLogMaxBytes,
		LogMaxArchives: defaultLogMaxArchives,
	}
}

// MaxTotalSizeBytes parses the human-readable size cap. Returns 0 when
// the cap is disabled.
func (c *Config) MaxTotalSizeBytes() (uint64, error) {
	if c.MaxTotalSize == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(c.MaxTotalSize)
	if err != nil {
		return 0, fmt.Errorf("max_total_size %q: %w", c.MaxTotalSize, err)
	}

	return n, nil
}

// Validate checks field values after decoding.
func Validate(c *Config) error {
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("color must be auto, always, or never (got %q)", c.Color)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error (got %q)", c.LogLevel)
	}

	if c.AutoCleanDays < 0 {
		return fmt.Errorf("auto_clean_days must not be negative (got %d)", c.AutoCleanDays)
	}

	if c.LogMaxBytes <= 0 {
		return fmt.Errorf("log_max_bytes must be positive (got %d)", c.LogMaxBytes)
	}

	if c.LogMaxArchives < 0 {
		return fmt.Errorf("log_max_archives must not be negative (got %d)", c.LogMaxArchives)
	}

	if _, err := c.MaxTotalSizeBytes(); err != nil {
		return err
	}

	return nil
}
