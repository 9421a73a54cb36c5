package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/tonimelisma/rmz-go/internal/atomicfile"
)

// settingsHeader is written at the top of a freshly created settings
// file so users can discover the options without reading docs.
const settingsHeader = `# rmz configuration
# All keys are optional; commented values show the defaults.
#
# auto_clean_days = 0        # purge --auto removes records older than this (0 = off)
# max_total_size = ""        # e.g. "10GB"; purge --auto drops oldest past the cap ("" = off)
# color = "auto"             # auto, always, never
# interactive = false        # pick interactively when a selector is ambiguous
# log_level = "warn"         # debug, info, warn, error
# log_max_bytes = 8388608    # operation log rotation threshold
# log_max_archives = 10      # rotated archives kept

`

// Save encodes the Config to TOML and writes it atomically, prepending
// the documentation header when creating the file for the first time.
func Save(path string, cfg *Config, logger *slog.Logger) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	logger.Debug("saving settings file", "path", path)

	var body bytes.Buffer
	if _, err := os.Stat(path); os.IsNotExist(err) {
		body.WriteString(settingsHeader)
	}

	if err := toml.NewEncoder(&body).Encode(cfg); err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	return writeConfigFile(path, body.Bytes())
}

// writeConfigFile commits a config file atomically, creating the parent
// directory as needed.
func writeConfigFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), RootDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return atomicfile.Write(path, data, FilePermissions)
}
