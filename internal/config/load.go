package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads and parses the settings file, validates it, and returns the
// resulting Config. A missing file is not an error — defaults apply and
// the file is created on the first mutation. Unknown keys are fatal so a
// typo never silently disables a safety setting.
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger.Debug("loading settings file", "path", path)

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug("no settings file, using defaults", "path", path)

		return cfg, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing settings file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, fmt.Errorf("settings file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("settings validation failed: %w", err)
	}

	logger.Debug("settings parsed successfully", "path", path)

	return cfg, nil
}

// checkUnknownKeys fails on keys the Config struct does not declare.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	keys := make([]string, 0, len(undecoded))
	for _, key := range undecoded {
		keys = append(keys, key.String())
	}

	return fmt.Errorf("unknown settings key(s): %s", strings.Join(keys, ", "))
}
