package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ProtectedEntry is one protected path prefix. A regular entry protects
// the path and everything beneath it. SelfOnly entries protect just the
// path itself — used for "/" and the home directory, which would
// otherwise shadow the entire filesystem.
type ProtectedEntry struct {
	Path     string `toml:"path"`
	SelfOnly bool   `toml:"self_only,omitempty"`
}

// protectedDoc is the TOML document shape of config/protected.toml.
type protectedDoc struct {
	Entry []ProtectedEntry `toml:"entry"`
}

// protectedHeader documents the file format for hand editors.
const protectedHeader = `# rmz protected paths
# Deletion is refused for each path and (unless self_only) everything
# beneath it. Manage with: rmz protect add|remove|list

`

// DefaultProtectedEntries returns the deny-list seeded on first run:
// well-known system directories plus the user's home directory. "/" and
// the home directory protect only themselves, not their children.
func DefaultProtectedEntries(home string) []ProtectedEntry {
	entries := []ProtectedEntry{
		{Path: "/", SelfOnly: true},
		{Path: "/etc"},
		{Path: "/usr"},
		{Path: "/bin"},
		{Path: "/sbin"},
		{Path: "/boot"},
		{Path: "/proc"},
		{Path: "/sys"},
		{Path: "/dev"},
	}

	if home != "" {
		entries = append(entries, ProtectedEntry{Path: filepath.Clean(home), SelfOnly: true})
	}

	return entries
}

// LoadProtected reads config/protected.toml. A missing file seeds the
// defaults, persists them, and returns them — first run creates the
// deny-list as a real file the user can inspect and edit.
func LoadProtected(path string, logger *slog.Logger) ([]ProtectedEntry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			logger.Warn("cannot determine home directory; it will not be protected", "error", homeErr)
		}

		entries := DefaultProtectedEntries(home)
		if err := SaveProtected(path, entries, logger); err != nil {
			return nil, fmt.Errorf("seeding protected paths: %w", err)
		}

		logger.Debug("seeded default protected paths", "path", path, "count", len(entries))

		return entries, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading protected paths %s: %w", path, err)
	}

	var doc protectedDoc
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("parsing protected paths %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, fmt.Errorf("protected paths %s: %w", path, err)
	}

	for _, entry := range doc.Entry {
		if !filepath.IsAbs(entry.Path) {
			return nil, fmt.Errorf("protected paths %s: %q is not absolute", path, entry.Path)
		}
	}

	return doc.Entry, nil
}

// SaveProtected writes the protected list atomically.
func SaveProtected(path string, entries []ProtectedEntry, logger *slog.Logger) error {
	logger.Debug("saving protected paths", "path", path, "count", len(entries))

	var body bytes.Buffer
	body.WriteString(protectedHeader)

	if err := toml.NewEncoder(&body).Encode(protectedDoc{Entry: entries}); err != nil {
		return fmt.Errorf("encoding protected paths: %w", err)
	}

	return writeConfigFile(path, body.Bytes())
}
