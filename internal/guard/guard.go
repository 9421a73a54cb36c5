// Package guard vetoes deletion attempts against protected locations. It
// holds the current deny-list of absolute path prefixes and answers
// membership queries against resolved paths, so symlink-based evasion is
// not possible (the resolver collapses parent links before the check).
//
// The guard inspects only the path being deleted. A symlink whose target
// lives under a protected prefix may itself be deleted — removing the
// link never touches the target.
package guard

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tonimelisma/rmz-go/internal/config"
)

// Guard answers is-protected queries against an ordered set of absolute
// path prefixes.
type Guard struct {
	entries []config.ProtectedEntry
}

// New builds a Guard over the given entries. Paths are cleaned; order is
// preserved for listing.
func New(entries []config.ProtectedEntry) *Guard {
	cleaned := make([]config.ProtectedEntry, 0, len(entries))
	for _, e := range entries {
		e.Path = filepath.Clean(e.Path)
		cleaned = append(cleaned, e)
	}

	return &Guard{entries: cleaned}
}

// IsProtected reports whether path (absolute, resolved) is protected,
// and by which entry. A regular entry matches itself and any strict
// descendant; a self-only entry matches only itself.
func (g *Guard) IsProtected(path string) (bool, string) {
	p := filepath.Clean(path)

	for _, e := range g.entries {
		if p == e.Path {
			return true, e.Path
		}

		if e.SelfOnly {
			continue
		}

		prefix := e.Path
		if prefix != string(filepath.Separator) {
			prefix += string(filepath.Separator)
		}

		if strings.HasPrefix(p, prefix) {
			return true, e.Path
		}
	}

	return false, ""
}

// Entries returns a copy of the current deny-list in stored order.
func (g *Guard) Entries() []config.ProtectedEntry {
	out := make([]config.ProtectedEntry, len(g.entries))
	copy(out, g.entries)

	return out
}

// Add appends a new protected prefix. The path must be absolute; it is
// cleaned before comparison. Adding an existing path is an error so the
// user learns the entry was already present.
func (g *Guard) Add(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("protected path must be absolute: %q", path)
	}

	p := filepath.Clean(path)

	for _, e := range g.entries {
		if e.Path == p {
			return fmt.Errorf("%s is already protected", p)
		}
	}

	g.entries = append(g.entries, config.ProtectedEntry{Path: p})

	return nil
}

// Remove deletes an entry by cleaned-path equality.
func (g *Guard) Remove(path string) error {
	p := filepath.Clean(path)

	for i, e := range g.entries {
		if e.Path == p {
			g.entries = append(g.entries[:i], g.entries[i+1:]...)

			return nil
		}
	}

	return fmt.Errorf("%s is not protected", p)
}

// Sorted returns the entries ordered by path, for stable display.
func (g *Guard) Sorted() []config.ProtectedEntry {
	out := g.Entries()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	return out
}
