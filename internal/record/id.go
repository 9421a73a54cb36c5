// Package record defines the persistent data model of the trash zone:
// typed identifiers, FileRecord (one staged filesystem object), and
// OperationRecord (one user-initiated engine call), together with their
// JSON encodings. It consolidates validation and normalization logic and
// provides compile-time safety over raw string usage.
//
// This is a leaf package: everything else in the engine depends on it,
// and it depends only on stdlib plus the UUID generator.
package record

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// idLength is the length of a rendered identifier (lowercase hyphenated
// hex UUID, e.g. "9b2e1f04-6c1a-4f27-9d0e-3a8b5c7d1e2f").
const idLength = 36

// MinPrefixLength is the shortest identifier prefix accepted for lookup.
// Shorter prefixes match too many records to be useful and are rejected
// before any store access.
const MinPrefixLength = 4

// ID is a 128-bit record or operation identifier, rendered as a lowercase
// hyphenated hex string. The zero value (ID{}) represents "absent".
type ID struct {
	value string
}

// NewID generates a fresh random identifier. The 128-bit space makes
// collisions negligible; the stores still detect the case (see metastore).
func NewID() ID {
	return ID{value: uuid.NewString()}
}

// ParseID validates a full identifier string. The input is lowercased so
// that user-typed uppercase hex resolves to the same record.
func ParseID(raw string) (ID, error) {
	lower := strings.ToLower(strings.TrimSpace(raw))

	u, err := uuid.Parse(lower)
	if err != nil {
		return ID{}, fmt.Errorf("invalid identifier %q: %w", raw, err)
	}

	return ID{value: u.String()}, nil
}

// MustID parses a full identifier and panics on failure. Test helper and
// constant-construction use only.
func MustID(raw string) ID {
	id, err := ParseID(raw)
	if err != nil {
		panic(err)
	}

	return id
}

// String returns the rendered identifier.
func (id ID) String() string {
	return id.value
}

// IsZero reports whether this is the absent identifier.
func (id ID) IsZero() bool {
	return id.value == ""
}

// Short returns the first eight hex characters, used in human-facing
// tables and log lines. Full identifiers remain the lookup key.
func (id ID) Short() string {
	if len(id.value) < 8 {
		return id.value
	}

	return id.value[:8]
}

// HasPrefix reports whether the identifier starts with the given prefix.
// Matching is case-insensitive; the caller enforces MinPrefixLength.
func (id ID) HasPrefix(prefix string) bool {
	return strings.HasPrefix(id.value, strings.ToLower(prefix))
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler with the same
// validation as ParseID.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}

	*id = parsed

	return nil
}

// IsIDPrefix reports whether raw could be an identifier prefix: at least
// MinPrefixLength characters, all of them hex digits or hyphens. Used by
// selector parsing to distinguish identifier prefixes from path globs.
func IsIDPrefix(raw string) bool {
	if len(raw) < MinPrefixLength || len(raw) > idLength {
		return false
	}

	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r == '-':
		default:
			return false
		}
	}

	return true
}
