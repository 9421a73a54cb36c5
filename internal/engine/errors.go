package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tonimelisma/rmz-go/internal/lockfile"
	"github.com/tonimelisma/rmz-go/internal/record"
)

// Error kinds surfaced by engine operations. Callers classify with
// errors.Is; the CLI maps kinds to exit codes. Io failures are plain
// wrapped errors carrying the offending path.
var (
	// ErrInvalidArgument marks malformed input, detected before any disk
	// activity.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks a missing source path or record.
	ErrNotFound = errors.New("not found")

	// ErrProtected marks a deletion refused by the protection guard.
	ErrProtected = errors.New("protected path")

	// ErrTargetExists marks a restore collision with no resolution
	// option.
	ErrTargetExists = errors.New("target exists")

	// ErrAmbiguous marks a selector matching multiple records with no
	// interactive resolver.
	ErrAmbiguous = errors.New("ambiguous selector")

	// ErrIntegrity marks metadata/payload disagreement, duplicate
	// identifiers, or parse failure of a critical file.
	ErrIntegrity = errors.New("integrity error")

	// ErrLocked marks contention on the mutating lock.
	ErrLocked = lockfile.ErrLocked
)

// AmbiguousError carries the candidate set of a selector that matched
// more than one record, so the caller can show the user what to
// disambiguate between.
type AmbiguousError struct {
	Selector   string
	Candidates []*record.FileRecord
}

func (e *AmbiguousError) Error() string {
	ids := make([]string, 0, len(e.Candidates))
	for _, rec := range e.Candidates {
		ids = append(ids, rec.ID.Short())
	}

	return fmt.Sprintf("selector %q matches %d records: %s", e.Selector, len(e.Candidates), strings.Join(ids, ", "))
}

// Unwrap ties AmbiguousError into the taxonomy.
func (e *AmbiguousError) Unwrap() error {
	return ErrAmbiguous
}

// PathFailure attaches a per-path error to the path (and record
// identifier, when one was created) within a multi-path operation.
type PathFailure struct {
	Arg  string
	Path string
	ID   record.ID
	Err  error
}

func (f PathFailure) Error() string {
	if f.ID.IsZero() {
		return fmt.Sprintf("%s: %v", f.Path, f.Err)
	}

	return fmt.Sprintf("%s (%s): %v", f.Path, f.ID.Short(), f.Err)
}

// Unwrap exposes the underlying error for errors.Is classification.
func (f PathFailure) Unwrap() error {
	return f.Err
}
