// Package metastore owns FileRecord bytes on disk: one JSON file per
// record under <root>/meta/, named <id>.json. Writes are atomic (sibling
// temp file + fsync + rename), reads tolerate stray temp files, and
// enumeration is lazy — records stream through a callback without
// loading the whole directory's contents into memory.
package metastore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tonimelisma/rmz-go/internal/atomicfile"
	"github.com/tonimelisma/rmz-go/internal/record"
)

// recordExt is the metadata file extension.
const recordExt = ".json"

// filePermissions matches the owner-only policy of the trash root.
const filePermissions = 0o600

// ErrNotFound is returned when no record exists for an identifier.
var ErrNotFound = errors.New("record not found")

// ErrExists is returned when a write would clobber an existing record.
// Identifiers are random across a 128-bit space, so hitting this means
// either an engine bug or a genuine (negligible-probability) collision;
// either way the store refuses.
var ErrExists = errors.New("record already exists")

// ErrIntegrity is returned when the store's naming invariant is broken:
// a record file whose contents claim a different identifier than its
// name. Files are named by identifier, so this is how two records
// sharing one identifier manifests on disk. Unlike an unparseable
// record (reported and skipped), this is fatal — enumeration aborts and
// the caller must surface it.
var ErrIntegrity = errors.New("metadata integrity violation")

// AmbiguousError reports an identifier prefix that matches more than one
// record. Candidates are sorted by deletion time, newest first, so the
// caller can present a stable list.
type AmbiguousError struct {
	Prefix     string
	Candidates []*record.FileRecord
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("identifier prefix %q matches %d records", e.Prefix, len(e.Candidates))
}

// Store persists and retrieves FileRecords under a single directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates a Store rooted at dir. The directory is created by the
// engine's layout bootstrap, not here.
func New(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// Path returns the metadata file path for an identifier.
func (s *Store) Path(id record.ID) string {
	return filepath.Join(s.dir, id.String()+recordExt)
}

// Write persists a new record atomically. The record must not already
// exist — records are immutable once sealed except for deletion.
func (s *Store) Write(rec *record.FileRecord) error {
	path := s.Path(rec.ID)

	if _, err := os.Lstat(path); err == nil {
		return fmt.Errorf("record %s: %w", rec.ID, ErrExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	data, err := record.EncodeFile(rec)
	if err != nil {
		return err
	}

	if err := atomicfile.Write(path, data, filePermissions); err != nil {
		return fmt.Errorf("writing record %s: %w", rec.ID.Short(), err)
	}

	s.logger.Debug("record written", "id", rec.ID.String(), "path", rec.OriginalPath)

	return nil
}

// Read loads one record by full identifier.
func (s *Store) Read(id record.ID) (*record.FileRecord, error) {
	data, err := os.ReadFile(s.Path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("record %s: %w", id.Short(), ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", id.Short(), err)
	}

	rec, err := record.DecodeFile(data)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", id.Short(), err)
	}

	if rec.ID != id {
		return nil, fmt.Errorf("%w: record file %s claims identifier %s", ErrIntegrity, s.Path(id), rec.ID)
	}

	return rec, nil
}

// Delete removes one record. Deleting an absent record reports
// ErrNotFound so purge can distinguish the no-op case.
func (s *Store) Delete(id record.ID) error {
	err := os.Remove(s.Path(id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("record %s: %w", id.Short(), ErrNotFound)
	}

	if err != nil {
		return fmt.Errorf("deleting record %s: %w", id.Short(), err)
	}

	return nil
}

// Walk streams every record through fn in identifier order. A record
// that fails to parse is reported through corrupt (if non-nil) and
// skipped; enumeration continues. A record whose file name disagrees
// with its claimed identifier is a duplicate-identifier violation and
// aborts the walk with ErrIntegrity. fn returning an error stops the
// walk and propagates the error.
func (s *Store) Walk(fn func(*record.FileRecord) error, corrupt func(path string, err error)) error {
	names, err := s.recordNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		path := filepath.Join(s.dir, name)

		data, err := os.ReadFile(path)
		if err != nil {
			// Records may disappear mid-walk when a concurrent restore or
			// purge completes; that is not corruption.
			if errors.Is(err, os.ErrNotExist) {
				continue
			}

			return fmt.Errorf("reading %s: %w", path, err)
		}

		rec, err := record.DecodeFile(data)
		if err != nil {
			if corrupt != nil {
				corrupt(path, err)
			} else {
				s.logger.Warn("skipping corrupt record", "path", path, "error", err)
			}

			continue
		}

		if rec.ID.String()+recordExt != name {
			return fmt.Errorf("%w: record file %s claims identifier %s", ErrIntegrity, path, rec.ID)
		}

		if err := fn(rec); err != nil {
			return err
		}
	}

	return nil
}

// FindByPrefix resolves an identifier prefix. A unique match returns the
// record; multiple matches return an AmbiguousError carrying the
// candidates; no match returns ErrNotFound.
func (s *Store) FindByPrefix(prefix string) (*record.FileRecord, error) {
	if len(prefix) < record.MinPrefixLength {
		return nil, fmt.Errorf("identifier prefix %q shorter than %d characters", prefix, record.MinPrefixLength)
	}

	lower := strings.ToLower(prefix)

	var matches []*record.FileRecord

	err := s.Walk(func(rec *record.FileRecord) error {
		if rec.ID.HasPrefix(lower) {
			matches = append(matches, rec)
		}

		return nil
	}, nil)
	if err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("identifier prefix %q: %w", prefix, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].DeletedAt.After(matches[j].DeletedAt)
		})

		return nil, &AmbiguousError{Prefix: prefix, Candidates: matches}
	}
}

// Count returns the number of well-formed records.
func (s *Store) Count() (int, error) {
	n := 0

	err := s.Walk(func(*record.FileRecord) error {
		n++

		return nil
	}, func(string, error) {})
	if err != nil {
		return 0, err
	}

	return n, nil
}

// recordNames lists metadata file names in sorted order, ignoring temp
// files and anything that is not a record.
func (s *Store) recordNames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("listing %s: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordExt) || strings.HasPrefix(name, ".") {
			continue
		}

		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}
