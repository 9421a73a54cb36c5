// Package trashstore owns the payload directory of the trash zone:
// <root>/trash/<YYYY-MM-DD>/<identifier>-<basename>. It moves filesystem
// objects in (staging), out (restore), and removes them permanently
// (purge), with an atomic same-volume rename fast path and a
// copy-then-remove fallback for cross-device moves.
//
// The store never touches metadata files; the engine coordinates it with
// the meta store and compensates when one side fails.
package trashstore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tonimelisma/rmz-go/internal/record"
)

// dateLayout names the per-day payload subdirectories (UTC date of
// staging).
const dateLayout = "2006-01-02"

// purgingSuffix marks a payload whose permanent removal started but has
// not been confirmed complete. While the sentinel exists the record must
// survive, so a crashed purge is retried rather than forgotten.
const purgingSuffix = ".purging"

// tmpSuffix marks an in-flight cross-device copy destination.
const tmpSuffix = ".tmp"

// dirPermissions applies to date subdirectories (owner only, matching
// the root).
const dirPermissions = 0o700

// Store owns the payload tree under one directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates a Store over the payload directory <root>/trash.
func New(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// payloadName builds the on-disk name: the identifier, a separator, and
// the original basename for human inspection. Lookup always parses the
// identifier back out of the prefix; the basename is cosmetic.
func payloadName(id record.ID, basename string) string {
	return id.String() + "-" + basename
}

// PayloadPath returns the expected payload location for a record.
func (s *Store) PayloadPath(rec *record.FileRecord) string {
	date := rec.DeletedAt.UTC().Format(dateLayout)

	return filepath.Join(s.dir, date, payloadName(rec.ID, rec.Basename()))
}

// FindPayload locates a record's payload. The fast path stats the
// expected location; if the basename drifted (hand-renamed payloads) the
// record's date directory is scanned for the identifier prefix.
func (s *Store) FindPayload(rec *record.FileRecord) (string, bool) {
	expected := s.PayloadPath(rec)
	if _, err := os.Lstat(expected); err == nil {
		return expected, true
	}

	dateDir := filepath.Dir(expected)

	entries, err := os.ReadDir(dateDir)
	if err != nil {
		return "", false
	}

	prefix := rec.ID.String() + "-"

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, prefix) && !strings.HasSuffix(name, purgingSuffix) && !strings.HasSuffix(name, tmpSuffix) {
			return filepath.Join(dateDir, name), true
		}
	}

	return "", false
}

// Stage moves the object at src into the trash under the given identity
// and staging time. On success the payload location is returned. On
// failure src is untouched: the same-volume path is an atomic rename,
// and the cross-device path removes src only after the copy has been
// fully committed.
func (s *Store) Stage(src string, id record.ID, deletedAt time.Time) (string, error) {
	dateDir := filepath.Join(s.dir, deletedAt.UTC().Format(dateLayout))
	if err := os.MkdirAll(dateDir, dirPermissions); err != nil {
		return "", fmt.Errorf("creating %s: %w", dateDir, err)
	}

	dest := filepath.Join(dateDir, payloadName(id, filepath.Base(src)))

	if err := moveEntry(src, dest); err != nil {
		return "", fmt.Errorf("staging %s: %w", src, err)
	}

	s.logger.Debug("payload staged", "src", src, "dest", dest)

	return dest, nil
}

// Unstage is the compensation for a failed metadata write: it moves a
// just-staged payload back to its original location. Best-effort by
// contract — the caller logs an orphan when this fails too.
func (s *Store) Unstage(payload, original string) error {
	if err := moveEntry(payload, original); err != nil {
		return fmt.Errorf("moving %s back to %s: %w", payload, original, err)
	}

	s.logger.Debug("payload unstaged", "payload", payload, "original", original)

	return nil
}

// Restore moves a record's payload to the target path. The target's
// parent directories are created as needed; permission bits from the
// record are reapplied best-effort (a warning is logged on failure,
// symlinks keep their own semantics).
func (s *Store) Restore(rec *record.FileRecord, target string) error {
	payload, ok := s.FindPayload(rec)
	if !ok {
		return fmt.Errorf("record %s: payload missing from %s", rec.ID.Short(), s.PayloadPath(rec))
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o777); err != nil {
		return fmt.Errorf("creating parent of %s: %w", target, err)
	}

	if err := moveEntry(payload, target); err != nil {
		return fmt.Errorf("restoring %s: %w", target, err)
	}

	if rec.Kind != record.KindSymlink {
		if err := os.Chmod(target, rec.FileMode()); err != nil {
			s.logger.Warn("could not restore permissions", "path", target, "mode", rec.FileMode().String(), "error", err)
		}
	}

	s.logger.Debug("payload restored", "payload", payload, "target", target)

	return nil
}

// Purge permanently removes a record's payload. A sibling sentinel file
// marks the removal in progress; it is cleared only after the payload is
// fully gone, so an interrupted purge is resumed on the next attempt
// instead of stranding a half-deleted tree with no record. Purging a
// record whose payload is already absent succeeds silently.
func (s *Store) Purge(rec *record.FileRecord) error {
	payload, ok := s.FindPayload(rec)
	if !ok {
		s.logger.Debug("purge of absent payload", "id", rec.ID.String())

		return nil
	}

	return s.removePayload(payload)
}

// removePayload runs the sentinel-guarded removal of one payload path.
func (s *Store) removePayload(payload string) error {
	sentinel := payload + purgingSuffix

	f, err := os.OpenFile(sentinel, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("marking purge of %s: %w", payload, err)
	}

	f.Close()

	if err := os.RemoveAll(payload); err != nil {
		// Sentinel stays; the next purge or doctor run retries.
		return fmt.Errorf("removing %s: %w", payload, err)
	}

	if err := os.Remove(sentinel); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearing purge marker %s: %w", sentinel, err)
	}

	return nil
}

// Payload is one object found in the payload tree.
type Payload struct {
	// ID parsed from the leading segment of the payload name; zero when
	// the name does not carry a well-formed identifier.
	ID record.ID

	// Path of the payload on disk.
	Path string

	// Size on disk (recursive for directories).
	Size int64
}

// Walk enumerates every payload in date order, tolerating entries
// appearing or disappearing mid-scan. Sentinels and temp files are
// skipped; they are surfaced separately by Debris.
func (s *Store) Walk(fn func(Payload) error) error {
	dates, err := s.dateDirs()
	if err != nil {
		return err
	}

	for _, date := range dates {
		dateDir := filepath.Join(s.dir, date)

		entries, err := os.ReadDir(dateDir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}

			return fmt.Errorf("listing %s: %w", dateDir, err)
		}

		for _, entry := range entries {
			name := entry.Name()
			if strings.HasSuffix(name, purgingSuffix) || strings.HasSuffix(name, tmpSuffix) {
				continue
			}

			path := filepath.Join(dateDir, name)

			size, err := entrySize(path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue
				}

				return err
			}

			p := Payload{Path: path, Size: size}

			// Names are <uuid>-<basename>; the identifier occupies the
			// first 36 characters.
			if len(name) > 36 && name[36] == '-' {
				if id, err := record.ParseID(name[:36]); err == nil {
					p.ID = id
				}
			}

			if err := fn(p); err != nil {
				return err
			}
		}
	}

	return nil
}

// TotalSize sums the on-disk size of every payload.
func (s *Store) TotalSize() (int64, error) {
	var total int64

	err := s.Walk(func(p Payload) error {
		total += p.Size

		return nil
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

// Debris reports leftover purge sentinels and cross-device temp files,
// for doctor to resume or clean.
func (s *Store) Debris() (sentinels, temps []string, err error) {
	dates, err := s.dateDirs()
	if err != nil {
		return nil, nil, err
	}

	for _, date := range dates {
		dateDir := filepath.Join(s.dir, date)

		entries, err := os.ReadDir(dateDir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}

			return nil, nil, fmt.Errorf("listing %s: %w", dateDir, err)
		}

		for _, entry := range entries {
			name := entry.Name()

			switch {
			case strings.HasSuffix(name, purgingSuffix):
				sentinels = append(sentinels, filepath.Join(dateDir, name))
			case strings.HasSuffix(name, tmpSuffix):
				temps = append(temps, filepath.Join(dateDir, name))
			}
		}
	}

	return sentinels, temps, nil
}

// Adopt gives an orphan payload a fresh identity: it is renamed within
// its date directory to carry the new identifier, so a reconstructed
// record's expected payload location matches reality. Returns the new
// path, the staging time implied by the date directory (falling back to
// the payload's mtime for strays outside a date dir), and the basename
// with any stale identifier prefix stripped.
func (s *Store) Adopt(path string, id record.ID) (newPath string, deletedAt time.Time, base string, err error) {
	name := filepath.Base(path)

	base = name
	if len(name) > 36 && name[36] == '-' {
		if _, parseErr := record.ParseID(name[:36]); parseErr == nil {
			base = name[37:]
		}
	}

	dateDir := filepath.Dir(path)

	deletedAt, err = time.Parse(dateLayout, filepath.Base(dateDir))
	if err != nil {
		info, statErr := os.Lstat(path)
		if statErr != nil {
			return "", time.Time{}, "", fmt.Errorf("examining %s: %w", path, statErr)
		}

		deletedAt = info.ModTime().UTC()

		// Relocate strays into the date directory their record will name.
		dateDir = filepath.Join(s.dir, deletedAt.Format(dateLayout))
		if err := os.MkdirAll(dateDir, dirPermissions); err != nil {
			return "", time.Time{}, "", fmt.Errorf("creating %s: %w", dateDir, err)
		}
	}

	newPath = filepath.Join(dateDir, payloadName(id, base))

	if err := os.Rename(path, newPath); err != nil {
		return "", time.Time{}, "", fmt.Errorf("renaming %s: %w", path, err)
	}

	return newPath, deletedAt, base, nil
}

// RemoveDebris deletes leftover staging temp files.
func (s *Store) RemoveDebris(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("removing debris %s: %w", path, err)
	}

	s.logger.Info("removed staging debris", "path", path)

	return nil
}

// ResumePurge finishes the removal a sentinel records: the payload (if
// still present) is removed and the sentinel cleared.
func (s *Store) ResumePurge(sentinel string) error {
	payload := strings.TrimSuffix(sentinel, purgingSuffix)

	if err := os.RemoveAll(payload); err != nil {
		return fmt.Errorf("resuming purge of %s: %w", payload, err)
	}

	if err := os.Remove(sentinel); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearing purge marker %s: %w", sentinel, err)
	}

	s.logger.Info("resumed interrupted purge", "payload", payload)

	return nil
}

// DateRange returns the oldest and newest date directories holding any
// payload, as staging dates.
func (s *Store) DateRange() (oldest, newest string, err error) {
	dates, err := s.dateDirs()
	if err != nil {
		return "", "", err
	}

	for _, date := range dates {
		entries, err := os.ReadDir(filepath.Join(s.dir, date))
		if err != nil || len(entries) == 0 {
			continue
		}

		if oldest == "" {
			oldest = date
		}

		newest = date
	}

	return oldest, newest, nil
}

// dateDirs lists date subdirectories in ascending order.
func (s *Store) dateDirs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("listing %s: %w", s.dir, err)
	}

	dates := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		if _, err := time.Parse(dateLayout, entry.Name()); err != nil {
			continue
		}

		dates = append(dates, entry.Name())
	}

	sort.Strings(dates)

	return dates, nil
}

// entrySize returns the on-disk size of a payload: the lstat size for
// files and symlinks, the recursive sum of regular-file sizes for
// directories.
func entrySize(path string) (int64, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return 0, err
	}

	if !info.IsDir() {
		return info.Size(), nil
	}

	return DirSize(path)
}

// DirSize sums the sizes of all regular files under dir, without
// following symlinks. This is the "size" a directory FileRecord carries.
func DirSize(dir string) (int64, error) {
	var total int64

	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}

			total += info.Size()
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("sizing %s: %w", dir, err)
	}

	return total, nil
}
