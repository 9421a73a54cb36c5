// Package oplog is the append-only write-ahead record of engine
// operations: one compact JSON line per user-initiated call, written
// through atomic appends (a single fully-formed line per write, flushed
// before the call returns). Reads are linear scans with optional
// filters. When the active file grows past a threshold it is rotated to
// a timestamped archive; archives past a configured horizon are
// discarded in creation order.
package oplog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tonimelisma/rmz-go/internal/record"
)

// Log file naming: the active file plus rotated archives carrying their
// rotation time as a unix timestamp.
const (
	activeName    = "operations.log"
	archivePrefix = "operations."
	archiveSuffix = ".log"
)

// filePermissions matches the owner-only policy of the trash root.
const filePermissions = 0o600

// Log owns the operation-log directory.
type Log struct {
	dir         string
	maxBytes    int64
	maxArchives int
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a Log writing under dir, rotating past maxBytes and
// keeping at most maxArchives rotated files.
func New(dir string, maxBytes int64, maxArchives int, logger *slog.Logger) *Log {
	return &Log{
		dir:         dir,
		maxBytes:    maxBytes,
		maxArchives: maxArchives,
		logger:      logger,
		now:         time.Now,
	}
}

// ActivePath returns the current log file path.
func (l *Log) ActivePath() string {
	return filepath.Join(l.dir, activeName)
}

// Append writes one operation record as a single line and flushes it.
// Rotation happens before the write, so a record is never split across
// files.
func (l *Log) Append(op *record.OperationRecord) error {
	line, err := record.EncodeOperation(op)
	if err != nil {
		return err
	}

	if err := l.rotateIfNeeded(); err != nil {
		return err
	}

	f, err := os.OpenFile(l.ActivePath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, filePermissions)
	if err != nil {
		return fmt.Errorf("opening operation log: %w", err)
	}

	if _, err := f.Write(line); err != nil {
		f.Close()

		return fmt.Errorf("appending to operation log: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()

		return fmt.Errorf("flushing operation log: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing operation log: %w", err)
	}

	l.logger.Debug("operation logged", "id", op.ID.String(), "kind", string(op.Kind), "outcome", string(op.Outcome))

	return nil
}

// Filter narrows a log scan. Zero values match everything.
type Filter struct {
	Kind    record.OpKind
	Outcome record.Outcome
	Since   time.Time
	Until   time.Time
}

// matches reports whether an operation passes the filter.
func (f Filter) matches(op *record.OperationRecord) bool {
	if f.Kind != "" && op.Kind != f.Kind {
		return false
	}

	if f.Outcome != "" && op.Outcome != f.Outcome {
		return false
	}

	if !f.Since.IsZero() && op.At.Before(f.Since) {
		return false
	}

	if !f.Until.IsZero() && op.At.After(f.Until) {
		return false
	}

	return true
}

// Walk streams matching operations oldest-first: archives in creation
// order, then the active file. Unparseable lines are warned about and
// skipped — a torn final line after a crash must not hide the rest of
// the history.
func (l *Log) Walk(filter Filter, fn func(*record.OperationRecord) error) error {
	files, err := l.archives()
	if err != nil {
		return err
	}

	files = append(files, l.ActivePath())

	for _, path := range files {
		if err := l.walkFile(path, filter, fn); err != nil {
			return err
		}
	}

	return nil
}

// walkFile scans a single log file.
func (l *Log) walkFile(path string, filter Filter, fn func(*record.OperationRecord) error) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		op, err := record.DecodeOperation(line)
		if err != nil {
			l.logger.Warn("skipping unparseable log line", "file", path, "error", err)

			continue
		}

		if !filter.matches(op) {
			continue
		}

		if err := fn(op); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning %s: %w", path, err)
	}

	return nil
}

// rotateIfNeeded archives the active file once it exceeds the threshold
// and prunes archives past the horizon, oldest first.
func (l *Log) rotateIfNeeded() error {
	info, err := os.Stat(l.ActivePath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("examining operation log: %w", err)
	}

	if info.Size() < l.maxBytes {
		return nil
	}

	archive := filepath.Join(l.dir, fmt.Sprintf("%s%d%s", archivePrefix, l.now().Unix(), archiveSuffix))

	if err := os.Rename(l.ActivePath(), archive); err != nil {
		return fmt.Errorf("rotating operation log: %w", err)
	}

	l.logger.Info("rotated operation log", "archive", archive, "size", info.Size())

	return l.pruneArchives()
}

// pruneArchives removes the oldest archives beyond the configured count.
func (l *Log) pruneArchives() error {
	archives, err := l.archives()
	if err != nil {
		return err
	}

	for len(archives) > l.maxArchives {
		oldest := archives[0]
		archives = archives[1:]

		if err := os.Remove(oldest); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("discarding archive %s: %w", oldest, err)
		}

		l.logger.Info("discarded operation-log archive", "archive", oldest)
	}

	return nil
}

// archives lists rotated log files oldest-first (by the timestamp
// embedded in the name).
func (l *Log) archives() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("listing %s: %w", l.dir, err)
	}

	type stamped struct {
		path string
		ts   int64
	}

	var found []stamped

	for _, entry := range entries {
		name := entry.Name()
		if name == activeName || !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
			continue
		}

		middle := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), archiveSuffix)

		ts, err := strconv.ParseInt(middle, 10, 64)
		if err != nil {
			continue
		}

		found = append(found, stamped{path: filepath.Join(l.dir, name), ts: ts})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].ts < found[j].ts })

	paths := make([]string, len(found))
	for i, s := range found {
		paths[i] = s.path
	}

	return paths, nil
}
