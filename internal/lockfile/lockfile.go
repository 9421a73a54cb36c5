// Package lockfile serializes mutating operations across processes with
// a single advisory lock file under the trash root. Readers never take
// the lock; they tolerate records appearing or disappearing mid-scan.
//
// The lock file carries the holder's PID so a stale file (dead owner,
// old mtime) can be reclaimed with a warning rather than wedging the
// trash zone forever.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrLocked is returned when another process holds the mutating lock
// after retries are exhausted.
var ErrLocked = errors.New("another rmz process holds the lock")

// staleAge is how old a lock file must be, with no live owner, before a
// contender may reclaim it.
const staleAge = 10 * time.Minute

// Acquisition retries: brief constant backoff so back-to-back CLI calls
// queue instead of failing instantly.
const (
	retryInterval = 100 * time.Millisecond
	retryAttempts = 10
)

// filePermissions matches the owner-only policy of the trash root.
const filePermissions = 0o600

// Lock is a held advisory lock. Release it when the mutating operation
// completes.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes the advisory lock at path, retrying briefly on
// contention and reclaiming stale locks. Returns ErrLocked when a live
// holder persists through the retry window.
func Acquire(ctx context.Context, path string, logger *slog.Logger) (*Lock, error) {
	var lock *Lock

	backoff := retry.WithMaxRetries(retryAttempts, retry.NewConstant(retryInterval))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		l, err := tryAcquire(path, logger)
		if err != nil {
			return retry.RetryableError(err)
		}

		lock = l

		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, fmt.Errorf("%w (lock file %s)", ErrLocked, path)
	}

	return lock, nil
}

// tryAcquire makes one non-blocking attempt, handling stale reclaim.
func tryAcquire(path string, logger *slog.Logger) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := flock(f); err != nil {
		f.Close()

		if reclaimStale(path, logger) {
			return nil, fmt.Errorf("reclaimed stale lock, retrying")
		}

		return nil, fmt.Errorf("lock held: %w", err)
	}

	// Record our PID for stale-lock diagnosis by other processes.
	if err := f.Truncate(0); err != nil {
		funlock(f)
		f.Close()

		return nil, fmt.Errorf("truncating lock file: %w", err)
	}

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		funlock(f)
		f.Close()

		return nil, fmt.Errorf("writing lock file: %w", err)
	}

	if err := f.Sync(); err != nil {
		funlock(f)
		f.Close()

		return nil, fmt.Errorf("syncing lock file: %w", err)
	}

	return &Lock{path: path, file: f}, nil
}

// reclaimStale removes a lock file whose recorded owner is gone and
// whose mtime is old enough. Returns true when the file was removed and
// acquisition should be retried. The flock itself dies with its holder
// on local filesystems; this path covers filesystems where the lock
// state outlives the process.
func reclaimStale(path string, logger *slog.Logger) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	if time.Since(info.ModTime()) < staleAge {
		return false
	}

	pid, err := readPID(path)
	if err == nil && processAlive(pid) {
		return false
	}

	if err := os.Remove(path); err != nil {
		return false
	}

	logger.Warn("reclaimed stale lock file", "path", path, "age", time.Since(info.ModTime()).Round(time.Second).String())

	return true
}

// readPID parses the owner PID recorded in the lock file.
func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in %s: %w", path, err)
	}

	return pid, nil
}

// Release drops the lock and removes the file. Safe to call once.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}

	os.Remove(l.path)
	funlock(l.file)
	l.file.Close()
	l.file = nil
}
