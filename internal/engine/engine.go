// Package engine orchestrates the trash zone: it consults the path
// resolver and protection guard, drives the trash store and meta store
// through the staging, restore, and purge protocols, and records every
// outcome on the operation log. Each top-level call follows the same
// state machine: received → validated → staged → recorded → reported.
// Errors before staging abort without touching disk; errors during
// staging trigger compensation; errors while recording leave an orphan
// and a loud warning for doctor to reconcile.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonimelisma/rmz-go/internal/config"
	"github.com/tonimelisma/rmz-go/internal/guard"
	"github.com/tonimelisma/rmz-go/internal/lockfile"
	"github.com/tonimelisma/rmz-go/internal/metastore"
	"github.com/tonimelisma/rmz-go/internal/oplog"
	"github.com/tonimelisma/rmz-go/internal/record"
	"github.com/tonimelisma/rmz-go/internal/trashstore"
)

// Callbacks are the synchronous integration points for interactive
// collaborators. Any of them may be nil: the engine then behaves
// non-interactively and chooses the safe default (refuse rather than
// guess).
type Callbacks struct {
	// Pick selects one record from candidates; ok=false means the user
	// cancelled.
	Pick func(candidates []*record.FileRecord, prompt string) (choice int, ok bool)

	// Confirm answers a yes/no question.
	Confirm func(question string) bool

	// Progress reports per-path progress during multi-path operations.
	Progress func(current, total int, message string)
}

// pick invokes the Pick callback nil-safely.
func (c Callbacks) pick(candidates []*record.FileRecord, prompt string) (int, bool) {
	if c.Pick == nil {
		return 0, false
	}

	return c.Pick(candidates, prompt)
}

// confirm invokes the Confirm callback nil-safely; no callback means no.
func (c Callbacks) confirm(question string) bool {
	if c.Confirm == nil {
		return false
	}

	return c.Confirm(question)
}

// progress invokes the Progress callback nil-safely.
func (c Callbacks) progress(current, total int, message string) {
	if c.Progress != nil {
		c.Progress(current, total, message)
	}
}

// Engine is the operational surface of the trash zone. It holds no
// long-lived state beyond configuration and store handles; every
// top-level call acquires what it needs, works, and releases.
type Engine struct {
	root   string
	cfg    *config.Config
	guard  *guard.Guard
	meta   *metastore.Store
	trash  *trashstore.Store
	oplog  *oplog.Log
	logger *slog.Logger
	ui     Callbacks

	// now is the clock, overridable in tests for age-based purges.
	now func() time.Time
}

// Open initializes the engine over the given trash root: the directory
// layout is created on first use and the protected set is loaded
// (seeding the defaults on first run).
func Open(root string, cfg *config.Config, ui Callbacks, logger *slog.Logger) (*Engine, error) {
	if err := config.EnsureLayout(root); err != nil {
		return nil, err
	}

	protected, err := config.LoadProtected(config.ProtectedPath(root), logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		root:   root,
		cfg:    cfg,
		guard:  guard.New(protected),
		meta:   metastore.New(config.MetaDir(root), logger),
		trash:  trashstore.New(config.TrashDir(root), logger),
		oplog:  oplog.New(config.LogDir(root), cfg.LogMaxBytes, cfg.LogMaxArchives, logger),
		logger: logger,
		ui:     ui,
		now:    time.Now,
	}, nil
}

// Root returns the trash root directory.
func (e *Engine) Root() string {
	return e.root
}

// Guard exposes the protection guard for read-only queries.
func (e *Engine) Guard() *guard.Guard {
	return e.guard
}

// OperationLog exposes the log for read-only scans (the `log` command).
func (e *Engine) OperationLog() *oplog.Log {
	return e.oplog
}

// lock serializes mutating operations across processes.
func (e *Engine) lock(ctx context.Context) (*lockfile.Lock, error) {
	return lockfile.Acquire(ctx, config.LockPath(e.root), e.logger)
}

// walkRecords enumerates metadata records, translating store errors
// into the engine taxonomy. An integrity violation (duplicate
// identifier on disk) aborts the whole call rather than skipping the
// offending record.
func (e *Engine) walkRecords(fn func(*record.FileRecord) error, corrupt func(path string, err error)) error {
	return e.storeErr(e.meta.Walk(fn, corrupt))
}

// storeErr maps metastore sentinels onto the engine taxonomy.
func (e *Engine) storeErr(err error) error {
	if errors.Is(err, metastore.ErrIntegrity) {
		return fmt.Errorf("%w: %w", ErrIntegrity, err)
	}

	return err
}

// recordOperation appends the operation record, warning loudly instead
// of failing the call: at this point payloads and metadata are already
// durable and self-consistent, only the audit trail is missing.
func (e *Engine) recordOperation(op *record.OperationRecord) {
	if err := e.oplog.Append(op); err != nil {
		e.logger.Error("operation completed but could not be logged", "id", op.ID.String(), "kind", string(op.Kind), "error", err)
	}
}

// newOperation builds an operation record grouping the given file
// records.
func (e *Engine) newOperation(kind record.OpKind, fileIDs []record.ID, outcome record.Outcome, message string) *record.OperationRecord {
	return &record.OperationRecord{
		ID:      record.NewID(),
		Kind:    kind,
		At:      e.now().UTC(),
		FileIDs: fileIDs,
		Outcome: outcome,
		Message: message,
	}
}
