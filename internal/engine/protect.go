package engine

import (
	"context"
	"fmt"

	"github.com/tonimelisma/rmz-go/internal/config"
	"github.com/tonimelisma/rmz-go/internal/record"
	"github.com/tonimelisma/rmz-go/internal/resolve"
)

// ProtectAdd canonicalizes the path and adds it to the protected set,
// persisting the set atomically. The path need not exist — protecting a
// mount point before anything is mounted there is legitimate.
func (e *Engine) ProtectAdd(ctx context.Context, path string) error {
	res, err := resolve.Resolve(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	lock, err := e.lock(ctx)
	if err != nil {
		return err
	}
	defer lock.Release()

	if err := e.guard.Add(res.Path); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	if err := e.saveProtected(); err != nil {
		return err
	}

	e.recordOperation(e.newOperation(record.OpProtectAdd, nil, record.OutcomeOK, "protected "+res.Path))

	return nil
}

// ProtectRemove removes an entry by canonicalized equality and persists
// the set.
func (e *Engine) ProtectRemove(ctx context.Context, path string) error {
	res, err := resolve.Resolve(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	lock, err := e.lock(ctx)
	if err != nil {
		return err
	}
	defer lock.Release()

	if err := e.guard.Remove(res.Path); err != nil {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	if err := e.saveProtected(); err != nil {
		return err
	}

	e.recordOperation(e.newOperation(record.OpProtectRemove, nil, record.OutcomeOK, "unprotected "+res.Path))

	return nil
}

// ProtectList returns the protected entries sorted by path.
func (e *Engine) ProtectList() []config.ProtectedEntry {
	return e.guard.Sorted()
}

// saveProtected persists the guard's current entries.
func (e *Engine) saveProtected() error {
	return config.SaveProtected(config.ProtectedPath(e.root), e.guard.Entries(), e.logger)
}
