package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/tonimelisma/rmz-go/internal/digest"
	"github.com/tonimelisma/rmz-go/internal/record"
	"github.com/tonimelisma/rmz-go/internal/resolve"
	"github.com/tonimelisma/rmz-go/internal/trashstore"
)

// DeleteOptions control a delete call.
type DeleteOptions struct {
	// Force skips per-path confirmation. Protected paths are still
	// refused — force never overrides the guard.
	Force bool

	// DryRun computes and returns the plan without touching disk.
	DryRun bool

	// Interactive requests confirmation per path via the Confirm
	// callback.
	Interactive bool

	// Tag is attached to every record produced by this call.
	Tag string

	// Verbose emits per-path progress through the Progress callback.
	Verbose bool
}

// PlannedDelete is one entry of a dry-run plan.
type PlannedDelete struct {
	Arg  string
	Path string
	Kind record.Kind
}

// DeleteResult reports what a delete call did.
type DeleteResult struct {
	OpID    record.ID
	Staged  []*record.FileRecord
	Failed  []PathFailure
	Skipped []string // declined by the user, not counted as failures
	Planned []PlannedDelete
	Outcome record.Outcome
	DryRun  bool
}

// Delete stages the given paths into the trash zone. Per-path errors are
// collected; surviving paths proceed independently. Within the call,
// each record is durable before the next path's rename begins, so a
// crash leaves at most one half-staged path.
func (e *Engine) Delete(ctx context.Context, paths []string, opts DeleteOptions) (*DeleteResult, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no paths given", ErrInvalidArgument)
	}

	if opts.Tag != "" {
		if err := record.ValidateTag(opts.Tag); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	}

	result := &DeleteResult{DryRun: opts.DryRun}

	// Validation pass: resolve and guard every path before any staging.
	var accepted []*resolve.Resolved

	for _, arg := range paths {
		res, failure := e.validateDeletePath(arg)
		if failure != nil {
			result.Failed = append(result.Failed, *failure)

			continue
		}

		accepted = append(accepted, res)
	}

	if opts.DryRun {
		for _, res := range accepted {
			result.Planned = append(result.Planned, PlannedDelete{
				Arg:  res.Arg,
				Path: res.Path,
				Kind: kindOf(res.Kind),
			})
		}

		result.Outcome = record.OutcomeOf(len(accepted), len(result.Failed))

		return result, nil
	}

	lock, err := e.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	deletedAt := e.now().UTC()

	for i, res := range accepted {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if opts.Interactive && !opts.Force {
			if !e.ui.confirm(fmt.Sprintf("delete %s?", res.Path)) {
				result.Skipped = append(result.Skipped, res.Path)

				continue
			}
		}

		if opts.Verbose {
			e.ui.progress(i+1, len(accepted), res.Path)
		}

		rec, err := e.stageOne(res, opts.Tag, deletedAt)
		if err != nil {
			result.Failed = append(result.Failed, PathFailure{Arg: res.Arg, Path: res.Path, Err: err})

			continue
		}

		result.Staged = append(result.Staged, rec)
	}

	result.Outcome = record.OutcomeOf(len(result.Staged), len(result.Failed))

	ids := make([]record.ID, 0, len(result.Staged))
	for _, rec := range result.Staged {
		ids = append(ids, rec.ID)
	}

	op := e.newOperation(record.OpDelete, ids, result.Outcome, deleteMessage(result))
	e.recordOperation(op)
	result.OpID = op.ID

	return result, nil
}

// validateDeletePath runs the pre-staging checks for one argument:
// resolution, existence, stageable kind, and the protection guard.
func (e *Engine) validateDeletePath(arg string) (*resolve.Resolved, *PathFailure) {
	res, err := resolve.Resolve(arg)
	if err != nil {
		return nil, &PathFailure{Arg: arg, Path: arg, Err: fmt.Errorf("%w: %v", ErrInvalidArgument, err)}
	}

	if !res.Exists {
		return nil, &PathFailure{Arg: arg, Path: res.Path, Err: fmt.Errorf("%w: %s", ErrNotFound, res.Path)}
	}

	if res.Kind == resolve.KindOther {
		return nil, &PathFailure{Arg: arg, Path: res.Path, Err: fmt.Errorf("%w: %s is not a file, directory, or symlink", ErrInvalidArgument, res.Path)}
	}

	if protected, by := e.guard.IsProtected(res.Path); protected {
		return nil, &PathFailure{Arg: arg, Path: res.Path, Err: fmt.Errorf("%w: %s (protected by %s)", ErrProtected, res.Path, by)}
	}

	return res, nil
}

// stageOne runs the staging protocol for one resolved path: capture size
// and mode before the move, move the payload in, digest it in place, and
// persist the record durably. A metadata failure inverts the move; if
// even that fails the payload is logged as an orphan for doctor.
func (e *Engine) stageOne(res *resolve.Resolved, tag string, deletedAt time.Time) (*record.FileRecord, error) {
	// Size and permissions are captured before the rename: afterwards the
	// source is gone.
	size := res.Size
	if res.Kind == resolve.KindDir {
		dirSize, err := trashstore.DirSize(res.Path)
		if err != nil {
			return nil, err
		}

		size = dirSize
	}

	id := record.NewID()

	payload, err := e.trash.Stage(res.Path, id, deletedAt)
	if err != nil {
		return nil, err
	}

	// The digest is advisory and computed after staging completed, before
	// the record is sealed. A digest failure does not unwind the stage.
	sum, err := digest.Tree(payload)
	if err != nil {
		e.logger.Warn("could not digest staged payload", "payload", payload, "error", err)

		sum = ""
	}

	rec := &record.FileRecord{
		ID:           id,
		OriginalPath: res.Path,
		DeletedAt:    deletedAt,
		Size:         size,
		Mode:         uint32(res.Mode.Perm()),
		Kind:         kindOf(res.Kind),
		Tags:         record.NormalizeTags([]string{tag}),
		Digest:       sum,
		Device:       res.Device,
	}

	if err := e.meta.Write(rec); err != nil {
		// Compensation: put the payload back so the user's file is not
		// stranded in the trash without a record.
		if unstageErr := e.trash.Unstage(payload, res.Path); unstageErr != nil {
			e.logger.Error("orphan payload: metadata write failed and payload could not be moved back; run doctor",
				"payload", payload, "original", res.Path, "write_error", err, "unstage_error", unstageErr)
		}

		return nil, err
	}

	return rec, nil
}

// kindOf maps resolver kinds to record kinds. KindOther never reaches
// here — validation refuses it.
func kindOf(k resolve.Kind) record.Kind {
	switch k {
	case resolve.KindDir:
		return record.KindDir
	case resolve.KindSymlink:
		return record.KindSymlink
	default:
		return record.KindFile
	}
}

// deleteMessage summarizes the call for the operation log.
func deleteMessage(r *DeleteResult) string {
	switch {
	case len(r.Failed) == 0:
		return fmt.Sprintf("deleted %d path(s)", len(r.Staged))
	case len(r.Staged) == 0:
		return fmt.Sprintf("all %d path(s) failed", len(r.Failed))
	default:
		return fmt.Sprintf("deleted %d path(s), %d failed", len(r.Staged), len(r.Failed))
	}
}
