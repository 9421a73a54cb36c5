package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tonimelisma/rmz-go/internal/digest"
	"github.com/tonimelisma/rmz-go/internal/record"
)

// displacedTag marks records created as a side effect of restore
// --force: the file that occupied the target path is staged into the
// trash before the restore proceeds.
const displacedTag = "restore-displaced"

// restoredSuffix is the base of the `.restored-<n>` suffix appended by
// the rename conflict policy.
const restoredSuffix = ".restored-"

// RestoreOptions control a restore call.
type RestoreOptions struct {
	// Force moves an existing file at the target into the trash (as a
	// new record tagged restore-displaced) and proceeds.
	Force bool

	// Rename appends ".restored-<n>" with the smallest unused n when the
	// target exists.
	Rename bool

	// DryRun reports what would be restored without touching disk.
	DryRun bool

	// Interactive resolves ambiguous selectors through the Pick
	// callback.
	Interactive bool
}

// RestoredFile reports one successful restoration.
type RestoredFile struct {
	ID     record.ID
	Target string

	// Displaced is the record created for a pre-existing target under
	// --force, zero otherwise.
	Displaced record.ID

	// DigestMismatch is set when the advisory digest recomputation
	// disagreed with the sealed record.
	DigestMismatch bool
}

// RestoreResult reports what a restore call did.
type RestoreResult struct {
	OpID     record.ID
	Restored []RestoredFile
	Failed   []PathFailure
	Planned  []RestoredFile
	Outcome  record.Outcome
	DryRun   bool
}

// Restore moves staged payloads back to their original locations,
// applying the conflict policy at each target. Per-record failures are
// collected; the rest of the set proceeds.
func (e *Engine) Restore(ctx context.Context, sel Selector, opts RestoreOptions) (*RestoreResult, error) {
	if opts.Force && opts.Rename {
		return nil, fmt.Errorf("%w: force and rename are mutually exclusive", ErrInvalidArgument)
	}

	records, err := e.selectRecords(sel, opts.Interactive)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{DryRun: opts.DryRun}

	if opts.DryRun {
		for _, rec := range records {
			result.Planned = append(result.Planned, RestoredFile{ID: rec.ID, Target: rec.OriginalPath})
		}

		result.Outcome = record.OutcomeOK

		return result, nil
	}

	lock, err := e.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	for i, rec := range records {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		e.ui.progress(i+1, len(records), rec.OriginalPath)

		restored, err := e.restoreOne(rec, opts)
		if err != nil {
			result.Failed = append(result.Failed, PathFailure{Path: rec.OriginalPath, ID: rec.ID, Err: err})

			continue
		}

		result.Restored = append(result.Restored, *restored)
	}

	result.Outcome = record.OutcomeOf(len(result.Restored), len(result.Failed))

	ids := make([]record.ID, 0, len(result.Restored))
	for _, r := range result.Restored {
		ids = append(ids, r.ID)
	}

	op := e.newOperation(record.OpRestore, ids, result.Outcome, restoreMessage(result))
	e.recordOperation(op)
	result.OpID = op.ID

	return result, nil
}

// restoreOne applies the conflict policy and runs the restore protocol
// for a single record.
func (e *Engine) restoreOne(rec *record.FileRecord, opts RestoreOptions) (*RestoredFile, error) {
	target := rec.OriginalPath
	restored := &RestoredFile{ID: rec.ID}

	if _, err := os.Lstat(target); err == nil {
		switch {
		case opts.Force:
			displaced, err := e.displaceTarget(target)
			if err != nil {
				return nil, fmt.Errorf("displacing %s: %w", target, err)
			}

			restored.Displaced = displaced

		case opts.Rename:
			renamed, err := firstUnusedSuffix(target)
			if err != nil {
				return nil, err
			}

			target = renamed

		default:
			return nil, fmt.Errorf("%w: %s", ErrTargetExists, target)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("examining %s: %w", target, err)
	}

	// Advisory digest check happens against the payload before the move
	// so a mismatch is reported even though the restore proceeds.
	if rec.Digest != "" {
		if payload, ok := e.trashPayload(rec); ok {
			match, got, err := digest.Verify(payload, rec.Digest)
			if err != nil {
				e.logger.Warn("could not verify digest before restore", "id", rec.ID.Short(), "error", err)
			} else if !match {
				e.logger.Warn("digest mismatch on restore", "id", rec.ID.Short(), "want", rec.Digest, "got", got)

				restored.DigestMismatch = true
			}
		}
	}

	if err := e.trash.Restore(rec, target); err != nil {
		return nil, err
	}

	if err := e.meta.Delete(rec.ID); err != nil {
		// The payload is back at the target but the record remains; the
		// record is now an orphan that doctor can clear.
		e.logger.Error("restored payload but could not delete record; run doctor", "id", rec.ID.String(), "error", err)

		return nil, fmt.Errorf("deleting record after restore: %w", err)
	}

	restored.Target = target

	return restored, nil
}

// displaceTarget stages the existing file at target into the trash as a
// fresh record tagged restore-displaced.
func (e *Engine) displaceTarget(target string) (record.ID, error) {
	res, failure := e.validateDeletePath(target)
	if failure != nil {
		return record.ID{}, failure.Err
	}

	rec, err := e.stageOne(res, displacedTag, e.now().UTC())
	if err != nil {
		return record.ID{}, err
	}

	return rec.ID, nil
}

// firstUnusedSuffix finds the smallest positive n such that
// "<path>.restored-<n>" does not exist.
func firstUnusedSuffix(path string) (string, error) {
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s%s%d", path, restoredSuffix, n)

		_, err := os.Lstat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}

		if err != nil {
			return "", fmt.Errorf("examining %s: %w", candidate, err)
		}
	}
}

// trashPayload locates the payload for a record, nil-safe for the
// advisory digest path.
func (e *Engine) trashPayload(rec *record.FileRecord) (string, bool) {
	return e.trash.FindPayload(rec)
}

// restoreMessage summarizes the call for the operation log.
func restoreMessage(r *RestoreResult) string {
	switch {
	case len(r.Failed) == 0:
		return fmt.Sprintf("restored %d record(s)", len(r.Restored))
	case len(r.Restored) == 0:
		return fmt.Sprintf("all %d record(s) failed", len(r.Failed))
	default:
		return fmt.Sprintf("restored %d record(s), %d failed", len(r.Restored), len(r.Failed))
	}
}
