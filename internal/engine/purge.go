package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tonimelisma/rmz-go/internal/record"
)

// PurgeSpec names what a purge call removes. Exactly one of Selector,
// Days, or All must be set, or Auto which applies the configured
// age and size policies.
type PurgeSpec struct {
	// Selector purges one record or a set, resolved exactly as restore
	// resolves selectors.
	Selector *Selector

	// Days purges every record whose deletion time is older than this
	// many days.
	Days int

	// All purges every record.
	All bool

	// Auto applies the configured auto_clean_days and max_total_size
	// policies, oldest records first.
	Auto bool
}

// validate checks that exactly one spec field is set.
func (s PurgeSpec) validate() error {
	n := 0

	if s.Selector != nil {
		n++
	}

	if s.Days > 0 {
		n++
	}

	if s.All {
		n++
	}

	if s.Auto {
		n++
	}

	if n != 1 {
		return fmt.Errorf("%w: purge needs exactly one of a selector, --days, --all, or --auto", ErrInvalidArgument)
	}

	return nil
}

// PurgeOptions control a purge call.
type PurgeOptions struct {
	DryRun      bool
	Interactive bool
}

// PurgeResult reports what a purge call did.
type PurgeResult struct {
	OpID    record.ID
	Purged  []record.ID
	Failed  []PathFailure
	Planned []*record.FileRecord
	Freed   int64
	Outcome record.Outcome
	DryRun  bool
}

// Purge permanently removes payloads and their records. An interrupted
// removal leaves the record and a purge-in-progress sentinel; re-running
// purge (or doctor) finishes the job. Purging a record whose payload is
// already gone removes the record silently.
func (e *Engine) Purge(ctx context.Context, spec PurgeSpec, opts PurgeOptions) (*PurgeResult, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	records, err := e.purgeSet(spec, opts)
	if err != nil {
		return nil, err
	}

	result := &PurgeResult{DryRun: opts.DryRun}

	if opts.DryRun {
		result.Planned = records
		result.Outcome = record.OutcomeOK

		for _, rec := range records {
			result.Freed += rec.Size
		}

		return result, nil
	}

	if opts.Interactive && len(records) > 0 {
		if !e.ui.confirm(fmt.Sprintf("permanently remove %d record(s)?", len(records))) {
			result.Outcome = record.OutcomeOK

			return result, nil
		}
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

		if err := e.purgeOne(rec); err != nil {
			result.Failed = append(result.Failed, PathFailure{Path: rec.OriginalPath, ID: rec.ID, Err: err})

			continue
		}

		result.Purged = append(result.Purged, rec.ID)
		result.Freed += rec.Size
	}

	result.Outcome = record.OutcomeOf(len(result.Purged), len(result.Failed))

	op := e.newOperation(record.OpPurge, result.Purged, result.Outcome, purgeMessage(result))
	e.recordOperation(op)
	result.OpID = op.ID

	return result, nil
}

// purgeOne removes one payload and then its record. The record survives
// any payload-removal failure so the purge can be retried.
func (e *Engine) purgeOne(rec *record.FileRecord) error {
	if err := e.trash.Purge(rec); err != nil {
		return err
	}

	return e.meta.Delete(rec.ID)
}

// purgeSet gathers the records a spec names, oldest first so partial
// progress always removes the least recoverable data last.
func (e *Engine) purgeSet(spec PurgeSpec, opts PurgeOptions) ([]*record.FileRecord, error) {
	var records []*record.FileRecord

	switch {
	case spec.Selector != nil:
		matched, err := e.selectRecords(*spec.Selector, opts.Interactive)
		if err != nil {
			return nil, err
		}

		records = matched

	case spec.Days > 0:
		cutoff := e.now().UTC().Add(-time.Duration(spec.Days) * 24 * time.Hour)

		matched, err := e.recordsOlderThan(cutoff)
		if err != nil {
			return nil, err
		}

		records = matched

	case spec.All:
		matched, err := e.selectRecords(Selector{All: true}, false)
		if err != nil {
			return nil, err
		}

		records = matched

	case spec.Auto:
		matched, err := e.autoCleanSet()
		if err != nil {
			return nil, err
		}

		records = matched
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].DeletedAt.Before(records[j].DeletedAt)
	})

	return records, nil
}

// recordsOlderThan gathers records deleted before the cutoff.
func (e *Engine) recordsOlderThan(cutoff time.Time) ([]*record.FileRecord, error) {
	var matched []*record.FileRecord

	err := e.walkRecords(func(rec *record.FileRecord) error {
		if rec.DeletedAt.Before(cutoff) {
			matched = append(matched, rec)
		}

		return nil
	}, nil)
	if err != nil {
		return nil, err
	}

	return matched, nil
}

// autoCleanSet applies the configured policies: first the auto-clean
// age, then the total-size cap, dropping oldest records until the
// remainder fits.
func (e *Engine) autoCleanSet() ([]*record.FileRecord, error) {
	doomed := make(map[record.ID]struct{})

	var all []*record.FileRecord

	err := e.walkRecords(func(rec *record.FileRecord) error {
		all = append(all, rec)

		return nil
	}, nil)
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].DeletedAt.Before(all[j].DeletedAt)
	})

	if e.cfg.AutoCleanDays > 0 {
		cutoff := e.now().UTC().Add(-time.Duration(e.cfg.AutoCleanDays) * 24 * time.Hour)

		for _, rec := range all {
			if rec.DeletedAt.Before(cutoff) {
				doomed[rec.ID] = struct{}{}
			}
		}
	}

	sizeCap, err := e.cfg.MaxTotalSizeBytes()
	if err != nil {
		return nil, err
	}

	if sizeCap > 0 {
		var remaining int64

		for _, rec := range all {
			if _, gone := doomed[rec.ID]; !gone {
				remaining += rec.Size
			}
		}

		for _, rec := range all {
			if remaining <= int64(sizeCap) {
				break
			}

			if _, gone := doomed[rec.ID]; gone {
				continue
			}

			doomed[rec.ID] = struct{}{}
			remaining -= rec.Size
		}
	}

	var records []*record.FileRecord

	for _, rec := range all {
		if _, gone := doomed[rec.ID]; gone {
			records = append(records, rec)
		}
	}

	return records, nil
}

// purgeMessage summarizes the call for the operation log.
func purgeMessage(r *PurgeResult) string {
	switch {
	case len(r.Failed) == 0:
		return fmt.Sprintf("purged %d record(s)", len(r.Purged))
	case len(r.Purged) == 0:
		return fmt.Sprintf("all %d record(s) failed", len(r.Failed))
	default:
		return fmt.Sprintf("purged %d record(s), %d failed", len(r.Purged), len(r.Failed))
	}
}
