package engine

import (
	"strings"
	"time"

	"github.com/tonimelisma/rmz-go/internal/record"
)

// ListFilter narrows a list scan. Zero values match everything.
type ListFilter struct {
	Since     time.Time
	Until     time.Time
	Tag       string
	Substring string

	// OpID groups records by the operation that staged them, by
	// operation identifier prefix.
	OpID string
}

// List streams matching records through fn, newest first is NOT
// guaranteed — records arrive in store order and the caller sorts for
// display. Enumeration is lazy and takes no lock: records may appear or
// disappear mid-scan when a mutating process runs concurrently.
func (e *Engine) List(filter ListFilter, fn func(*record.FileRecord) error) error {
	var opFileIDs map[record.ID]struct{}

	if filter.OpID != "" {
		ids, err := e.fileIDsOfOperation(filter.OpID)
		if err != nil {
			return err
		}

		opFileIDs = ids
	}

	return e.walkRecords(func(rec *record.FileRecord) error {
		if !filter.matches(rec, opFileIDs) {
			return nil
		}

		return fn(rec)
	}, nil)
}

// matches applies every set filter field.
func (f ListFilter) matches(rec *record.FileRecord, opFileIDs map[record.ID]struct{}) bool {
	if !f.Since.IsZero() && rec.DeletedAt.Before(f.Since) {
		return false
	}

	if !f.Until.IsZero() && rec.DeletedAt.After(f.Until) {
		return false
	}

	if f.Tag != "" && !rec.HasTag(f.Tag) {
		return false
	}

	if f.Substring != "" && !strings.Contains(rec.OriginalPath, f.Substring) {
		return false
	}

	if opFileIDs != nil {
		if _, ok := opFileIDs[rec.ID]; !ok {
			return false
		}
	}

	return true
}
