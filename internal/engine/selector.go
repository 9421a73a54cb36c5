package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tonimelisma/rmz-go/internal/metastore"
	"github.com/tonimelisma/rmz-go/internal/oplog"
	"github.com/tonimelisma/rmz-go/internal/record"
)

// oplogFilterAll matches every operation.
var oplogFilterAll = oplog.Filter{}

// Selector names the records an operation acts on. Exactly one field
// may be set. ID, Glob, and Substring are single-record selectors: when
// they match more than one record the engine asks the Pick callback (if
// interactive) or fails with the candidate set. OpID, Tag, and All are
// set selectors and intentionally act on every match.
type Selector struct {
	// ID is a full identifier or a prefix of at least four hex
	// characters.
	ID string

	// OpID selects every record touched by one operation, by operation
	// identifier prefix.
	OpID string

	// Glob matches against record basenames (shell pattern).
	Glob string

	// Substring matches against original paths.
	Substring string

	// Tag selects records carrying the tag.
	Tag string

	// All selects every record in the store.
	All bool
}

// setSelector reports whether the selector intentionally names a set.
func (s Selector) setSelector() bool {
	return s.All || s.OpID != "" || s.Tag != ""
}

// describe renders the selector for error messages.
func (s Selector) describe() string {
	switch {
	case s.ID != "":
		return s.ID
	case s.OpID != "":
		return "op:" + s.OpID
	case s.Glob != "":
		return s.Glob
	case s.Substring != "":
		return s.Substring
	case s.Tag != "":
		return "tag:" + s.Tag
	case s.All:
		return "all"
	default:
		return "(empty)"
	}
}

// validate checks that exactly one selector field is set.
func (s Selector) validate() error {
	n := 0

	if s.ID != "" {
		n++
	}

	if s.OpID != "" {
		n++
	}

	if s.Glob != "" {
		n++
	}

	if s.Substring != "" {
		n++
	}

	if s.Tag != "" {
		n++
	}

	if s.All {
		n++
	}

	switch n {
	case 0:
		return fmt.Errorf("%w: no selector given", ErrInvalidArgument)
	case 1:
		return nil
	default:
		return fmt.Errorf("%w: multiple selectors given", ErrInvalidArgument)
	}
}

// selectRecords resolves a selector to the records it names, applying
// the ambiguity policy for single-record selectors: with interactive
// set, the Pick callback chooses; otherwise the call fails with the
// candidate set attached.
func (e *Engine) selectRecords(sel Selector, interactive bool) ([]*record.FileRecord, error) {
	if err := sel.validate(); err != nil {
		return nil, err
	}

	matches, err := e.matchRecords(sel)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("selector %q: %w", sel.describe(), ErrNotFound)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].DeletedAt.After(matches[j].DeletedAt)
	})

	if sel.setSelector() || len(matches) == 1 {
		return matches, nil
	}

	if interactive {
		choice, ok := e.ui.pick(matches, fmt.Sprintf("select a record for %q", sel.describe()))
		if !ok || choice < 0 || choice >= len(matches) {
			return nil, fmt.Errorf("selection cancelled for %q", sel.describe())
		}

		return matches[choice : choice+1], nil
	}

	return nil, &AmbiguousError{Selector: sel.describe(), Candidates: matches}
}

// matchRecords gathers all records a selector matches.
func (e *Engine) matchRecords(sel Selector) ([]*record.FileRecord, error) {
	// Full identifiers and unique prefixes take the direct path through
	// the store, which also reports prefix ambiguity precisely.
	if sel.ID != "" {
		return e.matchByID(sel.ID)
	}

	var fileIDs map[record.ID]struct{}

	if sel.OpID != "" {
		ids, err := e.fileIDsOfOperation(sel.OpID)
		if err != nil {
			return nil, err
		}

		fileIDs = ids
	}

	var matches []*record.FileRecord

	err := e.walkRecords(func(rec *record.FileRecord) error {
		match := false

		switch {
		case sel.All:
			match = true
		case sel.Tag != "":
			match = rec.HasTag(sel.Tag)
		case sel.Glob != "":
			ok, globErr := filepath.Match(sel.Glob, rec.Basename())
			if globErr != nil {
				return fmt.Errorf("%w: bad glob %q: %v", ErrInvalidArgument, sel.Glob, globErr)
			}

			match = ok
		case sel.Substring != "":
			match = strings.Contains(rec.OriginalPath, sel.Substring)
		case sel.OpID != "":
			_, match = fileIDs[rec.ID]
		}

		if match {
			matches = append(matches, rec)
		}

		return nil
	}, nil)
	if err != nil {
		return nil, err
	}

	return matches, nil
}

// matchByID resolves a full identifier or identifier prefix.
func (e *Engine) matchByID(raw string) ([]*record.FileRecord, error) {
	if id, err := record.ParseID(raw); err == nil {
		rec, err := e.meta.Read(id)
		if errors.Is(err, metastore.ErrNotFound) {
			return nil, nil
		}

		if err != nil {
			return nil, e.storeErr(err)
		}

		return []*record.FileRecord{rec}, nil
	}

	if !record.IsIDPrefix(raw) {
		return nil, fmt.Errorf("%w: %q is not an identifier or identifier prefix (need at least %d hex characters)",
			ErrInvalidArgument, raw, record.MinPrefixLength)
	}

	rec, err := e.meta.FindByPrefix(raw)

	var ambiguous *metastore.AmbiguousError

	switch {
	case err == nil:
		return []*record.FileRecord{rec}, nil
	case errors.As(err, &ambiguous):
		// Surface all candidates; the caller applies the ambiguity
		// policy (pick or fail).
		return ambiguous.Candidates, nil
	case errors.Is(err, metastore.ErrNotFound):
		return nil, nil
	default:
		return nil, e.storeErr(err)
	}
}

// fileIDsOfOperation resolves an operation identifier prefix against the
// log and returns the set of file identifiers it touched.
func (e *Engine) fileIDsOfOperation(prefix string) (map[record.ID]struct{}, error) {
	if !record.IsIDPrefix(prefix) {
		return nil, fmt.Errorf("%w: %q is not an operation identifier prefix", ErrInvalidArgument, prefix)
	}

	lower := strings.ToLower(prefix)

	var ops []*record.OperationRecord

	err := e.oplog.Walk(oplogFilterAll, func(op *record.OperationRecord) error {
		if op.ID.HasPrefix(lower) {
			ops = append(ops, op)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	switch len(ops) {
	case 0:
		return nil, fmt.Errorf("operation %q: %w", prefix, ErrNotFound)
	case 1:
	default:
		ids := make([]string, 0, len(ops))
		for _, op := range ops {
			ids = append(ids, op.ID.Short())
		}

		return nil, fmt.Errorf("%w: operation prefix %q matches %s", ErrAmbiguous, prefix, strings.Join(ids, ", "))
	}

	set := make(map[record.ID]struct{}, len(ops[0].FileIDs))
	for _, id := range ops[0].FileIDs {
		set[id] = struct{}{}
	}

	return set, nil
}
