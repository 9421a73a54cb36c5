package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Metadata files are pretty-printed JSON (one object per file, easy to
// inspect and hand-repair); operation-log entries are compact single-line
// JSON (one record per line, scannable with standard line tools). Both
// use RFC3339 UTC timestamps via time.Time's JSON encoding.

// EncodeFile renders a FileRecord for its metadata file. The trailing
// newline keeps the files friendly to cat and diff.
func EncodeFile(r *FileRecord) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding record %s: %w", r.ID.Short(), err)
	}

	return append(data, '\n'), nil
}

// DecodeFile parses and validates a FileRecord from metadata file bytes.
func DecodeFile(data []byte) (*FileRecord, error) {
	var r FileRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return &r, nil
}

// EncodeOperation renders an OperationRecord as one log line, newline
// terminated. The line contains no interior newlines, so a torn write is
// detectable as a line that fails to parse.
func EncodeOperation(o *OperationRecord) ([]byte, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encoding operation %s: %w", o.ID.Short(), err)
	}

	if bytes.ContainsRune(data, '\n') {
		return nil, fmt.Errorf("operation %s: encoded form contains newline", o.ID.Short())
	}

	return append(data, '\n'), nil
}

// DecodeOperation parses and validates one operation-log line.
func DecodeOperation(line []byte) (*OperationRecord, error) {
	var o OperationRecord
	if err := json.Unmarshal(line, &o); err != nil {
		return nil, fmt.Errorf("decoding operation: %w", err)
	}

	if err := o.Validate(); err != nil {
		return nil, err
	}

	return &o, nil
}
