package engine

import (
	"github.com/tonimelisma/rmz-go/internal/record"
	"github.com/tonimelisma/rmz-go/internal/trashstore"
)

// StatusReport summarizes the trash zone at rest.
type StatusReport struct {
	Records        int    `json:"records"`
	TotalSize      int64  `json:"total_size"`
	OldestDate     string `json:"oldest_date,omitempty"`
	NewestDate     string `json:"newest_date,omitempty"`
	OrphanPayloads int    `json:"orphan_payloads"`
	OrphanRecords  int    `json:"orphan_records"`
	FreeSpace      uint64 `json:"free_space"`
	Protected      int    `json:"protected"`
}

// Status reports counts, sizes, the date range spanned, orphan counts,
// and free space on the volume hosting the trash root. It takes no lock
// and tolerates concurrent mutation.
func (e *Engine) Status() (*StatusReport, error) {
	report := &StatusReport{Protected: len(e.guard.Entries())}

	recordIDs := make(map[record.ID]struct{})

	err := e.walkRecords(func(rec *record.FileRecord) error {
		report.Records++
		recordIDs[rec.ID] = struct{}{}

		return nil
	}, func(string, error) {})
	if err != nil {
		return nil, err
	}

	payloadIDs := make(map[record.ID]struct{})

	err = e.trash.Walk(func(p trashstore.Payload) error {
		report.TotalSize += p.Size

		if p.ID.IsZero() {
			report.OrphanPayloads++

			return nil
		}

		payloadIDs[p.ID] = struct{}{}

		if _, ok := recordIDs[p.ID]; !ok {
			report.OrphanPayloads++
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	for id := range recordIDs {
		if _, ok := payloadIDs[id]; !ok {
			report.OrphanRecords++
		}
	}

	oldest, newest, err := e.trash.DateRange()
	if err != nil {
		return nil, err
	}

	report.OldestDate = oldest
	report.NewestDate = newest

	free, err := e.trash.FreeSpace()
	if err != nil {
		e.logger.Warn("could not determine free space", "error", err)
	} else {
		report.FreeSpace = free
	}

	return report, nil
}
