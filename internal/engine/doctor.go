package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/rmz-go/internal/digest"
	"github.com/tonimelisma/rmz-go/internal/record"
	"github.com/tonimelisma/rmz-go/internal/trashstore"
)

// recoveredTag marks records reconstructed by doctor for orphan
// payloads. The true original path is unknown, so their original path
// is set to <root>/recovered/<basename>: a restore places the payload
// there, or the record can simply be purged.
const recoveredTag = "recovered"

// DoctorOptions control a doctor run.
type DoctorOptions struct {
	// Repair reconciles what the scan finds: pending purges are
	// finished, orphan records removed, orphan payloads adopted under a
	// reconstructed record, and staging debris cleared.
	Repair bool

	// Verify recomputes content digests of every payload and reports
	// mismatches. Digest work fans out across paths.
	Verify bool
}

// DoctorMismatch is one payload whose recomputed digest disagrees with
// its record.
type DoctorMismatch struct {
	ID   record.ID `json:"id"`
	Path string    `json:"path"`
	Want string    `json:"want"`
	Got  string    `json:"got"`
}

// DoctorReport is the outcome of a doctor scan.
type DoctorReport struct {
	OrphanPayloads  []string         `json:"orphan_payloads,omitempty"`
	OrphanRecords   []record.ID      `json:"orphan_records,omitempty"`
	CorruptRecords  []string         `json:"corrupt_records,omitempty"`
	PendingPurges   []string         `json:"pending_purges,omitempty"`
	StagingDebris   []string         `json:"staging_debris,omitempty"`
	DigestMismatch  []DoctorMismatch `json:"digest_mismatch,omitempty"`
	Repaired        bool             `json:"repaired"`
	AdoptedPayloads []record.ID      `json:"adopted_payloads,omitempty"`
}

// Healthy reports whether the scan found nothing to reconcile.
func (r *DoctorReport) Healthy() bool {
	return len(r.OrphanPayloads) == 0 &&
		len(r.OrphanRecords) == 0 &&
		len(r.CorruptRecords) == 0 &&
		len(r.PendingPurges) == 0 &&
		len(r.StagingDebris) == 0 &&
		len(r.DigestMismatch) == 0
}

// Doctor scans the trash zone for disagreements between payloads and
// records: orphans on either side, interrupted purges, staging debris,
// and (optionally) digest mismatches. With Repair set it reconciles
// what it finds.
func (e *Engine) Doctor(ctx context.Context, opts DoctorOptions) (*DoctorReport, error) {
	report := &DoctorReport{}

	if opts.Repair {
		lock, err := e.lock(ctx)
		if err != nil {
			return nil, err
		}
		defer lock.Release()
	}

	records := make(map[record.ID]*record.FileRecord)

	err := e.walkRecords(func(rec *record.FileRecord) error {
		records[rec.ID] = rec

		return nil
	}, func(path string, err error) {
		report.CorruptRecords = append(report.CorruptRecords, path)
		e.logger.Warn("corrupt record", "path", path, "error", err)
	})
	if err != nil {
		return nil, err
	}

	payloads := make(map[record.ID]trashstore.Payload)

	err = e.trash.Walk(func(p trashstore.Payload) error {
		if p.ID.IsZero() {
			report.OrphanPayloads = append(report.OrphanPayloads, p.Path)

			return nil
		}

		payloads[p.ID] = p

		if _, ok := records[p.ID]; !ok {
			report.OrphanPayloads = append(report.OrphanPayloads, p.Path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	for id := range records {
		if _, ok := payloads[id]; !ok {
			report.OrphanRecords = append(report.OrphanRecords, id)
		}
	}

	sentinels, temps, err := e.trash.Debris()
	if err != nil {
		return nil, err
	}

	report.PendingPurges = sentinels
	report.StagingDebris = temps

	if opts.Verify {
		if err := e.verifyDigests(ctx, records, payloads, report); err != nil {
			return nil, err
		}
	}

	if opts.Repair {
		if err := e.repair(report, payloads); err != nil {
			return nil, err
		}

		report.Repaired = true
	}

	return report, nil
}

// verifyDigests recomputes payload digests in parallel and records
// mismatches. Digest computation across independent paths is the one
// place the engine fans out; everything else is sequential by design.
func (e *Engine) verifyDigests(ctx context.Context, records map[record.ID]*record.FileRecord, payloads map[record.ID]trashstore.Payload, report *DoctorReport) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	var mu sync.Mutex

	for id, rec := range records {
		id, rec := id, rec

		payload, ok := payloads[id]
		if !ok || rec.Digest == "" {
			continue
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			match, got, err := digest.Verify(payload.Path, rec.Digest)
			if err != nil {
				e.logger.Warn("could not verify payload digest", "id", rec.ID.Short(), "error", err)

				return nil
			}

			if !match {
				mu.Lock()
				report.DigestMismatch = append(report.DigestMismatch, DoctorMismatch{
					ID:   rec.ID,
					Path: payload.Path,
					Want: rec.Digest,
					Got:  got,
				})
				mu.Unlock()
			}

			return nil
		})
	}

	return g.Wait()
}

// repair reconciles scan findings: finish pending purges, drop orphan
// records, adopt orphan payloads under reconstructed records, and clear
// staging debris.
func (e *Engine) repair(report *DoctorReport, payloads map[record.ID]trashstore.Payload) error {
	for _, sentinel := range report.PendingPurges {
		if err := e.trash.ResumePurge(sentinel); err != nil {
			return err
		}
	}

	for _, id := range report.OrphanRecords {
		if err := e.meta.Delete(id); err != nil {
			return fmt.Errorf("removing orphan record: %w", err)
		}

		e.logger.Info("removed orphan record", "id", id.String())
	}

	for _, path := range report.OrphanPayloads {
		adopted, err := e.adoptPayload(path)
		if err != nil {
			return err
		}

		report.AdoptedPayloads = append(report.AdoptedPayloads, adopted)
	}

	for _, tmp := range report.StagingDebris {
		if err := e.trash.RemoveDebris(tmp); err != nil {
			return err
		}
	}

	return nil
}

// adoptPayload reconstructs a record for a payload that lost its
// metadata. The payload is renamed under a fresh identifier within its
// date directory so record and payload agree again. The original path is
// unknowable, so the record points into <root>/recovered/ and carries
// the recovered tag; the user restores it there or purges it.
func (e *Engine) adoptPayload(path string) (record.ID, error) {
	id := record.NewID()

	newPath, deletedAt, base, err := e.trash.Adopt(path, id)
	if err != nil {
		return record.ID{}, fmt.Errorf("adopting payload %s: %w", path, err)
	}

	info, err := os.Lstat(newPath)
	if err != nil {
		return record.ID{}, fmt.Errorf("adopting payload %s: %w", path, err)
	}

	size := info.Size()
	kind := record.KindFile

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		kind = record.KindSymlink
	case info.IsDir():
		kind = record.KindDir

		if size, err = trashstore.DirSize(newPath); err != nil {
			return record.ID{}, err
		}
	}

	sum, err := digest.Tree(newPath)
	if err != nil {
		e.logger.Warn("could not digest adopted payload", "path", newPath, "error", err)

		sum = ""
	}

	rec := &record.FileRecord{
		ID:           id,
		OriginalPath: filepath.Join(e.root, "recovered", base),
		DeletedAt:    deletedAt,
		Size:         size,
		Mode:         uint32(info.Mode().Perm()),
		Kind:         kind,
		Tags:         []string{recoveredTag},
		Digest:       sum,
	}

	if err := e.meta.Write(rec); err != nil {
		return record.ID{}, fmt.Errorf("adopting payload %s: %w", path, err)
	}

	e.logger.Info("adopted orphan payload", "path", newPath, "id", rec.ID.String())

	return rec.ID, nil
}
