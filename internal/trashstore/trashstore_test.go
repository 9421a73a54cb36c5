package trashstore

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/rmz-go/internal/record"
)

var stageTime = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func testStore(t *testing.T) *Store {
	t.Helper()

	return New(filepath.Join(t.TempDir(), "trash"), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testRecord(id record.ID, original string, kind record.Kind) *record.FileRecord {
	return &record.FileRecord{
		ID:           id,
		OriginalPath: original,
		DeletedAt:    stageTime,
		Size:         5,
		Mode:         0o644,
		Kind:         kind,
	}
}

func TestStage_MovesFileUnderDateAndID(t *testing.T) {
	s := testStore(t)

	src := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	id := record.NewID()

	payload, err := s.Stage(src, id, stageTime)
	require.NoError(t, err)

	assert.NoFileExists(t, src)
	assert.Equal(t, filepath.Join(s.dir, "2026-08-01", id.String()+"-a.txt"), payload)

	data, err := os.ReadFile(payload)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestStage_DirectoryKeepsTree(t *testing.T) {
	s := testStore(t)

	src := filepath.Join(t.TempDir(), "dir")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a"), []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b", "c"), []byte("two"), 0o600))

	payload, err := s.Stage(src, record.NewID(), stageTime)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(payload, "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestFindPayload(t *testing.T) {
	s := testStore(t)

	src := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	id := record.NewID()
	rec := testRecord(id, src, record.KindFile)

	_, ok := s.FindPayload(rec)
	assert.False(t, ok)

	payload, err := s.Stage(src, id, stageTime)
	require.NoError(t, err)

	found, ok := s.FindPayload(rec)
	require.True(t, ok)
	assert.Equal(t, payload, found)
}

func TestUnstage_MovesPayloadBack(t *testing.T) {
	s := testStore(t)

	src := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	payload, err := s.Stage(src, record.NewID(), stageTime)
	require.NoError(t, err)

	require.NoError(t, s.Unstage(payload, src))
	assert.FileExists(t, src)
	assert.NoFileExists(t, payload)
}

func TestRestore_AppliesRecordedMode(t *testing.T) {
	s := testStore(t)

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o755))

	id := record.NewID()
	_, err := s.Stage(src, id, stageTime)
	require.NoError(t, err)

	rec := testRecord(id, src, record.KindFile)
	rec.Mode = 0o600

	require.NoError(t, s.Restore(rec, src))

	info, err := os.Stat(src)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRestore_CreatesMissingParents(t *testing.T) {
	s := testStore(t)

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "deep", "nested", "a.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	id := record.NewID()
	_, err := s.Stage(src, id, stageTime)
	require.NoError(t, err)

	// The parent tree disappears before the restore.
	require.NoError(t, os.RemoveAll(filepath.Join(srcDir, "deep")))

	rec := testRecord(id, src, record.KindFile)
	require.NoError(t, s.Restore(rec, src))
	assert.FileExists(t, src)
}

func TestRestore_MissingPayloadFails(t *testing.T) {
	s := testStore(t)

	rec := testRecord(record.NewID(), "/tmp/x/a.txt", record.KindFile)
	assert.Error(t, s.Restore(rec, rec.OriginalPath))
}

func TestPurge_RemovesPayloadAndSentinel(t *testing.T) {
	s := testStore(t)

	src := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	id := record.NewID()
	payload, err := s.Stage(src, id, stageTime)
	require.NoError(t, err)

	rec := testRecord(id, src, record.KindFile)
	require.NoError(t, s.Purge(rec))

	assert.NoFileExists(t, payload)
	assert.NoFileExists(t, payload+purgingSuffix)
}

func TestPurge_AbsentPayloadSucceeds(t *testing.T) {
	s := testStore(t)

	rec := testRecord(record.NewID(), "/tmp/x/a.txt", record.KindFile)
	assert.NoError(t, s.Purge(rec))
}

func TestResumePurge(t *testing.T) {
	s := testStore(t)

	src := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	payload, err := s.Stage(src, record.NewID(), stageTime)
	require.NoError(t, err)

	// Simulate an interrupted purge: sentinel exists, payload remains.
	sentinel := payload + purgingSuffix
	require.NoError(t, os.WriteFile(sentinel, nil, 0o600))

	sentinels, _, err := s.Debris()
	require.NoError(t, err)
	require.Equal(t, []string{sentinel}, sentinels)

	require.NoError(t, s.ResumePurge(sentinel))
	assert.NoFileExists(t, payload)
	assert.NoFileExists(t, sentinel)
}

func TestWalk_ParsesIdentifiersAndSkipsDebris(t *testing.T) {
	s := testStore(t)

	src := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	id := record.NewID()
	payload, err := s.Stage(src, id, stageTime)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(payload+tmpSuffix, nil, 0o600))
	require.NoError(t, os.WriteFile(payload+purgingSuffix, nil, 0o600))

	var seen []Payload

	require.NoError(t, s.Walk(func(p Payload) error {
		seen = append(seen, p)

		return nil
	}))

	require.Len(t, seen, 1)
	assert.Equal(t, id, seen[0].ID)
	assert.Equal(t, int64(5), seen[0].Size)
}

func TestTotalSizeAndDateRange(t *testing.T) {
	s := testStore(t)

	srcDir := t.TempDir()

	first := filepath.Join(srcDir, "a.txt")
	require.NoError(t, os.WriteFile(first, []byte("hello"), 0o644))
	_, err := s.Stage(first, record.NewID(), stageTime)
	require.NoError(t, err)

	second := filepath.Join(srcDir, "b.txt")
	require.NoError(t, os.WriteFile(second, []byte("wo"), 0o644))
	_, err = s.Stage(second, record.NewID(), stageTime.AddDate(0, 0, 2))
	require.NoError(t, err)

	total, err := s.TotalSize()
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)

	oldest, newest, err := s.DateRange()
	require.NoError(t, err)
	assert.Equal(t, "2026-08-01", oldest)
	assert.Equal(t, "2026-08-03", newest)
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("12345"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b"), []byte("123"), 0o644))
	require.NoError(t, os.Symlink("/elsewhere", filepath.Join(dir, "link")))

	size, err := DirSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(8), size, "only regular files count")
}

func TestAdopt_RenamesUnderNewIdentifier(t *testing.T) {
	s := testStore(t)

	src := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	oldID := record.NewID()
	payload, err := s.Stage(src, oldID, stageTime)
	require.NoError(t, err)

	newID := record.NewID()

	newPath, deletedAt, base, err := s.Adopt(payload, newID)
	require.NoError(t, err)

	assert.Equal(t, "a.txt", base, "stale identifier prefix is stripped")
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), deletedAt)
	assert.Equal(t, filepath.Join(s.dir, "2026-08-01", newID.String()+"-a.txt"), newPath)
	assert.FileExists(t, newPath)
	assert.NoFileExists(t, payload)
}

func TestCopyTree_PreservesSymlinksAndModes(t *testing.T) {
	src := filepath.Join(t.TempDir(), "tree")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("data"), 0o640))
	require.NoError(t, os.Symlink("../f", filepath.Join(src, "sub", "link")))

	dest := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, copyTree(src, dest))

	info, err := os.Stat(filepath.Join(dest, "f"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	subInfo, err := os.Stat(filepath.Join(dest, "sub"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), subInfo.Mode().Perm())

	target, err := os.Readlink(filepath.Join(dest, "sub", "link"))
	require.NoError(t, err)
	assert.Equal(t, "../f", target)
}
