package record

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_Format(t *testing.T) {
	id := NewID()

	assert.Len(t, id.String(), 36)
	assert.Equal(t, strings.ToLower(id.String()), id.String())
	assert.Len(t, id.Short(), 8)
}

func TestParseID_Normalizes(t *testing.T) {
	id, err := ParseID("9B2E1F04-6C1A-4F27-9D0E-3A8B5C7D1E2F")
	require.NoError(t, err)
	assert.Equal(t, "9b2e1f04-6c1a-4f27-9d0e-3a8b5c7d1e2f", id.String())
}

func TestParseID_RejectsGarbage(t *testing.T) {
	_, err := ParseID("not-an-id")
	assert.Error(t, err)

	_, err = ParseID("")
	assert.Error(t, err)
}

func TestID_HasPrefix(t *testing.T) {
	id := MustID("9b2e1f04-6c1a-4f27-9d0e-3a8b5c7d1e2f")

	assert.True(t, id.HasPrefix("9b2e"))
	assert.True(t, id.HasPrefix("9B2E"))
	assert.False(t, id.HasPrefix("9b2f"))
}

func TestIsIDPrefix(t *testing.T) {
	assert.True(t, IsIDPrefix("9b2e"))
	assert.True(t, IsIDPrefix("9b2e1f04-6c1a"))
	assert.False(t, IsIDPrefix("9b2"), "below minimum length")
	assert.False(t, IsIDPrefix("doc.txt"))
	assert.False(t, IsIDPrefix("*.txt"))
}

func validRecord() *FileRecord {
	return &FileRecord{
		ID:           NewID(),
		OriginalPath: "/tmp/x/a.txt",
		DeletedAt:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Size:         5,
		Mode:         0o644,
		Kind:         KindFile,
	}
}

func TestFileRecord_Validate(t *testing.T) {
	rec := validRecord()
	require.NoError(t, rec.Validate())

	relative := validRecord()
	relative.OriginalPath = "x/a.txt"
	assert.Error(t, relative.Validate())

	unclean := validRecord()
	unclean.OriginalPath = "/tmp/x/../a.txt"
	assert.Error(t, unclean.Validate())

	badKind := validRecord()
	badKind.Kind = "socket"
	assert.Error(t, badKind.Validate())

	noTime := validRecord()
	noTime.DeletedAt = time.Time{}
	assert.Error(t, noTime.Validate())

	dupTag := validRecord()
	dupTag.Tags = []string{"a", "a"}
	assert.Error(t, dupTag.Validate())

	longTag := validRecord()
	longTag.Tags = []string{strings.Repeat("x", 33)}
	assert.Error(t, longTag.Validate())
}

func TestEncodeFile_RoundTrip(t *testing.T) {
	rec := validRecord()
	rec.Tags = []string{"work", "scratch"}
	rec.Digest = strings.Repeat("ab", 32)
	rec.Device = 42

	data, err := EncodeFile(rec)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))

	decoded, err := DecodeFile(data)
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)
}

func TestDecodeFile_RejectsInvalid(t *testing.T) {
	_, err := DecodeFile([]byte("{"))
	assert.Error(t, err)

	_, err = DecodeFile([]byte(`{"id":"","original_path":"/x"}`))
	assert.Error(t, err)
}

func TestNormalizeTags(t *testing.T) {
	assert.Nil(t, NormalizeTags(nil))
	assert.Nil(t, NormalizeTags([]string{"", ""}))
	assert.Equal(t, []string{"b", "a"}, NormalizeTags([]string{"b", "a", "b", ""}))
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeOK, OutcomeOf(3, 0))
	assert.Equal(t, OutcomeOK, OutcomeOf(0, 0))
	assert.Equal(t, OutcomePartial, OutcomeOf(1, 2))
	assert.Equal(t, OutcomeFailed, OutcomeOf(0, 1))
}

func TestEncodeOperation_SingleLine(t *testing.T) {
	op := &OperationRecord{
		ID:      NewID(),
		Kind:    OpDelete,
		At:      time.Now().UTC(),
		FileIDs: []ID{NewID(), NewID()},
		Outcome: OutcomePartial,
		Message: "deleted 1 path(s), 1 failed",
	}

	line, err := EncodeOperation(op)
	require.NoError(t, err)

	body := strings.TrimSuffix(string(line), "\n")
	assert.NotContains(t, body, "\n", "log lines must not contain interior newlines")

	decoded, err := DecodeOperation([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, op.ID, decoded.ID)
	assert.Equal(t, op.FileIDs, decoded.FileIDs)
	assert.True(t, decoded.Touched(op.FileIDs[0]))
	assert.False(t, decoded.Touched(NewID()))
}
