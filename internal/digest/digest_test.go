package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sha256 of the empty input, the digest of an empty directory by
// convention.
const emptyDigest = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func TestFile_KnownVector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	got, err := File(path)
	require.NoError(t, err)

	want := sha256.Sum256([]byte("hello"))
	assert.Equal(t, hex.EncodeToString(want[:]), got)
}

func TestTree_EmptyDirectory(t *testing.T) {
	got, err := Tree(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, emptyDigest, got)
}

func TestSymlink_DigestsLiteralTarget(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink("/some/target", link))

	got, err := Tree(link)
	require.NoError(t, err)

	want := sha256.Sum256([]byte("/some/target"))
	assert.Equal(t, hex.EncodeToString(want[:]), got)
}

func TestTree_DirectoryIsDeterministicAndNameAndContentSensitive(t *testing.T) {
	build := func(t *testing.T, contents map[string]string) string {
		t.Helper()

		dir := t.TempDir()
		for name, data := range contents {
			path := filepath.Join(dir, name)
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
			require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
		}

		sum, err := Tree(dir)
		require.NoError(t, err)

		return sum
	}

	a := build(t, map[string]string{"a.txt": "one", "b/c.txt": "two"})
	b := build(t, map[string]string{"a.txt": "one", "b/c.txt": "two"})
	assert.Equal(t, a, b, "identical trees must digest identically")

	renamed := build(t, map[string]string{"z.txt": "one", "b/c.txt": "two"})
	assert.NotEqual(t, a, renamed, "entry names are part of the digest")

	changed := build(t, map[string]string{"a.txt": "one!", "b/c.txt": "two"})
	assert.NotEqual(t, a, changed)
}

func TestVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	want, err := File(path)
	require.NoError(t, err)

	match, got, err := Verify(path, want)
	require.NoError(t, err)
	assert.True(t, match)
	assert.Equal(t, want, got)

	match, _, err = Verify(path, emptyDigest)
	require.NoError(t, err)
	assert.False(t, match)
}
