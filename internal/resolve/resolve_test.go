package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_RejectsEmpty(t *testing.T) {
	_, err := Resolve("")
	assert.Error(t, err)
}

func TestResolve_RegularFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	res, err := Resolve(path)
	require.NoError(t, err)

	assert.Equal(t, path, res.Arg)
	assert.True(t, res.Exists)
	assert.Equal(t, KindFile, res.Kind)
	assert.Equal(t, int64(5), res.Size)
	assert.True(t, filepath.IsAbs(res.Path))
	assert.NotZero(t, res.Device)
}

func TestResolve_RelativePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), nil, 0o644))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(cwd) })

	res, err := Resolve("b.txt")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(res.Path))
	assert.Equal(t, "b.txt", filepath.Base(res.Path))
}

func TestResolve_Directory(t *testing.T) {
	dir := t.TempDir()

	res, err := Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, KindDir, res.Kind)
}

func TestResolve_SymlinkIsNotFollowed(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.txt")
	require.NoError(t, os.WriteFile(target, []byte("data"), 0o644))

	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(target, link))

	res, err := Resolve(link)
	require.NoError(t, err)
	assert.Equal(t, KindSymlink, res.Kind, "the link itself is the target, not its destination")
	assert.Equal(t, filepath.Base(res.Path), "link")
}

func TestResolve_DanglingSymlinkExists(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "dangling")
	require.NoError(t, os.Symlink(filepath.Join(dir, "nowhere"), link))

	res, err := Resolve(link)
	require.NoError(t, err)
	assert.True(t, res.Exists)
	assert.Equal(t, KindSymlink, res.Kind)
}

func TestResolve_ParentSymlinksAreResolved(t *testing.T) {
	dir := t.TempDir()

	real := filepath.Join(dir, "real")
	require.NoError(t, os.Mkdir(real, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(real, "f.txt"), nil, 0o644))

	alias := filepath.Join(dir, "alias")
	require.NoError(t, os.Symlink(real, alias))

	res, err := Resolve(filepath.Join(alias, "f.txt"))
	require.NoError(t, err)

	// EvalSymlinks may also collapse symlinks in TempDir itself (e.g.
	// /tmp on macOS), so compare against the fully resolved parent.
	realResolved, err := filepath.EvalSymlinks(real)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(realResolved, "f.txt"), res.Path)
}

func TestResolve_Nonexistent(t *testing.T) {
	res, err := Resolve(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.False(t, res.Exists)
	assert.Equal(t, KindAbsent, res.Kind)
}
