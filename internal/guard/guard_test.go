package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/rmz-go/internal/config"
)

func defaultGuard() *Guard {
	return New(config.DefaultProtectedEntries("/home/alice"))
}

func TestIsProtected_EntryAndDescendants(t *testing.T) {
	g := defaultGuard()

	protected, by := g.IsProtected("/etc")
	assert.True(t, protected)
	assert.Equal(t, "/etc", by)

	protected, by = g.IsProtected("/etc/passwd")
	assert.True(t, protected)
	assert.Equal(t, "/etc", by)

	protected, _ = g.IsProtected("/etcetera")
	assert.False(t, protected, "prefix match is path-component-wise, not textual")
}

func TestIsProtected_SelfOnlyEntries(t *testing.T) {
	g := defaultGuard()

	protected, _ := g.IsProtected("/")
	assert.True(t, protected)

	protected, _ = g.IsProtected("/home/alice")
	assert.True(t, protected)

	protected, _ = g.IsProtected("/home/alice/notes.txt")
	assert.False(t, protected, "home protects only itself, not its children")

	protected, _ = g.IsProtected("/srv/data")
	assert.False(t, protected, "root is self-only — it must not shadow the filesystem")
}

func TestAdd(t *testing.T) {
	g := defaultGuard()

	require.NoError(t, g.Add("/srv/data/"))

	protected, by := g.IsProtected("/srv/data/backups/x")
	assert.True(t, protected)
	assert.Equal(t, "/srv/data", by)

	assert.Error(t, g.Add("/srv/data"), "duplicate add must be reported")
	assert.Error(t, g.Add("relative/path"))
}

func TestRemove(t *testing.T) {
	g := defaultGuard()

	require.NoError(t, g.Add("/srv/data"))
	require.NoError(t, g.Remove("/srv/data/"))

	protected, _ := g.IsProtected("/srv/data")
	assert.False(t, protected)

	assert.Error(t, g.Remove("/srv/data"), "removing an absent entry must be reported")
}

func TestSorted(t *testing.T) {
	g := New([]config.ProtectedEntry{{Path: "/z"}, {Path: "/a"}})

	sorted := g.Sorted()
	require.Len(t, sorted, 2)
	assert.Equal(t, "/a", sorted[0].Path)
	assert.Equal(t, "/z", sorted[1].Path)
}
