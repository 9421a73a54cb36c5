package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "settings.toml"), testLogger(t))
	require.NoError(t, err)

	assert.Equal(t, ColorAuto, cfg.Color)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, int64(8<<20), cfg.LogMaxBytes)
	assert.Equal(t, 10, cfg.LogMaxArchives)
	assert.Zero(t, cfg.AutoCleanDays)
}

func TestLoad_UnknownKeyIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("auto_clean_dayz = 30\n"), 0o600))

	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auto_clean_dayz")
}

func TestLoad_RejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(`color = "sometimes"`+"\n"), 0o600))

	_, err := Load(path, testLogger(t))
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "settings.toml")

	cfg := DefaultConfig()
	cfg.AutoCleanDays = 30
	cfg.MaxTotalSize = "10GB"
	cfg.Interactive = true

	require.NoError(t, Save(path, cfg, testLogger(t)))

	// Header is written on first creation.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# rmz configuration")

	loaded, err := Load(path, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 30, loaded.AutoCleanDays)
	assert.Equal(t, "10GB", loaded.MaxTotalSize)
	assert.True(t, loaded.Interactive)
}

func TestMaxTotalSizeBytes(t *testing.T) {
	cfg := DefaultConfig()

	n, err := cfg.MaxTotalSizeBytes()
	require.NoError(t, err)
	assert.Zero(t, n, "empty cap means disabled")

	cfg.MaxTotalSize = "10GB"
	n, err = cfg.MaxTotalSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000_000), n)

	cfg.MaxTotalSize = "ten gigs"
	_, err = cfg.MaxTotalSizeBytes()
	assert.Error(t, err)
}

func TestResolveRoot_EnvOverrideWins(t *testing.T) {
	root, err := ResolveRoot(EnvOverrides{Home: "/tmp/alt-root"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/alt-root", root)
}

func TestEnsureLayout_CreatesTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "zone")
	require.NoError(t, EnsureLayout(root))

	for _, dir := range []string{TrashDir(root), MetaDir(root), LogDir(root), filepath.Dir(SettingsPath(root))} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(RootDirPermissions), info.Mode().Perm())
	}
}

func TestLoadProtected_SeedsDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protected.toml")

	entries, err := LoadProtected(path, testLogger(t))
	require.NoError(t, err)

	paths := make(map[string]bool)
	for _, e := range entries {
		paths[e.Path] = e.SelfOnly
	}

	assert.Contains(t, paths, "/etc")
	assert.False(t, paths["/etc"])
	assert.True(t, paths["/"], "root must be self-only")

	// The file now exists and loads back identically.
	again, err := LoadProtected(path, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, entries, again)
}

func TestSaveProtected_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protected.toml")

	entries := []ProtectedEntry{{Path: "/srv/data"}, {Path: "/home/user", SelfOnly: true}}
	require.NoError(t, SaveProtected(path, entries, testLogger(t)))

	loaded, err := LoadProtected(path, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, entries, loaded)
}

func TestLoadProtected_RejectsRelativePaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protected.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[entry]]\npath = \"etc\"\n"), 0o600))

	_, err := LoadProtected(path, testLogger(t))
	assert.Error(t, err)
}

func TestReadEnvOverrides(t *testing.T) {
	t.Setenv(EnvHome, "/custom/root")
	t.Setenv(EnvConfig, "/custom/settings.toml")
	t.Setenv(EnvNoColor, "1")

	env := ReadEnvOverrides()
	assert.Equal(t, "/custom/root", env.Home)
	assert.Equal(t, "/custom/settings.toml", env.ConfigPath)
	assert.True(t, env.NoColor)
}
