package main

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/rmz-go/internal/engine"
)

func TestBuildSelector(t *testing.T) {
	sel, err := buildSelector([]string{"9b2e1f04"}, "", "", "", false)
	require.NoError(t, err)
	assert.Equal(t, "9b2e1f04", sel.ID)

	sel, err = buildSelector([]string{"*.txt"}, "", "", "", false)
	require.NoError(t, err)
	assert.Equal(t, "*.txt", sel.Glob)

	sel, err = buildSelector([]string{"reports/q3"}, "", "", "", false)
	require.NoError(t, err)
	assert.Equal(t, "reports/q3", sel.Substring)

	sel, err = buildSelector(nil, "", "", "scratch", false)
	require.NoError(t, err)
	assert.Equal(t, "scratch", sel.Tag)

	_, err = buildSelector([]string{"a.txt"}, "", "", "", true)
	assert.ErrorIs(t, err, engine.ErrInvalidArgument, "argument plus selector flag is rejected")
}

func TestOutcomeExit(t *testing.T) {
	assert.NoError(t, outcomeExit(2, 0, nil))

	err := outcomeExit(1, 1, nil)
	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, exitPartial, exit.code)

	err = outcomeExit(0, 1, []engine.PathFailure{{Err: fmt.Errorf("io trouble")}})
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, exitAllFailed, exit.code)

	err = outcomeExit(0, 1, []engine.PathFailure{{Err: fmt.Errorf("refused: %w", engine.ErrProtected)}})
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, exitProtected, exit.code)
}

func TestClassifyExit(t *testing.T) {
	assert.Equal(t, exitInvalidArgs, classifyExit(fmt.Errorf("bad: %w", engine.ErrInvalidArgument)))
	assert.Equal(t, exitInvalidArgs, classifyExit(&engine.AmbiguousError{Selector: "x"}))
	assert.Equal(t, exitProtected, classifyExit(fmt.Errorf("no: %w", engine.ErrProtected)))
	assert.Equal(t, exitIntegrity, classifyExit(fmt.Errorf("bad store: %w", engine.ErrIntegrity)))
	assert.Equal(t, exitAllFailed, classifyExit(errors.New("anything else")))
}

func TestParseDateFlag(t *testing.T) {
	ts, err := parseDateFlag("")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	ts, err = parseDateFlag("2026-08-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), ts)

	ts, err = parseDateFlag("2026-08-01T12:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 12, ts.Hour())

	_, err = parseDateFlag("yesterday")
	assert.ErrorIs(t, err, engine.ErrInvalidArgument)
}

func TestContainsGlobMeta(t *testing.T) {
	assert.True(t, containsGlobMeta("*.txt"))
	assert.True(t, containsGlobMeta("file?.log"))
	assert.True(t, containsGlobMeta("[ab].txt"))
	assert.False(t, containsGlobMeta("plain.txt"))
}

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()

	expected := []string{"delete", "restore", "list", "status", "purge", "protect", "config", "log", "doctor", "completions"}

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, name := range expected {
		assert.True(t, names[name], "missing subcommand %s", name)
	}
}
