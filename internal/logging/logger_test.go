package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDisabled(t *testing.T) {
	t.Cleanup(Close)

	ws := t.TempDir()
	require.NoError(t, Initialize(ws, Options{DebugMode: false}))

	// No logs directory should be created in production mode.
	_, err := os.Stat(filepath.Join(ws, ".agora", "logs"))
	assert.True(t, os.IsNotExist(err))

	// Logging must be a safe no-op.
	Get(CategorySession).Info("should not be written")
	assert.False(t, IsDebugMode())
}

func TestInitializeDebugWritesFiles(t *testing.T) {
	t.Cleanup(Close)

	ws := t.TempDir()
	require.NoError(t, Initialize(ws, Options{DebugMode: true, Level: "debug"}))

	Session("session started: %s", "abc")
	ConsensusDebug("similarity=%.3f", 0.91)

	entries, err := os.ReadDir(filepath.Join(ws, ".agora", "logs"))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "session")
	assert.Contains(t, joined, "consensus")
}

func TestCategoryFilter(t *testing.T) {
	t.Cleanup(Close)

	ws := t.TempDir()
	require.NoError(t, Initialize(ws, Options{
		DebugMode:  true,
		Level:      "info",
		Categories: map[string]bool{"session": true, "api": false},
	}))

	assert.True(t, IsCategoryEnabled(CategorySession))
	assert.False(t, IsCategoryEnabled(CategoryAPI))
	// Unlisted categories default to enabled.
	assert.True(t, IsCategoryEnabled(CategoryConsensus))
}

func TestLevelFilter(t *testing.T) {
	t.Cleanup(Close)

	ws := t.TempDir()
	require.NoError(t, Initialize(ws, Options{DebugMode: true, Level: "warn"}))

	l := Get(CategoryOrchestrator)
	l.Debug("debug line")
	l.Info("info line")
	l.Warn("warn line")
	l.Error("error line")

	entries, err := os.ReadDir(filepath.Join(ws, ".agora", "logs"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(ws, ".agora", "logs", entries[0].Name()))
	require.NoError(t, err)
	content := string(data)
	assert.NotContains(t, content, "debug line")
	assert.NotContains(t, content, "info line")
	assert.Contains(t, content, "warn line")
	assert.Contains(t, content, "error line")
}
