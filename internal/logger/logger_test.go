package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	for _, mode := range []string{"dev", "prod", ""} {
		l, err := New(mode, false)
		require.NoError(t, err, mode)
		require.NotNil(t, l.SugaredLogger)
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.log")
	l, err := New("dev", false, path)
	require.NoError(t, err)

	l.Debug("below warn level")
	l.Warn("snapshot save failed", "quest_id", "q1")
	l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "snapshot save failed")
	assert.Contains(t, out, "WARN")
	assert.NotContains(t, out, "below warn level")
	assert.NotContains(t, out, "\x1b[")
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("quest_id", "q1").Warn("section unavailable", "section", "reviews")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "section unavailable", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "q1", fields["quest_id"])
	assert.Equal(t, "reviews", fields["section"])
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("ignored", "k", "v")
	l.Sync()
}
