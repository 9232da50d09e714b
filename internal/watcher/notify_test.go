package watcher

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAlert(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAlert(&buf, Alert{QuestID: "q1", Level: LevelCritical, Title: "Hard puzzle spot: statue", Message: "100% of 2 submissions wrong"}))
	assert.Equal(t, "[critical] q1 Hard puzzle spot: statue: 100% of 2 submissions wrong\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteAlert(&buf, Alert{Level: LevelInfo, Title: "New plays", Message: "1 new play(s), 3 total"}))
	assert.Equal(t, "[info] New plays: 1 new play(s), 3 total\n", buf.String())
}

func TestSubtitle(t *testing.T) {
	assert.Equal(t, "q1: New plays", subtitle(Alert{QuestID: "q1", Title: "New plays"}))
	assert.Equal(t, "New plays", subtitle(Alert{Title: "New plays"}))
}
