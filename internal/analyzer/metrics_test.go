package analyzer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/questwatch/internal/quest"
)

func intPtr(v int) *int { return &v }

func endedSession(id, user string, durationSec int) quest.PlaySession {
	end := daysAgo(1)
	return quest.PlaySession{
		ID:          id,
		UserID:      user,
		StartedAt:   end.Add(-time.Duration(durationSec) * time.Second),
		EndedAt:     &end,
		DurationSec: intPtr(durationSec),
	}
}

func TestAnalyzeMetrics_Empty(t *testing.T) {
	m := AnalyzeMetrics(nil)
	assert.Equal(t, 0, m.PlayCount)
	assert.Equal(t, 0, m.ClearRate)
	assert.Nil(t, m.AvgDurationMin)
	assert.Nil(t, m.AvgHints)
	assert.Nil(t, m.AvgWrongs)
}

func TestAnalyzeMetrics_ClearRate(t *testing.T) {
	var sessions []quest.PlaySession
	for i := 0; i < 6; i++ {
		sessions = append(sessions, endedSession(fmt.Sprintf("c%d", i), fmt.Sprintf("u%d", i), 1800))
	}
	for i := 0; i < 4; i++ {
		sessions = append(sessions, quest.PlaySession{ID: fmt.Sprintf("o%d", i), UserID: "u0", StartedAt: daysAgo(2)})
	}

	m := AnalyzeMetrics(sessions)
	assert.Equal(t, 10, m.PlayCount)
	assert.Equal(t, 6, m.ClearCount)
	assert.Equal(t, 60, m.ClearRate)
	assert.Equal(t, 6, m.UniquePlayers)
}

func TestAnalyzeMetrics_ClearRateRounds(t *testing.T) {
	sessions := []quest.PlaySession{
		endedSession("a", "u1", 60),
		{ID: "b", UserID: "u2"},
		{ID: "c", UserID: "u3"},
	}
	m := AnalyzeMetrics(sessions)
	assert.Equal(t, 33, m.ClearRate)

	sessions = append(sessions[:1], endedSession("d", "u4", 60), quest.PlaySession{ID: "e"})
	m = AnalyzeMetrics(sessions)
	assert.Equal(t, 67, m.ClearRate)
}

func TestAnalyzeMetrics_DurationOnlyFromClearedSessions(t *testing.T) {
	sessions := []quest.PlaySession{
		endedSession("a", "u1", 1200), // 20 min
		endedSession("b", "u2", 2100), // 35 min
		// Duration without an end time is ignored.
		{ID: "c", UserID: "u3", DurationSec: intPtr(60000)},
		// Cleared without a duration is ignored.
		{ID: "d", UserID: "u4", EndedAt: ptr(daysAgo(1))},
	}

	m := AnalyzeMetrics(sessions)
	require.NotNil(t, m.AvgDurationMin)
	// mean 1650s = 27.5 min, rounds half up to 28.
	assert.Equal(t, 28, *m.AvgDurationMin)
}

func TestAnalyzeMetrics_NoDurations(t *testing.T) {
	sessions := []quest.PlaySession{{ID: "a", UserID: "u1", HintsUsed: intPtr(2)}}
	m := AnalyzeMetrics(sessions)
	assert.Nil(t, m.AvgDurationMin)
	require.NotNil(t, m.AvgHints)
	assert.InDelta(t, 2.0, *m.AvgHints, 1e-9)
}

func TestAnalyzeMetrics_MissingValuesExcludedFromMeans(t *testing.T) {
	sessions := []quest.PlaySession{
		{ID: "a", UserID: "u1", HintsUsed: intPtr(1), WrongAnswers: intPtr(4)},
		{ID: "b", UserID: "u2", HintsUsed: intPtr(2)},
		{ID: "c", UserID: "u3"},
	}

	m := AnalyzeMetrics(sessions)
	require.NotNil(t, m.AvgHints)
	require.NotNil(t, m.AvgWrongs)
	assert.InDelta(t, 1.5, *m.AvgHints, 1e-9)
	assert.InDelta(t, 4.0, *m.AvgWrongs, 1e-9)
}

func TestAnalyzeMetrics_AveragesRoundToOneDecimal(t *testing.T) {
	sessions := []quest.PlaySession{
		{ID: "a", HintsUsed: intPtr(1)},
		{ID: "b", HintsUsed: intPtr(1)},
		{ID: "c", HintsUsed: intPtr(2)},
	}
	m := AnalyzeMetrics(sessions)
	require.NotNil(t, m.AvgHints)
	assert.InDelta(t, 1.3, *m.AvgHints, 1e-9)
}

func TestAnalyzeMetrics_ClearRateBounds(t *testing.T) {
	for n := 0; n <= 12; n++ {
		var sessions []quest.PlaySession
		for i := 0; i < n; i++ {
			if i%3 == 0 {
				sessions = append(sessions, endedSession(fmt.Sprint(i), "u", 10))
			} else {
				sessions = append(sessions, quest.PlaySession{ID: fmt.Sprint(i)})
			}
		}
		m := AnalyzeMetrics(sessions)
		assert.GreaterOrEqual(t, m.ClearRate, 0)
		assert.LessOrEqual(t, m.ClearRate, 100)
	}
}
