package analyzer

import (
	"math"

	"github.com/blackwell-systems/questwatch/internal/quest"
)

// AnalyzeMetrics computes play, clear, duration, hint, and wrong-answer
// statistics from a quest's (already windowed) sessions. Missing optional
// values are left out of their averages rather than counted as zero.
func AnalyzeMetrics(sessions []quest.PlaySession) QuestMetrics {
	m := QuestMetrics{PlayCount: len(sessions)}
	if len(sessions) == 0 {
		return m
	}

	players := make(map[string]struct{}, len(sessions))
	var durations, hints, wrongs []*int

	for _, s := range sessions {
		players[s.UserID] = struct{}{}
		if s.Cleared() {
			m.ClearCount++
			durations = append(durations, s.DurationSec)
		}
		hints = append(hints, s.HintsUsed)
		wrongs = append(wrongs, s.WrongAnswers)
	}
	m.UniquePlayers = len(players)
	m.ClearRate = int(math.Round(float64(m.ClearCount) / float64(m.PlayCount) * 100))

	if avg := meanOf(durations); avg != nil {
		m.AvgDurationMin = ptr(int(math.Round(*avg / 60)))
	}
	if avg := meanOf(hints); avg != nil {
		m.AvgHints = ptr(roundTo(*avg, 1))
	}
	if avg := meanOf(wrongs); avg != nil {
		m.AvgWrongs = ptr(roundTo(*avg, 1))
	}

	return m
}
