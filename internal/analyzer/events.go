package analyzer

import (
	"sort"

	"github.com/blackwell-systems/questwatch/internal/quest"
)

// unknownMode labels abandons whose payload carries no game mode.
const unknownMode = "unknown"

// AnalyzeEvents computes drop-off by game mode and the hardest puzzle spots
// from gameplay events, plus the hint usage rate from sessions. hardestN caps
// the puzzle ranking; zero or negative keeps every spot.
func AnalyzeEvents(events []quest.GameplayEvent, sessions []quest.PlaySession, hardestN int) EventStats {
	var abandons, submits []quest.GameplayEvent
	for _, e := range events {
		switch e.EventType {
		case quest.EventSessionAbandon:
			abandons = append(abandons, e)
		case quest.EventPuzzleSubmit:
			submits = append(submits, e)
		}
	}

	return EventStats{
		DropOffByMode:   DropOffByMode(abandons),
		PuzzleErrorRate: PuzzleErrorRates(submits, hardestN),
		ArrivalFailRate: 0, // no arrival-failure event source yet
		HintUsageRate:   HintUsageRate(sessions),
	}
}

// DropOffByMode counts session_abandon events per last active game mode,
// most frequent first.
func DropOffByMode(events []quest.GameplayEvent) []ModeCount {
	counts := make(map[string]int)
	for _, e := range events {
		if e.EventType != quest.EventSessionAbandon {
			continue
		}
		mode := e.LastMode()
		if mode == "" {
			mode = unknownMode
		}
		counts[mode]++
	}

	result := make([]ModeCount, 0, len(counts))
	for mode, n := range counts {
		result = append(result, ModeCount{Mode: mode, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Mode < result[j].Mode
	})
	return result
}

// PuzzleErrorRates groups puzzle_submit events by spot and ranks spots by
// wrong-answer rate, highest first, keeping the top n. Submissions without a
// spot or a readable correctness flag are skipped.
func PuzzleErrorRates(events []quest.GameplayEvent, n int) []SpotErrorRate {
	bySpot := make(map[string]*SpotErrorRate)
	for _, e := range events {
		if e.EventType != quest.EventPuzzleSubmit || e.SpotID == "" {
			continue
		}
		correct, ok := e.Correct()
		if !ok {
			continue
		}
		s, exists := bySpot[e.SpotID]
		if !exists {
			s = &SpotErrorRate{SpotID: e.SpotID}
			bySpot[e.SpotID] = s
		}
		s.TotalSubmits++
		if !correct {
			s.WrongSubmits++
		}
	}

	result := make([]SpotErrorRate, 0, len(bySpot))
	for _, s := range bySpot {
		if s.TotalSubmits > 0 {
			s.Rate = float64(s.WrongSubmits) / float64(s.TotalSubmits)
		}
		result = append(result, *s)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Rate != b.Rate {
			return a.Rate > b.Rate
		}
		if a.TotalSubmits != b.TotalSubmits {
			return a.TotalSubmits > b.TotalSubmits
		}
		return a.SpotID < b.SpotID
	})

	if n > 0 && len(result) > n {
		result = result[:n]
	}
	return result
}

// HintUsageRate is the fraction of sessions with a recorded hint count that
// used at least one hint.
func HintUsageRate(sessions []quest.PlaySession) float64 {
	var withHints, recorded int
	for _, s := range sessions {
		if s.HintsUsed == nil {
			continue
		}
		recorded++
		if *s.HintsUsed > 0 {
			withHints++
		}
	}
	if recorded == 0 {
		return 0
	}
	return float64(withHints) / float64(recorded)
}
