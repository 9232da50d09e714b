package watcher

import (
	"fmt"
	"sort"

	"github.com/blackwell-systems/questwatch/internal/analytics"
)

// Compare detects notable changes between two snapshots of the same quest.
// Sections unavailable in either snapshot are skipped rather than compared
// against empty data. Alerts come back critical first, then warnings, then
// info.
func Compare(prev, curr *analytics.QuestDetailAnalytics, t Thresholds) []Alert {
	var alerts []Alert
	alerts = append(alerts, compareCritical(prev, curr, t)...)
	alerts = append(alerts, compareWarning(prev, curr, t)...)
	alerts = append(alerts, compareInfo(prev, curr)...)
	return alerts
}

func compareCritical(prev, curr *analytics.QuestDetailAnalytics, t Thresholds) []Alert {
	if !prev.GameplayEvents.Usable() || !curr.GameplayEvents.Usable() {
		return nil
	}

	before := make(map[string]float64, len(prev.GameplayEvents.Data.PuzzleErrorRate))
	for _, s := range prev.GameplayEvents.Data.PuzzleErrorRate {
		before[s.SpotID] = s.Rate
	}

	var alerts []Alert
	for _, s := range curr.GameplayEvents.Data.PuzzleErrorRate {
		if s.Rate < t.HardSpotRate {
			continue
		}
		if old, seen := before[s.SpotID]; seen && old >= t.HardSpotRate {
			continue
		}
		alerts = append(alerts, Alert{
			Level:   LevelCritical,
			Title:   fmt.Sprintf("Hard puzzle spot: %s", s.SpotID),
			Message: fmt.Sprintf("%.0f%% of %d submissions wrong", s.Rate*100, s.TotalSubmits),
		})
	}
	return alerts
}

func compareWarning(prev, curr *analytics.QuestDetailAnalytics, t Thresholds) []Alert {
	var alerts []Alert

	if prev.Summary.OK() && curr.Summary.OK() {
		p, c := prev.Summary.Data.ClearRate, curr.Summary.Data.ClearRate
		if t.ClearRateDrop > 0 && p-c >= t.ClearRateDrop {
			alerts = append(alerts, Alert{
				Level:   LevelWarning,
				Title:   "Clear rate dropped",
				Message: fmt.Sprintf("Clear rate fell from %d%% to %d%% over %d plays", p, c, curr.Summary.Data.PlayCount),
				Delta:   float64(c - p),
			})
		}
	}

	if prev.Reviews.OK() && curr.Reviews.OK() {
		p, c := lowReviews(prev, t.LowRating), lowReviews(curr, t.LowRating)
		if c > p {
			alerts = append(alerts, Alert{
				Level:   LevelWarning,
				Title:   "New low reviews",
				Message: fmt.Sprintf("%d new review(s) rated %d or below", c-p, t.LowRating),
			})
		}
	}

	if prev.FeedbackStats.OK() && curr.FeedbackStats.OK() {
		seen := make(map[string]bool)
		for _, c := range prev.FeedbackStats.Data.ByCategory {
			seen[c.Category] = true
		}
		for _, c := range curr.FeedbackStats.Data.ByCategory {
			if !seen[c.Category] {
				alerts = append(alerts, Alert{
					Level:   LevelWarning,
					Title:   fmt.Sprintf("New feedback category: %s", c.Label),
					Message: fmt.Sprintf("First %d report(s) in this category", c.Count),
				})
			}
		}
	}

	for _, name := range newlyUnavailable(prev, curr) {
		alerts = append(alerts, Alert{
			Level:   LevelWarning,
			Title:   "Data source unavailable",
			Message: fmt.Sprintf("%s could not be computed", name),
		})
	}

	return alerts
}

func compareInfo(prev, curr *analytics.QuestDetailAnalytics) []Alert {
	var alerts []Alert

	if prev.Summary.OK() && curr.Summary.OK() {
		if n := curr.Summary.Data.PlayCount - prev.Summary.Data.PlayCount; n > 0 {
			alerts = append(alerts, Alert{
				Level:   LevelInfo,
				Title:   "New plays",
				Message: fmt.Sprintf("%d new play(s), %d total", n, curr.Summary.Data.PlayCount),
			})
		}
	}

	if prev.GameplayEvents.Usable() && curr.GameplayEvents.Usable() {
		seen := make(map[string]bool)
		for _, m := range prev.GameplayEvents.Data.DropOffByMode {
			seen[m.Mode] = true
		}
		for _, m := range curr.GameplayEvents.Data.DropOffByMode {
			if !seen[m.Mode] {
				alerts = append(alerts, Alert{
					Level:   LevelInfo,
					Title:   fmt.Sprintf("New drop-off mode: %s", m.Mode),
					Message: fmt.Sprintf("%d abandon(s) during %s", m.Count, m.Mode),
				})
			}
		}
	}

	return alerts
}

// lowReviews counts rated reviews at or below limit.
func lowReviews(d *analytics.QuestDetailAnalytics, limit int) int {
	n := 0
	for rating, count := range d.Reviews.Data.Distribution {
		if rating <= limit {
			n += count
		}
	}
	return n
}

// newlyUnavailable names the sections that were OK before and are not now.
func newlyUnavailable(prev, curr *analytics.QuestDetailAnalytics) []string {
	checks := map[string][2]bool{
		"summary":         {prev.Summary.OK(), curr.Summary.OK()},
		"funnel":          {prev.Steps.OK(), curr.Steps.OK()},
		"reviews":         {prev.Reviews.OK(), curr.Reviews.OK()},
		"gameplay events": {prev.GameplayEvents.Usable(), curr.GameplayEvents.Usable()},
		"feedback":        {prev.FeedbackStats.OK(), curr.FeedbackStats.OK()},
	}
	var names []string
	for name, ok := range checks {
		if ok[0] && !ok[1] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
