package analyzer

import (
	"sort"

	"github.com/blackwell-systems/questwatch/internal/quest"
)

// categoryRank orders categories with equal counts.
var categoryRank = func() map[quest.Category]int {
	m := make(map[quest.Category]int, len(quest.Categories))
	for i, c := range quest.Categories {
		m[c] = i
	}
	return m
}()

// AnalyzeFeedback counts feedback per category (categories with no rows are
// omitted) and returns the recentN newest rows.
func AnalyzeFeedback(rows []quest.Feedback, recentN int) FeedbackStats {
	stats := FeedbackStats{Total: len(rows)}

	counts := make(map[quest.Category]int)
	for _, f := range rows {
		counts[f.Category]++
	}

	stats.ByCategory = make([]CategoryCount, 0, len(counts))
	for c, n := range counts {
		stats.ByCategory = append(stats.ByCategory, CategoryCount{
			Category: string(c),
			Label:    c.Label(),
			Count:    n,
		})
	}
	sort.Slice(stats.ByCategory, func(i, j int) bool {
		a, b := stats.ByCategory[i], stats.ByCategory[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		ra, okA := categoryRank[quest.Category(a.Category)]
		rb, okB := categoryRank[quest.Category(b.Category)]
		switch {
		case okA && okB:
			return ra < rb
		case okA != okB:
			return okA
		default:
			return a.Category < b.Category
		}
	})

	sorted := make([]quest.Feedback, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if recentN >= 0 && recentN < len(sorted) {
		sorted = sorted[:recentN]
	}

	stats.Recent = make([]FeedbackSample, 0, len(sorted))
	for _, f := range sorted {
		stats.Recent = append(stats.Recent, FeedbackSample{
			Category:  string(f.Category),
			Message:   f.Message,
			CreatedAt: f.CreatedAt,
		})
	}

	return stats
}
