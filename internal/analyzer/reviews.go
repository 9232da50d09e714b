package analyzer

import (
	"sort"

	"github.com/blackwell-systems/questwatch/internal/quest"
)

// AnalyzeReviews computes the rating average, the 1-5 score distribution,
// and the latest reviews (up to latestN, newest first). Reviews without a
// rating, or with a rating outside 1-5, count toward Latest only.
func AnalyzeReviews(reviews []quest.Review, latestN int) ReviewStats {
	stats := ReviewStats{
		Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}

	var sum int
	for _, r := range reviews {
		if r.Rating == nil || *r.Rating < 1 || *r.Rating > 5 {
			continue
		}
		stats.Distribution[*r.Rating]++
		stats.Count++
		sum += *r.Rating
	}
	if stats.Count > 0 {
		stats.AvgRating = ptr(roundTo(float64(sum)/float64(stats.Count), 2))
	}

	stats.Latest = LatestReviews(reviews, latestN)
	return stats
}

// LatestReviews returns the n most recent reviews, newest first. Compact
// surfaces call it directly with a small n.
func LatestReviews(reviews []quest.Review, n int) []ReviewSample {
	sorted := make([]quest.Review, len(reviews))
	copy(sorted, reviews)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}

	samples := make([]ReviewSample, 0, len(sorted))
	for _, r := range sorted {
		samples = append(samples, ReviewSample{
			Rating:    r.Rating,
			Comment:   r.Comment,
			CreatedAt: r.CreatedAt,
		})
	}
	return samples
}
