package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/questwatch/internal/quest"
)

func ratedReview(rating *int, day int, comment string) quest.Review {
	return quest.Review{Rating: rating, Comment: comment, CreatedAt: daysAgo(day)}
}

func TestAnalyzeReviews_Distribution(t *testing.T) {
	reviews := []quest.Review{
		ratedReview(intPtr(5), 5, "great"),
		ratedReview(intPtr(5), 4, "fun"),
		ratedReview(intPtr(4), 3, ""),
		ratedReview(intPtr(3), 2, "long walk"),
		ratedReview(nil, 1, "no score"),
	}

	stats := AnalyzeReviews(reviews, 10)
	assert.Equal(t, 4, stats.Count)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 1, 4: 1, 5: 2}, stats.Distribution)
	require.NotNil(t, stats.AvgRating)
	// (5+5+4+3)/4
	assert.InDelta(t, 4.25, *stats.AvgRating, 1e-9)

	sum := 0
	for _, n := range stats.Distribution {
		sum += n
	}
	assert.Equal(t, stats.Count, sum)
}

func TestAnalyzeReviews_AverageRoundsToTwoDecimals(t *testing.T) {
	reviews := []quest.Review{
		ratedReview(intPtr(5), 1, ""),
		ratedReview(intPtr(4), 1, ""),
		ratedReview(intPtr(4), 1, ""),
	}
	stats := AnalyzeReviews(reviews, 10)
	require.NotNil(t, stats.AvgRating)
	assert.InDelta(t, 4.33, *stats.AvgRating, 1e-9)
}

func TestAnalyzeReviews_NoRatings(t *testing.T) {
	stats := AnalyzeReviews([]quest.Review{ratedReview(nil, 1, "hmm")}, 10)
	assert.Nil(t, stats.AvgRating)
	assert.Zero(t, stats.Count)
	assert.Len(t, stats.Latest, 1)
}

func TestAnalyzeReviews_OutOfRangeIgnored(t *testing.T) {
	stats := AnalyzeReviews([]quest.Review{
		ratedReview(intPtr(0), 1, ""),
		ratedReview(intPtr(7), 1, ""),
		ratedReview(intPtr(2), 1, ""),
	}, 10)
	assert.Equal(t, 1, stats.Count)
	require.NotNil(t, stats.AvgRating)
	assert.InDelta(t, 2.0, *stats.AvgRating, 1e-9)
}

func TestLatestReviews_NewestFirstAndTruncated(t *testing.T) {
	reviews := []quest.Review{
		ratedReview(intPtr(3), 10, "oldest"),
		ratedReview(intPtr(4), 1, "newest"),
		ratedReview(intPtr(5), 5, "middle"),
	}

	latest := LatestReviews(reviews, 2)
	require.Len(t, latest, 2)
	assert.Equal(t, "newest", latest[0].Comment)
	assert.Equal(t, "middle", latest[1].Comment)

	// Input is not reordered.
	assert.Equal(t, "oldest", reviews[0].Comment)

	assert.Len(t, LatestReviews(reviews, 10), 3)
	assert.Empty(t, LatestReviews(reviews, 0))
}
