// Package analyzer turns windowed quest records into funnel, rate, and
// distribution statistics. Every function here is pure.
package analyzer

import "time"

// QuestMetrics summarizes play and clear activity for one quest.
type QuestMetrics struct {
	PlayCount     int `json:"play_count"`
	UniquePlayers int `json:"unique_players"`
	ClearCount    int `json:"clear_count"`

	// ClearRate is a whole-number percentage, 0 when there are no plays.
	ClearRate int `json:"clear_rate"`

	// AvgDurationMin is nil when no cleared session recorded a duration.
	AvgDurationMin *int `json:"avg_duration_min"`

	AvgHints  *float64 `json:"avg_hints"`
	AvgWrongs *float64 `json:"avg_wrongs"`
}

// FunnelStep is the reach and drop-off of a single route step.
type FunnelStep struct {
	Step      int     `json:"step"`
	Name      string  `json:"name"`
	Reached   int     `json:"reached"`
	Completed int     `json:"completed"`
	DropRate  float64 `json:"drop_rate"`

	// AvgHints and AvgWrongs spread each session's totals evenly over the
	// quest's steps; the source data has no per-step breakdown.
	AvgHints  *float64 `json:"avg_hints_est"`
	AvgWrongs *float64 `json:"avg_wrongs_est"`
	Estimated bool     `json:"estimated"`
}

// ReviewStats aggregates player ratings.
type ReviewStats struct {
	AvgRating    *float64       `json:"avg_rating"`
	Count        int            `json:"count"`
	Distribution map[int]int    `json:"distribution"`
	Latest       []ReviewSample `json:"latest"`
}

// ReviewSample is one entry of the recency-ordered review list.
type ReviewSample struct {
	Rating    *int      `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EventStats summarizes discrete gameplay events.
type EventStats struct {
	DropOffByMode   []ModeCount     `json:"drop_off_by_mode"`
	PuzzleErrorRate []SpotErrorRate `json:"puzzle_error_rate"`
	ArrivalFailRate float64         `json:"arrival_fail_rate"`
	HintUsageRate   float64         `json:"hint_usage_rate"`
}

// ModeCount is the number of abandons that happened in one game mode.
type ModeCount struct {
	Mode  string `json:"mode"`
	Count int    `json:"count"`
}

// SpotErrorRate is the wrong-answer ratio of puzzle submissions at one spot.
type SpotErrorRate struct {
	SpotID       string  `json:"spot_id"`
	TotalSubmits int     `json:"total_submits"`
	WrongSubmits int     `json:"wrong_submits"`
	Rate         float64 `json:"rate"`
}

// FeedbackStats groups player feedback by category.
type FeedbackStats struct {
	Total      int              `json:"total"`
	ByCategory []CategoryCount  `json:"by_category"`
	Recent     []FeedbackSample `json:"recent"`
}

// CategoryCount is the number of feedback rows in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Label    string `json:"label"`
	Count    int    `json:"count"`
}

// FeedbackSample is one entry of the recency-ordered feedback list.
type FeedbackSample struct {
	Category  string    `json:"category"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
