// Package quest defines the gameplay records questwatch aggregates: play
// sessions, step definitions, reviews, gameplay events, and feedback.
package quest

import (
	"encoding/json"
	"time"
)

// Quest is the metadata needed to label summary rows and funnel steps.
type Quest struct {
	ID    string           `json:"id"`
	Title string           `json:"title"`
	Steps []StepDefinition `json:"steps"`
}

// StepDefinition is one stop along a quest route.
type StepDefinition struct {
	// Ordinal is the 1-based position along the route.
	Ordinal int    `json:"ordinal"`
	Name    string `json:"name"`
}

// PlaySession is one player's attempt at a quest.
type PlaySession struct {
	ID        string     `json:"id"`
	QuestID   string     `json:"quest_id"`
	UserID    string     `json:"user_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	// DurationSec is only meaningful when EndedAt is set.
	DurationSec  *int `json:"duration_sec,omitempty"`
	HintsUsed    *int `json:"hints_used,omitempty"`
	WrongAnswers *int `json:"wrong_answers,omitempty"`

	// SolvedSpots is the ordinal count of steps reached so far.
	SolvedSpots int `json:"solved_spots"`
}

// Cleared reports whether the session reached the end of the quest.
func (s PlaySession) Cleared() bool {
	return s.EndedAt != nil
}

// Timestamp returns EndedAt when present, otherwise StartedAt.
func (s PlaySession) Timestamp() time.Time {
	if s.EndedAt != nil && !s.EndedAt.IsZero() {
		return *s.EndedAt
	}
	return s.StartedAt
}

// Review is a player's rating and comment for a quest.
type Review struct {
	ID      string `json:"id"`
	QuestID string `json:"quest_id"`

	// Rating is 1-5, or nil when the review carries no score.
	Rating    *int      `json:"rating,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Timestamp returns CreatedAt.
func (r Review) Timestamp() time.Time { return r.CreatedAt }

// Event types recorded by gameplay clients.
const (
	EventSessionAbandon = "session_abandon"
	EventPuzzleSubmit   = "puzzle_submit"
)

// GameplayEvent is a discrete event emitted during play.
type GameplayEvent struct {
	ID        string          `json:"id"`
	QuestID   string          `json:"quest_id"`
	SpotID    string          `json:"spot_id,omitempty"`
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Timestamp returns CreatedAt.
func (e GameplayEvent) Timestamp() time.Time { return e.CreatedAt }

// abandonPayload is the event_data of a session_abandon event.
type abandonPayload struct {
	Mode     string `json:"mode"`
	LastMode string `json:"last_mode"`
}

// submitPayload is the event_data of a puzzle_submit event.
type submitPayload struct {
	Correct   *bool `json:"correct"`
	IsCorrect *bool `json:"is_correct"`
}

// LastMode returns the game mode that was active when the session was
// abandoned, or "" when the payload does not carry one.
func (e GameplayEvent) LastMode() string {
	if len(e.EventData) == 0 {
		return ""
	}
	var p abandonPayload
	if err := json.Unmarshal(e.EventData, &p); err != nil {
		return ""
	}
	if p.Mode != "" {
		return p.Mode
	}
	return p.LastMode
}

// Correct returns the correctness flag of a puzzle submission. ok is false
// when the payload is missing or malformed.
func (e GameplayEvent) Correct() (correct, ok bool) {
	if len(e.EventData) == 0 {
		return false, false
	}
	var p submitPayload
	if err := json.Unmarshal(e.EventData, &p); err != nil {
		return false, false
	}
	switch {
	case p.Correct != nil:
		return *p.Correct, true
	case p.IsCorrect != nil:
		return *p.IsCorrect, true
	default:
		return false, false
	}
}

// Category classifies free-form player feedback.
type Category string

// Feedback categories offered to players.
const (
	CategoryLost           Category = "lost"
	CategoryGPSError       Category = "gps_error"
	CategoryPuzzleHard     Category = "puzzle_hard"
	CategoryAnswerRejected Category = "answer_rejected"
	CategoryUIConfusing    Category = "ui_confusing"
	CategoryOther          Category = "other"
)

// Categories lists the feedback categories in display order.
var Categories = []Category{
	CategoryLost,
	CategoryGPSError,
	CategoryPuzzleHard,
	CategoryAnswerRejected,
	CategoryUIConfusing,
	CategoryOther,
}

var categoryLabels = map[Category]string{
	CategoryLost:           "Got lost on the route",
	CategoryGPSError:       "GPS / location error",
	CategoryPuzzleHard:     "Puzzle too hard",
	CategoryAnswerRejected: "Correct answer rejected",
	CategoryUIConfusing:    "Confusing screens",
	CategoryOther:          "Other",
}

// Label returns the human-readable label for c. Unknown categories are
// labeled with their raw value.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Feedback is a free-form report submitted by a player.
type Feedback struct {
	ID        string    `json:"id"`
	QuestID   string    `json:"quest_id"`
	Category  Category  `json:"category"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Timestamp returns CreatedAt.
func (f Feedback) Timestamp() time.Time { return f.CreatedAt }
