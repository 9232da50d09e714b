// Package store provides SQLite access to quest records and watch snapshots.
package store

import (
	"encoding/json"
	"time"

	"github.com/blackwell-systems/questwatch/internal/quest"
)

// Bundle is a batch of records to import. It is also the on-disk JSON shape
// read by LoadBundle.
type Bundle struct {
	Quests   []quest.Quest         `json:"quests,omitempty"`
	Sessions []quest.PlaySession   `json:"sessions,omitempty"`
	Reviews  []quest.Review        `json:"reviews,omitempty"`
	Events   []quest.GameplayEvent `json:"events,omitempty"`
	Feedback []quest.Feedback      `json:"feedback,omitempty"`
}

// Empty reports whether the bundle carries no records.
func (b Bundle) Empty() bool {
	return len(b.Quests) == 0 && len(b.Sessions) == 0 && len(b.Reviews) == 0 &&
		len(b.Events) == 0 && len(b.Feedback) == 0
}

// ImportStats counts the records written by one Import.
type ImportStats struct {
	Quests   int      `json:"quests"`
	Steps    int      `json:"steps"`
	Sessions int      `json:"sessions"`
	Reviews  int      `json:"reviews"`
	Events   int      `json:"events"`
	Feedback int      `json:"feedback"`
	Touched  []string `json:"touched_quests"`
}

// Snapshot is a persisted detail snapshot taken by the watch loop.
type Snapshot struct {
	ID      int64           `json:"id"`
	QuestID string          `json:"quest_id"`
	Window  string          `json:"window"`
	TakenAt time.Time       `json:"taken_at"`
	Payload json.RawMessage `json:"payload"`
}
