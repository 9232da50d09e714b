package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// bundleFiles are the per-stream files LoadBundle reads from a directory, in
// Bundle field order.
var bundleFiles = []string{"quests.json", "sessions.json", "reviews.json", "events.json", "feedback.json"}

// LoadBundle reads records from path. A file is decoded as one Bundle object;
// a directory is searched for quests.json, sessions.json, reviews.json,
// events.json and feedback.json, each holding a JSON array. Missing files are
// skipped.
func LoadBundle(path string) (Bundle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Bundle{}, err
	}
	if !info.IsDir() {
		var b Bundle
		if err := readJSON(path, &b); err != nil {
			return Bundle{}, err
		}
		return b, nil
	}

	var b Bundle
	targets := []any{&b.Quests, &b.Sessions, &b.Reviews, &b.Events, &b.Feedback}
	for i, name := range bundleFiles {
		err := readJSON(filepath.Join(path, name), targets[i])
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Bundle{}, err
		}
	}
	return b, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Import upserts every record of b in one transaction and bumps the data
// version of each touched quest. Records without an ID get a fresh UUID;
// records without a quest ID are rejected and nothing is written.
func (db *DB) Import(ctx context.Context, b Bundle) (ImportStats, error) {
	var stats ImportStats
	touched := make(map[string]bool)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return stats, err
	}
	defer tx.Rollback()

	for i, q := range b.Quests {
		if q.ID == "" {
			return stats, fmt.Errorf("quest %d: missing id", i)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quests (id, title) VALUES (?, ?)
			 ON CONFLICT(id) DO UPDATE SET title = excluded.title`,
			q.ID, q.Title,
		); err != nil {
			return stats, fmt.Errorf("writing quest %s: %w", q.ID, err)
		}
		if q.Steps != nil {
			if _, err := tx.ExecContext(ctx, "DELETE FROM quest_steps WHERE quest_id = ?", q.ID); err != nil {
				return stats, fmt.Errorf("clearing steps of %s: %w", q.ID, err)
			}
			for _, s := range q.Steps {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO quest_steps (quest_id, ordinal, name) VALUES (?, ?, ?)",
					q.ID, s.Ordinal, s.Name,
				); err != nil {
					return stats, fmt.Errorf("writing step %d of %s: %w", s.Ordinal, q.ID, err)
				}
				stats.Steps++
			}
		}
		touched[q.ID] = true
		stats.Quests++
	}

	for i, s := range b.Sessions {
		if s.QuestID == "" {
			return stats, fmt.Errorf("session %d: missing quest_id", i)
		}
		var ended any
		if s.EndedAt != nil {
			ended = s.EndedAt.UTC().Format(time.RFC3339Nano)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO play_sessions
			(id, quest_id, user_id, started_at, ended_at, duration_sec, hints_used, wrong_answers, solved_spots)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				quest_id = excluded.quest_id, user_id = excluded.user_id,
				started_at = excluded.started_at, ended_at = excluded.ended_at,
				duration_sec = excluded.duration_sec, hints_used = excluded.hints_used,
				wrong_answers = excluded.wrong_answers, solved_spots = excluded.solved_spots`,
			idOrNew(s.ID), s.QuestID, s.UserID, formatTime(s.StartedAt), ended,
			nullableInt(s.DurationSec), nullableInt(s.HintsUsed), nullableInt(s.WrongAnswers), s.SolvedSpots,
		); err != nil {
			return stats, fmt.Errorf("writing session %d: %w", i, err)
		}
		touched[s.QuestID] = true
		stats.Sessions++
	}

	for i, r := range b.Reviews {
		if r.QuestID == "" {
			return stats, fmt.Errorf("review %d: missing quest_id", i)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reviews (id, quest_id, rating, comment, created_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET quest_id = excluded.quest_id, rating = excluded.rating,
				comment = excluded.comment, created_at = excluded.created_at`,
			idOrNew(r.ID), r.QuestID, nullableInt(r.Rating), r.Comment, formatTime(r.CreatedAt),
		); err != nil {
			return stats, fmt.Errorf("writing review %d: %w", i, err)
		}
		touched[r.QuestID] = true
		stats.Reviews++
	}

	for i, e := range b.Events {
		if e.QuestID == "" {
			return stats, fmt.Errorf("event %d: missing quest_id", i)
		}
		if e.EventType == "" {
			return stats, fmt.Errorf("event %d: missing event_type", i)
		}
		var data any
		if len(e.EventData) > 0 {
			data = string(e.EventData)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO gameplay_events (id, quest_id, spot_id, event_type, event_data, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET quest_id = excluded.quest_id, spot_id = excluded.spot_id,
				event_type = excluded.event_type, event_data = excluded.event_data,
				created_at = excluded.created_at`,
			idOrNew(e.ID), e.QuestID, e.SpotID, e.EventType, data, formatTime(e.CreatedAt),
		); err != nil {
			return stats, fmt.Errorf("writing event %d: %w", i, err)
		}
		touched[e.QuestID] = true
		stats.Events++
	}

	for i, f := range b.Feedback {
		if f.QuestID == "" {
			return stats, fmt.Errorf("feedback %d: missing quest_id", i)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feedback (id, quest_id, category, message, created_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET quest_id = excluded.quest_id, category = excluded.category,
				message = excluded.message, created_at = excluded.created_at`,
			idOrNew(f.ID), f.QuestID, string(f.Category), f.Message, formatTime(f.CreatedAt),
		); err != nil {
			return stats, fmt.Errorf("writing feedback %d: %w", i, err)
		}
		touched[f.QuestID] = true
		stats.Feedback++
	}

	for id := range touched {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO data_versions (quest_id, version) VALUES (?, 1)
			 ON CONFLICT(quest_id) DO UPDATE SET version = version + 1`,
			id,
		); err != nil {
			return stats, fmt.Errorf("bumping data version of %s: %w", id, err)
		}
		stats.Touched = append(stats.Touched, id)
	}
	sort.Strings(stats.Touched)

	if err := tx.Commit(); err != nil {
		return stats, err
	}
	return stats, nil
}

func idOrNew(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}
