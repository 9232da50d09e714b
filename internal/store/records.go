package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/blackwell-systems/questwatch/internal/quest"
)

// FetchQuests returns quest metadata with steps ordered by ordinal. Unknown
// IDs are silently absent from the result.
func (db *DB) FetchQuests(ctx context.Context, questIDs []string) ([]quest.Quest, error) {
	if len(questIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(questIDs)

	rows, err := db.conn.QueryContext(ctx, "SELECT id, title FROM quests WHERE id IN ("+in+") ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var quests []quest.Quest
	index := make(map[string]int)
	for rows.Next() {
		var q quest.Quest
		if err := rows.Scan(&q.ID, &q.Title); err != nil {
			return nil, err
		}
		index[q.ID] = len(quests)
		quests = append(quests, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	steps, err := db.conn.QueryContext(ctx,
		"SELECT quest_id, ordinal, name FROM quest_steps WHERE quest_id IN ("+in+") ORDER BY quest_id, ordinal",
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = steps.Close() }()

	for steps.Next() {
		var questID string
		var s quest.StepDefinition
		if err := steps.Scan(&questID, &s.Ordinal, &s.Name); err != nil {
			return nil, err
		}
		if i, ok := index[questID]; ok {
			quests[i].Steps = append(quests[i].Steps, s)
		}
	}
	return quests, steps.Err()
}

// FetchSessions returns every play session of the given quests.
func (db *DB) FetchSessions(ctx context.Context, questIDs []string) ([]quest.PlaySession, error) {
	if len(questIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(questIDs)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, quest_id, user_id, started_at, ended_at, duration_sec,
		 hints_used, wrong_answers, solved_spots
		 FROM play_sessions WHERE quest_id IN (`+in+`) ORDER BY started_at, id`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sessions []quest.PlaySession
	for rows.Next() {
		var s quest.PlaySession
		var started, ended sql.NullString
		var duration, hints, wrongs sql.NullInt64
		if err := rows.Scan(&s.ID, &s.QuestID, &s.UserID, &started, &ended,
			&duration, &hints, &wrongs, &s.SolvedSpots); err != nil {
			return nil, err
		}
		s.StartedAt = parseTime(started)
		if ended.Valid {
			t := parseTime(ended)
			s.EndedAt = &t
		}
		s.DurationSec = intOrNil(duration)
		s.HintsUsed = intOrNil(hints)
		s.WrongAnswers = intOrNil(wrongs)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// FetchReviews returns every review of the given quests.
func (db *DB) FetchReviews(ctx context.Context, questIDs []string) ([]quest.Review, error) {
	if len(questIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(questIDs)
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, quest_id, rating, comment, created_at FROM reviews WHERE quest_id IN ("+in+") ORDER BY created_at, id",
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var reviews []quest.Review
	for rows.Next() {
		var r quest.Review
		var rating sql.NullInt64
		var comment, created sql.NullString
		if err := rows.Scan(&r.ID, &r.QuestID, &rating, &comment, &created); err != nil {
			return nil, err
		}
		r.Rating = intOrNil(rating)
		r.Comment = comment.String
		r.CreatedAt = parseTime(created)
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// FetchEvents returns a quest's gameplay events of one type.
func (db *DB) FetchEvents(ctx context.Context, questID, eventType string) ([]quest.GameplayEvent, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, quest_id, spot_id, event_type, event_data, created_at
		 FROM gameplay_events WHERE quest_id = ? AND event_type = ? ORDER BY created_at, id`,
		questID, eventType,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []quest.GameplayEvent
	for rows.Next() {
		var e quest.GameplayEvent
		var spot, data, created sql.NullString
		if err := rows.Scan(&e.ID, &e.QuestID, &spot, &e.EventType, &data, &created); err != nil {
			return nil, err
		}
		e.SpotID = spot.String
		if data.Valid && data.String != "" {
			e.EventData = json.RawMessage(data.String)
		}
		e.CreatedAt = parseTime(created)
		events = append(events, e)
	}
	return events, rows.Err()
}

// FetchFeedback returns a quest's player feedback.
func (db *DB) FetchFeedback(ctx context.Context, questID string) ([]quest.Feedback, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, quest_id, category, message, created_at FROM feedback WHERE quest_id = ? ORDER BY created_at, id",
		questID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var feedback []quest.Feedback
	for rows.Next() {
		var f quest.Feedback
		var category string
		var message, created sql.NullString
		if err := rows.Scan(&f.ID, &f.QuestID, &category, &message, &created); err != nil {
			return nil, err
		}
		f.Category = quest.Category(category)
		f.Message = message.String
		f.CreatedAt = parseTime(created)
		feedback = append(feedback, f)
	}
	return feedback, rows.Err()
}

// ListQuestIDs returns every quest ID that has metadata or any recorded
// activity, sorted.
func (db *DB) ListQuestIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id FROM quests
		UNION SELECT quest_id FROM play_sessions
		UNION SELECT quest_id FROM reviews
		UNION SELECT quest_id FROM gameplay_events
		UNION SELECT quest_id FROM feedback
		ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DataVersion returns a token that changes every time an import touches the
// quest. Quests never imported report "0".
func (db *DB) DataVersion(ctx context.Context, questID string) (string, error) {
	var v int64
	err := db.conn.QueryRowContext(ctx, "SELECT version FROM data_versions WHERE quest_id = ?", questID).Scan(&v)
	if err == sql.ErrNoRows {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(v, 10), nil
}

// InstanceID returns the random ID this database was stamped with when it was
// created.
func (db *DB) InstanceID(ctx context.Context) (string, error) {
	var id string
	err := db.conn.QueryRowContext(ctx, "SELECT value FROM store_meta WHERE key = 'instance_id'").Scan(&id)
	if err != nil {
		return "", fmt.Errorf("reading instance_id: %w", err)
	}
	return id, nil
}

// inClause returns "?,?,..." for ids and the matching argument list.
func inClause(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

// formatTime renders t for storage. Zero times are stored as NULL.
func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime reads a stored timestamp. NULL and unparseable values become the
// zero time, which every window filter passes through.
func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func intOrNil(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
