package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// SaveSnapshot stores an encoded detail snapshot and returns its ID.
func (db *DB) SaveSnapshot(ctx context.Context, questID, window string, takenAt time.Time, payload []byte) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO snapshots (quest_id, time_window, taken_at, payload) VALUES (?, ?, ?, ?)",
		questID, window, takenAt.UTC().Format(time.RFC3339Nano), string(payload),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// LatestSnapshot returns the most recent snapshot of a quest for a window, or
// nil if none exist.
func (db *DB) LatestSnapshot(ctx context.Context, questID, window string) (*Snapshot, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, quest_id, time_window, taken_at, payload FROM snapshots
		 WHERE quest_id = ? AND time_window = ? ORDER BY id DESC LIMIT 1`,
		questID, window,
	)

	var s Snapshot
	var takenAt, payload string
	err := row.Scan(&s.ID, &s.QuestID, &s.Window, &takenAt, &payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.TakenAt = parseTime(sql.NullString{String: takenAt, Valid: true})
	s.Payload = json.RawMessage(payload)
	return &s, nil
}

// PruneSnapshots keeps only the newest keep snapshots of a quest for a window.
func (db *DB) PruneSnapshots(ctx context.Context, questID, window string, keep int) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM snapshots WHERE quest_id = ? AND time_window = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE quest_id = ? AND time_window = ? ORDER BY id DESC LIMIT ?
		)`,
		questID, window, questID, window, keep,
	)
	return err
}
