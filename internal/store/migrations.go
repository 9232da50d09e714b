package store

import (
	"fmt"

	"github.com/google/uuid"
)

// currentSchemaVersion is the latest schema version.
const currentSchemaVersion = 2

// Migrate runs forward migrations to bring the database schema up to date.
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	version := 0
	row := db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&version); err != nil {
		// No rows means version 0 (fresh database).
		version = 0
	}

	if version < 1 {
		if err := db.migrateV1(); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}
	if version < 2 {
		if err := db.migrateV2(); err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
	}

	return nil
}

// migrateV1 creates the record tables, the per-quest data version counter,
// and the watch snapshot table.
func (db *DB) migrateV1() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS quests (
			id    TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS quest_steps (
			quest_id TEXT NOT NULL REFERENCES quests(id) ON DELETE CASCADE,
			ordinal  INTEGER NOT NULL,
			name     TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (quest_id, ordinal)
		)`,

		`CREATE TABLE IF NOT EXISTS play_sessions (
			id            TEXT PRIMARY KEY,
			quest_id      TEXT NOT NULL,
			user_id       TEXT NOT NULL,
			started_at    TEXT,
			ended_at      TEXT,
			duration_sec  INTEGER,
			hints_used    INTEGER,
			wrong_answers INTEGER,
			solved_spots  INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS reviews (
			id         TEXT PRIMARY KEY,
			quest_id   TEXT NOT NULL,
			rating     INTEGER,
			comment    TEXT,
			created_at TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS gameplay_events (
			id         TEXT PRIMARY KEY,
			quest_id   TEXT NOT NULL,
			spot_id    TEXT,
			event_type TEXT NOT NULL,
			event_data TEXT,
			created_at TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS feedback (
			id         TEXT PRIMARY KEY,
			quest_id   TEXT NOT NULL,
			category   TEXT NOT NULL,
			message    TEXT,
			created_at TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS data_versions (
			quest_id TEXT PRIMARY KEY,
			version  INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS snapshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			quest_id    TEXT NOT NULL,
			time_window TEXT NOT NULL,
			taken_at    TEXT NOT NULL,
			payload     TEXT NOT NULL
		)`,

		// Indexes.
		`CREATE INDEX IF NOT EXISTS idx_sessions_quest ON play_sessions(quest_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_quest ON reviews(quest_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_quest_type ON gameplay_events(quest_id, event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_quest ON feedback(quest_id)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_quest ON snapshots(quest_id, time_window)`,
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}

	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (1)"); err != nil {
		return err
	}

	return tx.Commit()
}

// migrateV2 adds the store_meta table and stamps the database with a random
// instance ID. Two database files never share one, even when their data
// version counters line up.
func (db *DB) migrateV2() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS store_meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating store_meta: %w", err)
	}
	if _, err := tx.Exec("INSERT OR IGNORE INTO store_meta (key, value) VALUES ('instance_id', ?)", uuid.NewString()); err != nil {
		return fmt.Errorf("writing instance_id: %w", err)
	}
	if _, err := tx.Exec("UPDATE schema_version SET version = ?", currentSchemaVersion); err != nil {
		return err
	}

	return tx.Commit()
}
