// Package persistence stores round history in SQLite: one row per round
// with its summary and compressed event journal, the event log, and a small
// key/value table for server metadata.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/radiowar/internal/engine"
	"github.com/talgya/radiowar/internal/social"
)

// ErrNotFound is returned when a round or meta key does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite connection for round history.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rounds (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		ended_at INTEGER,
		leader TEXT NOT NULL DEFAULT '',
		total INTEGER NOT NULL DEFAULT 0,
		captured INTEGER NOT NULL DEFAULT 0,
		summary_json TEXT NOT NULL DEFAULT '{}',
		journal BLOB
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		round TEXT NOT NULL,
		at INTEGER NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL,
		faction TEXT NOT NULL DEFAULT '',
		station TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_round ON events(round);
	CREATE INDEX IF NOT EXISTS idx_rounds_started ON rounds(started_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Round is one persisted round.
type Round struct {
	ID        string         `json:"id"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
	Summary   engine.Summary `json:"summary"`
}

type roundRow struct {
	ID          string        `db:"id"`
	StartedAt   int64         `db:"started_at"`
	EndedAt     sql.NullInt64 `db:"ended_at"`
	SummaryJSON string        `db:"summary_json"`
}

func (r roundRow) round() (Round, error) {
	out := Round{ID: r.ID, StartedAt: time.Unix(0, r.StartedAt).UTC()}
	if r.EndedAt.Valid {
		t := time.Unix(0, r.EndedAt.Int64).UTC()
		out.EndedAt = &t
	}
	if err := json.Unmarshal([]byte(r.SummaryJSON), &out.Summary); err != nil {
		return Round{}, fmt.Errorf("decode summary of round %s: %w", r.ID, err)
	}
	return out, nil
}

type eventRow struct {
	Round       string `db:"round"`
	At          int64  `db:"at"`
	Category    string `db:"category"`
	Description string `db:"description"`
	Faction     string `db:"faction"`
	Station     string `db:"station"`
}

func (r eventRow) event() engine.Event {
	return engine.Event{
		Time:        time.Unix(0, r.At).UTC(),
		Round:       r.Round,
		Category:    r.Category,
		Description: r.Description,
		Faction:     social.Frequency(r.Faction),
		Station:     r.Station,
	}
}

// BeginRound records a newly started round.
func (db *DB) BeginRound(id uuid.UUID, startedAt time.Time) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO rounds (id, started_at) VALUES (?, ?)",
		id.String(), startedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("begin round %s: %w", id, err)
	}
	return nil
}

// FinishRound stores the round summary and its compressed event journal.
func (db *DB) FinishRound(id uuid.UUID, endedAt time.Time, sum engine.Summary, journal []engine.Event) error {
	summaryJSON, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	blob, err := EncodeJournal(journal)
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}

	res, err := db.conn.Exec(`UPDATE rounds
		SET ended_at = ?, leader = ?, total = ?, captured = ?, summary_json = ?, journal = ?
		WHERE id = ?`,
		endedAt.UnixNano(), string(sum.Leader), sum.Total, sum.Captured, string(summaryJSON), blob, id.String(),
	)
	if err != nil {
		return fmt.Errorf("finish round %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish round %s: %w", id, ErrNotFound)
	}

	slog.Info("round saved", "round", id, "leader", sum.Leader, "events", len(journal), "journal_bytes", len(blob))
	return nil
}

// GetRound loads one round.
func (db *DB) GetRound(id string) (Round, error) {
	var row roundRow
	err := db.conn.Get(&row, "SELECT id, started_at, ended_at, summary_json FROM rounds WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return Round{}, fmt.Errorf("round %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Round{}, err
	}
	return row.round()
}

// Rounds returns the most recent rounds, newest first.
func (db *DB) Rounds(limit int) ([]Round, error) {
	var rows []roundRow
	err := db.conn.Select(&rows,
		"SELECT id, started_at, ended_at, summary_json FROM rounds ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	out := make([]Round, 0, len(rows))
	for _, r := range rows {
		round, err := r.round()
		if err != nil {
			return nil, err
		}
		out = append(out, round)
	}
	return out, nil
}

// Journal returns the decompressed event journal of a finished round.
func (db *DB) Journal(id string) ([]engine.Event, error) {
	var blob []byte
	err := db.conn.Get(&blob, "SELECT journal FROM rounds WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("round %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return DecodeJournal(blob)
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (round, at, category, description, faction, station) VALUES (?, ?, ?, ?, ?, ?)",
			e.Round, e.Time.UnixNano(), e.Category, e.Description, string(e.Faction), e.Station,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var rows []eventRow
	err := db.conn.Select(&rows,
		"SELECT round, at, category, description, faction, station FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	out := make([]engine.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.event())
	}
	return out, nil
}

// SaveMeta stores a key-value pair in server metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("meta %s: %w", key, ErrNotFound)
	}
	return value, err
}
