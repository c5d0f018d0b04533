// Package store persists playback positions and listening sessions in
// SQLite, so replay resumes where the user left off.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Position is the stored playback position for one recording.
type Position struct {
	RecordingID     string
	PositionSeconds float64
	DurationSeconds float64
	UpdatedAt       time.Time
}

// Session is one run of the player.
type Session struct {
	ID        string
	StartedAt time.Time
	EndedAt   *time.Time
}

// Store provides read-write access to the relisten SQLite database.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "relisten", "relisten.sqlite")
}

const schema = `
	CREATE TABLE IF NOT EXISTS positions (
		recordingId TEXT PRIMARY KEY,
		positionSeconds REAL NOT NULL,
		durationSeconds REAL NOT NULL DEFAULT 0,
		updatedAt REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		startedAt REAL NOT NULL,
		endedAt REAL
	);
`

// Open opens (creating if needed) the database with WAL journaling.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SavePosition upserts the playback position for a recording.
func (s *Store) SavePosition(p Position) error {
	_, err := s.db.Exec(`
		INSERT INTO positions (recordingId, positionSeconds, durationSeconds, updatedAt)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(recordingId) DO UPDATE SET
			positionSeconds = excluded.positionSeconds,
			durationSeconds = excluded.durationSeconds,
			updatedAt = excluded.updatedAt
	`, p.RecordingID, p.PositionSeconds, p.DurationSeconds, unixFloat(time.Now()))
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

// Position returns the stored position for a recording, or nil when none
// has been saved.
func (s *Store) Position(recordingID string) (*Position, error) {
	row := s.db.QueryRow(`
		SELECT recordingId, positionSeconds, durationSeconds, updatedAt
		FROM positions
		WHERE recordingId = ?
	`, recordingID)

	var p Position
	var updatedAt float64
	if err := row.Scan(&p.RecordingID, &p.PositionSeconds, &p.DurationSeconds, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan position: %w", err)
	}
	p.UpdatedAt = timeFromUnix(updatedAt)

	return &p, nil
}

// BeginSession records the start of a player run and returns its id.
func (s *Store) BeginSession() (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`INSERT INTO sessions (id, startedAt) VALUES (?, ?)`,
		id, unixFloat(time.Now()))
	if err != nil {
		return "", fmt.Errorf("begin session: %w", err)
	}
	return id, nil
}

// EndSession marks a session as finished.
func (s *Store) EndSession(id string) error {
	_, err := s.db.Exec(`UPDATE sessions SET endedAt = ? WHERE id = ?`,
		unixFloat(time.Now()), id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// LatestSession returns the most recent session, or nil when none exists.
func (s *Store) LatestSession() (*Session, error) {
	row := s.db.QueryRow(`
		SELECT id, startedAt, endedAt
		FROM sessions
		ORDER BY startedAt DESC
		LIMIT 1
	`)

	var sess Session
	var startedAt float64
	var endedAt sql.NullFloat64
	if err := row.Scan(&sess.ID, &startedAt, &endedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	sess.StartedAt = timeFromUnix(startedAt)
	if endedAt.Valid {
		t := timeFromUnix(endedAt.Float64)
		sess.EndedAt = &t
	}

	return &sess, nil
}

func unixFloat(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
