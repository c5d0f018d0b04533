package store

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// createTestStore opens an in-memory SQLite database with the schema.
func createTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	s := &Store{db: db}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPositionRoundTrip(t *testing.T) {
	s := createTestStore(t)

	err := s.SavePosition(Position{
		RecordingID:     "callA/call.mp3",
		PositionSeconds: 42.5,
		DurationSeconds: 120,
	})
	if err != nil {
		t.Fatalf("SavePosition: %v", err)
	}

	p, err := s.Position("callA/call.mp3")
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if p == nil {
		t.Fatal("expected position, got nil")
	}
	if p.PositionSeconds != 42.5 {
		t.Errorf("PositionSeconds = %v, want 42.5", p.PositionSeconds)
	}
	if p.DurationSeconds != 120 {
		t.Errorf("DurationSeconds = %v, want 120", p.DurationSeconds)
	}
	if p.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}
}

func TestPositionNone(t *testing.T) {
	s := createTestStore(t)

	p, err := s.Position("unknown")
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil, got %+v", p)
	}
}

func TestSavePositionUpserts(t *testing.T) {
	s := createTestStore(t)

	s.SavePosition(Position{RecordingID: "r", PositionSeconds: 10})
	s.SavePosition(Position{RecordingID: "r", PositionSeconds: 55, DurationSeconds: 90})

	p, err := s.Position("r")
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if p.PositionSeconds != 55 {
		t.Errorf("PositionSeconds = %v, want 55 (latest save wins)", p.PositionSeconds)
	}
}

func TestSessions(t *testing.T) {
	s := createTestStore(t)

	id, err := s.BeginSession()
	if err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if id == "" {
		t.Fatal("session id should not be empty")
	}

	sess, err := s.LatestSession()
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if sess == nil || sess.ID != id {
		t.Fatalf("latest session = %+v, want id %q", sess, id)
	}
	if sess.EndedAt != nil {
		t.Error("session should not be ended yet")
	}

	if err := s.EndSession(id); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	sess, err = s.LatestSession()
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if sess.EndedAt == nil {
		t.Error("session should be ended")
	}
}

func TestLatestSessionNone(t *testing.T) {
	s := createTestStore(t)

	sess, err := s.LatestSession()
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil, got %+v", sess)
	}
}
