// Package store persists captured artifacts and analysis reports in
// SQLite. The store is a convenience for the research workflow (keep every
// observation of a session together, re-run analysis later); the engines
// themselves never touch it.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"padscope/internal/capture"
)

// Schema for the padscope capture store.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id          TEXT PRIMARY KEY,
    created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS layout_captures (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  TEXT NOT NULL REFERENCES sessions(id),
    captured_at INTEGER NOT NULL,
    payload     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_layouts_session ON layout_captures(session_id, captured_at);

CREATE TABLE IF NOT EXISTS submissions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  TEXT NOT NULL REFERENCES sessions(id),
    label       TEXT NOT NULL,
    observed_at INTEGER NOT NULL,
    payload     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submissions_session ON submissions(session_id, label, observed_at);

CREATE TABLE IF NOT EXISTS analysis_runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  TEXT NOT NULL REFERENCES sessions(id),
    kind        TEXT NOT NULL,
    created_at  INTEGER NOT NULL,
    report      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analysis_session ON analysis_runs(session_id, kind, created_at);
`

// Analysis kinds stored in analysis_runs.
const (
	AnalysisMapping    = "mapping"
	AnalysisDiff       = "diff"
	AnalysisDerivation = "derivation"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the SQLite capture store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path and applies
// the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// EnsureSession creates the session row if it does not exist.
func (s *Store) EnsureSession(sessionID string) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, created_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		sessionID, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	return nil
}

// InsertLayoutCapture stores a persisted layout capture payload for a
// session and returns its row ID.
func (s *Store) InsertLayoutCapture(sessionID string, payload []byte) (int64, error) {
	if err := s.EnsureSession(sessionID); err != nil {
		return 0, err
	}
	result, err := s.db.Exec(
		`INSERT INTO layout_captures (session_id, captured_at, payload) VALUES (?, ?, ?)`,
		sessionID, time.Now().UnixNano(), string(payload),
	)
	if err != nil {
		return 0, fmt.Errorf("insert layout capture: %w", err)
	}
	return result.LastInsertId()
}

// InsertSubmission stores a submission capture for a session and returns
// its row ID.
func (s *Store) InsertSubmission(sessionID string, sub *capture.SubmissionCapture) (int64, error) {
	if err := s.EnsureSession(sessionID); err != nil {
		return 0, err
	}
	payload, err := json.Marshal(sub)
	if err != nil {
		return 0, fmt.Errorf("encode submission: %w", err)
	}
	result, err := s.db.Exec(
		`INSERT INTO submissions (session_id, label, observed_at, payload) VALUES (?, ?, ?, ?)`,
		sessionID, string(sub.Label()), sub.ObservedAt().UnixNano(), string(payload),
	)
	if err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	return result.LastInsertId()
}

// LatestSubmission returns the most recently observed submission for a
// session and input label, or ErrNotFound.
func (s *Store) LatestSubmission(sessionID string, label capture.InputLabel) (*capture.SubmissionCapture, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM submissions WHERE session_id = ? AND label = ? ORDER BY observed_at DESC LIMIT 1`,
		sessionID, string(label),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query submission: %w", err)
	}

	var sub capture.SubmissionCapture
	if err := json.Unmarshal([]byte(payload), &sub); err != nil {
		return nil, fmt.Errorf("decode stored submission: %w", err)
	}
	return &sub, nil
}

// InsertAnalysis stores an analysis report of the given kind for a session.
// The report is serialized to JSON.
func (s *Store) InsertAnalysis(sessionID, kind string, report any) (int64, error) {
	if err := s.EnsureSession(sessionID); err != nil {
		return 0, err
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("encode %s report: %w", kind, err)
	}
	result, err := s.db.Exec(
		`INSERT INTO analysis_runs (session_id, kind, created_at, report) VALUES (?, ?, ?, ?)`,
		sessionID, kind, time.Now().UnixNano(), string(payload),
	)
	if err != nil {
		return 0, fmt.Errorf("insert analysis run: %w", err)
	}
	return result.LastInsertId()
}

// LatestAnalysis returns the most recent report of a kind for a session as
// raw JSON, or ErrNotFound.
func (s *Store) LatestAnalysis(sessionID, kind string) (json.RawMessage, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT report FROM analysis_runs WHERE session_id = ? AND kind = ? ORDER BY created_at DESC LIMIT 1`,
		sessionID, kind,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query analysis run: %w", err)
	}
	return json.RawMessage(payload), nil
}

// Sessions returns all session IDs ordered by creation time.
func (s *Store) Sessions() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
