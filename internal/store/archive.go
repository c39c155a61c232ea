// Package store persists terminal debate sessions in SQLite so transcripts
// survive process restarts and can be inspected later.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"agora/internal/debate"
	"agora/internal/logging"
)

// ErrNotFound is returned when no archived debate matches the given id.
var ErrNotFound = errors.New("archived debate not found")

// Archive is a SQLite-backed store of finished debates. The full session is
// kept as a JSON payload; a few columns are broken out for listing and
// filtering without unmarshalling every row.
type Archive struct {
	db     *sql.DB
	dbPath string
}

// Record is the listing view of one archived debate.
type Record struct {
	ID           string        `json:"id"`
	Question     string        `json:"question"`
	Status       debate.Status `json:"status"`
	Rounds       int           `json:"rounds"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  time.Time     `json:"completed_at"`
	FinalSummary string        `json:"final_summary,omitempty"`
}

// Open initializes the archive database at the given path, creating the
// parent directory and schema as needed.
func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}
	// modernc sqlite serializes writes itself; one connection avoids
	// SQLITE_BUSY under concurrent session completion.
	db.SetMaxOpenConns(1)

	a := &Archive{db: db, dbPath: path}
	if err := a.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("archive opened at %s", path)
	return a, nil
}

func (a *Archive) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS debates (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		status TEXT NOT NULL,
		rounds INTEGER NOT NULL,
		final_summary TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		completed_at DATETIME NOT NULL,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_debates_status ON debates(status);
	CREATE INDEX IF NOT EXISTS idx_debates_completed ON debates(completed_at);
	`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create archive schema: %w", err)
	}
	return nil
}

// Save upserts a terminal session. Saving the same session twice overwrites
// the earlier row.
func (a *Archive) Save(ctx context.Context, session *debate.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", session.ID, err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO debates (id, question, status, rounds, final_summary, started_at, completed_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			rounds = excluded.rounds,
			final_summary = excluded.final_summary,
			completed_at = excluded.completed_at,
			payload = excluded.payload`,
		session.ID, session.Question, string(session.Status), len(session.Rounds),
		session.FinalSummary, session.StartedAt, session.CompletedAt, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}

	logging.Store("archived session %s (%s, %d rounds)", session.ID, session.Status, len(session.Rounds))
	return nil
}

// Get loads one archived session in full.
func (a *Archive) Get(ctx context.Context, id string) (*debate.Session, error) {
	var payload string
	err := a.db.QueryRowContext(ctx, `SELECT payload FROM debates WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var session debate.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &session, nil
}

// List returns archive records, most recently completed first.
func (a *Archive) List(ctx context.Context) ([]Record, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, question, status, rounds, final_summary, started_at, completed_at
		FROM debates ORDER BY completed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var status string
		if err := rows.Scan(&r.ID, &r.Question, &status, &r.Rounds, &r.FinalSummary, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archive row: %w", err)
		}
		r.Status = debate.Status(status)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Delete removes one archived debate.
func (a *Archive) Delete(ctx context.Context, id string) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM debates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}
