// Package ledger keeps a history of finished recording sessions in SQLite.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/ellier/internal/persistence/sqlite"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	channel_id TEXT NOT NULL,
	channel_name TEXT NOT NULL,
	output_dir TEXT NOT NULL,
	started_at_ms INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	chapters INTEGER NOT NULL DEFAULT 0,
	finalize_error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at_ms);
`

// Outcome is how a session ended.
type Outcome string

const (
	OutcomeKept        Outcome = "kept"
	OutcomeDiscarded   Outcome = "discarded"
	OutcomeInterrupted Outcome = "interrupted"
)

// Entry is one finished session.
type Entry struct {
	ID            string
	ChannelID     string
	ChannelName   string
	OutputDir     string
	StartedAt     time.Time
	Duration      time.Duration
	Outcome       Outcome
	Chapters      int
	FinalizeError string
}

// ErrClosed is returned after Close.
var ErrClosed = errors.New("ledger closed")

// Store is the SQLite backed ledger.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(ctx, db, schemaVersion, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: migration failed: %w", err)
	}
	return &Store{db: db}, nil
}

// Record stores e, replacing an entry with the same ID.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	const query = `
	INSERT INTO sessions (id, channel_id, channel_name, output_dir, started_at_ms, duration_ms, outcome, chapters, finalize_error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		duration_ms = excluded.duration_ms,
		outcome = excluded.outcome,
		chapters = excluded.chapters,
		finalize_error = excluded.finalize_error
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.ChannelID, e.ChannelName, e.OutputDir,
		e.StartedAt.UnixMilli(), e.Duration.Milliseconds(),
		string(e.Outcome), e.Chapters, e.FinalizeError,
	)
	if err != nil {
		return fmt.Errorf("ledger: record %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}
	const query = `
	SELECT id, channel_id, channel_name, output_dir, started_at_ms, duration_ms, outcome, chapters, finalize_error
	FROM sessions ORDER BY started_at_ms DESC LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			startedMs int64
			ms        int64
			outcome   string
		)
		if err := rows.Scan(&e.ID, &e.ChannelID, &e.ChannelName, &e.OutputDir, &startedMs, &ms, &outcome, &e.Chapters, &e.FinalizeError); err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		e.StartedAt = time.UnixMilli(startedMs)
		e.Duration = time.Duration(ms) * time.Millisecond
		e.Outcome = Outcome(outcome)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Verify runs a full integrity check on the ledger file at path.
func Verify(path string) ([]string, error) {
	return sqlite.VerifyIntegrity(path, "full")
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
