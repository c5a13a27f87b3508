// Package sqlite provides a durable repository backend on modernc.org/sqlite
// (CGo-free). The waiting-entry uniqueness constraint and the matched-state
// compare-and-swap live in the database itself, so the invariants hold even
// across process restarts.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	repository "github.com/korobprog/supermock-matcher/internal/adapters/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS queue_entries (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	role       TEXT NOT NULL,
	profession TEXT NOT NULL,
	language   TEXT NOT NULL,
	slot       TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS queue_waiting_tuple
	ON queue_entries(user_id, role, profession, language, slot)
	WHERE status = 'waiting';
CREATE INDEX IF NOT EXISTS queue_bucket
	ON queue_entries(profession, language, slot, role, status);

CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	interviewer_id TEXT NOT NULL DEFAULT '',
	candidate_id   TEXT NOT NULL DEFAULT '',
	observer_ids   TEXT NOT NULL DEFAULT '[]',
	slot           TEXT NOT NULL,
	profession     TEXT NOT NULL,
	language       TEXT NOT NULL,
	status         TEXT NOT NULL,
	video_url      TEXT NOT NULL DEFAULT '',
	video_status   TEXT NOT NULL,
	creator_id     TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	started_at     TEXT
);
CREATE INDEX IF NOT EXISTS sessions_interviewer ON sessions(interviewer_id, created_at);

CREATE TABLE IF NOT EXISTS preferences (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	role       TEXT NOT NULL,
	profession TEXT NOT NULL,
	language   TEXT NOT NULL,
	slots      TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS preferences_user ON preferences(user_id, role, created_at);

CREATE TABLE IF NOT EXISTS user_tools (
	user_id    TEXT NOT NULL,
	profession TEXT NOT NULL,
	tools      TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (user_id, profession)
);
`

// Stores implements repository.Stores on a single sqlite database.
type Stores struct {
	db *sql.DB

	queue    *queueStore
	sessions *sessionStore
	prefs    *preferenceStore
	tools    *toolStore
}

// Open opens (or creates) the database at path and applies the schema.
// Use path ":memory:" for an ephemeral database in tests.
func Open(ctx context.Context, path string) (*Stores, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", repository.ErrPersistence, path, err)
	}
	// sqlite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY churn under concurrent matching passes.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: pragma: %v", repository.ErrPersistence, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply schema: %v", repository.ErrPersistence, err)
	}

	s := &Stores{db: db}
	s.queue = &queueStore{db: db}
	s.sessions = &sessionStore{db: db}
	s.prefs = &preferenceStore{db: db}
	s.tools = &toolStore{db: db}
	return s, nil
}

func (s *Stores) Queue() repository.QueueStore { return s.queue }

func (s *Stores) Sessions() repository.SessionStore { return s.sessions }

func (s *Stores) Preferences() repository.PreferenceStore { return s.prefs }

func (s *Stores) Tools() repository.ToolStore { return s.tools }

// Close releases the underlying database handle.
func (s *Stores) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", repository.ErrPersistence, err)
	}
	return nil
}

func wrap(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", repository.ErrPersistence, op, err)
}
