package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/alog/pkg/alog/internalerr"
	"github.com/cognicore/alog/pkg/alog/transcript"
)

// DefaultRecent is the limit Recent uses when given a non-positive one.
const DefaultRecent = 20

// sqliteStore implements transcript.Store using SQLite
type sqliteStore struct {
	db *sql.DB
}

// Open opens a SQLite transcript database with WAL mode enabled.
func Open(ctx context.Context, path string) (transcript.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("open transcript: empty path: %w", internalerr.ErrInvalidInput)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS answers (
	id TEXT PRIMARY KEY,
	session TEXT NOT NULL,
	query TEXT NOT NULL,
	form TEXT,
	answer TEXT NOT NULL,
	asked_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_answers_session ON answers(session, id);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// Append inserts an entry
func (s *sqliteStore) Append(ctx context.Context, e transcript.Entry) error {
	const stmt = `
INSERT INTO answers (id, session, query, form, answer, asked_at)
VALUES (?, ?, ?, ?, ?, ?);
`
	_, err := s.db.ExecContext(ctx, stmt,
		e.ID,
		e.Session,
		e.Query,
		e.Form,
		e.Answer,
		e.AskedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Recent returns the latest entries across sessions, oldest first
func (s *sqliteStore) Recent(ctx context.Context, limit int) ([]transcript.Entry, error) {
	if limit <= 0 {
		limit = DefaultRecent
	}

	const q = `
SELECT id, session, query, form, answer, asked_at FROM (
	SELECT id, session, query, form, answer, asked_at
	FROM answers
	ORDER BY id DESC
	LIMIT ?
) ORDER BY id ASC;
`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// Session returns every entry of one session, oldest first
func (s *sqliteStore) Session(ctx context.Context, session string) ([]transcript.Entry, error) {
	const q = `
SELECT id, session, query, form, answer, asked_at
FROM answers
WHERE session = ?
ORDER BY id ASC;
`
	rows, err := s.db.QueryContext(ctx, q, session)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]transcript.Entry, error) {
	defer rows.Close()

	var out []transcript.Entry
	for rows.Next() {
		var (
			e       transcript.Entry
			form    sql.NullString
			askedAt string
		)
		if err := rows.Scan(&e.ID, &e.Session, &e.Query, &form, &e.Answer, &askedAt); err != nil {
			return nil, err
		}
		e.Form = form.String
		if ts, err := time.Parse(time.RFC3339Nano, askedAt); err == nil {
			e.AskedAt = ts
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
