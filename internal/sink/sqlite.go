package sink

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hazyhaar/sizewatch/size"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS resize_events (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id  TEXT    NOT NULL,
	target    TEXT    NOT NULL,
	width     REAL    NOT NULL,
	height    REAL    NOT NULL,
	seq       INTEGER NOT NULL,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_resize_events_target ON resize_events(target, seq);
`

// SQLite records notifications into a local database for replay and
// inspection. The driver is not imported here: callers register one
// (import _ "modernc.org/sqlite") and pass its name.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path with the production
// pragmas applied and the schema ensured.
func NewSQLite(driver, path string) (*SQLite, error) {
	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("sink: open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sink: apply %q: %w", p, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sink: create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Send(ctx context.Context, n size.Notification) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resize_events (event_id, target, width, height, seq, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.Target, n.Width, n.Height, n.Seq, n.Timestamp)
	if err != nil {
		return fmt.Errorf("sink: insert notification: %w", err)
	}
	return nil
}

// Count returns the number of recorded events for a target. Empty target
// counts everything.
func (s *SQLite) Count(ctx context.Context, target string) (int64, error) {
	var n int64
	var err error
	if target == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resize_events`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resize_events WHERE target = ?`, target).Scan(&n)
	}
	return n, err
}

func (s *SQLite) Close() error { return s.db.Close() }
