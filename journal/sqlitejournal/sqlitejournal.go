// Package sqlitejournal provides SQLite-based persistence for session transcripts.
package sqlitejournal

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bpowers/toolwire/journal"
)

// Store implements journal.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite-based store at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// initSchema creates the necessary tables if they don't exist.
func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  TEXT NOT NULL,
    seq         INTEGER NOT NULL,
    method      TEXT NOT NULL,
    request_id  TEXT NOT NULL DEFAULT '',
    request     TEXT NOT NULL,
    response    TEXT NOT NULL DEFAULT '',
    is_error    BOOLEAN NOT NULL DEFAULT 0,
    duration_ns INTEGER NOT NULL DEFAULT 0,
    timestamp   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(session_id, seq);
`
	_, err := s.db.Exec(schema)
	return err
}

// Append implements journal.Store.
func (s *Store) Append(sessionID string, ex journal.Exchange) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO exchanges (session_id, seq, method, request_id, request, response, is_error, duration_ns, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, ex.Seq, ex.Method, ex.RequestID, ex.Request, ex.Response, ex.IsError, int64(ex.Duration), ex.Timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("insert exchange: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get insert id: %w", err)
	}

	return id, nil
}

// Exchanges implements journal.Store.
func (s *Store) Exchanges(sessionID string) ([]journal.Exchange, error) {
	rows, err := s.db.Query(
		`SELECT id, seq, method, request_id, request, response, is_error, duration_ns, timestamp FROM exchanges WHERE session_id = ? ORDER BY seq, id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []journal.Exchange
	for rows.Next() {
		var ex journal.Exchange
		var durationNS int64
		if err := rows.Scan(&ex.ID, &ex.Seq, &ex.Method, &ex.RequestID, &ex.Request, &ex.Response, &ex.IsError, &durationNS, &ex.Timestamp); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		ex.Duration = time.Duration(durationNS)
		exchanges = append(exchanges, ex)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchanges: %w", err)
	}

	return exchanges, nil
}

// Sessions implements journal.Store.
func (s *Store) Sessions() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT session_id FROM exchanges ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var sessionID string
		if err := rows.Scan(&sessionID); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sessionID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// DeleteSession implements journal.Store.
func (s *Store) DeleteSession(sessionID string) error {
	if _, err := s.db.Exec(`DELETE FROM exchanges WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete exchanges: %w", err)
	}
	return nil
}

// Close implements journal.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ journal.Store = (*Store)(nil)
