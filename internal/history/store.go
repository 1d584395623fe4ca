// Package history persists counter tool invocations to SQLite. The store is
// optional: when no database path is configured the server runs without it
// and the counter service skips recording entirely.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Invocation is one recorded tool call against a counter instance.
type Invocation struct {
	ID        string
	SessionID string
	Tool      string
	Delta     int64
	Value     int64
	CreatedAt time.Time
}

// Store handles invocation persistence
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the invocation history database at path.
func NewStore(path string) (*Store, error) {
	// Enable WAL mode and busy timeout for better concurrent access
	db, err := sql.Open("sqlite", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS invocations (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		tool TEXT NOT NULL,
		delta INTEGER NOT NULL DEFAULT 0,
		value INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_invocations_created ON invocations(created_at);
	CREATE INDEX IF NOT EXISTS idx_invocations_session ON invocations(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one invocation row. The ID is generated when empty.
func (s *Store) Record(inv *Invocation) error {
	if inv.ID == "" {
		inv.ID = "inv_" + uuid.New().String()[:8]
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO invocations (id, session_id, tool, delta, value, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.SessionID, inv.Tool, inv.Delta, inv.Value, inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}
	return nil
}

// Recent returns up to limit invocations, newest first.
func (s *Store) Recent(limit int) ([]*Invocation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, session_id, tool, delta, value, created_at
		FROM invocations
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query invocations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var invs []*Invocation
	for rows.Next() {
		inv := &Invocation{}
		if err := rows.Scan(&inv.ID, &inv.SessionID, &inv.Tool, &inv.Delta, &inv.Value, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

// Prune deletes invocations older than cutoff and reports how many rows were
// removed.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM invocations WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune invocations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}
