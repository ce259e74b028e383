// Package store provides the on-device persistence slot for satchel records.
//
// The store is a single embedded SQLite database holding one serialized
// envelope per well-known key. Writes replace the whole record; there is no
// history in the primary slot. The database runs in WAL mode with a busy
// timeout so the daemon and CLI can share it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite3 "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DefaultKey is the well-known slot key for the primary record.
const DefaultKey = "satchel"

var (
	// ErrNotFound is returned when the slot holds no record.
	ErrNotFound = errors.New("record not found")

	// ErrQuotaExceeded is returned when the device storage is full.
	// Such failures propagate to the caller of save; they are never
	// retried silently.
	ErrQuotaExceeded = errors.New("local storage quota exceeded")
)

// Store wraps the SQLite connection with single-slot record access.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the store database at the specified path.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	st, err := store.Open("~/.satchel/satchel.db")
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	st := &Store{
		conn: conn,
		path: path,
	}

	// WAL mode for concurrent readers during writes
	if _, err := st.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := st.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := st.initSchema(); err != nil {
		_ = st.Close()
		return nil, err
	}

	return st, nil
}

// Close closes the database connection after checkpointing the WAL.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}

	s.conn = nil
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// initSchema creates the records table. Idempotent.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Read returns the serialized record stored under key.
// Returns ErrNotFound if the slot is empty.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.conn.QueryRowContext(ctx,
		"SELECT data FROM records WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record %q: %w", key, err)
	}
	return data, nil
}

// Write replaces the record stored under key.
//
// Device storage exhaustion is surfaced as ErrQuotaExceeded; all other
// failures are wrapped transport errors. The write is synchronous: when
// Write returns nil the record is durable.
func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	query := `
	INSERT INTO records (key, data, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		data = excluded.data,
		updated_at = excluded.updated_at
	`
	_, err := s.conn.ExecContext(ctx, query, key, data,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isFull(err) {
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return fmt.Errorf("failed to write record %q: %w", key, err)
	}
	return nil
}

// Delete removes the record stored under key.
// Returns nil if the slot was already empty (idempotent).
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.conn.ExecContext(ctx,
		"DELETE FROM records WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete record %q: %w", key, err)
	}
	return nil
}

// isFull reports whether err is SQLite's disk-full condition.
func isFull(err error) bool {
	var serr *sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code() == sqlite3.FULL
	}
	return false
}
