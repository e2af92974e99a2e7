package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const slotsSchema = `CREATE TABLE IF NOT EXISTS slots (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
)`

// SQLiteSlots keeps slots in a single SQLite table.
type SQLiteSlots struct {
	db *sql.DB
}

// OpenSQLiteSlots opens (or creates) the database at path and ensures the
// slots table exists.
func OpenSQLiteSlots(ctx context.Context, path string) (*SQLiteSlots, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	s, err := NewSQLiteSlots(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteSlots wraps an open database and ensures the slots table exists.
func NewSQLiteSlots(ctx context.Context, db *sql.DB) (*SQLiteSlots, error) {
	if _, err := db.ExecContext(ctx, slotsSchema); err != nil {
		return nil, fmt.Errorf("failed to create slots table: %w", err)
	}
	return &SQLiteSlots{db: db}, nil
}

func (s *SQLiteSlots) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot[%s]: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteSlots) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO slots (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set slot[%s]: %w", key, err)
	}
	return nil
}

func (s *SQLiteSlots) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete slot[%s]: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteSlots) Close() error {
	return s.db.Close()
}
