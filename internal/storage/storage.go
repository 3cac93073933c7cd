// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable local key/value store for fishchat.
//
// The store holds the persistent user id and the serialized session list.
// Values are opaque blobs; the session list is rewritten wholesale on each
// mutation with last-write-wins semantics (single-user local client).
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Well-known keys.
const (
	// KeyUserID holds the persistent user identifier.
	KeyUserID = "persistent_user_id"

	// KeySessions holds the serialized session list.
	KeySessions = "chat_sessions"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is a SQLite-backed key/value store.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default database location (~/.fishchat/state.db).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".fishchat", "state.db"), nil
}

// Open opens (creating if necessary) the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	// WAL keeps the single writer from blocking reads from the TUI.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	// One local client: a single connection avoids SQLITE_BUSY entirely.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping state database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	return err
}

// Get returns the value for key, or ErrNotFound.
func (s *Store) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// GetString is Get returning a string.
func (s *Store) GetString(key string) (string, error) {
	b, err := s.Get(key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// SetString is Set for a string value.
func (s *Store) SetString(key, value string) error {
	return s.Set(key, []byte(value))
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// UpdatedAt returns when key was last written, or ErrNotFound.
func (s *Store) UpdatedAt(key string) (time.Time, error) {
	var unix int64
	err := s.db.QueryRow(`SELECT updated_at FROM kv WHERE key = ?`, key).Scan(&unix)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("updated_at %s: %w", key, err)
	}
	return time.Unix(unix, 0), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
