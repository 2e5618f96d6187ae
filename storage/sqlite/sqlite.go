// Package sqlite provides a SQLite-based storage backend for
// AgentEngine, suitable for desktop deployments that want a single
// portable database file.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Storage implements the engine.Storage interface over a SQLite file.
type Storage struct {
	db      *sql.DB
	mu      sync.Mutex
	nextID  int
	watches map[string]map[int]func([]byte)
}

// Open opens (or creates) the SQLite database at dbPath.
func Open(dbPath string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer; a single connection prevents
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)

	s := &Storage{
		db:      db,
		watches: make(map[string]map[int]func([]byte)),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Storage) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Read reads data for a key.
func (s *Storage) Read(key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT value FROM entries WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Write upserts data for a key.
func (s *Storage) Write(key string, data []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO entries (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, data,
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	s.notify(key, data)
	return nil
}

// Delete removes a key.
func (s *Storage) Delete(key string) error {
	res, err := s.db.Exec(`DELETE FROM entries WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("key not found: %s", key)
	}
	return nil
}

// List lists keys with the given prefix.
func (s *Storage) List(prefix string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT key FROM entries WHERE key LIKE ? || '%' ORDER BY key`, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Watch registers a change handler for a key. Notifications fire on
// writes through this instance.
func (s *Storage) Watch(key string, handler func([]byte)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watches[key] == nil {
		s.watches[key] = make(map[int]func([]byte))
	}
	id := s.nextID
	s.nextID++
	s.watches[key][id] = handler

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watches[key], id)
	}, nil
}

func (s *Storage) notify(key string, data []byte) {
	s.mu.Lock()
	handlers := make([]func([]byte), 0, len(s.watches[key]))
	for _, h := range s.watches[key] {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, handler := range handlers {
		go handler(data)
	}
}
