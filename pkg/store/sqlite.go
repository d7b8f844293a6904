package store

import (
	"database/sql"
	"fmt"
	"io/fs"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists templates to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

var _ TemplateStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite template store.
// The path should be a file path (e.g., "./templates.db") or ":memory:" for
// testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS templates (
			path TEXT PRIMARY KEY,
			source BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Put implements TemplateStore.
func (s *SQLiteStore) Put(path string, source []byte) error {
	if !fs.ValidPath(path) {
		return fmt.Errorf("store template: invalid path %q", path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO templates (path, source, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			source = excluded.source,
			updated_at = excluded.updated_at
	`, path, source, time.Now().UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("store template: %w", err)
	}
	return nil
}

// Get implements TemplateStore.
func (s *SQLiteStore) Get(path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var source []byte
	err := s.db.QueryRow(`
		SELECT source FROM templates WHERE path = ?
	`, path).Scan(&source)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	return source, nil
}

// List implements TemplateStore.
func (s *SQLiteStore) List() ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT path, LENGTH(source), updated_at
		FROM templates
		ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	infos := []Info{}
	for rows.Next() {
		var info Info
		var updated string
		if err := rows.Scan(&info.Path, &info.Size, &updated); err != nil {
			return nil, fmt.Errorf("scan template info: %w", err)
		}
		info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}

	return infos, nil
}

// Delete implements TemplateStore.
func (s *SQLiteStore) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		DELETE FROM templates WHERE path = ?
	`, path)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

// FS implements TemplateStore.
func (s *SQLiteStore) FS() fs.FS {
	return &storeFS{store: s}
}

// Close implements TemplateStore.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// stat reads metadata for one path without loading the source.
func (s *SQLiteStore) stat(path string) (Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Info{}, ErrStoreClosed
	}

	var info Info
	var updated string
	err := s.db.QueryRow(`
		SELECT path, LENGTH(source), updated_at
		FROM templates
		WHERE path = ?
	`, path).Scan(&info.Path, &info.Size, &updated)

	if err == sql.ErrNoRows {
		return Info{}, ErrNotFound
	}
	if err != nil {
		return Info{}, fmt.Errorf("stat template: %w", err)
	}
	info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return info, nil
}
