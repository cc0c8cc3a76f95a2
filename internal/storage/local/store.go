// Package local is the on-device diary store: a SQLite key-value table that
// keeps every entry as one JSON list under a fixed namespace key.
package local

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/zhouzirui/ai-diary/backend/internal/model/diary"
)

// EntriesKey is the namespace key holding the serialized entry list.
const EntriesKey = "diaryEntries"

// DBFile is the database file name inside the store directory.
const DBFile = "diary.db"

const currentSchemaVersion = 1

// Store implements diary.Store on a local SQLite file.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

var _ diary.Store = (*Store)(nil)

// Open initializes the database at baseDir/diary.db.
// The baseDir parameter allows tests to use t.TempDir().
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	dbPath := filepath.Join(baseDir, DBFile)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	_ = os.Chmod(dbPath, 0600)

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("failed to get user_version: %w", err)
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS kv (
		  key        TEXT PRIMARY KEY,
		  value      TEXT NOT NULL,
		  updated_at INTEGER NOT NULL
		);`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
	}

	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("failed to set user_version: %w", err)
		}
	}
	return nil
}

// Save prepends entry to the stored list under a new time-based id.
func (s *Store) Save(ctx context.Context, entry diary.Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return "", err
	}

	id, err := ulid.New(ulid.Timestamp(s.now()), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", fmt.Errorf("failed to generate entry id: %w", err)
	}
	entry = entry.Clone()
	entry.ID = id.String()

	if err := s.store(ctx, append([]diary.Entry{entry}, entries...)); err != nil {
		return "", err
	}
	return entry.ID, nil
}

// List returns all entries, sorted by date descending on read.
func (s *Store) List(ctx context.Context) ([]diary.Entry, error) {
	s.mu.Lock()
	entries, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	diary.SortByDateDesc(entries)
	return entries, nil
}

// Delete removes the entry with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return err
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return diary.ErrEntryNotFound
	}
	return s.store(ctx, kept)
}

// Clear drops every locally stored entry.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, EntriesKey); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context) ([]diary.Entry, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, EntriesKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []diary.Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}

	var entries []diary.Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode entries: %w", err)
	}
	if entries == nil {
		entries = []diary.Entry{}
	}
	return entries, nil
}

func (s *Store) store(ctx context.Context, entries []diary.Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode entries: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		EntriesKey, string(raw), s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write entries: %w", err)
	}
	return nil
}
