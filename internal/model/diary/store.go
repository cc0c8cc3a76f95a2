package diary

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrEntryNotFound is returned when deleting an id no store knows about.
var ErrEntryNotFound = errors.New("diary entry not found")

// Store persists finalized entries. Save ignores entry.ID and returns the
// identifier the store assigned; List returns entries sorted by date descending.
type Store interface {
	Save(ctx context.Context, entry Entry) (string, error)
	List(ctx context.Context) ([]Entry, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a MemoryStore preloaded with the supplied entries.
func NewMemoryStore(items ...Entry) *MemoryStore {
	s := &MemoryStore{}
	for _, item := range items {
		s.items = append(s.items, item.Clone())
	}
	return s
}

// Save stores a copy of entry under a fresh id.
func (s *MemoryStore) Save(_ context.Context, entry Entry) (string, error) {
	entry = entry.Clone()
	entry.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]Entry{entry}, s.items...)
	return entry.ID, nil
}

// List returns copies of all entries, newest date first.
func (s *MemoryStore) List(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.Clone())
	}
	s.mu.RUnlock()

	SortByDateDesc(out)
	return out, nil
}

// Delete removes the entry with id.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return ErrEntryNotFound
}
