// Package diary assembles finished conversations into diary entries and
// persists them through a primary store with a local fallback.
package diary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zhouzirui/ai-diary/backend/internal/model/diary"
)

// ErrSaveFailed is returned when neither store accepted an entry.
var ErrSaveFailed = errors.New("failed to save diary entry")

// Pinger is implemented by stores that offer a cheap reachability check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FallbackStore tries the primary store and falls back to the secondary on
// any failure. A nil primary routes everything to the secondary.
type FallbackStore struct {
	primary   diary.Store
	secondary diary.Store
	logger    *slog.Logger
}

var _ diary.Store = (*FallbackStore)(nil)

// NewFallbackStore wraps primary and secondary. secondary is required.
func NewFallbackStore(primary, secondary diary.Store, logger *slog.Logger) *FallbackStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackStore{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With("component", "diary_store"),
	}
}

// primaryReady pings the primary when it supports it.
func (s *FallbackStore) primaryReady(ctx context.Context) error {
	if s.primary == nil {
		return errors.New("primary store not configured")
	}
	if p, ok := s.primary.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("primary store unreachable: %w", err)
		}
	}
	return nil
}

// Save writes to the primary, or to the secondary when the primary is down or rejects the write.
func (s *FallbackStore) Save(ctx context.Context, entry diary.Entry) (string, error) {
	err := s.primaryReady(ctx)
	if err == nil {
		var id string
		id, err = s.primary.Save(ctx, entry)
		if err == nil && id != "" {
			return id, nil
		}
		if err == nil {
			err = errors.New("primary store returned an empty id")
		}
	}
	s.logger.Warn("primary save failed, using local store", "error", err)

	id, localErr := s.secondary.Save(ctx, entry)
	if localErr != nil {
		s.logger.Error("local save failed", "error", localErr)
		return "", fmt.Errorf("%w: %w", ErrSaveFailed, errors.Join(err, localErr))
	}
	return id, nil
}

// List reads from the primary, then the secondary. It never fails: when both
// stores are unavailable the result is empty.
func (s *FallbackStore) List(ctx context.Context) ([]diary.Entry, error) {
	err := s.primaryReady(ctx)
	if err == nil {
		var entries []diary.Entry
		entries, err = s.primary.List(ctx)
		if err == nil {
			diary.SortByDateDesc(entries)
			return nonNil(entries), nil
		}
	}
	s.logger.Warn("primary list failed, using local store", "error", err)

	entries, localErr := s.secondary.List(ctx)
	if localErr != nil {
		s.logger.Error("local list failed, returning no entries", "error", localErr)
		return []diary.Entry{}, nil
	}
	diary.SortByDateDesc(entries)
	return nonNil(entries), nil
}

// Delete removes id from every store that holds it.
func (s *FallbackStore) Delete(ctx context.Context, id string) error {
	var (
		deleted bool
		errs    []error
	)

	if err := s.primaryReady(ctx); err == nil {
		switch err := s.primary.Delete(ctx, id); {
		case err == nil:
			deleted = true
		case !errors.Is(err, diary.ErrEntryNotFound):
			errs = append(errs, err)
		}
	}

	switch err := s.secondary.Delete(ctx, id); {
	case err == nil:
		deleted = true
	case !errors.Is(err, diary.ErrEntryNotFound):
		errs = append(errs, err)
	}

	if deleted {
		return nil
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return diary.ErrEntryNotFound
}

func nonNil(entries []diary.Entry) []diary.Entry {
	if entries == nil {
		return []diary.Entry{}
	}
	return entries
}
