package cli

import (
	"context"

	"github.com/google/uuid"

	"github.com/zhouzirui/ai-diary/backend/internal/model/diary"
)

// discardStore accepts saves without keeping them.
type discardStore struct{}

func (discardStore) Save(context.Context, diary.Entry) (string, error) {
	return "dry-run-" + uuid.NewString(), nil
}

func (discardStore) List(context.Context) ([]diary.Entry, error) { return []diary.Entry{}, nil }

func (discardStore) Delete(context.Context, string) error { return diary.ErrEntryNotFound }
