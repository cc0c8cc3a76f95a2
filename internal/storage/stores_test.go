package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/ai-diary/backend/internal/config"
	"github.com/zhouzirui/ai-diary/backend/internal/model/diary"
)

func TestOpenWithoutPrimaryUsesLocal(t *testing.T) {
	ctx := context.Background()
	stores, err := Open(ctx, config.StoreConfig{LocalDir: t.TempDir()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close(ctx) })

	assert.Nil(t, stores.Primary)

	id, err := stores.Entries.Save(ctx, diary.Entry{Date: "2026-10-19", Summary: "quiet day", Emotion: "calm - rested"})
	require.NoError(t, err)

	local, err := stores.Local.List(ctx)
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.Equal(t, id, local[0].ID)
}
