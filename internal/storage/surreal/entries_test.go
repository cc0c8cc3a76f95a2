package surreal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/ai-diary/backend/internal/model/chat"
	"github.com/zhouzirui/ai-diary/backend/internal/model/diary"
)

// newTestClient connects to the instance named by SURREALDB_URL.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping SurrealDB integration test in short mode")
	}
	url := os.Getenv("SURREALDB_URL")
	if url == "" {
		t.Skip("SURREALDB_URL not set")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, Config{
		URL:       url,
		Namespace: "test",
		Database:  "diary_test",
		Username:  envOr("SURREALDB_USER", "root"),
		Password:  envOr("SURREALDB_PASS", "root"),
		AuthLevel: "root",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, client.InitSchema(ctx))
	require.NoError(t, client.WipeEntries(ctx))

	t.Cleanup(func() { _ = client.Close(context.Background()) })
	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestPing(t *testing.T) {
	client := newTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestSaveListDelete(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	created := time.Date(2026, 10, 19, 22, 0, 0, 0, time.UTC)

	turns := []chat.Turn{
		{ID: "t0", Speaker: chat.SpeakerAssistant, Text: "How was today?", OccurredAt: created.Add(-time.Hour)},
		{ID: "t1", Speaker: chat.SpeakerUser, Text: "I started a new project", OccurredAt: created.Add(-50 * time.Minute)},
	}

	olderID, err := client.Save(ctx, diary.Entry{Date: "2026-10-18", Turns: turns, Summary: "s1", Emotion: "calm - quiet", ImageRef: "ref1", CreatedAt: created})
	require.NoError(t, err)
	newerID, err := client.Save(ctx, diary.Entry{Date: "2026-10-19", Turns: turns, Summary: "s2", Emotion: "joy - fun", ImageRef: "ref2", CreatedAt: created})
	require.NoError(t, err)
	assert.NotEmpty(t, olderID)
	assert.NotEqual(t, olderID, newerID)

	list, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newerID, list[0].ID)
	assert.Equal(t, "2026-10-18", list[1].Date)
	require.Len(t, list[1].Turns, 2)
	assert.Equal(t, chat.SpeakerUser, list[1].Turns[1].Speaker)

	require.NoError(t, client.Delete(ctx, olderID))
	assert.ErrorIs(t, client.Delete(ctx, olderID), diary.ErrEntryNotFound)
}
