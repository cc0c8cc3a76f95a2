package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/ai-diary/backend/internal/config"
	"github.com/zhouzirui/ai-diary/backend/internal/model/chat"
	"github.com/zhouzirui/ai-diary/backend/internal/model/diary"
	"github.com/zhouzirui/ai-diary/backend/internal/service/illustrator"
)

type fakeAssistant struct {
	replies int
}

func (f *fakeAssistant) Reply(_ context.Context, turns []chat.Turn) (string, error) {
	f.replies++
	return "tell me more about " + turns[len(turns)-1].Text, nil
}

func (f *fakeAssistant) Summarize(_ context.Context, turns []chat.Turn) (string, error) {
	return "You had a long, tiring day at work.", nil
}

func (f *fakeAssistant) ClassifyEmotion(context.Context, []chat.Turn) (string, error) {
	return "fatigue - worn out after work", nil
}

type harness struct {
	app     *app
	store   *diary.MemoryStore
	cleared int
}

func newHarness(entries ...diary.Entry) *harness {
	h := &harness{store: diary.NewMemoryStore(entries...)}
	h.app = &app{
		entries:     h.store,
		assistant:   &fakeAssistant{},
		illustrator: illustrator.New(nil, illustrator.Options{}),
	}
	h.app.clearers = []func(context.Context) error{func(ctx context.Context) error {
		h.cleared++
		entries, err := h.store.List(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := h.store.Delete(ctx, e.ID); err != nil {
				return err
			}
		}
		return nil
	}}
	return h
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(h.app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sampleEntries() []diary.Entry {
	created := time.Date(2026, 10, 18, 21, 0, 0, 0, time.UTC)
	return []diary.Entry{
		{ID: "older", Date: "2026-10-17", Summary: "Rainy day.", Emotion: "sadness - missed the sun", CreatedAt: created.Add(-24 * time.Hour)},
		{ID: "newer", Date: "2026-10-18", Summary: "Picnic in the park.", Emotion: "joy - sunshine and friends", ImageRef: "https://img.example/p.png", CreatedAt: created},
	}
}

func TestListPrintsNewestFirst(t *testing.T) {
	h := newHarness(sampleEntries()...)

	out, err := h.run(t, "", "list")
	require.NoError(t, err)

	assert.Contains(t, out, "Entries (2):")
	newer := strings.Index(out, "2026-10-18 😊")
	older := strings.Index(out, "2026-10-17 😢")
	require.NotEqual(t, -1, newer)
	require.NotEqual(t, -1, older)
	assert.Less(t, newer, older)
	assert.NotContains(t, out, "Picnic in the park.")
}

func TestListLimitAndVerbose(t *testing.T) {
	h := newHarness(sampleEntries()...)

	out, err := h.run(t, "", "list", "-n", "1", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "Entries (1):")
	assert.Contains(t, out, "Picnic in the park.")
	assert.NotContains(t, out, "Rainy day.")
}

func TestListEmpty(t *testing.T) {
	out, err := newHarness().run(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No diary entries found.")
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	h := newHarness(sampleEntries()...)

	out, err := h.run(t, "n\n", "delete", "newer")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")

	entries, _ := h.store.List(context.Background())
	assert.Len(t, entries, 2)

	out, err = h.run(t, "y\n", "delete", "newer")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted: newer")

	entries, _ = h.store.List(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, "older", entries[0].ID)
}

func TestDeleteUnknownID(t *testing.T) {
	h := newHarness(sampleEntries()...)

	_, err := h.run(t, "", "delete", "missing", "--force")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry not found")
}

func TestClearForce(t *testing.T) {
	h := newHarness(sampleEntries()...)

	out, err := h.run(t, "", "clear", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "All diary entries removed.")
	assert.Equal(t, 1, h.cleared)

	entries, _ := h.store.List(context.Background())
	assert.Empty(t, entries)
}

func TestExportWritesFrontmatter(t *testing.T) {
	h := newHarness(sampleEntries()...)
	dir := t.TempDir()

	out, err := h.run(t, "", "export", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 entries")

	raw, err := os.ReadFile(filepath.Join(dir, "2026-10-18-newer.md"))
	require.NoError(t, err)

	content := string(raw)
	require.True(t, strings.HasPrefix(content, "---\n"))
	end := strings.Index(content[4:], "\n---")
	require.Positive(t, end)

	var fm entryFrontmatter
	require.NoError(t, yaml.Unmarshal([]byte(content[4:4+end]), &fm))
	assert.Equal(t, "newer", fm.ID)
	assert.Equal(t, "😊", fm.Emoji)
	assert.Equal(t, "https://img.example/p.png", fm.ImageRef)
	assert.Contains(t, content, "Picnic in the park.")
}

func writeTranscript(t *testing.T, transcript Transcript) string {
	t.Helper()
	raw, err := yaml.Marshal(transcript)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "transcript.yaml")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func workdayTranscript() Transcript {
	lines := []string{"meetings all morning", "skipped lunch", "bug hunt", "late train", "finally home"}
	t := Transcript{Greeting: "How was your day?"}
	for _, l := range lines {
		t.Turns = append(t.Turns,
			chat.Turn{Speaker: chat.SpeakerUser, Text: l},
			chat.Turn{Speaker: chat.SpeakerAssistant, Text: "recorded reply"},
		)
	}
	return t
}

func TestReplayLiveSavesEntry(t *testing.T) {
	h := newHarness()
	path := writeTranscript(t, workdayTranscript())

	out, err := h.run(t, "", "replay", path)
	require.NoError(t, err)

	assert.Contains(t, out, "AI: tell me more about bug hunt")
	assert.NotContains(t, out, "recorded reply")
	assert.Contains(t, out, "😴 fatigue - worn out after work")
	assert.Equal(t, 5, h.app.assistant.(*fakeAssistant).replies)

	entries, err := h.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, illustrator.DefaultPlaceholder, entries[0].ImageRef)
	assert.Len(t, entries[0].Turns, 11)
	assert.Contains(t, out, "Saved: "+entries[0].ID)
}

func TestReplayRecordedDryRun(t *testing.T) {
	h := newHarness()
	path := writeTranscript(t, workdayTranscript())

	out, err := h.run(t, "", "replay", "--live=false", "--dry-run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "dry run")
	assert.Zero(t, h.app.assistant.(*fakeAssistant).replies)

	entries, err := h.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReplayCapsTurnLength(t *testing.T) {
	h := newHarness()
	h.app.cfg = &config.Config{Diary: config.DiaryConfig{MaxTurnLength: 8, Location: time.UTC}}
	path := writeTranscript(t, workdayTranscript())

	_, err := h.run(t, "", "replay", "--live=false", path)
	require.NoError(t, err)

	entries, err := h.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	turns := entries[0].Turns
	require.Len(t, turns, 11)
	assert.Equal(t, "How was your day?", turns[0].Text)
	assert.Equal(t, "meetings", turns[1].Text)
	assert.Equal(t, "recorded", turns[2].Text)
	assert.Equal(t, "late tra", turns[7].Text)
}

func TestReplayTooShort(t *testing.T) {
	h := newHarness()
	path := writeTranscript(t, Transcript{Turns: []chat.Turn{{Speaker: chat.SpeakerUser, Text: "hi"}}})

	_, err := h.run(t, "", "replay", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough conversation")
}

func TestLoadTranscriptRejectsUnknownSpeaker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("turns:\n  - speaker: narrator\n    text: once upon a time\n"), 0o644))

	_, err := loadTranscript(path)
	assert.Error(t, err)
}
