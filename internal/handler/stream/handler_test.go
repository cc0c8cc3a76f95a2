package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/ai-diary/backend/internal/model/chat"
	"github.com/zhouzirui/ai-diary/backend/internal/model/diary"
	aiservice "github.com/zhouzirui/ai-diary/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/ai-diary/backend/internal/service/chat"
	diaryservice "github.com/zhouzirui/ai-diary/backend/internal/service/diary"
)

// chunkedModel streams its answer word by word.
type chunkedModel struct {
	answer string
}

func (m *chunkedModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage(m.answer, nil), nil
}

func (m *chunkedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	words := strings.SplitAfter(m.answer, " ")
	chunks := make([]*schema.Message, 0, len(words))
	for _, w := range words {
		chunks = append(chunks, schema.AssistantMessage(w, nil))
	}
	return schema.StreamReaderFromArray(chunks), nil
}

func (m *chunkedModel) BindTools([]*schema.ToolInfo) error { return nil }

type fixedStages struct{}

func (fixedStages) Summarize(context.Context, []chat.Turn) (string, error) {
	return "A calm and peaceful day.", nil
}

func (fixedStages) ClassifyEmotion(context.Context, []chat.Turn) (string, error) {
	return "calm - a slow day", nil
}

func (fixedStages) Illustrate(context.Context, string) string { return "placeholder" }

func setup(t *testing.T, answer string) (*chi.Mux, *chatservice.Service) {
	t.Helper()
	aiSvc, err := aiservice.NewService(context.Background(), &chunkedModel{answer: answer}, aiservice.Options{})
	require.NoError(t, err)

	chatSvc := chatservice.NewService(chatservice.Options{Greeting: "How was your day?"})
	pipeline := diaryservice.NewPipeline(fixedStages{}, fixedStages{}, fixedStages{}, diary.NewMemoryStore(), diaryservice.PipelineOptions{})

	r := chi.NewRouter()
	New(aiSvc, chatSvc, pipeline, true, nil).RegisterRoutes(r)
	return r, chatSvc
}

func readEvents(t *testing.T, body string) []StreamResponse {
	t.Helper()
	var events []StreamResponse
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		data, ok := strings.CutPrefix(block, "data: ")
		require.True(t, ok, "unexpected block %q", block)
		var ev StreamResponse
		require.NoError(t, json.Unmarshal([]byte(data), &ev))
		events = append(events, ev)
	}
	return events
}

func TestStreamReplyEmitsDeltasAndRecordsTurns(t *testing.T) {
	r, chatSvc := setup(t, "that sounds wonderful")
	session, err := chatSvc.CreateSession(context.Background())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID+"/stream?message="+url.QueryEscape("I baked bread"), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	events := readEvents(t, rec.Body.String())

	var kinds []string
	var deltas strings.Builder
	for _, ev := range events {
		kinds = append(kinds, ev.Event)
		if ev.Event == "delta" {
			deltas.WriteString(ev.Content)
		}
	}
	assert.Equal(t, []string{"start", "delta", "delta", "delta", "message", "end"}, kinds)
	assert.Equal(t, "that sounds wonderful", deltas.String())
	assert.Equal(t, "I baked bread", events[0].Turn.Text)
	assert.Equal(t, chat.SpeakerAssistant, events[len(events)-1].Turn.Speaker)

	turns, err := chatSvc.Snapshot(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "that sounds wonderful", turns[2].Text)
}

func TestStreamReplyValidation(t *testing.T) {
	r, chatSvc := setup(t, "ok")
	session, err := chatSvc.CreateSession(context.Background())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID+"/stream", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/missing/stream?message=hi", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamFinalizeReportsProgress(t *testing.T) {
	r, chatSvc := setup(t, "ok")
	ctx := context.Background()
	session, err := chatSvc.CreateSession(ctx)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := chatSvc.AppendTurn(ctx, session.ID, chat.Turn{Speaker: chat.SpeakerUser, Text: fmt.Sprintf("line %d", i)})
		require.NoError(t, err)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID+"/finalize/stream", nil))

	events := readEvents(t, rec.Body.String())
	var stages []string
	for _, ev := range events {
		if ev.Event == "progress" {
			stages = append(stages, ev.Stage)
		}
	}
	assert.Equal(t, []string{"summarizing", "classifying", "illustrating", "saving", "done"}, stages)

	last := events[len(events)-1]
	assert.Equal(t, "entry", last.Event)
	assert.True(t, last.Finished)
	entry, ok := last.Entry.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "😌", entry["emoji"])
}

func TestStreamFinalizeNotEnoughConversation(t *testing.T) {
	r, chatSvc := setup(t, "ok")
	session, err := chatSvc.CreateSession(context.Background())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID+"/finalize/stream", nil))

	events := readEvents(t, rec.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Event)
	assert.Contains(t, events[0].Error, "not enough conversation")
}
