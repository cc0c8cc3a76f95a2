package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/ai-diary/backend/internal/model/chat"
	chat "github.com/zhouzirui/ai-diary/backend/internal/service/chat"
)

func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func newService() *chat.Service {
	return chat.NewService(chat.Options{
		Greeting:      "hello",
		MaxTurnLength: 10,
		Now:           fixedClock(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)),
	})
}

func TestServiceGetSession(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	got, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := newService()

	_, err := svc.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestNewSessionStartsWithGreeting(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	turns, err := svc.Snapshot(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, model.SpeakerAssistant, turns[0].Speaker)
	assert.Equal(t, "hello", turns[0].Text)
}

func TestAppendKeepsOrderAndDuplicates(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx)

	for _, text := range []string{"one", "one", "two"} {
		_, err := svc.AppendTurn(ctx, session.ID, model.Turn{Speaker: model.SpeakerUser, Text: text})
		require.NoError(t, err)
	}

	turns, err := svc.Snapshot(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, []string{"hello", "one", "one", "two"}, []string{turns[0].Text, turns[1].Text, turns[2].Text, turns[3].Text})
	for i := 1; i < len(turns); i++ {
		assert.False(t, turns[i].OccurredAt.Before(turns[i-1].OccurredAt))
		assert.NotEmpty(t, turns[i].ID)
	}
}

func TestAppendValidatesTurns(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx)

	_, err := svc.AppendTurn(ctx, session.ID, model.Turn{Speaker: model.SpeakerUser, Text: "   "})
	assert.ErrorIs(t, err, chat.ErrEmptyTurn)

	_, err = svc.AppendTurn(ctx, session.ID, model.Turn{Speaker: "system", Text: "hi"})
	assert.ErrorIs(t, err, chat.ErrUnknownSpeaker)

	_, err = svc.AppendTurn(ctx, session.ID, model.Turn{
		Speaker:    model.SpeakerUser,
		Text:       "too early",
		OccurredAt: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, chat.ErrTurnOutOfOrder)

	_, err = svc.AppendTurn(ctx, "missing", model.Turn{Speaker: model.SpeakerUser, Text: "hi"})
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestAppendCapsTextLength(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx)

	turn, err := svc.AppendTurn(ctx, session.ID, model.Turn{Speaker: model.SpeakerUser, Text: strings.Repeat("가", 25)})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("가", 10), turn.Text)
}

func TestSnapshotIsDetachedFromReset(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx)
	_, err := svc.AppendTurn(ctx, session.ID, model.Turn{Speaker: model.SpeakerUser, Text: "kept"})
	require.NoError(t, err)

	snapshot, err := svc.Snapshot(ctx, session.ID)
	require.NoError(t, err)

	turns, err := svc.Reset(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "hello", turns[0].Text)

	require.Len(t, snapshot, 2)
	assert.Equal(t, "kept", snapshot[1].Text)
}

func TestEndSessionDestroysBuffer(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx)

	require.NoError(t, svc.EndSession(ctx, session.ID))
	_, err := svc.Snapshot(ctx, session.ID)
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
	assert.ErrorIs(t, svc.EndSession(ctx, session.ID), chat.ErrSessionNotFound)
}

func TestCountUserTurns(t *testing.T) {
	buffer := chat.NewBuffer("hi", 0, nil)
	for i := 0; i < 3; i++ {
		_, err := buffer.Append(model.Turn{Speaker: model.SpeakerUser, Text: "u"})
		require.NoError(t, err)
		_, err = buffer.Append(model.Turn{Speaker: model.SpeakerAssistant, Text: "a"})
		require.NoError(t, err)
	}
	assert.Equal(t, 7, buffer.Len())
	assert.Equal(t, 3, buffer.UserTurns())
}

type echoReplier struct {
	seen []model.Turn
	err  error
}

func (r *echoReplier) Reply(_ context.Context, turns []model.Turn) (string, error) {
	r.seen = turns
	if r.err != nil {
		return "", r.err
	}
	return "you said: " + turns[len(turns)-1].Text, nil
}

func TestExchangeAppendsBothTurns(t *testing.T) {
	ctx := context.Background()
	svc := chat.NewService(chat.Options{Greeting: "hello"})
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	replier := &echoReplier{}
	userTurn, reply, err := svc.Exchange(ctx, session.ID, "went hiking", replier)
	require.NoError(t, err)

	assert.Equal(t, model.SpeakerUser, userTurn.Speaker)
	assert.Equal(t, "you said: went hiking", reply.Text)
	assert.Len(t, replier.seen, 2)

	turns, err := svc.Snapshot(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, turns, 3)
}

func TestExchangeKeepsUserTurnWhenReplyFails(t *testing.T) {
	ctx := context.Background()
	svc := chat.NewService(chat.Options{Greeting: "hello"})
	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	boom := errors.New("model offline")
	userTurn, _, err := svc.Exchange(ctx, session.ID, "long day", &echoReplier{err: boom})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "long day", userTurn.Text)

	turns, err := svc.Snapshot(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}
