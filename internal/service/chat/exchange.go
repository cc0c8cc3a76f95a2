package chat

import (
	"context"
	"fmt"

	"github.com/zhouzirui/ai-diary/backend/internal/model/chat"
)

// Replier produces the assistant's next turn for a conversation.
type Replier interface {
	Reply(ctx context.Context, turns []chat.Turn) (string, error)
}

// Exchange records text as a user turn, asks replier for an answer and
// records that too. The user turn is kept even when the reply fails.
func (s *Service) Exchange(ctx context.Context, sessionID, text string, replier Replier) (chat.Turn, chat.Turn, error) {
	userTurn, err := s.AppendTurn(ctx, sessionID, chat.Turn{Speaker: chat.SpeakerUser, Text: text})
	if err != nil {
		return chat.Turn{}, chat.Turn{}, err
	}

	turns, err := s.Snapshot(ctx, sessionID)
	if err != nil {
		return userTurn, chat.Turn{}, err
	}

	reply, err := replier.Reply(ctx, turns)
	if err != nil {
		return userTurn, chat.Turn{}, fmt.Errorf("failed to generate reply: %w", err)
	}

	assistantTurn, err := s.AppendTurn(ctx, sessionID, chat.Turn{Speaker: chat.SpeakerAssistant, Text: reply})
	if err != nil {
		return userTurn, chat.Turn{}, err
	}
	return userTurn, assistantTurn, nil
}
