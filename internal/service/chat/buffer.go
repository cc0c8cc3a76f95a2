package chat

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/zhouzirui/ai-diary/backend/internal/model/chat"
)

var (
	ErrEmptyTurn       = errors.New("turn text is empty")
	ErrUnknownSpeaker  = errors.New("unknown speaker")
	ErrTurnOutOfOrder  = errors.New("turn is older than the previous turn")
	ErrSessionNotFound = errors.New("session not found")
)

// Buffer is the ordered, append-only turn list of one session. The first turn
// is always the assistant greeting. Buffer is not safe for concurrent use;
// Service serializes access.
type Buffer struct {
	greeting  string
	maxLength int
	now       func() time.Time
	turns     []chat.Turn
}

// NewBuffer returns a buffer seeded with the greeting. maxLength <= 0 disables truncation.
func NewBuffer(greeting string, maxLength int, now func() time.Time) *Buffer {
	if now == nil {
		now = time.Now
	}
	b := &Buffer{greeting: greeting, maxLength: maxLength, now: now}
	b.Reset()
	return b
}

// Append adds turn at the end. Text is trimmed and capped at maxLength runes;
// a zero OccurredAt is stamped with the current time.
func (b *Buffer) Append(turn chat.Turn) (chat.Turn, error) {
	if !turn.Speaker.Valid() {
		return chat.Turn{}, ErrUnknownSpeaker
	}

	text := strings.TrimSpace(turn.Text)
	if text == "" {
		return chat.Turn{}, ErrEmptyTurn
	}
	if b.maxLength > 0 && utf8.RuneCountInString(text) > b.maxLength {
		text = string([]rune(text)[:b.maxLength])
	}
	turn.Text = text

	if turn.OccurredAt.IsZero() {
		turn.OccurredAt = b.now().UTC()
	}
	if last := b.turns[len(b.turns)-1]; turn.OccurredAt.Before(last.OccurredAt) {
		return chat.Turn{}, ErrTurnOutOfOrder
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}

	b.turns = append(b.turns, turn)
	return turn, nil
}

// Snapshot returns a copy that later appends or resets cannot touch.
func (b *Buffer) Snapshot() []chat.Turn {
	copied := make([]chat.Turn, len(b.turns))
	copy(copied, b.turns)
	return copied
}

// Reset replaces the contents with a fresh greeting.
func (b *Buffer) Reset() {
	b.turns = []chat.Turn{{
		ID:         uuid.NewString(),
		Speaker:    chat.SpeakerAssistant,
		Text:       b.greeting,
		OccurredAt: b.now().UTC(),
	}}
}

// Len returns the number of turns, greeting included.
func (b *Buffer) Len() int {
	return len(b.turns)
}

// UserTurns counts the turns written by the user.
func (b *Buffer) UserTurns() int {
	return CountUserTurns(b.turns)
}

// CountUserTurns counts the user-authored turns in turns.
func CountUserTurns(turns []chat.Turn) int {
	return lo.CountBy(turns, func(t chat.Turn) bool {
		return t.Speaker == chat.SpeakerUser
	})
}
