package chat

import "time"

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Valid reports whether s is a known speaker.
func (s Speaker) Valid() bool {
	return s == SpeakerUser || s == SpeakerAssistant
}

// Turn is one message of a conversation. Turns are immutable once appended.
type Turn struct {
	ID         string    `json:"id" yaml:"id,omitempty"`
	Speaker    Speaker   `json:"speaker" yaml:"speaker"`
	Text       string    `json:"text" yaml:"text"`
	OccurredAt time.Time `json:"occurredAt" yaml:"occurredAt,omitempty"`
}
