package diary

import (
	"cmp"
	"slices"
	"time"

	"github.com/zhouzirui/ai-diary/backend/internal/analysis/emotion"
	"github.com/zhouzirui/ai-diary/backend/internal/model/chat"
)

// DateLayout is the calendar date format of Entry.Date.
const DateLayout = "2006-01-02"

// Entry is a finalized diary page built from one chat session.
type Entry struct {
	ID        string      `json:"id" yaml:"id"`
	Date      string      `json:"date" yaml:"date"`
	Turns     []chat.Turn `json:"turns" yaml:"turns"`
	Summary   string      `json:"summary" yaml:"summary"`
	Emotion   string      `json:"emotion" yaml:"emotion"`
	ImageRef  string      `json:"imageRef" yaml:"imageRef"`
	CreatedAt time.Time   `json:"createdAt" yaml:"createdAt"`
}

// Emoji is the timeline emoji for the entry's emotion string.
func (e Entry) Emoji() string {
	return emotion.Emoji(e.Emotion)
}

// Clone returns a copy that shares no turn storage with e.
func (e Entry) Clone() Entry {
	e.Turns = slices.Clone(e.Turns)
	return e
}

// SortByDateDesc orders entries newest first: by date, then by creation time.
func SortByDateDesc(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
