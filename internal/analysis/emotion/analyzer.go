package emotion

import (
	"strings"

	"github.com/samber/lo"
)

// Label is one entry of the coarse emotion vocabulary the classifier may answer with.
type Label string

const (
	Joy          Label = "joy"
	Sadness      Label = "sadness"
	Anger        Label = "anger"
	Anxiety      Label = "anxiety"
	Calm         Label = "calm"
	Curiosity    Label = "curiosity"
	Fatigue      Label = "fatigue"
	Surprise     Label = "surprise"
	Mixed        Label = "mixed"
	Anticipation Label = "anticipation"
	Neutral      Label = "neutral"
)

type bucket struct {
	label    Label
	emoji    string
	keywords []string
}

// buckets is evaluated top to bottom; the first bucket with a matching keyword wins.
var buckets = []bucket{
	{Joy, "😊", []string{"joy", "happy", "happiness", "glad", "delight", "great", "기쁨", "행복", "좋"}},
	{Sadness, "😢", []string{"sadness", "sad", "depressed", "gloomy", "down", "슬픔", "우울"}},
	{Anger, "😠", []string{"anger", "angry", "furious", "annoyed", "irritat", "화남", "분노", "짜증"}},
	{Anxiety, "😰", []string{"anxiety", "anxious", "worried", "worry", "nervous", "불안", "걱정"}},
	{Calm, "😌", []string{"calm", "peaceful", "serene", "relaxed", "평온", "편안"}},
	{Curiosity, "🤔", []string{"curiosity", "curious", "interest", "intrigu", "흥미", "호기심"}},
	{Fatigue, "😴", []string{"fatigue", "tired", "exhausted", "weary", "피곤", "지쳐"}},
	{Surprise, "😲", []string{"surprise", "surprised", "astonish", "flustered", "당황", "놀라"}},
	{Mixed, "😕", []string{"mixed", "complex", "complicated", "conflicted", "복잡"}},
	{Anticipation, "🤗", []string{"anticipation", "excited", "hopeful", "looking forward", "기대"}},
}

const neutralEmoji = "😐"

// Vocabulary lists the labels the classifier is asked to choose from, in priority order.
func Vocabulary() []Label {
	return append(lo.Map(buckets, func(b bucket, _ int) Label { return b.label }), Neutral)
}

// Match returns the first label whose keyword occurs in text, or Neutral.
func Match(text string) Label {
	if b, ok := match(text); ok {
		return b.label
	}
	return Neutral
}

// Emoji maps a free-text emotion string to its display emoji.
func Emoji(text string) string {
	if b, ok := match(text); ok {
		return b.emoji
	}
	return neutralEmoji
}

// Recognized reports whether text carries at least one keyword of the set.
func Recognized(text string) bool {
	_, ok := match(text)
	return ok
}

// match reads the label phrase of "<label> - <justification>" first and only
// falls back to the whole text when the label carries no keyword.
func match(text string) (bucket, bool) {
	if label, _, found := strings.Cut(text, " - "); found {
		if b, ok := matchKeywords(label); ok {
			return b, true
		}
	}
	return matchKeywords(text)
}

func matchKeywords(text string) (bucket, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return bucket{}, false
	}
	return lo.Find(buckets, func(b bucket) bool {
		return lo.SomeBy(b.keywords, func(word string) bool {
			return strings.Contains(normalized, word)
		})
	})
}
