package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmojiTable(t *testing.T) {
	cases := []struct {
		emotion string
		label   Label
		emoji   string
	}{
		{"Joy - you had a lot of good moments today", Joy, "😊"},
		{"기쁨 - 오늘 좋은 일이 많았네요", Joy, "😊"},
		{"Sadness - the farewell weighed on you", Sadness, "😢"},
		{"ANGER - the meeting went badly", Anger, "😠"},
		{"anxiety - the deadline is close", Anxiety, "😰"},
		{"Calm - a quiet day at home", Calm, "😌"},
		{"Curiosity - a new project caught your interest", Curiosity, "🤔"},
		{"Fatigue - long shifts all week", Fatigue, "😴"},
		{"Surprise - an unexpected call", Surprise, "😲"},
		{"Mixed feelings - relief and worry at once", Mixed, "😕"},
		{"Mixed - two things at once", Mixed, "😕"},
		{"Anticipation - the trip is next week", Anticipation, "🤗"},
		{"Neutral - an ordinary day", Neutral, "😐"},
		{"", Neutral, "😐"},
	}

	for _, tc := range cases {
		t.Run(tc.emotion, func(t *testing.T) {
			assert.Equal(t, tc.label, Match(tc.emotion))
			assert.Equal(t, tc.emoji, Emoji(tc.emotion))
		})
	}
}

func TestLabelPhraseOutranksJustification(t *testing.T) {
	cases := []struct {
		emotion string
		label   Label
		emoji   string
	}{
		{"sadness - you felt down even though the weather was great", Sadness, "😢"},
		{"calm - you spent a slow evening winding down", Calm, "😌"},
		{"fatigue - a draining week and you were glad it ended", Fatigue, "😴"},
		{"anger - the delayed train was not a great experience", Anger, "😠"},
	}

	for _, tc := range cases {
		t.Run(tc.emotion, func(t *testing.T) {
			assert.Equal(t, tc.label, Match(tc.emotion))
			assert.Equal(t, tc.emoji, Emoji(tc.emotion))
		})
	}
}

func TestJustificationUsedWhenLabelUnknown(t *testing.T) {
	assert.Equal(t, Joy, Match("content - you felt happy all day"))
	assert.Equal(t, "😴", Emoji("meh - so tired today"))
	assert.Equal(t, Neutral, Match("hmm - hard to say"))
}

func TestPriorityOrderWins(t *testing.T) {
	// joy is checked before sadness
	assert.Equal(t, Joy, Match("sad but happy in the end"))
}

func TestVocabularyEndsWithNeutral(t *testing.T) {
	vocab := Vocabulary()
	assert.Len(t, vocab, 11)
	assert.Equal(t, Joy, vocab[0])
	assert.Equal(t, Neutral, vocab[len(vocab)-1])
}

func TestRecognized(t *testing.T) {
	assert.True(t, Recognized("Calm - nothing much"))
	assert.False(t, Recognized("Neutral - nothing much"))
}
