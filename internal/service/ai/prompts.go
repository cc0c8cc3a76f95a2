package ai

import (
	"strings"

	"github.com/samber/lo"

	"github.com/zhouzirui/ai-diary/backend/internal/analysis/emotion"
)

const companionSystemPrompt = `You are a warm, empathetic diary companion. Chat naturally with the user about their day: ask what happened, how it felt, and reflect their feelings back to them.
Keep replies short and friendly, one or two sentences with at most one question.
When the user has talked about their day enough, gently suggest wrapping up so today's diary can be written.`

const summarySystemPrompt = `Summarize the user's day from the conversation below as a diary entry.
Include the main activities, what they felt, and anything special that happened.
Write it as a natural, warm diary passage addressed to the user.`

const summaryUserPrompt = "Write today's diary entry based on this conversation:\n\n{conversation}"

const emotionUserPrompt = "Analyze the emotion in these messages: {messages}"

// emotionSystemPrompt enumerates the label vocabulary so every answer carries a
// keyword the timeline emoji matcher recognizes.
var emotionSystemPrompt = `Analyze the user's messages and identify their dominant emotional state.
Choose exactly one label from: ` + strings.Join(lo.Map(emotion.Vocabulary(), func(l emotion.Label, _ int) string { return string(l) }), ", ") + `.
Answer in a single line formatted as "<label> - <short explanation>", for example "joy - you had a lot of good moments today".`
