package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/samber/lo"

	"github.com/zhouzirui/ai-diary/backend/internal/analysis/emotion"
	"github.com/zhouzirui/ai-diary/backend/internal/model/chat"
)

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("language model returned an empty response")

// DefaultChatWindow is how many recent turns a live chat request carries.
const DefaultChatWindow = 10

// Per-stage sampling budgets.
const (
	chatMaxTokens      = 200
	chatTemperature    = 0.8
	summaryMaxTokens   = 400
	summaryTemperature = 0.7
	emotionMaxTokens   = 150
	emotionTemperature = 0.3
)

// Options tunes a Service.
type Options struct {
	ChatWindow int
	Logger     *slog.Logger
}

// Service runs the language-generation stages: live chat replies, diary
// summaries and emotion classification.
type Service struct {
	chatModel model.ChatModel
	window    int
	logger    *slog.Logger

	chatChain    compose.Runnable[map[string]any, *schema.Message]
	summaryChain compose.Runnable[map[string]any, *schema.Message]
	emotionChain compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the three prompt chains around chatModel.
func NewService(ctx context.Context, chatModel model.ChatModel, opts Options) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if opts.ChatWindow <= 0 {
		opts.ChatWindow = DefaultChatWindow
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	chatChain, err := compileChain(ctx, chatModel,
		schema.SystemMessage(companionSystemPrompt),
		schema.MessagesPlaceholder("history", false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	summaryChain, err := compileChain(ctx, chatModel,
		schema.SystemMessage(summarySystemPrompt),
		schema.UserMessage(summaryUserPrompt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile summary chain: %w", err)
	}

	emotionChain, err := compileChain(ctx, chatModel,
		schema.SystemMessage(emotionSystemPrompt),
		schema.UserMessage(emotionUserPrompt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile emotion classifier chain: %w", err)
	}

	return &Service{
		chatModel:    chatModel,
		window:       opts.ChatWindow,
		logger:       opts.Logger.With("component", "ai"),
		chatChain:    chatChain,
		summaryChain: summaryChain,
		emotionChain: emotionChain,
	}, nil
}

func compileChain(ctx context.Context, chatModel model.ChatModel, templates ...schema.MessagesTemplate) (compose.Runnable[map[string]any, *schema.Message], error) {
	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(prompt.FromMessages(schema.FString, templates...))
	chain.AppendChatModel(chatModel)
	return chain.Compile(ctx)
}

// Reply produces the assistant's next turn. Only the most recent window of
// turns is sent upstream; the last turn is expected to be the user's.
func (s *Service) Reply(ctx context.Context, turns []chat.Turn) (string, error) {
	msg, err := s.chatChain.Invoke(ctx, s.chatInput(turns), chatCallOptions())
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}
	content, err := messageText(msg)
	if err != nil {
		return "", err
	}

	s.logger.Debug("generated reply", "turns_sent", min(len(turns), s.window), "length", len(content))
	return content, nil
}

// StreamReply is Reply delivered as incremental chunks.
func (s *Service) StreamReply(ctx context.Context, turns []chat.Turn) (*schema.StreamReader[*schema.Message], error) {
	stream, err := s.chatChain.Stream(ctx, s.chatInput(turns), chatCallOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to stream chat chain: %w", err)
	}
	return stream, nil
}

// Summarize turns the whole conversation into a diary passage.
func (s *Service) Summarize(ctx context.Context, turns []chat.Turn) (string, error) {
	input := map[string]any{"conversation": formatTranscript(turns)}

	msg, err := s.summaryChain.Invoke(ctx, input, compose.WithChatModelOption(
		model.WithMaxTokens(summaryMaxTokens),
		model.WithTemperature(summaryTemperature),
	))
	if err != nil {
		return "", fmt.Errorf("failed to summarize conversation: %w", err)
	}
	content, err := messageText(msg)
	if err != nil {
		return "", fmt.Errorf("failed to summarize conversation: %w", err)
	}

	s.logger.Info("summarized conversation", "turns", len(turns), "length", len(content))
	return content, nil
}

// ClassifyEmotion labels the user's side of the conversation. The result
// follows "<label-phrase> - <justification>" and its label phrase always
// contains a vocabulary keyword or "neutral".
func (s *Service) ClassifyEmotion(ctx context.Context, turns []chat.Turn) (string, error) {
	userTexts := lo.FilterMap(turns, func(t chat.Turn, _ int) (string, bool) {
		return t.Text, t.Speaker == chat.SpeakerUser
	})
	input := map[string]any{"messages": strings.Join(userTexts, " ")}

	msg, err := s.emotionChain.Invoke(ctx, input, compose.WithChatModelOption(
		model.WithMaxTokens(emotionMaxTokens),
		model.WithTemperature(emotionTemperature),
	))
	if err != nil {
		return "", fmt.Errorf("failed to classify emotion: %w", err)
	}
	content, err := messageText(msg)
	if err != nil {
		return "", fmt.Errorf("failed to classify emotion: %w", err)
	}

	result := normalizeEmotion(content)
	s.logger.Info("classified emotion", "label", emotion.Match(result), "raw_length", len(content))
	return result, nil
}

func (s *Service) chatInput(turns []chat.Turn) map[string]any {
	return map[string]any{"history": historyMessages(turns, s.window)}
}

func chatCallOptions() compose.Option {
	return compose.WithChatModelOption(
		model.WithMaxTokens(chatMaxTokens),
		model.WithTemperature(chatTemperature),
	)
}

func historyMessages(turns []chat.Turn, limit int) []*schema.Message {
	startIdx := 0
	if len(turns) > limit {
		startIdx = len(turns) - limit
	}

	history := make([]*schema.Message, 0, len(turns)-startIdx)
	for _, turn := range turns[startIdx:] {
		switch turn.Speaker {
		case chat.SpeakerUser:
			history = append(history, schema.UserMessage(turn.Text))
		case chat.SpeakerAssistant:
			history = append(history, schema.AssistantMessage(turn.Text, nil))
		}
	}
	return history
}

func formatTranscript(turns []chat.Turn) string {
	lines := lo.Map(turns, func(t chat.Turn, _ int) string {
		role := "AI"
		if t.Speaker == chat.SpeakerUser {
			role = "User"
		}
		return role + ": " + t.Text
	})
	return strings.Join(lines, "\n")
}

func messageText(msg *schema.Message) (string, error) {
	if msg == nil {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// normalizeEmotion makes a classifier answer honour the label contract.
func normalizeEmotion(raw string) string {
	text := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"'`))
	text = strings.Join(strings.Fields(text), " ")

	labelPhrase, justification, found := strings.Cut(text, " - ")
	if found {
		labelPhrase = strings.TrimSpace(labelPhrase)
		justification = strings.TrimSpace(justification)
		if emotion.Recognized(labelPhrase) || strings.Contains(strings.ToLower(labelPhrase), string(emotion.Neutral)) {
			return labelPhrase + " - " + justification
		}
	} else {
		justification = text
	}

	label := emotion.Match(text)
	if justification == "" {
		return string(label)
	}
	return string(label) + " - " + justification
}
