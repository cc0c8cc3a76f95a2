// Package openai adapts the OpenAI HTTP API to the interfaces the diary
// services consume: an eino chat model and an image generator.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openaiapi "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrNoChoice is returned when a completion response carries no usable choice.
var ErrNoChoice = errors.New("openai: response has no usable choice")

// Config holds the connection settings shared by the chat model and the image generator.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

func (c Config) requestOptions() []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(c.APIKey),
		// every call in this service is at-most-once; the illustrator owns its single retry
		option.WithMaxRetries(0),
	}
	if c.BaseURL != "" {
		base := c.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithBaseURL(base))
	}
	return opts
}

// ChatModel implements eino's model.ChatModel on top of chat completions.
type ChatModel struct {
	client openaiapi.Client
	model  string
}

var _ model.ChatModel = (*ChatModel)(nil)

// NewChatModel creates a chat model for cfg.Model.
func NewChatModel(cfg Config) *ChatModel {
	return &ChatModel{
		client: openaiapi.NewClient(cfg.requestOptions()...),
		model:  cfg.Model,
	}
}

// Generate sends one completion request and returns the first choice.
func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	params, err := m.buildParams(input, opts...)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrNoChoice
	}

	return schema.AssistantMessage(resp.Choices[0].Message.Content, nil), nil
}

// Stream emits the whole completion as a single chunk.
func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools is a no-op; the diary prompts never use tools.
func (m *ChatModel) BindTools(_ []*schema.ToolInfo) error {
	return nil
}

func (m *ChatModel) buildParams(input []*schema.Message, opts ...model.Option) (openaiapi.ChatCompletionNewParams, error) {
	common := model.GetCommonOptions(&model.Options{Model: &m.model}, opts...)

	messages := make([]openaiapi.ChatCompletionMessageParamUnion, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			messages = append(messages, openaiapi.SystemMessage(msg.Content))
		case schema.User:
			messages = append(messages, openaiapi.UserMessage(msg.Content))
		case schema.Assistant:
			messages = append(messages, openaiapi.AssistantMessage(msg.Content))
		default:
			return openaiapi.ChatCompletionNewParams{}, fmt.Errorf("openai: unsupported message role %q", msg.Role)
		}
	}

	params := openaiapi.ChatCompletionNewParams{
		Model:    openaiapi.ChatModel(*common.Model),
		Messages: messages,
	}
	if common.MaxTokens != nil {
		params.MaxTokens = openaiapi.Int(int64(*common.MaxTokens))
	}
	if common.Temperature != nil {
		params.Temperature = openaiapi.Float(float64(*common.Temperature))
	}
	if common.TopP != nil {
		params.TopP = openaiapi.Float(float64(*common.TopP))
	}
	return params, nil
}
