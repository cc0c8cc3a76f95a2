// Package illustrator turns a diary recap into an image reference. It never
// fails: when both generation attempts fail it answers with the placeholder.
package illustrator

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// DefaultPlaceholder is the image reference stored when no illustration could be produced.
const DefaultPlaceholder = "https://via.placeholder.com/1024x1024/FFE4E1/8B4513?text=AI+Diary+Image"

const (
	maxPromptSummary = 200
	fallbackMood     = "peaceful feeling"
)

// Generator produces one image for a prompt and returns its URL.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options tunes an Illustrator.
type Options struct {
	Placeholder string
	Logger      *slog.Logger
}

// Illustrator runs the styled attempt, one generic fallback, then the placeholder.
type Illustrator struct {
	generator   Generator
	placeholder string
	logger      *slog.Logger
}

// New creates an Illustrator. A nil generator always yields the placeholder.
func New(generator Generator, opts Options) *Illustrator {
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultPlaceholder
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Illustrator{
		generator:   generator,
		placeholder: opts.Placeholder,
		logger:      opts.Logger.With("component", "illustrator"),
	}
}

// Illustrate returns an image reference for summary.
func (i *Illustrator) Illustrate(ctx context.Context, summary string) string {
	if i.generator == nil {
		i.logger.Info("image generation disabled, using placeholder")
		return i.placeholder
	}

	url, err := i.generator.Generate(ctx, StyledPrompt(summary))
	if err == nil && strings.TrimSpace(url) != "" {
		return url
	}
	i.logger.Warn("image generation failed, trying fallback prompt", "error", err)

	url, err = i.generator.Generate(ctx, FallbackPrompt())
	if err == nil && strings.TrimSpace(url) != "" {
		return url
	}
	i.logger.Error("fallback image generation failed, using placeholder", "error", err)
	return i.placeholder
}

// StyledPrompt embeds the sanitized summary in the diary illustration style.
func StyledPrompt(summary string) string {
	return "A warm diary illustration: " + Sanitize(summary) + ". Soft watercolor style, pastel colors, peaceful mood, no text."
}

// FallbackPrompt carries no user content.
func FallbackPrompt() string {
	return "A simple peaceful " + fallbackMood + " illustration. Minimalist watercolor, soft colors."
}

// Sanitize replaces quotes and line breaks with spaces and keeps the first 200 characters.
func Sanitize(summary string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', '\n', '\r':
			return ' '
		}
		return r
	}, summary)

	if utf8.RuneCountInString(cleaned) <= maxPromptSummary {
		return cleaned
	}
	return string([]rune(cleaned)[:maxPromptSummary])
}
