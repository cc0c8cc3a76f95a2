package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaiapi "github.com/openai/openai-go"
)

// ErrNoImage is returned when an image response succeeds without a URL at data[0].url.
var ErrNoImage = errors.New("openai: response has no image url")

// ImageConfig extends Config with the fixed generation parameters.
type ImageConfig struct {
	Config
	Size    string
	Quality string
}

// ImageGenerator requests exactly one image per call.
type ImageGenerator struct {
	client  openaiapi.Client
	model   string
	size    string
	quality string
}

// NewImageGenerator creates a generator from cfg.
func NewImageGenerator(cfg ImageConfig) *ImageGenerator {
	return &ImageGenerator{
		client:  openaiapi.NewClient(cfg.requestOptions()...),
		model:   cfg.Model,
		size:    cfg.Size,
		quality: cfg.Quality,
	}
}

// Generate returns the URL of one generated image.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Images.Generate(ctx, openaiapi.ImageGenerateParams{
		Prompt:  prompt,
		Model:   openaiapi.ImageModel(g.model),
		N:       openaiapi.Int(1),
		Size:    openaiapi.ImageGenerateParamsSize(g.size),
		Quality: openaiapi.ImageGenerateParamsQuality(g.quality),
	})
	if err != nil {
		return "", fmt.Errorf("openai image generation: %w", err)
	}
	if resp == nil || len(resp.Data) == 0 || strings.TrimSpace(resp.Data[0].URL) == "" {
		return "", ErrNoImage
	}
	return resp.Data[0].URL, nil
}
