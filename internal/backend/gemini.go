package backend

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/vyomlabs/vyom/internal/config"
	"github.com/vyomlabs/vyom/internal/log"
)

// GeminiClient wraps the Gemini API for multimodal generation: text
// prompts optionally paired with an inline image or PDF.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger log.Logger
}

// NewGeminiClient creates a GeminiClient from cfg.
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig, logger log.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiClient{
		client: client,
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// GenerateText answers prompt with plain text.
func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, []*genai.Part{genai.NewPartFromText(prompt)})
}

// GenerateWithBlob answers prompt about an inline attachment, e.g. an
// image or a PDF document.
func (g *GeminiClient) GenerateWithBlob(ctx context.Context, prompt string, data []byte, mimeType string) (string, error) {
	return g.generate(ctx, []*genai.Part{
		genai.NewPartFromBytes(data, mimeType),
		genai.NewPartFromText(prompt),
	})
}

func (g *GeminiClient) generate(ctx context.Context, parts []*genai.Part) (string, error) {
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", newTransportError("gemini", err)
	}
	text := resp.Text()
	if text == "" {
		return "", newTransportError("gemini", fmt.Errorf("empty response"))
	}
	return text, nil
}
