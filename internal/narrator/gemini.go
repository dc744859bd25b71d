package narrator

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"ContractPulse/internal/model"
)

// GeminiNarrator writes commentary with Google Gemini.
type GeminiNarrator struct {
	cfg    Config
	client *genai.Client
}

// NewGeminiNarrator creates a Gemini-backed narrator.
func NewGeminiNarrator(ctx context.Context, cfg Config) (*GeminiNarrator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}
	return &GeminiNarrator{cfg: cfg, client: client}, nil
}

func (g *GeminiNarrator) Name() string { return "gemini" }

func (g *GeminiNarrator) Narrate(ctx context.Context, a *model.Analysis) (string, error) {
	return narrate(ctx, g.cfg, g.Name(), a, g.complete)
}

func (g *GeminiNarrator) complete(ctx context.Context, system, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(g.cfg.Temperature),
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	if g.cfg.MaxTokens > 0 {
		config.MaxOutputTokens = int32(g.cfg.MaxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	var out strings.Builder
	if resp != nil {
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				out.WriteString(part.Text)
			}
			if out.Len() > 0 {
				break
			}
		}
	}
	return out.String(), nil
}
