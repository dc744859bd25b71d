package narrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"ContractPulse/internal/model"
)

// ClaudeNarrator writes commentary with Anthropic Claude.
type ClaudeNarrator struct {
	cfg    Config
	client anthropic.Client
}

// NewClaudeNarrator creates a Claude-backed narrator.
func NewClaudeNarrator(cfg Config) *ClaudeNarrator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &ClaudeNarrator{
		cfg:    cfg,
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
	}
}

func (c *ClaudeNarrator) Name() string { return "claude" }

func (c *ClaudeNarrator) Narrate(ctx context.Context, a *model.Analysis) (string, error) {
	return narrate(ctx, c.cfg, c.Name(), a, c.complete)
}

func (c *ClaudeNarrator) complete(ctx context.Context, system, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(c.cfg.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{{Text: system}},
	}
	if c.cfg.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(c.cfg.Temperature))
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude API call failed: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return out.String(), nil
}
