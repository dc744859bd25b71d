// Package narrator turns an analysis into a short written commentary,
// either through a hosted LLM or with a deterministic offline template.
package narrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/phuslu/log"

	"ContractPulse/internal/model"
)

// Narrator writes commentary for an analysis.
type Narrator interface {
	Narrate(ctx context.Context, a *model.Analysis) (string, error)
	Name() string
}

// Config selects and tunes a provider.
type Config struct {
	Provider       string // gemini | claude | offline
	Model          string
	APIKey         string
	Temperature    float32
	MaxTokens      int
	TopN           int
	MaxRetries     int
	InitialBackoff time.Duration
	Timeout        time.Duration
}

const (
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultClaudeModel = "claude-sonnet-4-5"
)

// New builds the narrator named by cfg.Provider. Cloud providers without an
// API key fall back to the offline narrator.
func New(ctx context.Context, cfg Config) (Narrator, error) {
	if cfg.TopN <= 0 {
		cfg.TopN = 5
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	provider := strings.ToLower(cfg.Provider)
	if (provider == "gemini" || provider == "claude") && cfg.APIKey == "" {
		log.Warn().Str("provider", provider).Msg("no API key configured, using offline narrator")
		provider = "offline"
	}

	switch provider {
	case "", "offline":
		return NewOfflineNarrator(cfg.TopN), nil
	case "gemini":
		if cfg.Model == "" {
			cfg.Model = DefaultGeminiModel
		}
		return NewGeminiNarrator(ctx, cfg)
	case "claude":
		if cfg.Model == "" {
			cfg.Model = DefaultClaudeModel
		}
		return NewClaudeNarrator(cfg), nil
	default:
		return nil, fmt.Errorf("unknown narrator provider %q", cfg.Provider)
	}
}

// completeFunc sends one system+user prompt pair to a model.
type completeFunc func(ctx context.Context, system, prompt string) (string, error)

// narrate builds the prompt and calls complete with retry and a per-attempt timeout.
func narrate(ctx context.Context, cfg Config, name string, a *model.Analysis, complete completeFunc) (string, error) {
	if a == nil {
		return "", fmt.Errorf("%s: nil analysis", name)
	}
	prompt := BuildPrompt(a, cfg.TopN)

	var lastErr error
	for i := 0; i <= cfg.MaxRetries; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		text, err := complete(attemptCtx, SystemPrompt, prompt)
		cancel()
		if err == nil {
			text = strings.TrimSpace(text)
			if text != "" {
				return text, nil
			}
			err = fmt.Errorf("empty response")
		}
		lastErr = err
		if i == cfg.MaxRetries {
			break
		}
		backoff := cfg.InitialBackoff * time.Duration(1<<uint(i))
		log.Warn().Err(err).Str("provider", name).Int("attempt", i+1).Dur("backoff", backoff).Msg("narration failed, retrying")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	return "", fmt.Errorf("%s narration failed after %d attempts: %w", name, cfg.MaxRetries+1, lastErr)
}
