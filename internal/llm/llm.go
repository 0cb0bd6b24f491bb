// Package llm wraps Genkit behind small text-generation interfaces so the
// report and chat layers never touch provider SDKs directly.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/kanpan0/kanpan/internal/config"
	"github.com/kanpan0/kanpan/internal/log"
)

// StreamFunc receives incremental model output. Returning an error aborts
// the generation.
type StreamFunc func(ctx context.Context, chunk string) error

// Client is a thin facade over an initialized Genkit instance.
type Client struct {
	g      *genkit.Genkit
	cfg    *config.Config
	logger log.Logger
}

// New initializes Genkit with the configured AI provider plugin.
func New(ctx context.Context, cfg *config.Config, logger log.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("llm: config is nil")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	var g *genkit.Genkit
	switch cfg.Provider {
	case "openai":
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("llm: initializing genkit with openai provider")
		}
	default: // "googleai"
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("llm: initializing genkit with googleai provider")
		}
	}
	logger.Info("initialized genkit", "provider", cfg.Provider, "model", cfg.ModelName)

	return &Client{g: g, cfg: cfg, logger: logger}, nil
}

// GenerateText performs a blocking generation call and returns the full
// response text. Satisfies report.TextGenerator.
func (c *Client) GenerateText(ctx context.Context, model, system, prompt string) (string, error) {
	if model == "" {
		model = c.cfg.FullModelName()
	}

	resp, err := genkit.Generate(ctx, c.g,
		ai.WithModelName(model),
		ai.WithSystem(system),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", model, err)
	}
	return resp.Text(), nil
}

// StreamText generates a response while forwarding chunks to fn as they
// arrive, then returns the complete text.
func (c *Client) StreamText(ctx context.Context, model, system, prompt string, fn StreamFunc) (string, error) {
	if model == "" {
		model = c.cfg.FullModelName()
	}

	resp, err := genkit.Generate(ctx, c.g,
		ai.WithModelName(model),
		ai.WithSystem(system),
		ai.WithPrompt(prompt),
		ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			if fn == nil {
				return nil
			}
			return fn(ctx, chunk.Text())
		}),
	)
	if err != nil {
		return "", fmt.Errorf("stream with %s: %w", model, err)
	}
	return resp.Text(), nil
}
