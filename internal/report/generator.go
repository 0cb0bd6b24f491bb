package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/kanpan0/kanpan/internal/log"
)

// ErrNoData indicates the dataset carries no financial statements at all,
// so neither generation path has anything to work with.
var ErrNoData = errors.New("report: no financial data available")

// TextGenerator produces model text for a system/user prompt pair. The
// production implementation wraps Genkit; tests substitute a stub.
type TextGenerator interface {
	GenerateText(ctx context.Context, model, system, prompt string) (string, error)
}

// Generator turns an assembled Dataset into Markdown report text, asking
// the model first and falling back to the deterministic template when the
// call fails.
type Generator struct {
	backend      TextGenerator
	defaultModel string
	logger       log.Logger
}

// NewGenerator wires a report generator. defaultModel is used when the
// dataset does not name one.
func NewGenerator(backend TextGenerator, defaultModel string, logger log.Logger) (*Generator, error) {
	if backend == nil {
		return nil, errors.New("report: backend is nil")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Generator{backend: backend, defaultModel: defaultModel, logger: logger}, nil
}

// Generate produces the report text. A dataset with no financial
// statements fails with ErrNoData. A model failure downgrades to the
// template instead of failing the workflow.
func (g *Generator) Generate(ctx context.Context, ds *Dataset) (string, error) {
	if ds == nil {
		return "", fmt.Errorf("report: dataset is nil")
	}
	if ds.Financials == nil || ds.Financials.Empty() {
		return "", ErrNoData
	}

	model := ds.Model
	if model == "" {
		model = g.defaultModel
	}

	prompt, err := buildPrompt(ds)
	if err != nil {
		g.logger.Warn("prompt assembly failed, using template report", "error", err)
		return renderTemplate(ds), nil
	}

	text, err := g.backend.GenerateText(ctx, model, systemPrompt, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		g.logger.Warn("model generation failed, using template report",
			"model", model, "error", err)
		return renderTemplate(ds), nil
	}
	if text == "" {
		g.logger.Warn("model returned empty report, using template report", "model", model)
		return renderTemplate(ds), nil
	}
	return text, nil
}
