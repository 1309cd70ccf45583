// Package langchain provides a generator for any OpenAI-compatible chat
// endpoint through langchaingo.
package langchain

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"legalrag/internal/domain"
)

// Config configures the OpenAI-compatible generator.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Generator wraps a langchaingo model.
type Generator struct {
	llm         llms.Model
	temperature float64
}

// NewGenerator creates a generator talking to cfg.BaseURL.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai generator: missing API key")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return NewWithModel(llm, cfg.Temperature), nil
}

// NewWithModel wraps an existing langchaingo model.
func NewWithModel(llm llms.Model, temperature float64) *Generator {
	return &Generator{llm: llm, temperature: temperature}
}

// Name returns the identifier of this generator implementation.
func (g *Generator) Name() string { return "openai" }

// Generate sends the prompt as a single user message.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, llms.WithTemperature(g.temperature))
	if err != nil {
		return "", domain.Upstream("openai generate", err)
	}
	return strings.TrimSpace(out), nil
}
