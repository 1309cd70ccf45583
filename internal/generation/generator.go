// Package generation selects the answer generator named in the configuration.
package generation

import (
	"errors"
	"fmt"
	"log/slog"

	"legalrag/internal/config"
	"legalrag/internal/domain"
	"legalrag/internal/generation/extractive"
	"legalrag/internal/generation/gemini"
	"legalrag/internal/generation/langchain"
	"legalrag/internal/generation/ollama"
)

// New builds the generator for cfg.Type.
func New(cfg config.GeneratorConfig, logger *slog.Logger) (domain.Generator, error) {
	switch cfg.Type {
	case "", "extractive":
		n := 0
		if cfg.Extractive != nil {
			n = cfg.Extractive.MaxSentences
		}
		return extractive.NewGenerator(n), nil
	case "ollama":
		o := cfg.Ollama
		if o == nil {
			o = &config.OllamaConfig{}
		}
		return ollama.NewGenerator(ollama.Config{
			BaseURL:     o.BaseURL,
			Model:       o.Model,
			Temperature: cfg.TemperatureValue(),
			Timeout:     config.Seconds(o.TimeoutSecs),
		}), nil
	case "gemini":
		g := cfg.Gemini
		if g == nil {
			return nil, errors.New("generator.gemini config block missing")
		}
		gen, err := gemini.NewGenerator(gemini.Config{
			BaseURL:     g.BaseURL,
			APIKey:      config.SecretFromEnv(g.APIKeyEnv),
			Model:       g.Model,
			Temperature: cfg.TemperatureValue(),
			Timeout:     config.Seconds(g.TimeoutSecs),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("%w (set %s)", err, g.APIKeyEnv)
		}
		return gen, nil
	case "openai":
		o := cfg.OpenAI
		if o == nil {
			return nil, errors.New("generator.openai config block missing")
		}
		gen, err := langchain.NewGenerator(langchain.Config{
			BaseURL:     o.BaseURL,
			APIKey:      config.SecretFromEnv(o.APIKeyEnv),
			Model:       o.Model,
			Temperature: cfg.TemperatureValue(),
			Timeout:     config.Seconds(o.TimeoutSecs),
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set %s)", err, o.APIKeyEnv)
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("unknown generator type %q", cfg.Type)
	}
}
