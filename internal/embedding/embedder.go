// Package embedding selects the text embedder named in the configuration.
package embedding

import (
	"errors"
	"fmt"

	"legalrag/internal/config"
	"legalrag/internal/domain"
	"legalrag/internal/embedding/hashing"
	"legalrag/internal/embedding/ollama"
	"legalrag/internal/embedding/openai"
)

// New builds the embedder for cfg.Type.
func New(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "", "hashing":
		dim := 0
		if cfg.Hashing != nil {
			dim = cfg.Hashing.Dimension
		}
		return hashing.NewEmbedder(dim), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, errors.New("embedder.openai config block missing")
		}
		o := cfg.OpenAI
		c, err := openai.NewClient(openai.Config{
			BaseURL:    o.BaseURL,
			APIKey:     config.SecretFromEnv(o.APIKeyEnv),
			Model:      o.Model,
			Timeout:    config.Seconds(o.TimeoutSecs),
			MaxRetries: o.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set %s)", err, o.APIKeyEnv)
		}
		return c, nil
	case "ollama":
		o := cfg.Ollama
		if o == nil {
			o = &config.OllamaConfig{}
		}
		return ollama.NewEmbedder(ollama.Config{
			BaseURL: o.BaseURL,
			Model:   o.Model,
			Timeout: config.Seconds(o.TimeoutSecs),
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Type)
	}
}
