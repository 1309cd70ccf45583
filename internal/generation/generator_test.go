package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag/internal/config"
	"legalrag/internal/logging"
)

func TestNew(t *testing.T) {
	logger := logging.Discard()

	g, err := New(config.GeneratorConfig{Type: "extractive"}, logger)
	require.NoError(t, err)
	assert.Equal(t, "extractive", g.Name())

	g, err = New(config.GeneratorConfig{Type: "ollama"}, logger)
	require.NoError(t, err)
	assert.Equal(t, "ollama", g.Name())

	t.Setenv("LEGALRAG_GEMINI_KEY", "k")
	g, err = New(config.GeneratorConfig{Type: "gemini", Gemini: &config.GeminiConfig{APIKeyEnv: "LEGALRAG_GEMINI_KEY"}}, logger)
	require.NoError(t, err)
	assert.Equal(t, "gemini", g.Name())

	t.Setenv("LEGALRAG_OPENAI_KEY", "k")
	g, err = New(config.GeneratorConfig{Type: "openai", OpenAI: &config.OpenAIGeneratorConfig{APIKeyEnv: "LEGALRAG_OPENAI_KEY", Model: "gpt-4o-mini"}}, logger)
	require.NoError(t, err)
	assert.Equal(t, "openai", g.Name())

	_, err = New(config.GeneratorConfig{Type: "gemini", Gemini: &config.GeminiConfig{APIKeyEnv: "LEGALRAG_UNSET"}}, logger)
	assert.Error(t, err)

	_, err = New(config.GeneratorConfig{Type: "gpt2"}, logger)
	assert.Error(t, err)
}
