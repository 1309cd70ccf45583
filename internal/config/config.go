package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	Addr             string `yaml:"addr"`
	UploadDir        string `yaml:"upload_dir"`
	MaxUploadMB      int    `yaml:"max_upload_mb"`
	ReadTimeoutSecs  int    `yaml:"read_timeout_secs"`
	WriteTimeoutSecs int    `yaml:"write_timeout_secs"`
	CORS             bool   `yaml:"cors"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ChunkerConfig configures how documents are split into passages.
// The chunk size itself is picked per document from its length.
type ChunkerConfig struct {
	Overlap   int  `yaml:"overlap"`
	PageAware bool `yaml:"page_aware"`
}

// HashingEmbedderConfig configures the offline feature-hashing embedder.
type HashingEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// OllamaConfig holds connection details for an Ollama server.
type OllamaConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type    string                 `yaml:"type"`
	Hashing *HashingEmbedderConfig `yaml:"hashing,omitempty"`
	OpenAI  *OpenAIEmbedderConfig  `yaml:"openai,omitempty"`
	Ollama  *OllamaConfig          `yaml:"ollama,omitempty"`
}

// ExtractiveConfig configures the offline extractive generator.
type ExtractiveConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// GeminiConfig holds connection details for the Gemini generateContent API.
type GeminiConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// OpenAIGeneratorConfig configures an OpenAI-compatible chat model.
type OpenAIGeneratorConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// DefaultTemperature is the sampling temperature used when none is configured.
const DefaultTemperature = 0.3

// GeneratorConfig selects and configures the answer generator.
type GeneratorConfig struct {
	Type        string                 `yaml:"type"`
	Temperature *float64               `yaml:"temperature,omitempty"`
	Extractive  *ExtractiveConfig      `yaml:"extractive,omitempty"`
	Ollama      *OllamaConfig          `yaml:"ollama,omitempty"`
	Gemini      *GeminiConfig          `yaml:"gemini,omitempty"`
	OpenAI      *OpenAIGeneratorConfig `yaml:"openai,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type       string        `yaml:"type"`
	Collection string        `yaml:"collection"`
	SQLite     *SQLiteConfig `yaml:"sqlite,omitempty"`
	Qdrant     *QdrantConfig `yaml:"qdrant,omitempty"`
}

// SQLiteConfig points at the on-disk index file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// AgentConfig tunes retrieval depth for each agent operation.
type AgentConfig struct {
	DefaultTopK       int `yaml:"default_top_k"`
	ClauseTopK        int `yaml:"clause_top_k"`
	SummaryTopK       int `yaml:"summary_top_k"`
	ClauseConcurrency int `yaml:"clause_concurrency"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Agent       AgentConfig       `yaml:"agent"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/legalrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/legalrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Seconds converts a timeout_secs value into a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// SecretFromEnv returns the value of the named environment variable, or "" when name is empty.
func SecretFromEnv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "legalrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Server:      ServerConfig{CORS: true},
		Embedder:    EmbedderConfig{Type: "hashing"},
		Generator:   GeneratorConfig{Type: "extractive"},
		VectorStore: VectorStoreConfig{Type: "sqlite"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	s := &cfg.Server
	if s.Addr == "" {
		s.Addr = ":8000"
	}
	if s.UploadDir == "" {
		s.UploadDir = "documents"
	}
	if s.MaxUploadMB == 0 {
		s.MaxUploadMB = 50
	}
	if s.ReadTimeoutSecs == 0 {
		s.ReadTimeoutSecs = 60
	}
	if s.WriteTimeoutSecs == 0 {
		s.WriteTimeoutSecs = 300
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = 200
	}

	applyEmbedderDefaults(&cfg.Embedder)
	applyGeneratorDefaults(&cfg.Generator)
	applyVectorStoreDefaults(&cfg.VectorStore)

	a := &cfg.Agent
	if a.DefaultTopK == 0 {
		a.DefaultTopK = 3
	}
	if a.ClauseTopK == 0 {
		a.ClauseTopK = 2
	}
	if a.SummaryTopK == 0 {
		a.SummaryTopK = 5
	}
	if a.ClauseConcurrency == 0 {
		a.ClauseConcurrency = 1
	}
}

func applyEmbedderDefaults(e *EmbedderConfig) {
	if e.Type == "" {
		e.Type = "hashing"
	}
	switch e.Type {
	case "hashing":
		if e.Hashing == nil {
			e.Hashing = &HashingEmbedderConfig{}
		}
		if e.Hashing.Dimension == 0 {
			e.Hashing.Dimension = 512
		}
	case "openai":
		if e.OpenAI == nil {
			e.OpenAI = &OpenAIEmbedderConfig{}
		}
		if e.OpenAI.BaseURL == "" {
			e.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if e.OpenAI.APIKeyEnv == "" {
			e.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if e.OpenAI.Model == "" {
			e.OpenAI.Model = "text-embedding-3-small"
		}
		if e.OpenAI.TimeoutSecs == 0 {
			e.OpenAI.TimeoutSecs = 30
		}
	case "ollama":
		if e.Ollama == nil {
			e.Ollama = &OllamaConfig{}
		}
		applyOllamaDefaults(e.Ollama, "nomic-embed-text", 30)
	}
}

// TemperatureValue returns the configured temperature, or DefaultTemperature
// when the key is absent. An explicit 0 is kept.
func (g GeneratorConfig) TemperatureValue() float64 {
	if g.Temperature == nil {
		return DefaultTemperature
	}
	return *g.Temperature
}

func applyGeneratorDefaults(g *GeneratorConfig) {
	if g.Type == "" {
		g.Type = "extractive"
	}
	if g.Temperature == nil {
		t := DefaultTemperature
		g.Temperature = &t
	}
	switch g.Type {
	case "extractive":
		if g.Extractive == nil {
			g.Extractive = &ExtractiveConfig{}
		}
		if g.Extractive.MaxSentences == 0 {
			g.Extractive.MaxSentences = 3
		}
	case "ollama":
		if g.Ollama == nil {
			g.Ollama = &OllamaConfig{}
		}
		applyOllamaDefaults(g.Ollama, "llama3.2", 120)
	case "gemini":
		if g.Gemini == nil {
			g.Gemini = &GeminiConfig{}
		}
		if g.Gemini.BaseURL == "" {
			g.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
		}
		if g.Gemini.APIKeyEnv == "" {
			g.Gemini.APIKeyEnv = "GEMINI_API_KEY"
		}
		if g.Gemini.Model == "" {
			g.Gemini.Model = "gemini-2.5-flash"
		}
		if g.Gemini.TimeoutSecs == 0 {
			g.Gemini.TimeoutSecs = 60
		}
	case "openai":
		if g.OpenAI == nil {
			g.OpenAI = &OpenAIGeneratorConfig{}
		}
		if g.OpenAI.BaseURL == "" {
			g.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if g.OpenAI.APIKeyEnv == "" {
			g.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if g.OpenAI.Model == "" {
			g.OpenAI.Model = "gpt-4o-mini"
		}
		if g.OpenAI.TimeoutSecs == 0 {
			g.OpenAI.TimeoutSecs = 60
		}
	}
}

func applyOllamaDefaults(o *OllamaConfig, model string, timeout int) {
	if o.BaseURL == "" {
		o.BaseURL = "http://localhost:11434"
	}
	if o.Model == "" {
		o.Model = model
	}
	if o.TimeoutSecs == 0 {
		o.TimeoutSecs = timeout
	}
}

func applyVectorStoreDefaults(v *VectorStoreConfig) {
	if v.Type == "" {
		v.Type = "sqlite"
	}
	if v.Collection == "" {
		v.Collection = "legal_documents"
	}
	switch v.Type {
	case "sqlite":
		if v.SQLite == nil {
			v.SQLite = &SQLiteConfig{}
		}
		if v.SQLite.Path == "" {
			v.SQLite.Path = filepath.Join("chroma_db", v.Collection+".db")
		}
	case "qdrant":
		if v.Qdrant == nil {
			v.Qdrant = &QdrantConfig{}
		}
		if v.Qdrant.URL == "" {
			v.Qdrant.URL = "http://localhost:6333"
		}
		if v.Qdrant.TimeoutSecs == 0 {
			v.Qdrant.TimeoutSecs = 30
		}
	}
}
