// Package config loads and validates server configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/tome/internal/observability"
	"github.com/haasonsaas/tome/internal/rag/chunker"
	"github.com/haasonsaas/tome/internal/rag/store/pgvector"
	"github.com/haasonsaas/tome/internal/sessions"
)

// Config is the root configuration.
type Config struct {
	Server      ServerConfig              `yaml:"server"`
	LLM         LLMConfig                 `yaml:"llm"`
	Embeddings  EmbeddingsConfig          `yaml:"embeddings"`
	Sessions    sessions.SQLiteConfig     `yaml:"sessions"`
	VectorStore VectorStoreConfig         `yaml:"vector_store"`
	Ingest      IngestConfig              `yaml:"ingest"`
	Retrieval   RetrievalConfig           `yaml:"retrieval"`
	Log         observability.LogConfig   `yaml:"log"`
	Tracing     observability.TraceConfig `yaml:"tracing"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`

	// StaticDir serves a frontend from disk when set.
	StaticDir string `yaml:"static_dir"`

	// SystemPrompt is the base system prompt prepended to every turn.
	SystemPrompt string `yaml:"system_prompt"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LLMConfig configures the generation backend.
type LLMConfig struct {
	// BaseURL is the Ollama-compatible server URL.
	BaseURL string `yaml:"base_url"`

	// DefaultModel is used when neither the request nor the session names
	// a model.
	DefaultModel string `yaml:"default_model"`

	// VisionModel enables image description when set.
	VisionModel string `yaml:"vision_model"`

	// Timeout bounds non-streaming requests.
	Timeout time.Duration `yaml:"timeout"`
}

// EmbeddingsConfig configures the embedding backend.
type EmbeddingsConfig struct {
	// Provider selects the backend: "ollama" (default) or "openai".
	Provider string `yaml:"provider"`

	// BaseURL is the embedding server URL. Empty falls back to the LLM
	// base URL for the ollama provider.
	BaseURL string `yaml:"base_url"`

	// Model is the embedding model name.
	Model string `yaml:"model"`

	// Dimension is the embedding dimension.
	Dimension int `yaml:"dimension"`

	// APIKey authenticates the openai provider.
	APIKey string `yaml:"api_key"`

	// MaxChars caps each text sent for embedding.
	MaxChars int `yaml:"max_chars"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	// Backend is "memory" (default) or "pgvector".
	Backend string `yaml:"backend"`

	PGVector pgvector.Config `yaml:"pgvector"`
}

// IngestConfig configures the indexing pipeline.
type IngestConfig struct {
	Chunker chunker.Config `yaml:"chunker"`

	// MaxDocumentChars caps normalized document length.
	MaxDocumentChars int `yaml:"max_document_chars"`
}

// RetrievalConfig configures context retrieval.
type RetrievalConfig struct {
	// TopK is the number of chunks retrieved per question.
	TopK int `yaml:"top_k"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			SystemPrompt:    "You are a helpful assistant.",
			ShutdownTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL:      "http://localhost:11434",
			DefaultModel: "llama3.1",
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			Dimension: 768,
		},
		Sessions: sessions.SQLiteConfig{
			Path:        "tome.db",
			MaxMessages: sessions.DefaultMaxMessages,
		},
		VectorStore: VectorStoreConfig{
			Backend: "memory",
		},
		Ingest: IngestConfig{
			Chunker: chunker.DefaultConfig(),
		},
		Retrieval: RetrievalConfig{
			TopK: 4,
		},
		Log: observability.LogConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: observability.TraceConfig{
			ServiceName: "tome",
		},
	}
}

// Load reads a YAML config file over the defaults. Environment variable
// references of the form ${VAR} are expanded before parsing. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	if c.LLM.DefaultModel == "" {
		return fmt.Errorf("llm.default_model is required")
	}

	switch c.Embeddings.Provider {
	case "", "ollama":
		if c.Embeddings.BaseURL == "" {
			c.Embeddings.BaseURL = c.LLM.BaseURL
		}
	case "openai":
		if c.Embeddings.APIKey == "" {
			return fmt.Errorf("embeddings.api_key is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown embeddings provider %q", c.Embeddings.Provider)
	}

	switch c.VectorStore.Backend {
	case "", "memory":
	case "pgvector":
		if c.VectorStore.PGVector.DSN == "" {
			return fmt.Errorf("vector_store.pgvector.dsn is required for the pgvector backend")
		}
		if c.VectorStore.PGVector.Dimension == 0 {
			c.VectorStore.PGVector.Dimension = c.Embeddings.Dimension
		}
	default:
		return fmt.Errorf("unknown vector store backend %q", c.VectorStore.Backend)
	}
	return nil
}
