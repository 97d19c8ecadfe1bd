// Package config defines the application configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Auth      AuthConfig      `json:"auth" yaml:"auth"`
	Ingestion IngestionConfig `json:"ingestion" yaml:"ingestion"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval"`
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	DataDir   string          `json:"data_dir" yaml:"data_dir"`
	LogLevel  string          `json:"log_level" yaml:"log_level"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"` // listen address, e.g., ":8000"
}

// AuthConfig controls API authentication.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`
	AdminUser string `json:"admin_user" yaml:"admin_user"`
	AdminPass string `json:"admin_pass" yaml:"admin_pass"` // bcrypt hash
}

// IngestionConfig controls document chunking.
type IngestionConfig struct {
	ChunkSize    int `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`
}

// RetrievalConfig controls similarity search.
type RetrievalConfig struct {
	TopK int `json:"top_k" yaml:"top_k"`
}

// LLMConfig controls answer generation.
type LLMConfig struct {
	Provider    string  `json:"provider" yaml:"provider"` // "groq" or "mock"
	Model       string  `json:"model,omitempty" yaml:"model"`
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature"`
}

// EmbeddingConfig controls the embedding backend.
type EmbeddingConfig struct {
	Provider string `json:"provider" yaml:"provider"` // "google" or "hash"
	Model    string `json:"model,omitempty" yaml:"model"`
	APIKey   string `json:"api_key,omitempty" yaml:"api_key"`
}

// DefaultConfig returns a config with sensible defaults. API keys fall
// back to the GROQ_API_KEY and GOOGLE_API_KEY environment variables so
// secrets stay out of config files.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8000",
		},
		Auth: AuthConfig{
			AdminUser: "admin",
		},
		Ingestion: IngestionConfig{
			ChunkSize:    500,
			ChunkOverlap: 100,
		},
		Retrieval: RetrievalConfig{
			TopK: 8,
		},
		LLM: LLMConfig{
			Provider: "groq",
			APIKey:   os.Getenv("GROQ_API_KEY"),
		},
		Embedding: EmbeddingConfig{
			Provider: "google",
			APIKey:   os.Getenv("GOOGLE_API_KEY"),
		},
		DataDir:  "./data",
		LogLevel: "info",
	}
}

// Load reads a YAML config file and returns the parsed configuration
// merged over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
