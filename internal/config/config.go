// Package config loads application configuration for the RAG pipeline:
// defaults, then a TOML file, then environment variables (env wins).
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	LLM       LLMConfig       `toml:"llm"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Database  DatabaseConfig  `toml:"database"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Ingest    IngestConfig    `toml:"ingest"`
	Observer  ObserverConfig  `toml:"observer"`
}

type LLMConfig struct {
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

type EmbeddingConfig struct {
	Model      string `toml:"model"`
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	Dimensions int    `toml:"dimensions"`
	RPM        int    `toml:"rpm"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `toml:"driver"`
	// Path is the SQLite file location (sqlite driver only).
	Path string `toml:"path"`
	// URL is the PostgreSQL connection string (postgres driver only).
	URL string `toml:"url"`
}

type ChunkingConfig struct {
	// Strategy is "recursive", "fixed-size", or "semantic".
	Strategy            string  `toml:"strategy"`
	MaxSize             int     `toml:"max_size"`
	MinSize             int     `toml:"min_size"`
	Overlap             int     `toml:"overlap"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
}

type RetrievalConfig struct {
	TopK     int     `toml:"top_k"`
	MinScore float64 `toml:"min_score"`
}

type IngestConfig struct {
	Concurrency int `toml:"concurrency"`
	BatchSize   int `toml:"batch_size"`
}

type ObserverConfig struct {
	Enabled bool                       `toml:"enabled"`
	Pricing map[string]ObserverPricing `toml:"pricing"`
}

type ObserverPricing struct {
	Input  float64 `toml:"input"`
	Output float64 `toml:"output"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Model:   "gpt-4o-mini",
			BaseURL: "https://api.openai.com/v1",
		},
		Embedding: EmbeddingConfig{
			Model:      "text-embedding-3-small",
			BaseURL:    "https://api.openai.com/v1",
			Dimensions: 1536,
		},
		Database:  DatabaseConfig{Driver: "sqlite", Path: "arketic.db"},
		Chunking:  ChunkingConfig{Strategy: "recursive", MaxSize: 512, MinSize: 32, Overlap: 50, SimilarityThreshold: 0.5},
		Retrieval: RetrievalConfig{TopK: 5, MinScore: 0.35},
		Ingest:    IngestConfig{Concurrency: 3, BatchSize: 64},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "arketic.toml"
	}
	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	if v := os.Getenv("ARKETIC_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("ARKETIC_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("ARKETIC_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("ARKETIC_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("ARKETIC_DATABASE_URL"); v != "" {
		cfg.Database.Driver = "postgres"
		cfg.Database.URL = v
	}
	if v := os.Getenv("ARKETIC_OBSERVER_ENABLED"); v == "true" || v == "1" {
		cfg.Observer.Enabled = true
	}

	// The embedding side usually shares a key with the chat side.
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = cfg.LLM.APIKey
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = cfg.LLM.BaseURL
	}
	return cfg
}
