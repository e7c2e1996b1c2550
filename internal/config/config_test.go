package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
	if cfg.Chunking.Strategy != "recursive" || cfg.Chunking.MaxSize != 512 {
		t.Errorf("chunking = %+v", cfg.Chunking)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("top_k = %d", cfg.Retrieval.TopK)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("dimensions = %d", cfg.Embedding.Dimensions)
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if cfg.LLM.Model != Default().LLM.Model {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arketic.toml")
	content := `
[llm]
model = "gpt-4o"
api_key = "sk-file"

[chunking]
strategy = "semantic"
max_size = 800

[retrieval]
top_k = 8
min_score = 0.5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
	if cfg.Chunking.Strategy != "semantic" || cfg.Chunking.MaxSize != 800 {
		t.Errorf("chunking = %+v", cfg.Chunking)
	}
	if cfg.Retrieval.TopK != 8 {
		t.Errorf("top_k = %d", cfg.Retrieval.TopK)
	}
	// Untouched sections keep defaults.
	if cfg.Chunking.MinSize != 32 {
		t.Errorf("min_size = %d", cfg.Chunking.MinSize)
	}
	// Embedding key falls back to the LLM key.
	if cfg.Embedding.APIKey != "sk-file" {
		t.Errorf("embedding key = %q", cfg.Embedding.APIKey)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ARKETIC_LLM_API_KEY", "sk-env")
	t.Setenv("ARKETIC_DATABASE_URL", "postgres://localhost/rag")

	cfg := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("api key = %q", cfg.LLM.APIKey)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.URL != "postgres://localhost/rag" {
		t.Errorf("database = %+v", cfg.Database)
	}
}
