package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Chunking.Window != 400 || cfg.Chunking.Overlap != 50 {
		t.Errorf("unexpected chunking defaults: window=%d overlap=%d",
			cfg.Chunking.Window, cfg.Chunking.Overlap)
	}
	if cfg.Retrieve.TopK != 3 {
		t.Errorf("expected top_k 3, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Retrieve.MinSimilarity != 0.3 {
		t.Errorf("expected min_similarity 0.3, got %v", cfg.Retrieve.MinSimilarity)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Model != DefaultConfig().LLM.Model {
		t.Error("missing file should yield defaults")
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ibot.yaml")
	content := `
chunking:
  window: 200
retrieve:
  top_k: 5
team:
  Ada:
    password: secret
    role: Engineer
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Chunking.Window != 200 {
		t.Errorf("expected window 200, got %d", cfg.Chunking.Window)
	}
	// Overlap keeps its default when not overridden.
	if cfg.Chunking.Overlap != 50 {
		t.Errorf("expected overlap 50, got %d", cfg.Chunking.Overlap)
	}
	if cfg.Retrieve.TopK != 5 {
		t.Errorf("expected top_k 5, got %d", cfg.Retrieve.TopK)
	}
	if m, ok := cfg.Team["Ada"]; !ok || m.Role != "Engineer" {
		t.Errorf("team table not loaded: %+v", cfg.Team)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"overlap >= window", "chunking:\n  window: 50\n  overlap: 50\n"},
		{"zero window", "chunking:\n  window: 0\n"},
		{"zero top_k", "retrieve:\n  top_k: 0\n"},
		{"zero tool rounds", "llm:\n  max_tool_rounds: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ibot.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	content := "server:\n  addr: \":9000\"\n"
	if err := os.WriteFile(filepath.Join(dir, "ibot.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("expected :9000, got %s", cfg.Server.Addr)
	}

	cfg, err = LoadFromDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Error("empty dir should yield defaults")
	}
}
