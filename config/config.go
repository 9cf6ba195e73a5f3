package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the assistant.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Documents DocumentsConfig `yaml:"documents"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Store     StoreConfig     `yaml:"store"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Team is the static credential table: username -> {password, role}.
	Team map[string]TeamMember `yaml:"team"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// DocumentsConfig describes where knowledge documents live and which files
// are indexed.
type DocumentsConfig struct {
	Dir      string   `yaml:"dir"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// ChunkingConfig holds the word-window parameters.
type ChunkingConfig struct {
	Window  int `yaml:"window"`  // words per chunk
	Overlap int `yaml:"overlap"` // words shared between adjacent chunks
}

// RetrieveConfig holds retrieval parameters.
type RetrieveConfig struct {
	TopK          int     `yaml:"top_k"`
	MinSimilarity float64 `yaml:"min_similarity"` // results at or below are dropped
	CacheSize     int     `yaml:"cache_size"`
	CacheTTLSecs  int     `yaml:"cache_ttl_seconds"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "openai" or "mock"
	Model     string `yaml:"model"`       // e.g. "text-embedding-3-small"
	BaseURL   string `yaml:"base_url"`    // OpenAI-compatible endpoint
	APIKeyEnv string `yaml:"api_key_env"` // environment variable for the key
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// LLMConfig holds the chat model configuration.
type LLMConfig struct {
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"` // per HTTP round
	MaxToolRounds  int    `yaml:"max_tool_rounds"`
	MaxRetries     int    `yaml:"max_retries"` // for non-streaming completions
}

// StoreConfig holds conversation persistence configuration.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// TeamMember is one entry of the static credential table.
type TeamMember struct {
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":8000",
			StaticDir: "./web_ui",
		},
		Documents: DocumentsConfig{
			Dir:      "./documents",
			Includes: []string{"**/*.md", "**/*.txt"},
			Excludes: []string{"**/.git/**"},
		},
		Chunking: ChunkingConfig{
			Window:  400,
			Overlap: 50,
		},
		Retrieve: RetrieveConfig{
			TopK:          3,
			MinSimilarity: 0.3,
			CacheSize:     100,
			CacheTTLSecs:  300,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			BaseURL:   "https://api.openai.com/v1",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			BatchSize: 100,
		},
		LLM: LLMConfig{
			Model:          "llama3-8b-8192",
			BaseURL:        "https://api.groq.com/openai/v1",
			APIKeyEnv:      "GROQ_API_KEY",
			TimeoutSeconds: 45,
			MaxToolRounds:  5,
			MaxRetries:     3,
		},
		Store: StoreConfig{
			Path: "./data/conversations.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, overlaying the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for ibot.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "ibot.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".ibot", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks parameter constraints that would otherwise surface as
// subtle runtime bugs.
func (c *Config) Validate() error {
	if c.Chunking.Window <= 0 {
		return fmt.Errorf("chunking.window must be positive, got %d", c.Chunking.Window)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Window {
		return fmt.Errorf("chunking.overlap must be in [0, window), got %d with window %d",
			c.Chunking.Overlap, c.Chunking.Window)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	}
	if c.LLM.MaxToolRounds <= 0 {
		return fmt.Errorf("llm.max_tool_rounds must be positive, got %d", c.LLM.MaxToolRounds)
	}
	return nil
}
