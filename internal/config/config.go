package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EmbeddingConfig holds configuration for the OpenAI-compatible embeddings client.
type EmbeddingConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// CompletionConfig holds configuration for the chat-completion client.
// Profile selects one of the named tuning profiles ("quality" or "fast").
type CompletionConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Profile     string `yaml:"profile"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// PineconeConfig contains connection details for the Pinecone vector index.
// Host is the full index host URL; the key itself lives in the environment.
type PineconeConfig struct {
	Host        string `yaml:"host"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Size      int `yaml:"size"`
	Overlap   int `yaml:"overlap"`
	MinLength int `yaml:"min_length"`
}

// RetrievalConfig bounds the retrieval and context-assembly step.
type RetrievalConfig struct {
	TopK               int `yaml:"top_k"`
	MaxSources         int `yaml:"max_sources"`
	MaxCharsPerSource  int `yaml:"max_chars_per_source"`
	MaxHistoryMessages int `yaml:"max_history_messages"`
}

// IngestConfig configures the offline indexing pipeline.
type IngestConfig struct {
	DocsDir      string `yaml:"docs_dir"`
	TrackingFile string `yaml:"tracking_file"`
	BatchSize    int    `yaml:"batch_size"`
	Workers      int    `yaml:"workers"`
}

// SessionConfig bounds per-session bookkeeping owned by the caller.
type SessionConfig struct {
	CacheTTLSecs       int `yaml:"cache_ttl_secs"`
	CacheCapacity      int `yaml:"cache_capacity"`
	SearchHistoryLimit int `yaml:"search_history_limit"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Completion CompletionConfig `yaml:"completion"`
	Pinecone   PineconeConfig   `yaml:"pinecone"`
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Session    SessionConfig    `yaml:"session"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/lawchat/config.yaml.
// If neither exists, it writes defaults to ~/.config/lawchat/config.yaml and returns them.
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
	cfg := Default()
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

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lawchat", "config.yaml"), nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = 30
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 50
	}
	if cfg.Completion.BaseURL == "" {
		cfg.Completion.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Completion.APIKeyEnv == "" {
		cfg.Completion.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = "gpt-4o-mini"
	}
	if cfg.Completion.Profile == "" {
		cfg.Completion.Profile = "quality"
	}
	if cfg.Completion.TimeoutSecs == 0 {
		cfg.Completion.TimeoutSecs = 60
	}
	if cfg.Pinecone.APIKeyEnv == "" {
		cfg.Pinecone.APIKeyEnv = "PINECONE_API_KEY"
	}
	if cfg.Pinecone.TimeoutSecs == 0 {
		cfg.Pinecone.TimeoutSecs = 15
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = 1000
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = 200
	}
	if cfg.Chunker.MinLength == 0 {
		cfg.Chunker.MinLength = 50
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.MaxSources == 0 {
		cfg.Retrieval.MaxSources = 9
	}
	if cfg.Retrieval.MaxCharsPerSource == 0 {
		cfg.Retrieval.MaxCharsPerSource = 2000
	}
	if cfg.Retrieval.MaxHistoryMessages == 0 {
		cfg.Retrieval.MaxHistoryMessages = 6
	}
	if cfg.Ingest.DocsDir == "" {
		cfg.Ingest.DocsDir = "docs"
	}
	if cfg.Ingest.TrackingFile == "" {
		cfg.Ingest.TrackingFile = "processed_files.json"
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 50
	}
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 4
	}
	if cfg.Session.CacheTTLSecs == 0 {
		cfg.Session.CacheTTLSecs = 300
	}
	if cfg.Session.CacheCapacity == 0 {
		cfg.Session.CacheCapacity = 10
	}
	if cfg.Session.SearchHistoryLimit == 0 {
		cfg.Session.SearchHistoryLimit = 10
	}
}
