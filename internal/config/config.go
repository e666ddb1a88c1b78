// Package config loads daemon configuration from a per-project TOML
// override file, parsed with pelletier/go-toml/v2. A missing file simply
// means defaults: generous defaults, layered overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full recognised configuration schema.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Indexer    IndexerConfig    `toml:"indexer"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Reranker   RerankerConfig   `toml:"reranker"`
	Summarizer SummarizerConfig `toml:"summarizer"`
	Domains    DomainsConfig    `toml:"domains"`
}

type ServerConfig struct {
	Port int `toml:"port"`
}

type IndexerConfig struct {
	Ignore          []string `toml:"ignore"`
	ParallelWorkers int      `toml:"parallel_workers"`
}

type EmbeddingConfig struct {
	Model                 string `toml:"model"`
	PoolSize              int    `toml:"pool_size"`
	BatchSize             int    `toml:"batch_size"`
	CacheDir              string `toml:"cache_dir"`
	QuantizedModelPath    string `toml:"quantized_model_path"`
	TokenizerPath         string `toml:"tokenizer_path"`
	TokenizerConfigPath   string `toml:"tokenizer_config_path"`
}

type RerankerConfig struct {
	Enabled       bool   `toml:"enabled"`
	ModelDir      string `toml:"model_dir"`
	ModelURL      string `toml:"model_url"`
	TokenizerURL  string `toml:"tokenizer_url"`
}

type SummarizerConfig struct {
	EnableLLM   bool    `toml:"enable_llm"`
	ModelID     string  `toml:"model_id"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
}

type DomainsConfig struct {
	RustPaths     []string `toml:"rs_paths"`
	PythonPaths   []string `toml:"py_paths"`
	FrontendPaths []string `toml:"frontend_paths"`
	OpsPaths      []string `toml:"ops_paths"`
	SharedPaths   []string `toml:"shared_paths"`
}

// Default returns the built-in defaults applied before the project's
// config file is layered on top.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: 9091},
		Indexer: IndexerConfig{
			Ignore:          []string{},
			ParallelWorkers: 4,
		},
		Embedding: EmbeddingConfig{
			Model:     "static-768",
			PoolSize:  2,
			BatchSize: 32,
		},
		Reranker: RerankerConfig{
			Enabled: false,
		},
		Summarizer: SummarizerConfig{
			EnableLLM:   false,
			MaxTokens:   256,
			Temperature: 0.2,
		},
	}
}

// Load reads a per-project .gofer/config.toml. A missing file is not an
// error: it simply yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg back to path as TOML, creating parent directories.
func Save(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
