package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the engine knobs plus the wiring for the external
// capabilities. Invalid values are fatal and rejected before any
// processing begins.
type Config struct {
	MaxTokens     int     `yaml:"max_tokens"`
	OverlapTokens int     `yaml:"overlap_tokens"`
	MinSim        float64 `yaml:"min_sim"`
	Dedupe        bool    `yaml:"dedupe"`
	DedupeSim     float64 `yaml:"dedupe_sim"`

	// Heuristic windows, exposed so behavior can be pinned in tests.
	ValleyWindow   int `yaml:"valley_window"`
	LookbackWindow int `yaml:"lookback_window"`
	DedupeWindow   int `yaml:"dedupe_window"`

	BatchSize  int `yaml:"batch_size"`
	MaxRetries int `yaml:"max_retries"`

	EmbeddingURL      string `yaml:"embedding_url"`
	TokenizerEncoding string `yaml:"tokenizer_encoding"`
	TokenizerFile     string `yaml:"tokenizer_file"`
	TokenCachePath    string `yaml:"token_cache_path"`

	QdrantHost       string `yaml:"qdrant_host"`
	QdrantPort       int    `yaml:"qdrant_port"`
	QdrantCollection string `yaml:"qdrant_collection"`
	VectorSize       int    `yaml:"vector_size"`
}

func Default() *Config {
	return &Config{
		MaxTokens:         512,
		OverlapTokens:     50,
		MinSim:            0.5,
		DedupeSim:         0.9,
		ValleyWindow:      1,
		LookbackWindow:    5,
		DedupeWindow:      8,
		BatchSize:         32,
		MaxRetries:        3,
		TokenizerEncoding: "cl100k_base",
		QdrantCollection:  "smartchunk",
		VectorSize:        384,
	}
}

// Load reads a YAML config file over the defaults and applies environment
// overrides. An empty path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SMARTCHUNK_EMBEDDING_URL"); v != "" {
		c.EmbeddingURL = v
	}
	if v := os.Getenv("SMARTCHUNK_TOKENIZER_FILE"); v != "" {
		c.TokenizerFile = v
	}
	if v := os.Getenv("SMARTCHUNK_QDRANT_HOST"); v != "" {
		c.QdrantHost = v
	}
	if v := os.Getenv("SMARTCHUNK_QDRANT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.QdrantPort = port
		}
	}
	if v := os.Getenv("SMARTCHUNK_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTokens = n
		}
	}
}

// ValidationError is fatal: the run is rejected before any processing.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func (c *Config) Validate() error {
	if c.MaxTokens <= 0 {
		return &ValidationError{Field: "max_tokens", Reason: "must be > 0"}
	}
	if c.OverlapTokens < 0 {
		return &ValidationError{Field: "overlap_tokens", Reason: "must be >= 0"}
	}
	if c.OverlapTokens >= c.MaxTokens {
		return &ValidationError{Field: "overlap_tokens", Reason: "must be < max_tokens"}
	}
	if c.MinSim < 0 || c.MinSim > 1 {
		return &ValidationError{Field: "min_sim", Reason: "must be in [0,1]"}
	}
	if c.DedupeSim < 0 || c.DedupeSim > 1 {
		return &ValidationError{Field: "dedupe_sim", Reason: "must be in [0,1]"}
	}
	if c.ValleyWindow < 1 {
		return &ValidationError{Field: "valley_window", Reason: "must be >= 1"}
	}
	if c.LookbackWindow < 1 {
		return &ValidationError{Field: "lookback_window", Reason: "must be >= 1"}
	}
	if c.DedupeWindow < 1 {
		return &ValidationError{Field: "dedupe_window", Reason: "must be >= 1"}
	}
	if c.BatchSize < 1 {
		return &ValidationError{Field: "batch_size", Reason: "must be >= 1"}
	}
	if c.MaxRetries < 0 {
		return &ValidationError{Field: "max_retries", Reason: "must be >= 0"}
	}
	return nil
}
