// Package config loads and validates codesearch's construction-time
// configuration: a YAML file overlaid by a small, fixed set of environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete codesearch configuration.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Paths       PathsConfig       `yaml:"paths" json:"paths"`
	Search      SearchConfig      `yaml:"search" json:"search"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" json:"embeddings"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Store       StoreConfig       `yaml:"store" json:"store"`
	Server      ServerConfig      `yaml:"server" json:"server"`
}

// PathsConfig configures which paths the scanner includes and excludes, on
// top of the scanner's own built-in default ignore set.
type PathsConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// SearchConfig configures chunking, BM25, and RRF fusion parameters.
type SearchConfig struct {
	// BM25K1 is the BM25 term-frequency saturation parameter.
	BM25K1 float64 `yaml:"bm25_k1" json:"bm25_k1"`
	// BM25B is the BM25 length-normalization parameter.
	BM25B float64 `yaml:"bm25_b" json:"bm25_b"`
	// RRFConstant is the reciprocal-rank-fusion smoothing constant (k).
	// Default: 60 (industry standard, matches Azure AI Search/OpenSearch).
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	ChunkSize    int `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
	MaxResults   int `yaml:"max_results" json:"max_results"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the adapter: "ollama", "openai", or "static".
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`

	OllamaHost   string `yaml:"ollama_host" json:"ollama_host"`
	OpenAIAPIKey string `yaml:"openai_api_key" json:"openai_api_key"`

	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	CacheSize  int `yaml:"cache_size" json:"cache_size"`
}

// PerformanceConfig configures worker-pool and pipeline sizing.
type PerformanceConfig struct {
	MaxFiles      int `yaml:"max_files" json:"max_files"`
	IndexWorkers  int `yaml:"index_workers" json:"index_workers"`
	EmbedBatch    int `yaml:"embed_batch" json:"embed_batch"`
	InsertBatch   int `yaml:"insert_batch" json:"insert_batch"`
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" json:"request_timeout_seconds"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	// Backend selects the adapter: "hnsw" (in-process), "faiss" (in-process,
	// delete/filter-limited), or "pgvector" (external, SQL-backed).
	Backend string `yaml:"backend" json:"backend"`
	// Endpoint is the per-backend connection string (DSN for pgvector, empty
	// for the in-process adapters). Overridable via env per spec §6.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// CollectionLimit caps vectors per collection before check_collection_limit fires.
	CollectionLimit int `yaml:"collection_limit" json:"collection_limit"`
}

// ServerConfig configures ambient process-wide concerns.
type ServerConfig struct {
	// LogLevel is one of debug|info|warn|error.
	LogLevel string `yaml:"log_level" json:"log_level"`
	// Env is the environment-mode toggle (development|production);
	// affects log format only, never core semantics.
	Env string `yaml:"env" json:"env"`
}

var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Include: []string{},
			Exclude: defaultExcludePatterns,
		},
		Search: SearchConfig{
			BM25K1:       1.2,
			BM25B:        0.75,
			RRFConstant:  60,
			ChunkSize:    1500,
			ChunkOverlap: 200,
			MaxResults:   20,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			Dimensions: 0, // 0 = probe on first embed call
			BatchSize:  64,
			OllamaHost: "http://localhost:11434",
			MaxRetries: 3,
			CacheSize:  10000,
		},
		Performance: PerformanceConfig{
			MaxFiles:              100000,
			IndexWorkers:          min(runtime.NumCPU(), 8),
			EmbedBatch:            64,
			InsertBatch:           128,
			RequestTimeoutSeconds: 30,
		},
		Store: StoreConfig{
			Backend:         "hnsw",
			Endpoint:        "",
			CollectionLimit: 1_000_000,
		},
		Server: ServerConfig{
			LogLevel: "info",
			Env:      "production",
		},
	}
}

// Load reads configuration from dir, applying in order of increasing
// precedence: hardcoded defaults, project config file (.codesearch.yaml or
// .codesearch.yml in dir), then environment variable overrides.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".codesearch.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".codesearch.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero values from other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	if len(other.Paths.Exclude) > 0 {
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}

	if other.Search.BM25K1 != 0 {
		c.Search.BM25K1 = other.Search.BM25K1
	}
	if other.Search.BM25B != 0 {
		c.Search.BM25B = other.Search.BM25B
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.ChunkSize != 0 {
		c.Search.ChunkSize = other.Search.ChunkSize
	}
	if other.Search.ChunkOverlap != 0 {
		c.Search.ChunkOverlap = other.Search.ChunkOverlap
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.OpenAIAPIKey != "" {
		c.Embeddings.OpenAIAPIKey = other.Embeddings.OpenAIAPIKey
	}
	if other.Embeddings.MaxRetries != 0 {
		c.Embeddings.MaxRetries = other.Embeddings.MaxRetries
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	if other.Performance.MaxFiles != 0 {
		c.Performance.MaxFiles = other.Performance.MaxFiles
	}
	if other.Performance.IndexWorkers != 0 {
		c.Performance.IndexWorkers = other.Performance.IndexWorkers
	}
	if other.Performance.EmbedBatch != 0 {
		c.Performance.EmbedBatch = other.Performance.EmbedBatch
	}
	if other.Performance.InsertBatch != 0 {
		c.Performance.InsertBatch = other.Performance.InsertBatch
	}
	if other.Performance.RequestTimeoutSeconds != 0 {
		c.Performance.RequestTimeoutSeconds = other.Performance.RequestTimeoutSeconds
	}

	if other.Store.Backend != "" {
		c.Store.Backend = other.Store.Backend
	}
	if other.Store.Endpoint != "" {
		c.Store.Endpoint = other.Store.Endpoint
	}
	if other.Store.CollectionLimit != 0 {
		c.Store.CollectionLimit = other.Store.CollectionLimit
	}

	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	if other.Server.Env != "" {
		c.Server.Env = other.Server.Env
	}
}

// applyEnvOverrides applies the three environment variables recognised by
// spec §6: log level, environment-mode toggle, and per-backend endpoint.
// These take precedence over both defaults and file config.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CODESEARCH_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("CODESEARCH_ENV"); v != "" {
		c.Server.Env = v
	}
	if v := os.Getenv("CODESEARCH_BACKEND_ENDPOINT"); v != "" {
		c.Store.Endpoint = v
	}
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("max_results must be non-negative, got %d", c.Search.MaxResults)
	}
	if c.Search.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.Search.ChunkSize)
	}
	if c.Search.ChunkOverlap < 0 || c.Search.ChunkOverlap >= c.Search.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d (chunk_size=%d)", c.Search.ChunkOverlap, c.Search.ChunkSize)
	}
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}

	validProviders := map[string]bool{"ollama": true, "openai": true, "static": true}
	if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
		return fmt.Errorf("embeddings.provider must be 'ollama', 'openai', or 'static', got %q", c.Embeddings.Provider)
	}

	validBackends := map[string]bool{"hnsw": true, "faiss": true, "pgvector": true}
	if !validBackends[strings.ToLower(c.Store.Backend)] {
		return fmt.Errorf("store.backend must be 'hnsw', 'faiss', or 'pgvector', got %q", c.Store.Backend)
	}
	if strings.ToLower(c.Store.Backend) == "pgvector" && c.Store.Endpoint == "" {
		return fmt.Errorf("store.endpoint is required when store.backend is 'pgvector'")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %q", c.Server.LogLevel)
	}

	validEnvs := map[string]bool{"development": true, "production": true}
	if !validEnvs[strings.ToLower(c.Server.Env)] {
		return fmt.Errorf("server.env must be 'development' or 'production', got %q", c.Server.Env)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

