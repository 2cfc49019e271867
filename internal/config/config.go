// Package config loads and validates the retrieval core's configuration,
// following the same layered precedence the teacher used: hardcoded
// defaults, then a user/global file, then a project file, then environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration of the retrieval core.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Data        DataConfig        `yaml:"data" json:"data"`
	Embedding   EmbeddingConfig   `yaml:"embedding" json:"embedding"`
	Search      SearchConfig      `yaml:"search" json:"search"`
	Ingest      IngestConfig      `yaml:"ingest" json:"ingest"`
	Suggestions SuggestionsConfig `yaml:"suggestions" json:"suggestions"`
	Deadlines   DeadlinesConfig   `yaml:"deadlines" json:"deadlines"`
	Breaker     BreakerConfig     `yaml:"breaker" json:"breaker"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Vendors     map[string]string `yaml:"vendors" json:"vendors"`
}

// DataConfig locates the on-disk state the core owns.
type DataConfig struct {
	// Dir is the root directory holding the SQLite resource store and the
	// bleve/hnsw index files.
	Dir string `yaml:"dir" json:"dir"`
	// SQLiteDSN overrides the resource store DSN; empty derives it from Dir.
	SQLiteDSN string `yaml:"sqlite_dsn" json:"sqlite_dsn"`
	// LockCrossProcess guards Dir with an advisory file lock (gofrs/flock)
	// in addition to the in-process ingestion lease, for the rare case of
	// two OS processes pointed at the same Dir.
	LockCrossProcess bool `yaml:"lock_cross_process" json:"lock_cross_process"`
}

// EmbeddingConfig fixes the vector dimensions the whole system assumes.
// Changing either is a schema-breaking event: all embeddings must be
// recomputed.
type EmbeddingConfig struct {
	DimText    int `yaml:"dim_text" json:"dim_text"`
	DimCaption int `yaml:"dim_caption" json:"dim_caption"`

	Provider  string `yaml:"provider" json:"provider"`
	Model     string `yaml:"model" json:"model"`
	BatchSize int    `yaml:"batch_size" json:"batch_size"`

	// CacheSize bounds the LRU of (text -> vector) the client keeps in
	// front of the provider, avoiding recomputation for duplicate chunks.
	CacheSize int `yaml:"cache_size" json:"cache_size"`

	// MaxInputChars truncates text before embedding; providers cap input length.
	MaxInputChars int `yaml:"max_input_chars" json:"max_input_chars"`
}

// SearchConfig tunes the compound search executor (C8).
type SearchConfig struct {
	// MoneyTolerance is the relative half-width for the amount range
	// clause; default 0.10.
	MoneyTolerance float64 `yaml:"money_tolerance" json:"money_tolerance"`
	// ScoreCeiling normalizes raw fused scores to [0,1] (values above it
	// clip to 1.0). C7's RRF numerator is rescaled so a rank-0 hit in a
	// single ranked list contributes exactly 1.0, and a hit agreed upon
	// by multiple lists (lexical + vector) sums past it; default 1.
	ScoreCeiling float64 `yaml:"score_ceiling" json:"score_ceiling"`
	// SemanticStrongThreshold is the lower bound (post-normalization) for
	// classifying a result as semantic_strong; default 0.8.
	SemanticStrongThreshold float64 `yaml:"semantic_strong_threshold" json:"semantic_strong_threshold"`
	// OverFetchFactor multiplies limit before calling C7, to leave room
	// for dedup/classification after fusion; default 3.
	OverFetchFactor int `yaml:"over_fetch_factor" json:"over_fetch_factor"`
	// IndexName names the C7 compound index.
	IndexName string `yaml:"index_name" json:"index_name"`
	// RRFConstant is the reciprocal-rank-fusion smoothing parameter (k).
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`
	// DefaultLimit bounds result count when a caller doesn't specify one.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
}

// IngestConfig tunes the ingestion pipeline (C6).
type IngestConfig struct {
	ChunkSizeChars    int `yaml:"chunk_size_chars" json:"chunk_size_chars"`
	ChunkOverlapChars int `yaml:"chunk_overlap_chars" json:"chunk_overlap_chars"`
	WorkerConcurrency int `yaml:"worker_concurrency" json:"worker_concurrency"`
	PerTenantConcurrency int `yaml:"per_tenant_concurrency" json:"per_tenant_concurrency"`
}

// SuggestionsConfig tunes the suggestion index (C9).
type SuggestionsConfig struct {
	MaxTermsPerResource int `yaml:"max_terms_per_resource" json:"max_terms_per_resource"`
	HotTermCacheSize    int `yaml:"hot_term_cache_size" json:"hot_term_cache_size"`
	DefaultLimit        int `yaml:"default_limit" json:"default_limit"`
}

// DeadlinesConfig holds per-collaborator deadline budgets in milliseconds,
// exposed as durations by the *Deadline methods below. No collaborator call
// in this module builds a context from them, so they do not bound any wait
// or produce a Timeout error.
type DeadlinesConfig struct {
	EmbedMS  int `yaml:"embed_ms" json:"embed_ms"`
	OCRMS    int `yaml:"ocr_ms" json:"ocr_ms"`
	CaptionMS int `yaml:"caption_ms" json:"caption_ms"`
	SearchMS int `yaml:"search_ms" json:"search_ms"`
	StoreMS  int `yaml:"store_ms" json:"store_ms"`
}

// BreakerConfig configures the circuit breaker the embedding client factory
// puts around the Ollama provider's calls. OCR, caption and C7 search calls
// are not wrapped in a breaker.
type BreakerConfig struct {
	MaxFailures      int           `yaml:"max_failures" json:"max_failures"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" json:"reset_timeout"`
}

// ServerConfig configures the HTTP realization of the core's contracts.
type ServerConfig struct {
	BindAddr string `yaml:"bind_addr" json:"bind_addr"`
	LogLevel string `yaml:"log_level" json:"log_level"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Data: DataConfig{
			Dir:              defaultDataDir(),
			LockCrossProcess: false,
		},
		Embedding: EmbeddingConfig{
			DimText:       768,
			DimCaption:    512,
			Provider:      "ollama",
			Model:         "qwen3-embedding:8b",
			BatchSize:     32,
			CacheSize:     2000,
			MaxInputChars: 8000,
		},
		Search: SearchConfig{
			MoneyTolerance:          0.10,
			ScoreCeiling:            1,
			SemanticStrongThreshold: 0.8,
			OverFetchFactor:         3,
			IndexName:               "documents",
			RRFConstant:             60,
			DefaultLimit:            20,
		},
		Ingest: IngestConfig{
			ChunkSizeChars:       1500,
			ChunkOverlapChars:    200,
			WorkerConcurrency:    runtime.NumCPU(),
			PerTenantConcurrency: 4,
		},
		Suggestions: SuggestionsConfig{
			MaxTermsPerResource: 64,
			HotTermCacheSize:    500,
			DefaultLimit:        10,
		},
		Deadlines: DeadlinesConfig{
			EmbedMS:   5000,
			OCRMS:     8000,
			CaptionMS: 8000,
			SearchMS:  2000,
			StoreMS:   3000,
		},
		Breaker: BreakerConfig{
			MaxFailures:  5,
			ResetTimeout: 30 * time.Second,
		},
		Server: ServerConfig{
			BindAddr: ":8765",
			LogLevel: "info",
			Debug:    false,
		},
		Vendors: defaultVendors(),
	}
}

// defaultVendors is a small seed map of variant display text -> canonical
// vendor key, used by the metadata extractor's vendor recognition;
// operators extend it via config rather than a code change.
func defaultVendors() map[string]string {
	return map[string]string{
		"Google":                "google",
		"Google Cloud":          "google",
		"Amazon":                "amazon",
		"Amazon Web Services":   "amazon",
		"Microsoft":             "microsoft",
		"Microsoft Corporation": "microsoft",
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".docsearch", "data")
	}
	return filepath.Join(home, ".docsearch", "data")
}

// GetUserConfigPath returns the path to the user/global configuration file,
// following the XDG Base Directory specification.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "docsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "docsearch", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// LoadUserConfig loads the user configuration file. Returns nil config and
// nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

func loadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load loads configuration from the given directory, in order of increasing
// precedence: hardcoded defaults, user/global config, project config
// (.docsearch.yaml in dir), then DOCSEARCH_* environment variables.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

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
	for _, name := range []string{".docsearch.yaml", ".docsearch.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
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

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Data.Dir != "" {
		c.Data.Dir = other.Data.Dir
	}
	if other.Data.SQLiteDSN != "" {
		c.Data.SQLiteDSN = other.Data.SQLiteDSN
	}
	if other.Data.LockCrossProcess {
		c.Data.LockCrossProcess = other.Data.LockCrossProcess
	}

	if other.Embedding.DimText != 0 {
		c.Embedding.DimText = other.Embedding.DimText
	}
	if other.Embedding.DimCaption != 0 {
		c.Embedding.DimCaption = other.Embedding.DimCaption
	}
	if other.Embedding.Provider != "" {
		c.Embedding.Provider = other.Embedding.Provider
	}
	if other.Embedding.Model != "" {
		c.Embedding.Model = other.Embedding.Model
	}
	if other.Embedding.BatchSize != 0 {
		c.Embedding.BatchSize = other.Embedding.BatchSize
	}
	if other.Embedding.CacheSize != 0 {
		c.Embedding.CacheSize = other.Embedding.CacheSize
	}
	if other.Embedding.MaxInputChars != 0 {
		c.Embedding.MaxInputChars = other.Embedding.MaxInputChars
	}

	if other.Search.MoneyTolerance != 0 {
		c.Search.MoneyTolerance = other.Search.MoneyTolerance
	}
	if other.Search.ScoreCeiling != 0 {
		c.Search.ScoreCeiling = other.Search.ScoreCeiling
	}
	if other.Search.SemanticStrongThreshold != 0 {
		c.Search.SemanticStrongThreshold = other.Search.SemanticStrongThreshold
	}
	if other.Search.OverFetchFactor != 0 {
		c.Search.OverFetchFactor = other.Search.OverFetchFactor
	}
	if other.Search.IndexName != "" {
		c.Search.IndexName = other.Search.IndexName
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}

	if other.Ingest.ChunkSizeChars != 0 {
		c.Ingest.ChunkSizeChars = other.Ingest.ChunkSizeChars
	}
	if other.Ingest.ChunkOverlapChars != 0 {
		c.Ingest.ChunkOverlapChars = other.Ingest.ChunkOverlapChars
	}
	if other.Ingest.WorkerConcurrency != 0 {
		c.Ingest.WorkerConcurrency = other.Ingest.WorkerConcurrency
	}
	if other.Ingest.PerTenantConcurrency != 0 {
		c.Ingest.PerTenantConcurrency = other.Ingest.PerTenantConcurrency
	}

	if other.Suggestions.MaxTermsPerResource != 0 {
		c.Suggestions.MaxTermsPerResource = other.Suggestions.MaxTermsPerResource
	}
	if other.Suggestions.HotTermCacheSize != 0 {
		c.Suggestions.HotTermCacheSize = other.Suggestions.HotTermCacheSize
	}
	if other.Suggestions.DefaultLimit != 0 {
		c.Suggestions.DefaultLimit = other.Suggestions.DefaultLimit
	}

	if other.Deadlines.EmbedMS != 0 {
		c.Deadlines.EmbedMS = other.Deadlines.EmbedMS
	}
	if other.Deadlines.OCRMS != 0 {
		c.Deadlines.OCRMS = other.Deadlines.OCRMS
	}
	if other.Deadlines.CaptionMS != 0 {
		c.Deadlines.CaptionMS = other.Deadlines.CaptionMS
	}
	if other.Deadlines.SearchMS != 0 {
		c.Deadlines.SearchMS = other.Deadlines.SearchMS
	}
	if other.Deadlines.StoreMS != 0 {
		c.Deadlines.StoreMS = other.Deadlines.StoreMS
	}

	if other.Breaker.MaxFailures != 0 {
		c.Breaker.MaxFailures = other.Breaker.MaxFailures
	}
	if other.Breaker.ResetTimeout != 0 {
		c.Breaker.ResetTimeout = other.Breaker.ResetTimeout
	}

	if other.Server.BindAddr != "" {
		c.Server.BindAddr = other.Server.BindAddr
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	if other.Server.Debug {
		c.Server.Debug = other.Server.Debug
	}

	for k, v := range other.Vendors {
		if c.Vendors == nil {
			c.Vendors = make(map[string]string)
		}
		c.Vendors[k] = v
	}
}

// applyEnvOverrides applies DOCSEARCH_* environment variable overrides,
// highest precedence per Load's layering.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCSEARCH_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("DOCSEARCH_EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("DOCSEARCH_EMBEDDING_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("DOCSEARCH_MONEY_TOLERANCE"); v != "" {
		if f, err := parseFloat64(v); err == nil && f >= 0 && f <= 1 {
			c.Search.MoneyTolerance = f
		}
	}
	if v := os.Getenv("DOCSEARCH_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("DOCSEARCH_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("DOCSEARCH_BIND_ADDR"); v != "" {
		c.Server.BindAddr = v
	}
	if v := os.Getenv("DOCSEARCH_DEBUG"); v != "" {
		c.Server.Debug = strings.ToLower(v) == "true" || v == "1"
	}
}

func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// Validate enforces the invariants the rest of the core assumes hold of the config.
func (c *Config) Validate() error {
	if c.Embedding.DimText <= 0 {
		return fmt.Errorf("embedding.dim_text must be positive, got %d", c.Embedding.DimText)
	}
	if c.Embedding.DimCaption <= 0 {
		return fmt.Errorf("embedding.dim_caption must be positive, got %d", c.Embedding.DimCaption)
	}

	if c.Search.MoneyTolerance < 0 || c.Search.MoneyTolerance > 1 {
		return fmt.Errorf("search.money_tolerance must be between 0 and 1, got %f", c.Search.MoneyTolerance)
	}
	if c.Search.SemanticStrongThreshold < 0 || c.Search.SemanticStrongThreshold > 1 {
		return fmt.Errorf("search.semantic_strong_threshold must be between 0 and 1, got %f", c.Search.SemanticStrongThreshold)
	}
	if c.Search.ScoreCeiling <= 0 {
		return fmt.Errorf("search.score_ceiling must be positive, got %f", c.Search.ScoreCeiling)
	}
	if c.Search.OverFetchFactor < 1 {
		return fmt.Errorf("search.over_fetch_factor must be at least 1, got %d", c.Search.OverFetchFactor)
	}

	if c.Ingest.ChunkSizeChars <= 0 {
		return fmt.Errorf("ingest.chunk_size_chars must be positive, got %d", c.Ingest.ChunkSizeChars)
	}
	if c.Ingest.ChunkOverlapChars < 0 || c.Ingest.ChunkOverlapChars >= c.Ingest.ChunkSizeChars {
		return fmt.Errorf("ingest.chunk_overlap_chars must be non-negative and less than chunk_size_chars, got %d", c.Ingest.ChunkOverlapChars)
	}
	if c.Ingest.WorkerConcurrency < 1 {
		return fmt.Errorf("ingest.worker_concurrency must be at least 1, got %d", c.Ingest.WorkerConcurrency)
	}
	if c.Ingest.PerTenantConcurrency < 1 {
		return fmt.Errorf("ingest.per_tenant_concurrency must be at least 1, got %d", c.Ingest.PerTenantConcurrency)
	}

	for name, ms := range map[string]int{
		"deadlines.embed_ms": c.Deadlines.EmbedMS, "deadlines.ocr_ms": c.Deadlines.OCRMS,
		"deadlines.caption_ms": c.Deadlines.CaptionMS, "deadlines.search_ms": c.Deadlines.SearchMS,
		"deadlines.store_ms": c.Deadlines.StoreMS,
	} {
		if ms <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, ms)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
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

// EmbedDeadline, OCRDeadline, CaptionDeadline, SearchDeadline, and
// StoreDeadline convert the millisecond config knobs to time.Duration for
// callers building a context with a deadline.
func (c *Config) EmbedDeadline() time.Duration   { return time.Duration(c.Deadlines.EmbedMS) * time.Millisecond }
func (c *Config) OCRDeadline() time.Duration     { return time.Duration(c.Deadlines.OCRMS) * time.Millisecond }
func (c *Config) CaptionDeadline() time.Duration { return time.Duration(c.Deadlines.CaptionMS) * time.Millisecond }
func (c *Config) SearchDeadline() time.Duration  { return time.Duration(c.Deadlines.SearchMS) * time.Millisecond }
func (c *Config) StoreDeadline() time.Duration   { return time.Duration(c.Deadlines.StoreMS) * time.Millisecond }

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
