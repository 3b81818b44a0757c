package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/footage/internal/domain"
)

// Database drivers.
const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Config holds the footage service configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Database      DatabaseConfig      `yaml:"database"`
	Storage       StorageConfig       `yaml:"storage"`
	Index         IndexConfig         `yaml:"index"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Understanding UnderstandingConfig `yaml:"understanding"`
	Rerank        RerankConfig        `yaml:"rerank"`
	Search        SearchConfig        `yaml:"search"`
	Corpus        CorpusConfig        `yaml:"corpus"`
	Auth          AuthConfig          `yaml:"auth"`
	MCP           MCPConfig           `yaml:"mcp"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	CORSOrigins     []string `yaml:"cors_origins"`
}

// DatabaseConfig holds vector store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// IndexConfig holds HNSW index settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// EmbeddingConfig holds the embedding provider and indexing batch settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"`
	BaseURL             string `yaml:"base_url"`
	APIKey              string `yaml:"api_key"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	QueryInstruction    string `yaml:"query_instruction"`
	DocumentInstruction string `yaml:"document_instruction"`
	CacheTTLSec         int    `yaml:"cache_ttl_sec"` // 0 = no expiry, -1 = cache disabled
	BatchSize           int    `yaml:"batch_size"`
	Workers             int    `yaml:"workers"`
}

// CacheTTL converts CacheTTLSec.
func (e EmbeddingConfig) CacheTTL() time.Duration {
	return time.Duration(max(e.CacheTTLSec, 0)) * time.Second
}

// CacheEnabled reports whether embeddings are cached.
func (e EmbeddingConfig) CacheEnabled() bool { return e.CacheTTLSec >= 0 }

// UnderstandingConfig holds the query understanding chat model settings.
// Empty BaseURL and APIKey inherit the embedding provider's.
type UnderstandingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	JSONMode    bool    `yaml:"json_mode"`
	Title       string  `yaml:"title"`
}

// RerankConfig holds the cross-encoder endpoint settings.
type RerankConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// SearchConfig tunes the retrieval pipeline.
type SearchConfig struct {
	Hybrid             *bool   `yaml:"hybrid"` // default true
	InitialK           int     `yaml:"initial_k"`
	InitialKMultiplier int     `yaml:"initial_k_multiplier"`
	MaxResults         int     `yaml:"max_results"`
	FallbackMin        int     `yaml:"fallback_min"`
	RRFK               int     `yaml:"rrf_k"`
	ConfidenceHigh     float64 `yaml:"confidence_high"`
	ConfidenceLow      float64 `yaml:"confidence_low"`
	RerankMinScore     float64 `yaml:"rerank_min_score"`
	CallTimeoutMs      int     `yaml:"call_timeout_ms"`
}

// HybridEnabled reports the hybrid retrieval switch.
func (s SearchConfig) HybridEnabled() bool { return s.Hybrid == nil || *s.Hybrid }

// CallTimeout converts CallTimeoutMs.
func (s SearchConfig) CallTimeout() time.Duration {
	return time.Duration(s.CallTimeoutMs) * time.Millisecond
}

// CorpusConfig points at the scene corpus and the movie file.
type CorpusConfig struct {
	ScenesPath     string `yaml:"scenes_path"`
	TranscriptPath string `yaml:"transcript_path"`
	LinesPerClip   int    `yaml:"lines_per_clip"`
	VideoPath      string `yaml:"video_path"`
}

// MCPConfig holds MCP endpoint settings.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory is loaded first when present.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML config bytes, expanding ${VAR} references, then applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = domain.DefaultKeyPrefix
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	c.applyEmbeddingDefaults()
	c.applyModelDefaults()
	c.applySearchDefaults()
	if c.Corpus.LinesPerClip <= 0 {
		c.Corpus.LinesPerClip = 15
	}
	if c.MCP.Path == "" {
		c.MCP.Path = "/mcp"
	}
	c.Auth.APIKeys = nonBlank(c.Auth.APIKeys)
	c.HTTP.CORSOrigins = nonBlank(c.HTTP.CORSOrigins)
}

// nonBlank drops entries that expanded to nothing.
func nonBlank(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (c *Config) applyEmbeddingDefaults() {
	e := &c.Embedding
	def := domain.DefaultVectorConfig()
	if e.Provider == "" {
		e.Provider = "openai"
	}
	if e.Model == "" {
		e.Model = def.Model
	}
	if e.Dimensions <= 0 {
		e.Dimensions = def.Dimensions
	}
	if e.QueryInstruction == "" {
		e.QueryInstruction = def.QueryInstruction
	}
	if e.BatchSize <= 0 {
		e.BatchSize = 64
	}
	if e.Workers <= 0 {
		e.Workers = 4
	}
}

func (c *Config) applyModelDefaults() {
	u := &c.Understanding
	if u.BaseURL == "" {
		u.BaseURL = c.Embedding.BaseURL
	}
	if u.APIKey == "" {
		u.APIKey = c.Embedding.APIKey
	}
	if u.Model == "" {
		u.Model = "gpt-4o-mini"
	}
	if u.MaxTokens <= 0 {
		u.MaxTokens = 256
	}
	if c.Rerank.TimeoutSec <= 0 {
		c.Rerank.TimeoutSec = 60
	}
}

func (c *Config) applySearchDefaults() {
	s := &c.Search
	if s.InitialK <= 0 {
		s.InitialK = 20
	}
	if s.InitialKMultiplier <= 0 {
		s.InitialKMultiplier = 3
	}
	if s.MaxResults <= 0 {
		s.MaxResults = 20
	}
	if s.FallbackMin <= 0 {
		s.FallbackMin = 5
	}
	if s.RRFK <= 0 {
		s.RRFK = 60
	}
	if s.ConfidenceHigh == 0 && s.ConfidenceLow == 0 {
		s.ConfidenceHigh, s.ConfidenceLow = 0.5, 0.35
	}
	if s.CallTimeoutMs <= 0 {
		s.CallTimeoutMs = 15000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the %s driver", DriverRedis)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverRedis, DriverMemory, c.Database.Driver)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Rerank.Enabled && (c.Rerank.URL == "" || c.Rerank.Model == "") {
		return errors.New("rerank.url and rerank.model are required when rerank is enabled")
	}
	return c.Search.validate()
}

func (s SearchConfig) validate() error {
	if s.ConfidenceLow < 0 || s.ConfidenceLow > s.ConfidenceHigh {
		return fmt.Errorf("search thresholds must satisfy 0 <= confidence_low <= confidence_high, got %v and %v",
			s.ConfidenceLow, s.ConfidenceHigh)
	}
	if s.RRFK <= 0 {
		return fmt.Errorf("search.rrf_k must be positive, got %d", s.RRFK)
	}
	if s.FallbackMin <= 0 {
		return fmt.Errorf("search.fallback_min must be positive, got %d", s.FallbackMin)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests and go run from subdirectories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
