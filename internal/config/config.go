// Package config handles project and global configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFile is the project configuration file. Its presence marks the
	// project root for the walk-up discovery.
	ConfigFile = "umapcv.yml"

	// CacheDirName holds the SQLite content cache and the vector index.
	CacheDirName = ".umapcv"

	// DBFile is the persistent embedding and pair-score cache.
	DBFile = "cache.db"
)

// Defaults applied when the configuration file omits a key.
const (
	DefaultModel       = "all-minilm:l6-v2"
	DefaultScorerModel = "cross-encoder/ms-marco-MiniLM-L-6-v2"
	DefaultOutput      = "data"
	DefaultSeed        = 42
	DefaultPerplexity  = 30
	DefaultReducerURL  = "http://localhost:8000"
	DefaultScorerURL   = "http://localhost:8001"
)

// ValidMethods lists the supported reduction methods.
var ValidMethods = []string{"pca", "tsne", "umap"}

// ValidDimensions lists the supported layout dimensions.
var ValidDimensions = []int{2, 3}

// ValidStrategies lists the supported arc strategies.
var ValidStrategies = []string{"subdivision", "catmullrom"}

// Weight table errors.
var (
	ErrNoPositiveWeight = errors.New("no field has a positive weight")
	ErrNegativeWeight   = errors.New("field weights must be non-negative")
)

// Weights maps field names to their embedding weights. Zero-weight fields
// are carried as metadata but excluded from vector generation.
type Weights map[string]float64

// Validate rejects negative weights and all-zero tables.
func (w Weights) Validate() error {
	positive := false
	for field, weight := range w {
		if weight < 0 {
			return fmt.Errorf("%w: %q is %v", ErrNegativeWeight, field, weight)
		}
		if weight > 0 {
			positive = true
		}
	}
	if !positive {
		return ErrNoPositiveWeight
	}
	return nil
}

// Config represents project configuration stored in umapcv.yml.
type Config struct {
	Model      string   `yaml:"model"`
	Methods    []string `yaml:"methods"`
	Dimensions []int    `yaml:"dimensions"`
	Weights    Weights  `yaml:"weights"`
	Output     string   `yaml:"output"`
	Seed       uint64   `yaml:"seed"`
	Perplexity float64  `yaml:"perplexity"`

	Arc       ArcConfig      `yaml:"arc"`
	Providers ProviderConfig `yaml:"providers"`
}

// ArcConfig selects the connector geometry.
type ArcConfig struct {
	Strategy string `yaml:"strategy"`
	Steps    int    `yaml:"steps"`
}

// ProviderConfig holds the external service endpoints. The OLLAMA_HOST,
// REDUCER_URL and SCORER_URL environment variables override the file, which
// in turn overrides the global config.
type ProviderConfig struct {
	Ollama      string `yaml:"ollama,omitempty"`
	Reducer     string `yaml:"reducer,omitempty"`
	Scorer      string `yaml:"scorer,omitempty"`
	ScorerModel string `yaml:"scorer_model"`
}

// Default returns the configuration used when umapcv.yml omits a key (or
// does not exist at all).
func Default() *Config {
	return &Config{
		Model:      DefaultModel,
		Methods:    []string{"pca"},
		Dimensions: []int{3},
		Weights:    Weights{"title": 1},
		Output:     DefaultOutput,
		Seed:       DefaultSeed,
		Perplexity: DefaultPerplexity,
		Arc: ArcConfig{
			Strategy: "subdivision",
			Steps:    3,
		},
		Providers: ProviderConfig{
			ScorerModel: DefaultScorerModel,
		},
	}
}

// ConfigPath returns the path to umapcv.yml from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, ConfigFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, CacheDirName)
}

// DBPath returns the path to cache.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, CacheDirName, DBFile)
}

// OutputPath resolves the configured output directory against the root.
func (c *Config) OutputPath(root string) string {
	if filepath.IsAbs(c.Output) {
		return c.Output
	}
	return filepath.Join(root, c.Output)
}

// IsRepository checks if the given path contains a umapcv project file.
func IsRepository(root string) bool {
	info, err := os.Stat(ConfigPath(root))
	return err == nil && !info.IsDir()
}

// FindRepository walks up from the given path to find a umapcv project.
// Returns the project root path or an error if not found.
func FindRepository(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a umapcv project (no %s found)", ConfigFile)
		}
		abs = parent
	}
}

// Load reads configuration from the project at the given root. Missing keys
// keep their defaults.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads the project configuration when the file exists and
// falls back to the defaults otherwise.
func LoadOrDefault(root string) (*Config, error) {
	cfg, err := Load(root)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes configuration to the project at the given root.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate checks every field against the supported value sets.
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model must not be empty")
	}

	if len(c.Methods) == 0 {
		return fmt.Errorf("at least one reduction method is required")
	}
	for _, method := range c.Methods {
		if !contains(ValidMethods, method) {
			return fmt.Errorf("invalid method: %s (valid: %v)", method, ValidMethods)
		}
	}

	if len(c.Dimensions) == 0 {
		return fmt.Errorf("at least one layout dimension is required")
	}
	for _, dim := range c.Dimensions {
		if !contains(ValidDimensions, dim) {
			return fmt.Errorf("invalid dimension: %d (valid: %v)", dim, ValidDimensions)
		}
	}

	if err := c.Weights.Validate(); err != nil {
		return err
	}

	if !contains(ValidStrategies, c.Arc.Strategy) {
		return fmt.Errorf("invalid arc strategy: %s (valid: %v)", c.Arc.Strategy, ValidStrategies)
	}
	if c.Arc.Steps < 0 {
		return fmt.Errorf("arc steps must be non-negative, got %d", c.Arc.Steps)
	}

	if c.Perplexity <= 0 {
		return fmt.Errorf("perplexity must be positive, got %v", c.Perplexity)
	}

	if c.Output == "" {
		return fmt.Errorf("output directory must not be empty")
	}

	return nil
}

// OllamaHost returns the embedding provider base URL. Empty means the
// provider's own default.
func (c *Config) OllamaHost() string {
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		return v
	}
	if c.Providers.Ollama != "" {
		return c.Providers.Ollama
	}
	return GetGlobalOllamaHost()
}

// ReducerURL returns the reduction sidecar base URL.
func (c *Config) ReducerURL() string {
	if v := os.Getenv("REDUCER_URL"); v != "" {
		return v
	}
	if c.Providers.Reducer != "" {
		return c.Providers.Reducer
	}
	if v := GetGlobalReducerURL(); v != "" {
		return v
	}
	return DefaultReducerURL
}

// ScorerURL returns the scoring sidecar base URL.
func (c *Config) ScorerURL() string {
	if v := os.Getenv("SCORER_URL"); v != "" {
		return v
	}
	if c.Providers.Scorer != "" {
		return c.Providers.Scorer
	}
	if v := GetGlobalScorerURL(); v != "" {
		return v
	}
	return DefaultScorerURL
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
