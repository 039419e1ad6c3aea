package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents user-level configuration stored in
// ~/.config/umapcv/config.yml: provider endpoints and credentials shared
// across projects. Project configuration and environment variables both
// take precedence.
type GlobalConfig struct {
	OllamaHost   string `yaml:"ollama_host,omitempty"`
	ReducerURL   string `yaml:"reducer_url,omitempty"`
	ScorerURL    string `yaml:"scorer_url,omitempty"`
	ScorerAPIKey string `yaml:"scorer_api_key,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "umapcv"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/umapcv/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetGlobalOllamaHost returns the Ollama base URL from global config.
func GetGlobalOllamaHost() string {
	cfg, _ := LoadGlobalConfig()
	return cfg.OllamaHost
}

// GetGlobalReducerURL returns the reduction sidecar URL from global config.
func GetGlobalReducerURL() string {
	cfg, _ := LoadGlobalConfig()
	return cfg.ReducerURL
}

// GetGlobalScorerURL returns the scoring sidecar URL from global config.
func GetGlobalScorerURL() string {
	cfg, _ := LoadGlobalConfig()
	return cfg.ScorerURL
}

// GetGlobalScorerAPIKey returns the scorer API key from global config.
func GetGlobalScorerAPIKey() string {
	cfg, _ := LoadGlobalConfig()
	return cfg.ScorerAPIKey
}

// ScorerAPIKey returns the scorer credential, preferring the SCORER_API_KEY
// environment variable over the global config.
func ScorerAPIKey() string {
	if v := os.Getenv("SCORER_API_KEY"); v != "" {
		return v
	}
	return GetGlobalScorerAPIKey()
}
