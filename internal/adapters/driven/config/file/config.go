// Package file loads the optional YAML configuration file.
// Missing files yield defaults; explicit CLI flags override loaded
// values.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied for unset fields.
const (
	DefaultConfigPath = "~/.aifbin-recall/config.yaml"
	DefaultDBPath     = "~/.aifbin-recall/index.db"
	DefaultListen     = "localhost:3847"
)

// Config holds all configuration for aifbin-recall.
type Config struct {
	// DBPath is the SQLite index location.
	DBPath string `yaml:"db_path"`

	// Listen is the HTTP server bind address.
	Listen string `yaml:"listen"`

	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
}

// EmbeddingConfig configures the local sentence-encoder binding.
type EmbeddingConfig struct {
	// BaseURL is the inference server address.
	BaseURL string `yaml:"base_url"`

	// Model is the short model name (minilm, mpnet).
	Model string `yaml:"model"`
}

// SearchConfig holds search settings reported by the HTTP API's
// GET /settings endpoint. Searches do not read these values; they use
// the built-in defaults (limit 10, hybrid weight 0.7) unless a request
// sets its own.
type SearchConfig struct {
	// HybridWeight is the vector share of the fused score reported by
	// GET /settings.
	HybridWeight float64 `yaml:"hybrid_weight"`

	// Limit is the result count reported by GET /settings.
	Limit int `yaml:"limit"`
}

// Load reads the config file at path, or the default location when
// path is empty. A missing file is not an error: defaults apply.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultConfigPath
	}

	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// Optional file, fall through to defaults.
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills unset fields.
func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "minilm"
	}
	if c.Search.HybridWeight == 0 {
		c.Search.HybridWeight = 0.7
	}
	if c.Search.Limit == 0 {
		c.Search.Limit = 10
	}
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
