package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"semanticdb-lsp/src/internal/common"
	"semanticdb-lsp/src/internal/constants"
	"semanticdb-lsp/src/utils/filepattern"
)

// Config contains server configuration
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Framing  *FramingConfig `yaml:"framing"`
	Index    *IndexConfig   `yaml:"index"`
	Archive  *ArchiveConfig `yaml:"archive"`
	Metrics  *MetricsConfig `yaml:"metrics,omitempty"`
}

// FramingConfig bounds the message framer
type FramingConfig struct {
	MaxHeaderBytes int `yaml:"max_header_bytes"`
	ReadChunkSize  int `yaml:"read_chunk_size"`
}

// IndexConfig controls where semantic documents come from
type IndexConfig struct {
	SemanticDBDir string   `yaml:"semanticdb_dir"`
	Watch         bool     `yaml:"watch"`
	Exclude       []string `yaml:"exclude,omitempty"`
	Concurrency   int      `yaml:"concurrency"`
}

// ArchiveConfig controls materialization of read-only archive members
type ArchiveConfig struct {
	ScratchDir string   `yaml:"scratch_dir"`
	Schemes    []string `yaml:"schemes"`
	// Strict makes definition queries fail on unreadable archives
	// instead of returning the unmaterialized location.
	Strict bool `yaml:"strict"`
}

// MetricsConfig enables the prometheus endpoint when Addr is set
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LoadConfig loads configuration from a YAML file, filling unset fields with defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyDefaults()

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads path when it exists and falls back to defaults otherwise
func LoadConfigOrDefault(path string) (*Config, error) {
	if path == "" || !common.FileExists(path) {
		return GetDefaultConfig(), nil
	}
	return LoadConfig(path)
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateDefaultConfig generates a default configuration file
func GenerateDefaultConfig(path string) error {
	return SaveConfig(GetDefaultConfig(), path)
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if _, err := common.ParseLogLevel(config.LogLevel); err != nil {
		return err
	}

	if config.Framing.MaxHeaderBytes <= 0 {
		return fmt.Errorf("framing.max_header_bytes must be positive")
	}
	if config.Framing.ReadChunkSize <= 0 {
		return fmt.Errorf("framing.read_chunk_size must be positive")
	}

	if config.Index.Concurrency <= 0 {
		return fmt.Errorf("index.concurrency must be positive")
	}
	if _, err := filepattern.Compile(config.Index.Exclude); err != nil {
		return fmt.Errorf("index.exclude: %w", err)
	}

	if len(config.Archive.Schemes) == 0 {
		return fmt.Errorf("archive.schemes must not be empty")
	}
	for _, scheme := range config.Archive.Schemes {
		if !strings.HasSuffix(scheme, ":") {
			return fmt.Errorf("archive scheme %q must end with ':'", scheme)
		}
	}

	return nil
}

// applyDefaults fills sections a partial YAML file left out
func (c *Config) applyDefaults() {
	defaults := GetDefaultConfig()
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Framing == nil {
		c.Framing = defaults.Framing
	}
	if c.Index == nil {
		c.Index = defaults.Index
	}
	if c.Archive == nil {
		c.Archive = defaults.Archive
	}
	if c.Archive.ScratchDir == "" {
		c.Archive.ScratchDir = defaults.Archive.ScratchDir
	}
	if expanded, err := common.ExpandPath(c.Archive.ScratchDir); err == nil {
		c.Archive.ScratchDir = expanded
	}
	if expanded, err := common.ExpandPath(c.Index.SemanticDBDir); err == nil {
		c.Index.SemanticDBDir = expanded
	}
	if c.Metrics == nil {
		c.Metrics = defaults.Metrics
	}
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return filepath.Join(common.GetHomeDir(), "config.yaml")
}

// GetDefaultConfig returns the built-in configuration
func GetDefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Framing: &FramingConfig{
			MaxHeaderBytes: constants.DefaultMaxHeaderBytes,
			ReadChunkSize:  constants.DefaultReadChunkSize,
		},
		Index: &IndexConfig{
			SemanticDBDir: ".",
			Exclude:       []string{"**/.git/**"},
			Concurrency:   constants.DefaultIndexConcurrency,
		},
		Archive: &ArchiveConfig{
			ScratchDir: common.GetDefaultScratchDir(),
			Schemes:    []string{constants.DefaultArchiveScheme},
		},
		Metrics: &MetricsConfig{},
	}
}
