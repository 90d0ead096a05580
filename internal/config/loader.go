package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (SEARCHIDX_*)
// 2. Config file (.searchindex/config.yml or .searchindex/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".searchindex")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("SEARCHIDX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("include")
	v.BindEnv("exclude")
	v.BindEnv("respectGitignore")
	v.BindEnv("maxFileSize")
	v.BindEnv("ftsEngine")
	v.BindEnv("embeddingModel")
	v.BindEnv("chunking.codeChunkSize")
	v.BindEnv("chunking.codeOverlap")
	v.BindEnv("chunking.proseChunkSize")
	v.BindEnv("chunking.proseOverlap")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("include", defaults.Include)
	v.SetDefault("exclude", defaults.Exclude)
	v.SetDefault("respectGitignore", defaults.RespectGitignore)
	v.SetDefault("maxFileSize", defaults.MaxFileSize)
	v.SetDefault("ftsEngine", defaults.FtsEngine)
	v.SetDefault("embeddingModel", defaults.EmbeddingModel)

	v.SetDefault("chunking.codeChunkSize", defaults.Chunking.CodeChunkSize)
	v.SetDefault("chunking.codeOverlap", defaults.Chunking.CodeOverlap)
	v.SetDefault("chunking.proseChunkSize", defaults.Chunking.ProseChunkSize)
	v.SetDefault("chunking.proseOverlap", defaults.Chunking.ProseOverlap)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
