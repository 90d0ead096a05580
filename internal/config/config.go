// Package config loads the per-project indexing configuration:
// include/exclude globs, gitignore handling, size limits, the FTS engine
// preference, and an advisory embedding model name.
package config

// Config represents the complete project configuration for the search
// index. It can be loaded from .searchindex/config.yml with environment
// variable overrides.
type Config struct {
	Include          []string `yaml:"include" mapstructure:"include"`
	Exclude          []string `yaml:"exclude" mapstructure:"exclude"`
	RespectGitignore bool     `yaml:"respectGitignore" mapstructure:"respectGitignore"`
	MaxFileSize      string   `yaml:"maxFileSize" mapstructure:"maxFileSize"`
	FtsEngine        string   `yaml:"ftsEngine" mapstructure:"ftsEngine"`
	EmbeddingModel   string   `yaml:"embeddingModel" mapstructure:"embeddingModel"`

	Chunking ChunkingConfig `yaml:"chunking" mapstructure:"chunking"`
}

// ChunkingConfig defines the chunk-size presets handed to the Chunker.
type ChunkingConfig struct {
	CodeChunkSize  int `yaml:"codeChunkSize" mapstructure:"codeChunkSize"`
	CodeOverlap    int `yaml:"codeOverlap" mapstructure:"codeOverlap"`
	ProseChunkSize int `yaml:"proseChunkSize" mapstructure:"proseChunkSize"`
	ProseOverlap   int `yaml:"proseOverlap" mapstructure:"proseOverlap"`
}

// Default returns a configuration with the project's default settings.
func Default() *Config {
	return &Config{
		Include:          []string{"**/*"},
		Exclude:          []string{},
		RespectGitignore: true,
		MaxFileSize:      "1MB",
		FtsEngine:        "auto",
		EmbeddingModel:   "",
		Chunking: ChunkingConfig{
			CodeChunkSize:  4000,
			CodeOverlap:    800,
			ProseChunkSize: 8000,
			ProseOverlap:   2000,
		},
	}
}
