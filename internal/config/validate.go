package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidFtsEngine indicates an unsupported ftsEngine preference.
	ErrInvalidFtsEngine = errors.New("invalid fts engine")

	// ErrInvalidMaxFileSize indicates a maxFileSize that cannot be parsed.
	ErrInvalidMaxFileSize = errors.New("invalid max file size")

	// ErrInvalidChunkSize indicates invalid chunk size configuration.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidOverlap indicates invalid overlap configuration.
	ErrInvalidOverlap = errors.New("invalid overlap")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateFtsEngine(cfg.FtsEngine); err != nil {
		errs = append(errs, err)
	}
	if err := validateMaxFileSize(cfg.MaxFileSize); err != nil {
		errs = append(errs, err)
	}
	if err := validateChunking(&cfg.Chunking); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateFtsEngine(engine string) error {
	switch strings.ToLower(engine) {
	case "auto", "js", "native", "":
		return nil
	default:
		return fmt.Errorf("%w: must be 'auto', 'js' or 'native', got %q", ErrInvalidFtsEngine, engine)
	}
}

func validateMaxFileSize(size string) error {
	if strings.TrimSpace(size) == "" {
		return nil
	}
	if _, err := ParseSize(size); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMaxFileSize, err)
	}
	return nil
}

func validateChunking(cfg *ChunkingConfig) error {
	var errs []error

	if cfg.CodeChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: codeChunkSize must be positive, got %d", ErrInvalidChunkSize, cfg.CodeChunkSize))
	}
	if cfg.ProseChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: proseChunkSize must be positive, got %d", ErrInvalidChunkSize, cfg.ProseChunkSize))
	}
	if cfg.CodeOverlap < 0 {
		errs = append(errs, fmt.Errorf("%w: codeOverlap cannot be negative, got %d", ErrInvalidOverlap, cfg.CodeOverlap))
	}
	if cfg.ProseOverlap < 0 {
		errs = append(errs, fmt.Errorf("%w: proseOverlap cannot be negative, got %d", ErrInvalidOverlap, cfg.ProseOverlap))
	}
	if cfg.CodeChunkSize > 0 && cfg.CodeOverlap >= cfg.CodeChunkSize {
		errs = append(errs, fmt.Errorf("%w: codeOverlap (%d) should be less than codeChunkSize (%d)", ErrInvalidOverlap, cfg.CodeOverlap, cfg.CodeChunkSize))
	}
	if cfg.ProseChunkSize > 0 && cfg.ProseOverlap >= cfg.ProseChunkSize {
		errs = append(errs, fmt.Errorf("%w: proseOverlap (%d) should be less than proseChunkSize (%d)", ErrInvalidOverlap, cfg.ProseOverlap, cfg.ProseChunkSize))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
