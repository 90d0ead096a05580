package embedding

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// EnvModelDir overrides the directory Get searches for
// model.onnx/tokenizer.json.
const EnvModelDir = "SEARCHIDX_MODEL_DIR"

// EnvForceMock forces the mock provider even when a local model is
// present, useful for tests and CI environments without the ONNX runtime.
const EnvForceMock = "SEARCHIDX_MOCK_EMBEDDINGS"

var (
	singletonOnce    sync.Once
	singletonErr     error
	singletonProv    Provider
	singletonModelDr string
)

// Get returns the process-wide embedding Provider, initializing it on
// first call. Concurrent callers all block on the same initialization and
// observe the same error or provider.
func Get() (Provider, error) {
	singletonOnce.Do(func() {
		prov, err := buildDefaultProvider()
		if err != nil {
			singletonErr = err
			return
		}
		cached, err := NewCachedProvider(prov)
		if err != nil {
			singletonErr = err
			return
		}
		singletonProv = cached
	})
	return singletonProv, singletonErr
}

// ResetForTest discards the singleton state so tests can exercise
// initialization more than once within a single process.
func ResetForTest() {
	singletonOnce = sync.Once{}
	singletonErr = nil
	singletonProv = nil
}

func buildDefaultProvider() (Provider, error) {
	if os.Getenv(EnvForceMock) == "1" {
		return NewMockProvider(), nil
	}

	modelDir := os.Getenv(EnvModelDir)
	if modelDir == "" {
		modelDir = defaultModelDir()
	}

	if modelDir == "" {
		return NewMockProvider(), nil
	}
	if _, err := os.Stat(filepath.Join(modelDir, "model.onnx")); err != nil {
		return NewMockProvider(), nil
	}

	provider, err := NewONNXProvider(modelDir, "", 0)
	if err != nil {
		return nil, fmt.Errorf("embedding: loading local model at %s: %w", modelDir, err)
	}
	return provider, nil
}

// defaultModelDir returns the conventional on-disk location for the
// bundled model files, or "" if the user's home directory can't be
// resolved.
func defaultModelDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".searchindex", "models", "bge-small-en-v1.5")
}
