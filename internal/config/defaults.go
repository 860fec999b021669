package config

import (
	"os"
	"path/filepath"
)

// Default configuration values
const (
	// Local model endpoints (llama-server on loopback)
	DefaultEmbeddingBaseURL    = "http://127.0.0.1:8080/v1"
	DefaultEmbeddingModel      = "nomic-embed-text-v1.5"
	DefaultEmbeddingDimensions = 768
	DefaultLLMBaseURL          = "http://127.0.0.1:8081/v1"
	DefaultLLMModel            = "llama-3.2-3b-instruct"
	DefaultLLMMaxTokens        = 2048

	// Chunking
	DefaultChunkTargetChars  = 800
	DefaultChunkOverlapChars = 350

	// Retrieval
	DefaultRetrievalTopK      = 8
	DefaultRetrievalThreshold = 0.05
	DefaultDocCacheCapacity   = 8

	// Context assembly
	DefaultContextMaxChars  = 2400
	DefaultContextPerDocCap = 6

	// Router
	DefaultRouterInjectThreshold  = 0.35
	DefaultRouterReleaseThreshold = 0.25
	DefaultRouterWindowSize       = 10
	DefaultRouterPromptSoftLimit  = 18000

	// Staging
	DefaultStagingCapBytes = 100 << 20 // 100 MiB per document
)

// DefaultConfigDir returns the configuration directory.
func DefaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "lrag")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "lrag")
}

// DefaultDataDir returns the directory holding the document store.
func DefaultDataDir() string {
	if dir := os.Getenv("LRAG_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lrag"
	}
	return filepath.Join(home, ".local", "share", "lrag")
}
