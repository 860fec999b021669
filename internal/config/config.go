// Package config handles configuration loading and validation for lrag.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// Config represents the complete lrag configuration.
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Chunking   ChunkingConfig   `mapstructure:"chunking"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Context    ContextConfig    `mapstructure:"context"`
	Router     RouterConfig     `mapstructure:"router"`
	Workers    WorkersConfig    `mapstructure:"workers"`
}

// StorageConfig configures the on-disk document store.
type StorageConfig struct {
	Root            string `mapstructure:"root"`
	StagingCapBytes int64  `mapstructure:"staging_cap_bytes"`
}

// EmbeddingsConfig configures the local embedding endpoint.
type EmbeddingsConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// LLMConfig configures the local chat-model endpoint.
type LLMConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// ChunkingConfig tunes the semantic chunker.
type ChunkingConfig struct {
	TargetChars  int `mapstructure:"target_chars"`
	OverlapChars int `mapstructure:"overlap_chars"`
}

// RetrievalConfig tunes similarity search.
type RetrievalConfig struct {
	TopK             int     `mapstructure:"top_k"`
	Threshold        float64 `mapstructure:"threshold"`
	DocCacheCapacity int     `mapstructure:"doc_cache_capacity"`
}

// ContextConfig tunes context block assembly.
type ContextConfig struct {
	MaxChars  int `mapstructure:"max_chars"`
	PerDocCap int `mapstructure:"per_doc_cap"`
}

// RouterConfig tunes the document-mode router.
type RouterConfig struct {
	Keywords         []string `mapstructure:"keywords"`
	InjectThreshold  float64  `mapstructure:"inject_threshold"`
	ReleaseThreshold float64  `mapstructure:"release_threshold"`
	WindowSize       int      `mapstructure:"window_size"`
	PromptSoftLimit  int      `mapstructure:"prompt_soft_limit"`
}

// WorkersConfig bounds the ingestion pool.
type WorkersConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// Global configuration instance
var cfg *Config

// Get returns the current configuration.
func Get() *Config {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Root:            DefaultDataDir(),
			StagingCapBytes: DefaultStagingCapBytes,
		},
		Embeddings: EmbeddingsConfig{
			BaseURL:    DefaultEmbeddingBaseURL,
			Model:      DefaultEmbeddingModel,
			Dimensions: DefaultEmbeddingDimensions,
		},
		LLM: LLMConfig{
			BaseURL:   DefaultLLMBaseURL,
			Model:     DefaultLLMModel,
			MaxTokens: DefaultLLMMaxTokens,
		},
		Chunking: ChunkingConfig{
			TargetChars:  DefaultChunkTargetChars,
			OverlapChars: DefaultChunkOverlapChars,
		},
		Retrieval: RetrievalConfig{
			TopK:             DefaultRetrievalTopK,
			Threshold:        DefaultRetrievalThreshold,
			DocCacheCapacity: DefaultDocCacheCapacity,
		},
		Context: ContextConfig{
			MaxChars:  DefaultContextMaxChars,
			PerDocCap: DefaultContextPerDocCap,
		},
		Router: RouterConfig{
			InjectThreshold:  DefaultRouterInjectThreshold,
			ReleaseThreshold: DefaultRouterReleaseThreshold,
			WindowSize:       DefaultRouterWindowSize,
			PromptSoftLimit:  DefaultRouterPromptSoftLimit,
		},
		Workers: WorkersConfig{},
	}
}

// Load reads configuration from file and environment variables.
func Load(configFile string) error {
	viper.Reset()
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(DefaultConfigDir())
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("LRAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug("No config file found, using defaults")
	} else {
		log.Debug("Loaded config from", "file", viper.ConfigFileUsed())
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.Embeddings.APIKey == "" {
		cfg.Embeddings.APIKey = os.Getenv("LRAG_API_KEY")
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("LRAG_API_KEY")
	}

	return nil
}

// setDefaults sets default values in viper.
func setDefaults() {
	viper.SetDefault("storage.root", DefaultDataDir())
	viper.SetDefault("storage.staging_cap_bytes", DefaultStagingCapBytes)

	viper.SetDefault("embeddings.base_url", DefaultEmbeddingBaseURL)
	viper.SetDefault("embeddings.model", DefaultEmbeddingModel)
	viper.SetDefault("embeddings.dimensions", DefaultEmbeddingDimensions)

	viper.SetDefault("llm.base_url", DefaultLLMBaseURL)
	viper.SetDefault("llm.model", DefaultLLMModel)
	viper.SetDefault("llm.max_tokens", DefaultLLMMaxTokens)

	viper.SetDefault("chunking.target_chars", DefaultChunkTargetChars)
	viper.SetDefault("chunking.overlap_chars", DefaultChunkOverlapChars)

	viper.SetDefault("retrieval.top_k", DefaultRetrievalTopK)
	viper.SetDefault("retrieval.threshold", DefaultRetrievalThreshold)
	viper.SetDefault("retrieval.doc_cache_capacity", DefaultDocCacheCapacity)

	viper.SetDefault("context.max_chars", DefaultContextMaxChars)
	viper.SetDefault("context.per_doc_cap", DefaultContextPerDocCap)

	viper.SetDefault("router.inject_threshold", DefaultRouterInjectThreshold)
	viper.SetDefault("router.release_threshold", DefaultRouterReleaseThreshold)
	viper.SetDefault("router.window_size", DefaultRouterWindowSize)
	viper.SetDefault("router.prompt_soft_limit", DefaultRouterPromptSoftLimit)

	viper.SetDefault("workers.max_concurrent", 0)
}
