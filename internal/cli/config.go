package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	section := func(name string) { fmt.Println(ui.Header.Render(name)) }
	kv := func(key string, value interface{}) { fmt.Printf("  %-22s %v\n", key+":", value) }

	section("storage")
	kv("root", cfg.Storage.Root)
	kv("staging_cap_bytes", cfg.Storage.StagingCapBytes)

	section("embeddings")
	kv("base_url", cfg.Embeddings.BaseURL)
	kv("model", cfg.Embeddings.Model)
	kv("dimensions", cfg.Embeddings.Dimensions)

	section("llm")
	kv("base_url", cfg.LLM.BaseURL)
	kv("model", cfg.LLM.Model)
	kv("max_tokens", cfg.LLM.MaxTokens)

	section("chunking")
	kv("target_chars", cfg.Chunking.TargetChars)
	kv("overlap_chars", cfg.Chunking.OverlapChars)

	section("retrieval")
	kv("top_k", cfg.Retrieval.TopK)
	kv("threshold", cfg.Retrieval.Threshold)
	kv("doc_cache_capacity", cfg.Retrieval.DocCacheCapacity)

	section("context")
	kv("max_chars", cfg.Context.MaxChars)
	kv("per_doc_cap", cfg.Context.PerDocCap)

	section("router")
	kv("keywords", cfg.Router.Keywords)
	kv("inject_threshold", cfg.Router.InjectThreshold)
	kv("release_threshold", cfg.Router.ReleaseThreshold)
	kv("window_size", cfg.Router.WindowSize)
	kv("prompt_soft_limit", cfg.Router.PromptSoftLimit)

	section("workers")
	kv("max_concurrent", cfg.Workers.MaxConcurrent)
	return nil
}
