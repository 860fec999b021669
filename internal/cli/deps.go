package cli

import (
	"fmt"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/embeddings"
	"github.com/nickcecere/lrag/internal/llm"
	"github.com/nickcecere/lrag/internal/rag"
	"github.com/nickcecere/lrag/internal/router"
)

// buildFacade connects the embedding facade to the configured local
// endpoint.
func buildFacade(cfg *config.Config) (*embeddings.Facade, error) {
	svc, err := embeddings.NewLocalService(
		cfg.Embeddings.BaseURL,
		cfg.Embeddings.APIKey,
		cfg.Embeddings.Model,
		cfg.Embeddings.Dimensions,
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedding service: %w", err)
	}

	facade := embeddings.NewFacade()
	facade.Attach(svc)
	return facade, nil
}

// buildRepository wires the repository from configuration.
func buildRepository(cfg *config.Config) (*rag.Repository, error) {
	facade, err := buildFacade(cfg)
	if err != nil {
		return nil, err
	}

	return rag.New(cfg.Storage.Root, facade, rag.Options{
		ChunkTargetChars:    cfg.Chunking.TargetChars,
		ChunkOverlapChars:   cfg.Chunking.OverlapChars,
		TopK:                cfg.Retrieval.TopK,
		Threshold:           cfg.Retrieval.Threshold,
		DocCacheCapacity:    cfg.Retrieval.DocCacheCapacity,
		WorkerMaxConcurrent: cfg.Workers.MaxConcurrent,
		StagingCapBytes:     cfg.Storage.StagingCapBytes,
	})
}

// buildChat creates the chat-model client.
func buildChat(cfg *config.Config) (llm.Chat, error) {
	svc, err := llm.NewLocalService(
		cfg.LLM.BaseURL,
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.MaxTokens,
	)
	if err != nil {
		return nil, fmt.Errorf("creating LLM service: %w", err)
	}
	return svc, nil
}

// buildRouter assembles the full ask pipeline.
func buildRouter(cfg *config.Config) (*rag.Repository, *router.Router, llm.Chat, error) {
	repo, err := buildRepository(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	chat, err := buildChat(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	rt := router.New(repo, chat, router.Options{
		Keywords:         cfg.Router.Keywords,
		InjectThreshold:  cfg.Router.InjectThreshold,
		ReleaseThreshold: cfg.Router.ReleaseThreshold,
		TopK:             cfg.Retrieval.TopK,
		RetrievalScore:   cfg.Retrieval.Threshold,
		ContextMaxChars:  cfg.Context.MaxChars,
		WindowSize:       cfg.Router.WindowSize,
		PromptSoftLimit:  cfg.Router.PromptSoftLimit,
	})
	return repo, rt, chat, nil
}
