package embeddings

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// LocalService implements Embedder against an OpenAI-compatible endpoint
// such as llama.cpp's llama-server running on loopback. The engine stays
// offline: the base URL is expected to point at the local model host.
type LocalService struct {
	client openai.Client
	model  string
	dim    int
}

// NewLocalService creates an embedder client for baseURL. The API key is
// optional; llama-server ignores it, hosted endpoints require it.
func NewLocalService(baseURL, apiKey, model string, dim int) (*LocalService, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("embedding base URL is required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive")
	}

	opts := []option.RequestOption{option.WithBaseURL(baseURL)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	return &LocalService{
		client: openai.NewClient(opts...),
		model:  model,
		dim:    dim,
	}, nil
}

// Embed requests one embedding from the local server.
func (s *LocalService) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(s.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimensions returns the configured vector dimension.
func (s *LocalService) Dimensions() int { return s.dim }
