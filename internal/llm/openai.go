package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// chatml markers used by the generic template. llama-server applies no
// server-side template on the completions endpoint, so the client owns
// prompt formatting.
const (
	chatmlStart = "<|im_start|>"
	chatmlEnd   = "<|im_end|>"
)

// LocalService implements Chat against an OpenAI-compatible completions
// endpoint such as llama.cpp's llama-server on loopback.
type LocalService struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewLocalService creates a chat client for baseURL.
func NewLocalService(baseURL, apiKey, model string, maxTokens int) (*LocalService, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("LLM base URL is required")
	}
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	opts := []option.RequestOption{option.WithBaseURL(baseURL)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	return &LocalService{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Template renders messages in ChatML form with a trailing assistant
// header for the model to continue.
func (s *LocalService) Template(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(chatmlStart)
		b.WriteString(m.Role)
		b.WriteString("\n")
		b.WriteString(m.Content)
		b.WriteString(chatmlEnd)
		b.WriteString("\n")
	}
	b.WriteString(chatmlStart)
	b.WriteString(RoleAssistant)
	b.WriteString("\n")
	return b.String()
}

// Send streams the completion for a raw prompt.
func (s *LocalService) Send(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	contentCh := make(chan string, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(contentCh)
		defer close(errCh)

		log.Debug("Requesting completion", "model", s.model, "promptChars", len(prompt))

		stream := s.client.Completions.NewStreaming(ctx, openai.CompletionNewParams{
			Model:     openai.CompletionNewParamsModel(s.model),
			Prompt:    openai.CompletionNewParamsPromptUnion{OfString: openai.String(prompt)},
			MaxTokens: openai.Int(int64(s.maxTokens)),
			Stop:      openai.CompletionNewParamsStopUnion{OfString: openai.String(s.EOTString())},
		})

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) > 0 && chunk.Choices[0].Text != "" {
				select {
				case contentCh <- chunk.Choices[0].Text:
				case <-ctx.Done():
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			errCh <- err
		}
	}()

	return contentCh, errCh
}

// EOTString returns the ChatML end-of-turn marker.
func (s *LocalService) EOTString() string { return chatmlEnd }
