package llm

import (
	"context"
	"strings"
	"sync"
)

// MockChat is a scripted Chat implementation for tests. Template joins
// messages with a simple textual frame so prompt assertions stay
// readable; Send replays the configured reply token by token.
type MockChat struct {
	mu      sync.Mutex
	reply   string
	prompts []string
}

// NewMockChat creates a mock that answers every prompt with reply.
func NewMockChat(reply string) *MockChat {
	return &MockChat{reply: reply}
}

// Template renders "role: content" lines.
func (m *MockChat) Template(messages []Message) string {
	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// Send records the prompt and streams the reply in word-sized tokens.
func (m *MockChat) Send(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	reply := m.reply
	m.mu.Unlock()

	contentCh := make(chan string, 16)
	errCh := make(chan error, 1)
	go func() {
		defer close(contentCh)
		defer close(errCh)
		for _, word := range strings.SplitAfter(reply, " ") {
			select {
			case contentCh <- word:
			case <-ctx.Done():
				return
			}
		}
	}()
	return contentCh, errCh
}

// EOTString returns a fixed marker.
func (m *MockChat) EOTString() string { return "<eot>" }

// Prompts returns every prompt passed to Send.
func (m *MockChat) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
