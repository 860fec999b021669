// Package router decides, per chat turn, whether to ground the model in
// document context, and assembles the final prompt either way.
package router

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/nickcecere/lrag/internal/llm"
	"github.com/nickcecere/lrag/internal/rag"
	"github.com/nickcecere/lrag/internal/store"
)

// Decision thresholds and windowing defaults.
const (
	DefaultInjectThreshold  = 0.35
	DefaultReleaseThreshold = 0.25
	DefaultWindowSize       = 10
	DefaultShrinkWindowSize = 6
	DefaultPromptSoftLimit  = 18000
)

// DefaultKeywords signal document intent in the user's text.
var DefaultKeywords = []string{"file", "document", "doc", "pdf", "resume", "uploaded"}

// Canned replies when the user references documents that are not ready.
const (
	replyIndexing = "Your documents are still being indexed. Please try again in a moment."
	replyFailed   = "Document indexing failed. Please remove the document and try adding it again."
	replyNoDocs   = "No documents have been indexed yet. Add a document first."
)

// noContextBlock substitutes for an empty context block in doc mode, so
// small models that ignore system messages still answer honestly.
const noContextBlock = `DOCUMENT CONTEXT (excerpts):
No relevant excerpts were found for this question.
Answer exactly: "I cannot find this information in the uploaded documents."`

// Options configures the router. Zero values use defaults.
type Options struct {
	Keywords         []string
	InjectThreshold  float64
	ReleaseThreshold float64
	TopK             int
	RetrievalScore   float64
	ContextMaxChars  int
	WindowSize       int
	ShrinkWindowSize int
	PromptSoftLimit  int
}

func (o Options) withDefaults() Options {
	if len(o.Keywords) == 0 {
		o.Keywords = DefaultKeywords
	}
	if o.InjectThreshold == 0 {
		o.InjectThreshold = DefaultInjectThreshold
	}
	if o.ReleaseThreshold == 0 {
		o.ReleaseThreshold = DefaultReleaseThreshold
	}
	if o.ContextMaxChars <= 0 {
		o.ContextMaxChars = rag.DefaultContextMaxChars
	}
	if o.WindowSize <= 0 {
		o.WindowSize = DefaultWindowSize
	}
	if o.ShrinkWindowSize <= 0 {
		o.ShrinkWindowSize = DefaultShrinkWindowSize
	}
	if o.PromptSoftLimit <= 0 {
		o.PromptSoftLimit = DefaultPromptSoftLimit
	}
	return o
}

// Decision is the outcome of one routing turn.
type Decision struct {
	// Prompt is the templated prompt to send. Empty when DirectReply is
	// set.
	Prompt string

	// UsedContext reports whether document context was injected.
	UsedContext bool

	// DirectReply, when non-empty, is shown to the user without invoking
	// the model.
	DirectReply string

	// Hits are the retrieval results backing the injected context.
	Hits []rag.RetrievalHit

	// LockedDocID is the document the conversation is currently locked
	// to, if any.
	LockedDocID string
}

// Router holds the per-conversation document lock and builds prompts.
type Router struct {
	repo *rag.Repository
	chat llm.Chat
	opts Options

	mu          sync.Mutex
	lockedDocID string
}

// New creates a Router.
func New(repo *rag.Repository, chat llm.Chat, opts Options) *Router {
	return &Router{repo: repo, chat: chat, opts: opts.withDefaults()}
}

// Reset clears conversation state, releasing any document lock.
func (rt *Router) Reset() {
	rt.mu.Lock()
	rt.lockedDocID = ""
	rt.mu.Unlock()
}

// LockTo pins retrieval to one document, as if the conversation had
// already entered document mode on it.
func (rt *Router) LockTo(docID string) {
	rt.mu.Lock()
	rt.lockedDocID = docID
	rt.mu.Unlock()
}

// LockedDocID returns the current lock, if any.
func (rt *Router) LockedDocID() string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.lockedDocID
}

// BuildPrompt routes one turn. messages is the prior conversation;
// userText is the new user message. When no READY document exists and
// the user does not reference documents, the returned prompt is exactly
// the plain templated conversation.
func (rt *Router) BuildPrompt(ctx context.Context, messages []llm.Message, userText string) (*Decision, error) {
	docs := rt.repo.SnapshotDocs()
	ready := filterByStatus(docs, store.StatusReady)
	hasKeyword := containsKeyword(userText, rt.opts.Keywords)

	if len(ready) == 0 {
		if hasKeyword {
			return &Decision{DirectReply: notReadyReply(docs)}, nil
		}
		return rt.plainDecision(messages, userText), nil
	}

	rt.mu.Lock()
	locked := rt.lockedDocID
	rt.mu.Unlock()

	// A removed or re-indexed lock target no longer binds retrieval.
	if locked != "" && !containsDoc(ready, locked) {
		locked = ""
		rt.Reset()
	}

	hits, err := rt.repo.Retrieve(ctx, userText, rt.opts.TopK, rt.opts.RetrievalScore, locked)
	if err != nil {
		return nil, err
	}

	bestScore := 0.0
	if len(hits) > 0 {
		bestScore = hits[0].Score
	}

	// Release the lock when the conversation has drifted off-document.
	if locked != "" && bestScore < rt.opts.ReleaseThreshold && !hasKeyword {
		log.Debug("Releasing document lock", "doc", locked, "bestScore", bestScore)
		rt.Reset()
		locked = ""
	}

	useDocs := bestScore > rt.opts.InjectThreshold || hasKeyword
	if !useDocs {
		return rt.plainDecision(messages, userText), nil
	}

	if locked == "" {
		locked = rt.selectLock(ready, hits)
		rt.mu.Lock()
		rt.lockedDocID = locked
		rt.mu.Unlock()
		log.Debug("Locked conversation to document", "doc", locked)
	}

	// Similarity found nothing usable: fall back to the locked document's
	// leading chunks so keyword turns still see content.
	if len(hits) == 0 && locked != "" {
		if fallback, err := rt.repo.FallbackTopChunks(locked, rt.opts.TopK); err == nil {
			hits = fallback
		}
	}

	block := rag.BuildContextBlock(hits, rt.opts.ContextMaxChars)
	if block == "" {
		block = noContextBlock
	}

	prompt := rt.assembleDocPrompt(messages, userText, block)
	return &Decision{
		Prompt:      prompt,
		UsedContext: true,
		Hits:        hits,
		LockedDocID: locked,
	}, nil
}

// plainDecision templates the conversation without document context.
func (rt *Router) plainDecision(messages []llm.Message, userText string) *Decision {
	all := append(append([]llm.Message{}, messages...), llm.Message{Role: llm.RoleUser, Content: userText})
	return &Decision{Prompt: rt.chat.Template(all)}
}

// selectLock picks the document to lock: the top hit's document, or the
// most recently created READY document. ready is sorted newest first.
func (rt *Router) selectLock(ready []store.DocRecord, hits []rag.RetrievalHit) string {
	if len(hits) > 0 {
		return hits[0].DocID
	}
	return ready[0].DocID
}

func filterByStatus(docs []store.DocRecord, status store.Status) []store.DocRecord {
	var out []store.DocRecord
	for _, d := range docs {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out
}

func containsDoc(docs []store.DocRecord, docID string) bool {
	for _, d := range docs {
		if d.DocID == docID {
			return true
		}
	}
	return false
}

func containsKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// notReadyReply picks the user-visible message when documents are
// referenced but none is READY.
func notReadyReply(docs []store.DocRecord) string {
	hasIndexing := false
	hasFailed := false
	for _, d := range docs {
		switch d.Status {
		case store.StatusIndexing:
			hasIndexing = true
		case store.StatusFailed:
			hasFailed = true
		}
	}
	switch {
	case hasIndexing:
		return replyIndexing
	case hasFailed:
		return replyFailed
	default:
		return replyNoDocs
	}
}
