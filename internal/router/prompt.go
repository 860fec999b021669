package router

import (
	"strings"

	"github.com/nickcecere/lrag/internal/llm"
)

// docModeInstructions follow the original user text inside the injected
// message.
const docModeInstructions = `RULES:
1. Use ONLY the information from the excerpts above.
2. If the answer is not in the excerpts, say "I cannot find this in the uploaded documents."
3. Do NOT repeat the excerpts word-for-word.
4. Be concise and direct.`

// assembleDocPrompt rewrites the latest user message to carry the
// context block plus the original question, windows the history and
// templates the result. If the prompt exceeds the soft limit the window
// shrinks and the prompt is templated again.
func (rt *Router) assembleDocPrompt(messages []llm.Message, userText, block string) string {
	injected := llm.Message{
		Role:    llm.RoleUser,
		Content: injectedUserContent(block, userText),
	}

	eot := rt.chat.EOTString()
	windowed := windowMessages(messages, rt.opts.WindowSize, eot)
	prompt := rt.chat.Template(append(windowed, injected))
	if len(prompt) > rt.opts.PromptSoftLimit {
		windowed = windowMessages(messages, rt.opts.ShrinkWindowSize, eot)
		prompt = rt.chat.Template(append(windowed, injected))
	}
	return prompt
}

// injectedUserContent builds the rewritten user message: block first,
// then the original question framed by the answering rules.
func injectedUserContent(block, userText string) string {
	var b strings.Builder
	b.WriteString(block)
	b.WriteString("\n\n")
	b.WriteString("Based ONLY on the document excerpts above, please answer this question:\n")
	b.WriteString(userText)
	b.WriteString("\n\n")
	b.WriteString(docModeInstructions)
	return b.String()
}

// windowMessages keeps the first system message and the last n
// non-system messages, trimming the model's end-of-turn marker from the
// final assistant message.
func windowMessages(messages []llm.Message, n int, eot string) []llm.Message {
	var system *llm.Message
	var rest []llm.Message
	for i := range messages {
		m := messages[i]
		if m.Role == llm.RoleSystem {
			if system == nil {
				system = &m
			}
			continue
		}
		rest = append(rest, m)
	}
	if len(rest) > n {
		rest = rest[len(rest)-n:]
	}

	out := make([]llm.Message, 0, len(rest)+1)
	if system != nil {
		out = append(out, *system)
	}
	out = append(out, rest...)

	// Trim a dangling end-of-turn marker from the last assistant turn.
	if eot != "" && len(out) > 0 {
		last := &out[len(out)-1]
		if last.Role == llm.RoleAssistant {
			last.Content = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(last.Content), eot))
		}
	}
	return out
}
