// Package chunker splits normalized document text into overlapping,
// sentence-aware chunks sized for embedding.
package chunker

import (
	"strings"
	"unicode"

	"github.com/nickcecere/lrag/internal/textutil"
)

// Default chunk sizing.
const (
	DefaultTargetChars  = 800
	DefaultOverlapChars = 350
)

// continuationMarker prefixes the carried-over tail of the previous chunk.
const continuationMarker = "... "

// Chunk is one contiguous slice of the source text. Offsets index into the
// normalized input and describe the chunk's own span, excluding any
// overlap prefix carried in Text.
type Chunk struct {
	Index       int
	Text        string
	StartOffset int
	EndOffset   int
}

// Chunker produces chunks of at most TargetChars characters, each (except
// the first) prefixed with up to OverlapChars characters of its
// predecessor's tail.
type Chunker struct {
	targetChars  int
	overlapChars int
}

// New creates a Chunker. A non-positive targetChars or a negative
// overlapChars falls back to the default; an overlapChars of zero
// disables the overlap pass.
func New(targetChars, overlapChars int) *Chunker {
	if targetChars <= 0 {
		targetChars = DefaultTargetChars
	}
	if overlapChars < 0 {
		overlapChars = DefaultOverlapChars
	}
	return &Chunker{targetChars: targetChars, overlapChars: overlapChars}
}

// segment is an intermediate piece of text with its span in the source.
type segment struct {
	text       string
	start, end int
}

// Chunk splits text into ordered chunks. Returns nil for blank input.
func (c *Chunker) Chunk(text string) []Chunk {
	text = textutil.Normalize(text)
	if text == "" {
		return nil
	}

	if len(text) <= c.targetChars {
		return []Chunk{{Index: 0, Text: text, StartOffset: 0, EndOffset: len(text)}}
	}

	segments := splitSentences(text)
	chunks := c.pack(segments)

	// Sentence structure too weak: retry on paragraph blocks, then fall
	// back to plain word packing.
	if len(chunks) < 2 {
		if paras := splitParagraphs(text); len(paras) >= 2 {
			chunks = c.pack(paras)
		}
	}
	if len(chunks) < 2 {
		chunks = c.pack(splitWordsLimit(text, 0, c.targetChars))
	}

	return c.applyOverlap(chunks)
}

// pack greedily combines segments into chunks of at most targetChars.
// Segments longer than targetChars are split at word boundaries first.
func (c *Chunker) pack(segments []segment) []Chunk {
	var sized []segment
	for _, seg := range segments {
		if len(seg.text) > c.targetChars {
			sized = append(sized, splitWordsLimit(seg.text, seg.start, c.targetChars)...)
		} else {
			sized = append(sized, seg)
		}
	}

	var chunks []Chunk
	var buf strings.Builder
	bufStart, bufEnd := -1, -1

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Index:       len(chunks),
			Text:        buf.String(),
			StartOffset: bufStart,
			EndOffset:   bufEnd,
		})
		buf.Reset()
		bufStart, bufEnd = -1, -1
	}

	for _, seg := range sized {
		extra := len(seg.text)
		if buf.Len() > 0 {
			extra++ // joining space
		}
		if buf.Len()+extra > c.targetChars {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		} else {
			bufStart = seg.start
		}
		buf.WriteString(seg.text)
		bufEnd = seg.end
	}
	flush()

	return chunks
}

// applyOverlap prepends each chunk (after the first) with the tail of its
// predecessor, cut at a word boundary and capped so the combined text
// never exceeds targetChars+overlapChars.
func (c *Chunker) applyOverlap(chunks []Chunk) []Chunk {
	if c.overlapChars <= 0 || len(chunks) < 2 {
		return chunks
	}

	// Reserve room for the marker and joining space inside the overlap
	// budget so the size invariant holds on the final text.
	budget := c.overlapChars - len(continuationMarker) - 1
	if budget <= 0 {
		return chunks
	}

	out := make([]Chunk, len(chunks))
	out[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Text
		suffix := tailAtWordBoundary(prev, budget)
		cur := chunks[i]
		if suffix != "" {
			cur.Text = continuationMarker + suffix + " " + cur.Text
		}
		out[i] = cur
	}
	return out
}

// tailAtWordBoundary returns the suffix of s starting at the first word
// boundary within the last max characters.
func tailAtWordBoundary(s string, max int) string {
	if max <= 0 || s == "" {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := len(s) - max
	// Advance to the next space so the suffix starts on a whole word.
	idx := strings.IndexAny(s[cut:], " \n")
	if idx < 0 {
		return ""
	}
	return strings.TrimLeft(s[cut+idx:], " \n")
}

// splitSentences segments text at `.`, `!` or `?` followed by whitespace
// and an uppercase letter or opening quote.
func splitSentences(text string) []segment {
	var segs []segment
	start := 0
	runes := []rune(text)
	byteAt := make([]int, len(runes)+1)
	pos := 0
	for i, r := range runes {
		byteAt[i] = pos
		pos += len(string(r))
	}
	byteAt[len(runes)] = pos

	for i := 0; i < len(runes)-2; i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if !unicode.IsSpace(runes[i+1]) {
			continue
		}
		// Find the first non-space rune after the boundary.
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j >= len(runes) {
			break
		}
		next := runes[j]
		if !unicode.IsUpper(next) && !isOpeningQuote(next) {
			continue
		}
		end := byteAt[i+1]
		if end > start {
			segs = append(segs, segment{text: strings.TrimSpace(text[start:end]), start: start, end: end})
		}
		start = byteAt[j]
		i = j - 1
	}
	if start < len(text) {
		segs = append(segs, segment{text: strings.TrimSpace(text[start:]), start: start, end: len(text)})
	}
	return segs
}

func isOpeningQuote(r rune) bool {
	switch r {
	case '"', '\'', '«', '“', '‘', '(', '[':
		return true
	}
	return false
}

// splitParagraphs segments text on blank lines.
func splitParagraphs(text string) []segment {
	var segs []segment
	start := 0
	for {
		idx := strings.Index(text[start:], "\n\n")
		if idx < 0 {
			break
		}
		end := start + idx
		if trimmed := strings.TrimSpace(text[start:end]); trimmed != "" {
			segs = append(segs, segment{text: trimmed, start: start, end: end})
		}
		start = end + 2
	}
	if trimmed := strings.TrimSpace(text[start:]); trimmed != "" {
		segs = append(segs, segment{text: trimmed, start: start, end: len(text)})
	}
	return segs
}

// splitWordsLimit packs whitespace-separated words into segments of at
// most limit characters; base is the byte offset of s in the source text.
func splitWordsLimit(s string, base, limit int) []segment {
	var segs []segment
	segStart := -1
	lineStart := -1
	lineLen := 0

	flush := func(end int) {
		if segStart < 0 {
			return
		}
		segs = append(segs, segment{
			text:  strings.TrimSpace(s[segStart:end]),
			start: base + segStart,
			end:   base + end,
		})
		segStart = -1
		lineLen = 0
	}

	i := 0
	for i < len(s) {
		// Skip whitespace.
		for i < len(s) && (s[i] == ' ' || s[i] == '\n' || s[i] == '\t') {
			i++
		}
		if i >= len(s) {
			break
		}
		wordStart := i
		for i < len(s) && s[i] != ' ' && s[i] != '\n' && s[i] != '\t' {
			i++
		}
		wordLen := i - wordStart

		extra := wordLen
		if segStart >= 0 {
			extra++
		}
		if segStart >= 0 && lineLen+extra > limit {
			flush(lineStart)
		}
		if segStart < 0 {
			segStart = wordStart
			lineLen = wordLen
		} else {
			lineLen += extra
		}
		lineStart = i
	}
	flush(len(s))
	return segs
}
