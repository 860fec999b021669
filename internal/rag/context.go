package rag

import (
	"fmt"
	"sort"
	"strings"
)

// Context block constants.
const (
	// DefaultContextMaxChars budgets the assembled block.
	DefaultContextMaxChars = 2400

	// PerDocExcerptCap limits excerpts per document.
	PerDocExcerptCap = 6

	// truncMinChars is the smallest truncated excerpt worth including.
	truncMinChars = 80
)

const contextHeader = `DOCUMENT CONTEXT (excerpts):
Use excerpts for factual claims. If missing, say "Not found in the document context."
When citing, mention: [DocName §ChunkNumber].
`

// BuildContextBlock renders hits into the deterministic excerpt block
// injected into the prompt, budgeted by maxChars. Returns "" when no
// block can be built.
func (r *Repository) BuildContextBlock(hits []RetrievalHit, maxChars int) string {
	return BuildContextBlock(hits, maxChars)
}

// BuildContextBlock is the package-level assembly used by the repository
// and the router.
func BuildContextBlock(hits []RetrievalHit, maxChars int) string {
	if len(hits) == 0 {
		return ""
	}
	if maxChars <= 0 {
		maxChars = DefaultContextMaxChars
	}

	groups := groupHits(hits)
	if len(groups) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(contextHeader)

	for _, g := range groups {
		section := fmt.Sprintf("\n### %s\n", g.name)
		if b.Len()+len(section) > maxChars {
			break
		}
		wrote := false

		for _, hit := range g.hits {
			excerpt := fmt.Sprintf("\n[%s §%d] %s\n", g.name, hit.ChunkIndex+1, hit.Text)
			if !wrote {
				excerpt = section + excerpt
			}

			if b.Len()+len(excerpt) > maxChars {
				// Fit a truncated prefix if enough budget remains for a
				// meaningful excerpt.
				remaining := maxChars - b.Len()
				prefix := fmt.Sprintf("\n[%s §%d] ", g.name, hit.ChunkIndex+1)
				if !wrote {
					prefix = section + prefix
				}
				if remaining-len(prefix) >= truncMinChars {
					b.WriteString(prefix)
					b.WriteString(cutUTF8(hit.Text, remaining-len(prefix)))
					b.WriteString("…")
				}
				return b.String()
			}

			b.WriteString(excerpt)
			wrote = true
		}
	}

	return b.String()
}

// cutUTF8 truncates s to at most max bytes on a rune boundary.
func cutUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && s[max]&0xC0 == 0x80 {
		max--
	}
	return s[:max]
}

type docGroup struct {
	name string
	hits []RetrievalHit
}

// groupHits deduplicates hits, groups them by document name in first-hit
// order, sorts each group by descending score and caps group size.
func groupHits(hits []RetrievalHit) []docGroup {
	type hitKey struct {
		docID      string
		chunkID    string
		chunkIndex int
	}
	seen := make(map[hitKey]struct{}, len(hits))

	var order []string
	byName := make(map[string][]RetrievalHit)
	for _, h := range hits {
		key := hitKey{h.DocID, h.ChunkID, h.ChunkIndex}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := byName[h.DocName]; !ok {
			order = append(order, h.DocName)
		}
		byName[h.DocName] = append(byName[h.DocName], h)
	}

	groups := make([]docGroup, 0, len(order))
	for _, name := range order {
		group := byName[name]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Score > group[j].Score })
		if len(group) > PerDocExcerptCap {
			group = group[:PerDocExcerptCap]
		}
		groups = append(groups, docGroup{name: name, hits: group})
	}
	return groups
}
