package textutil

import "strings"

const (
	// Lines at least this frequent and at most this long are treated as
	// running headers or footers.
	repeatThreshold = 3
	repeatMaxLen    = 60

	// A denoised document must keep this many characters, or a quarter of
	// the original, before the filtered form is preferred.
	denoiseMinKeep = 120
)

// lineKey collapses a line for frequency and uniqueness comparisons:
// lowercase with internal whitespace runs reduced to single spaces.
func lineKey(line string) string {
	return strings.ToLower(strings.Join(strings.Fields(line), " "))
}

// DropRepeatedLines removes short lines that repeat throughout the
// document, which is typical of page headers, footers and watermarks in
// converted files. If filtering would leave less than max(120, len/4)
// characters, the original text is returned unchanged.
func DropRepeatedLines(s string) string {
	lines := strings.Split(s, "\n")
	if len(lines) < repeatThreshold {
		return s
	}

	counts := make(map[string]int, len(lines))
	for _, line := range lines {
		key := lineKey(line)
		if key == "" {
			continue
		}
		counts[key]++
	}

	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && len(trimmed) <= repeatMaxLen && counts[lineKey(line)] >= repeatThreshold {
			continue
		}
		kept = append(kept, line)
	}

	filtered := strings.Join(kept, "\n")
	minKeep := denoiseMinKeep
	if quarter := len(s) / 4; quarter > minKeep {
		minKeep = quarter
	}
	if len(filtered) < minKeep {
		return s
	}
	return filtered
}

// UniqueLineRatio returns the ratio of unique non-blank lines to total
// non-blank lines, comparing case-insensitively with collapsed
// whitespace, together with the non-blank line count.
func UniqueLineRatio(s string) (ratio float64, total int) {
	seen := make(map[string]struct{})
	for _, line := range strings.Split(s, "\n") {
		key := lineKey(line)
		if key == "" {
			continue
		}
		total++
		seen[key] = struct{}{}
	}
	if total == 0 {
		return 1, 0
	}
	return float64(len(seen)) / float64(total), total
}
