package chunking

import (
	"regexp"
	"strings"
)

// qaMarkerRe matches the start of a question/answer pair: lines beginning
// with Q:, Question:, FAQ: or a bolded Q marker.
var qaMarkerRe = regexp.MustCompile(`(?m)^[ \t]*(?:\*\*Q|Q:|Question:|FAQ:)`)

// splitQA applies detectAndSplitQA across the finalized chunk list.
func (c *Chunker) splitQA(chunks []string) []string {
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		out = append(out, c.detectAndSplitQA(chunk)...)
	}
	return out
}

// detectAndSplitQA re-splits a chunk at question/answer marker boundaries,
// one chunk per pair, but only when the chunk exceeds MaxTokens. A Q&A pair
// is the smallest indivisible retrieval unit, so chunks within budget pass
// through untouched even when they match the marker pattern.
func (c *Chunker) detectAndSplitQA(text string) []string {
	if c.tokens.Count(text) <= c.cfg.MaxTokens {
		return []string{text}
	}

	locs := qaMarkerRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}

	var parts []string
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		part := strings.TrimSpace(text[loc[0]:end])
		if part != "" {
			parts = append(parts, part)
		}
	}

	if len(parts) == 0 {
		return []string{text}
	}

	// Anything before the first marker (typically the context header) stays
	// attached to the first pair rather than becoming a token-starved chunk.
	if preamble := strings.TrimSpace(text[:locs[0][0]]); preamble != "" {
		parts[0] = preamble + "\n\n" + parts[0]
	}

	return parts
}
