package chunking

import (
	"regexp"
	"strings"
)

// continuationMarker prefixes injected overlap so chunks read as excerpts.
const continuationMarker = "..."

// sentenceEndRe matches a sentence terminator followed by whitespace.
var sentenceEndRe = regexp.MustCompile(`[.!?]\s+`)

// injectOverlap prepends a trailing slice of each chunk's predecessor,
// accumulated sentence by sentence from the end while the running token total
// stays within OverlapTokens. The first chunk, and any chunk whose
// predecessor has no sentence small enough to fit, are left unmodified.
// Table chunks are appended after this step, so they never give nor receive
// overlap.
func (c *Chunker) injectOverlap(chunks []string) []string {
	if len(chunks) < 2 || c.cfg.OverlapTokens <= 0 {
		return chunks
	}

	out := make([]string, len(chunks))
	out[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		tail := c.overlapTail(chunks[i-1])
		if tail == "" {
			out[i] = chunks[i]
			continue
		}
		out[i] = continuationMarker + tail + "\n\n" + chunks[i]
	}
	return out
}

// overlapTail walks backward over the previous chunk's sentences, taking
// whole sentences while the running total stays within the overlap budget.
func (c *Chunker) overlapTail(prev string) string {
	sentences := splitSentences(prev)
	if len(sentences) == 0 {
		return ""
	}

	total := 0
	start := len(sentences)
	for i := len(sentences) - 1; i >= 0; i-- {
		n := c.tokens.Count(sentences[i])
		if total+n > c.cfg.OverlapTokens {
			break
		}
		total += n
		start = i
	}

	if start == len(sentences) {
		return ""
	}
	return strings.TrimSpace(strings.Join(sentences[start:], " "))
}

// splitSentences cuts text after each sentence terminator, keeping the
// terminator with its sentence.
func splitSentences(text string) []string {
	locs := sentenceEndRe.FindAllStringIndex(text, -1)
	var sentences []string
	prev := 0
	for _, loc := range locs {
		// Cut after the terminator character, before the whitespace.
		s := strings.TrimSpace(text[prev : loc[0]+1])
		if s != "" {
			sentences = append(sentences, s)
		}
		prev = loc[1]
	}
	if tail := strings.TrimSpace(text[prev:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
