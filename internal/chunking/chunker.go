// Package chunking splits raw knowledge source text into token-budgeted,
// retrieval-friendly chunks: markdown tables are lifted out and rendered as
// sentences, sections are segmented on headings, oversized sections are split
// by paragraph, undersized ones accumulate, oversized Q&A lists split at pair
// boundaries, and each chunk carries a slice of its predecessor for context.
package chunking

import (
	"fmt"
	"strings"

	"github.com/quillhq/kbingest/internal/domain"
)

// TokenCounter measures text in tokens. Satisfied by *tokenizer.Counter.
type TokenCounter interface {
	Count(text string) int
}

// Config controls chunk sizing. All budgets are token counts.
type Config struct {
	// TargetTokens is the nominal chunk size used to decide when to cut.
	TargetTokens int

	// MaxTokens is the hard ceiling a single chunk should not exceed.
	MaxTokens int

	// MinTokens is the floor below which a chunk cannot stand alone.
	MinTokens int

	// OverlapTokens is the budget for the context slice carried over from the
	// preceding chunk.
	OverlapTokens int
}

// DefaultConfig returns sizing defaults that fit common embedding input
// limits with headroom for the overlap prefix.
func DefaultConfig() Config {
	return Config{
		TargetTokens:  800,
		MaxTokens:     1000,
		MinTokens:     30,
		OverlapTokens: 100,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.MinTokens <= 0 {
		return fmt.Errorf("MinTokens must be positive, got %d", c.MinTokens)
	}
	if c.TargetTokens <= 0 {
		return fmt.Errorf("TargetTokens must be positive, got %d", c.TargetTokens)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("MaxTokens must be positive, got %d", c.MaxTokens)
	}
	if c.MinTokens >= c.TargetTokens {
		return fmt.Errorf("MinTokens (%d) must be less than TargetTokens (%d)", c.MinTokens, c.TargetTokens)
	}
	if c.TargetTokens > c.MaxTokens {
		return fmt.Errorf("TargetTokens (%d) must not exceed MaxTokens (%d)", c.TargetTokens, c.MaxTokens)
	}
	if c.OverlapTokens < 0 {
		return fmt.Errorf("OverlapTokens cannot be negative, got %d", c.OverlapTokens)
	}
	return nil
}

// overflowTolerance is how far a merged chunk may exceed MaxTokens before the
// merge is abandoned. Discarding sub-threshold content would silently degrade
// retrieval recall, so completeness wins over strict size uniformity.
const overflowTolerance = 1.2

// Chunker splits documents into embedding-ready chunks.
type Chunker struct {
	cfg    Config
	tokens TokenCounter
}

// New creates a Chunker with the given configuration.
// Returns an error if the configuration is invalid.
func New(tokens TokenCounter, cfg Config) (*Chunker, error) {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, fmt.Errorf("token counter is required")
	}
	return &Chunker{cfg: cfg, tokens: tokens}, nil
}

// NewDefault creates a Chunker with default configuration.
func NewDefault(tokens TokenCounter) (*Chunker, error) {
	return New(tokens, DefaultConfig())
}

// Chunk runs the full pipeline over raw document text. The returned chunks
// have contiguous 0-based indices; table-derived chunks come last and never
// participate in overlap.
func (c *Chunker) Chunk(text string) []domain.Chunk {
	tables, narrative := extractTables(text)
	title, sections := splitSections(narrative)

	chunks := c.splitBudgeted(title, sections)
	chunks = c.splitQA(chunks)
	chunks = c.injectOverlap(chunks)

	for _, t := range tables {
		chunks = append(chunks, t.render(title))
	}

	out := make([]domain.Chunk, 0, len(chunks))
	for i, text := range chunks {
		out = append(out, domain.Chunk{
			Index:      i,
			Text:       text,
			TokenCount: c.tokens.Count(text),
		})
	}
	return out
}

// maxWithTolerance is the "append anyway to avoid loss" ceiling.
func (c *Chunker) maxWithTolerance() int {
	return int(float64(c.cfg.MaxTokens) * overflowTolerance)
}

// splitBudgeted walks sections applying the sizing policy: whole sections
// within budget are kept (or buffered when too small), oversized sections are
// split by paragraph with the context header repeated into every piece.
func (c *Chunker) splitBudgeted(title string, sections []string) []string {
	var chunks []string
	var pending []string
	pendingTokens := 0
	tol := c.maxWithTolerance()

	flushPending := func() string {
		s := strings.Join(pending, "\n\n")
		pending = nil
		pendingTokens = 0
		return s
	}

	for _, section := range sections {
		whole := joinBlock(title, section)
		wholeTokens := c.tokens.Count(whole)

		if wholeTokens <= c.cfg.MaxTokens {
			if wholeTokens >= c.cfg.MinTokens {
				if len(pending) > 0 {
					buffered := flushPending()
					merged := buffered + "\n\n" + whole
					if c.tokens.Count(merged) <= c.cfg.MaxTokens {
						chunks = append(chunks, merged)
					} else {
						chunks = append(chunks, buffered, whole)
					}
				} else {
					chunks = append(chunks, whole)
				}
			} else {
				pending = append(pending, whole)
				pendingTokens += wholeTokens
				if pendingTokens >= c.cfg.MinTokens {
					chunks = append(chunks, flushPending())
				}
			}
			continue
		}

		// Section exceeds MaxTokens: split it by paragraph. Any buffered small
		// content rides along with the first piece when it fits, otherwise it
		// is emitted as its own leading chunk.
		var buffered string
		if len(pending) > 0 {
			buffered = flushPending()
		}

		heading, body := splitHeading(section)
		header := joinBlock(title, heading)
		sectionChunks := c.splitParagraphs(header, body)

		if buffered != "" {
			if len(sectionChunks) > 0 && c.tokens.Count(buffered+"\n\n"+sectionChunks[0]) <= tol {
				sectionChunks[0] = buffered + "\n\n" + sectionChunks[0]
			} else {
				chunks = append(chunks, buffered)
			}
		}
		chunks = append(chunks, sectionChunks...)
	}

	// Whatever is still buffered at the end of the document must not be lost:
	// merge into the last chunk when tolerable, else emit it trailing.
	if len(pending) > 0 {
		buffered := flushPending()
		if n := len(chunks); n > 0 && c.tokens.Count(chunks[n-1]+"\n\n"+buffered) <= tol {
			chunks[n-1] = chunks[n-1] + "\n\n" + buffered
		} else {
			chunks = append(chunks, buffered)
		}
	}

	return chunks
}

// splitParagraphs accumulates blank-line-delimited paragraphs into chunks,
// each beginning with the context header.
func (c *Chunker) splitParagraphs(header, body string) []string {
	paras := splitBlankLines(body)
	if len(paras) == 0 {
		return nil
	}

	// A paragraph that alone blows the ceiling cannot be kept whole; break it
	// into target-sized pieces at sentence (then word) boundaries first.
	units := make([]string, 0, len(paras))
	for _, p := range paras {
		if c.tokens.Count(p) > c.cfg.MaxTokens {
			units = append(units, c.splitOversizedParagraph(p)...)
		} else {
			units = append(units, p)
		}
	}
	paras = units

	var out []string
	cur := header
	curTokens := c.tokens.Count(cur)

	for _, p := range paras {
		pTokens := c.tokens.Count(p)
		if cur != header && curTokens+pTokens > c.cfg.TargetTokens && curTokens >= c.cfg.MinTokens {
			out = append(out, cur)
			cur = header
			curTokens = c.tokens.Count(cur)
		}
		cur = joinPara(cur, p)
		curTokens = c.tokens.Count(cur)
	}

	if cur == header {
		return out
	}

	if curTokens >= c.cfg.MinTokens || len(out) == 0 {
		out = append(out, cur)
		return out
	}

	// Final partial is too small to stand alone: fold its body into the
	// previous chunk when tolerable, otherwise emit it anyway.
	tail := strings.TrimSpace(strings.TrimPrefix(cur, header))
	last := out[len(out)-1]
	if c.tokens.Count(last+"\n\n"+tail) <= c.maxWithTolerance() {
		out[len(out)-1] = last + "\n\n" + tail
	} else {
		out = append(out, cur)
	}
	return out
}

// splitOversizedParagraph cuts a paragraph larger than MaxTokens into pieces
// of at most TargetTokens, preferring sentence boundaries and falling back to
// word windows for a single runaway sentence.
func (c *Chunker) splitOversizedParagraph(p string) []string {
	var pieces []string
	var cur []string
	curTokens := 0

	flush := func() {
		if len(cur) > 0 {
			pieces = append(pieces, strings.Join(cur, " "))
			cur = nil
			curTokens = 0
		}
	}

	for _, s := range splitSentences(p) {
		n := c.tokens.Count(s)
		if n > c.cfg.MaxTokens {
			flush()
			pieces = append(pieces, c.splitWords(s)...)
			continue
		}
		if curTokens > 0 && curTokens+n > c.cfg.TargetTokens {
			flush()
		}
		cur = append(cur, s)
		curTokens += n
	}
	flush()

	return pieces
}

// splitWords windows a single oversized sentence by whitespace-delimited
// words, each window within TargetTokens.
func (c *Chunker) splitWords(s string) []string {
	var pieces []string
	var cur []string
	curTokens := 0

	for _, w := range strings.Fields(s) {
		n := c.tokens.Count(w)
		if curTokens > 0 && curTokens+n > c.cfg.TargetTokens {
			pieces = append(pieces, strings.Join(cur, " "))
			cur = nil
			curTokens = 0
		}
		cur = append(cur, w)
		curTokens += n
	}
	if len(cur) > 0 {
		pieces = append(pieces, strings.Join(cur, " "))
	}
	return pieces
}

// joinBlock joins two blocks with a newline, tolerating empty parts.
func joinBlock(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n" + b
	}
}

// joinPara joins with a blank line, preserving the paragraph boundary.
func joinPara(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n\n" + b
	}
}
