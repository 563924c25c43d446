package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordCounter counts whitespace-delimited words; deterministic and
// vocabulary-free, which keeps these tests hermetic.
type wordCounter struct{}

func (wordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

func testChunker(t *testing.T, cfg Config) *Chunker {
	t.Helper()
	c, err := New(wordCounter{}, cfg)
	require.NoError(t, err)
	return c
}

// smallConfig keeps fixture documents short.
func smallConfig() Config {
	return Config{
		TargetTokens:  40,
		MaxTokens:     50,
		MinTokens:     5,
		OverlapTokens: 10,
	}
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"defaults are valid", DefaultConfig(), ""},
		{"zero min", Config{TargetTokens: 800, MaxTokens: 1000, MinTokens: 0, OverlapTokens: 100}, "MinTokens"},
		{"min above target", Config{TargetTokens: 100, MaxTokens: 1000, MinTokens: 200, OverlapTokens: 100}, "MinTokens"},
		{"target above max", Config{TargetTokens: 1200, MaxTokens: 1000, MinTokens: 30, OverlapTokens: 100}, "TargetTokens"},
		{"negative overlap", Config{TargetTokens: 800, MaxTokens: 1000, MinTokens: 30, OverlapTokens: -1}, "OverlapTokens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNew_ZeroConfigUsesDefaults(t *testing.T) {
	c, err := New(wordCounter{}, Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c.cfg)
}

func TestNew_RequiresTokenCounter(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.Error(t, err)
}

func TestChunk_EmptyInput(t *testing.T) {
	c := testChunker(t, smallConfig())

	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk("   \n\n  "))
}

func TestChunk_SingleSmallSection(t *testing.T) {
	c := testChunker(t, smallConfig())
	doc := "# Guide\n\n## Setup\n" + words(20)

	chunks := c.Chunk(doc)

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.True(t, strings.HasPrefix(chunks[0].Text, "# Guide\n## Setup"))
	assert.Equal(t, chunks[0].TokenCount, wordCounter{}.Count(chunks[0].Text))
}

func TestChunk_TinySectionBufferedThenMergedWithNext(t *testing.T) {
	c := testChunker(t, smallConfig())
	// "## A" alone is below MinTokens; it must not be emitted standalone.
	doc := "## A\ntiny\n\n## B\n" + words(20)

	chunks := c.Chunk(doc)

	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "tiny")
	assert.Contains(t, chunks[0].Text, "## B")
}

func TestChunk_TrailingSmallSectionNeverDropped(t *testing.T) {
	c := testChunker(t, smallConfig())
	doc := "## A\n" + words(20) + "\n\n## Z\ntiny trailer"

	chunks := c.Chunk(doc)

	var all strings.Builder
	for _, ch := range chunks {
		all.WriteString(ch.Text)
		all.WriteString("\n")
	}
	assert.Contains(t, all.String(), "tiny trailer")
}

func TestChunk_OversizedSectionSplitsWithHeaderPrefix(t *testing.T) {
	c := testChunker(t, DefaultConfig())
	doc := "# Title\n\n## A\nshort\n\n## B\n" + strings.Repeat("word ", 2000)

	chunks := c.Chunk(doc)

	require.GreaterOrEqual(t, len(chunks), 2)

	// Section A is too small to stand alone; its buffered content merges into
	// the first chunk produced by splitting section B.
	assert.Contains(t, chunks[0].Text, "## A")
	assert.Contains(t, chunks[0].Text, "short")
	assert.Contains(t, chunks[0].Text, "## B")

	for _, ch := range chunks[1:] {
		assert.True(t, strings.HasPrefix(ch.Text, "# Title\n## B"),
			"chunk %d must carry the context header", ch.Index)
	}

	limit := int(float64(DefaultConfig().MaxTokens) * overflowTolerance)
	for _, ch := range chunks {
		assert.LessOrEqual(t, ch.TokenCount, limit, "chunk %d exceeds budget", ch.Index)
	}
}

func TestChunk_ContiguousIndices(t *testing.T) {
	c := testChunker(t, smallConfig())
	doc := "# Doc\n\n## One\n" + words(20) + "\n\n## Two\n" + words(20) + "\n\n## Pricing\n\n" +
		"| Plan | Price |\n| --- | --- |\n| Basic | $10 |\n| Pro | $20 |\n"

	chunks := c.Chunk(doc)

	require.NotEmpty(t, chunks)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}

func TestChunk_CompletenessNoParagraphDropped(t *testing.T) {
	c := testChunker(t, smallConfig())
	paragraphs := []string{
		"alpha bravo charlie delta echo foxtrot golf hotel",
		"india juliett kilo lima mike november oscar papa",
		"quebec romeo sierra tango uniform victor whiskey xray",
	}
	doc := "## Letters\n" + strings.Join(paragraphs, "\n\n")

	chunks := c.Chunk(doc)

	var all strings.Builder
	for _, ch := range chunks {
		all.WriteString(ch.Text)
		all.WriteString("\n")
	}
	for _, p := range paragraphs {
		assert.Contains(t, all.String(), p)
	}
}

func TestSplitOversizedParagraph_PrefersSentenceBoundaries(t *testing.T) {
	c := testChunker(t, smallConfig())
	sentence := words(20) + "."
	para := strings.Join([]string{sentence, sentence, sentence, sentence}, " ")

	pieces := c.splitOversizedParagraph(para)

	require.GreaterOrEqual(t, len(pieces), 2)
	for _, p := range pieces {
		assert.LessOrEqual(t, wordCounter{}.Count(p), c.cfg.TargetTokens)
	}
}
