package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkFixedOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 10) // 100 runes
	c := New()

	chunks := c.Chunk(text, ChunkOptions{ChunkSize: 40, ChunkOverlap: 10, Strategy: "fixed"})
	require.NotEmpty(t, chunks)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Content), 40)
	}

	// Consecutive chunks share the overlap tail.
	first := []rune(chunks[0].Content)
	second := []rune(chunks[1].Content)
	assert.Equal(t, string(first[len(first)-10:]), string(second[:10]))
}

func TestChunkFixedEmptyInput(t *testing.T) {
	c := New()
	assert.Empty(t, c.Chunk("", DefaultOptions()))
	assert.Empty(t, c.Chunk("   \n\t  ", ChunkOptions{ChunkSize: 10, Strategy: "fixed"}))
}

func TestChunkRecursivePrefersParagraphs(t *testing.T) {
	text := "First paragraph with some words.\n\nSecond paragraph with more words.\n\nThird one."
	c := New()

	chunks := c.Chunk(text, ChunkOptions{ChunkSize: 40, Strategy: "recursive"})
	require.NotEmpty(t, chunks)

	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Content), 40)
		assert.NotEmpty(t, strings.TrimSpace(ch.Content))
	}
	assert.Equal(t, "First paragraph with some words.", chunks[0].Content)
}

func TestChunkRecursiveCarriesOverlap(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog near the river bank today. ", 200)
	c := New()

	chunks := c.Chunk(text, ChunkOptions{ChunkSize: 1000, ChunkOverlap: 200, Strategy: "recursive"})
	require.GreaterOrEqual(t, len(chunks), 2)

	// Each chunk after the first starts with the 200-rune tail of its
	// predecessor.
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Content)
		require.Greater(t, len(prev), 200)
		tail := string(prev[len(prev)-200:])
		assert.True(t, strings.HasPrefix(chunks[i].Content, tail),
			"chunk %d does not start with the overlap tail of chunk %d", i, i-1)
	}
}

func TestChunkRecursiveNoOverlapWhenDisabled(t *testing.T) {
	text := strings.Repeat("Plain words keep flowing without any stop. ", 60)
	c := New()

	chunks := c.Chunk(text, ChunkOptions{ChunkSize: 300, ChunkOverlap: 0, Strategy: "recursive"})
	require.GreaterOrEqual(t, len(chunks), 2)

	first := []rune(chunks[0].Content)
	tail := string(first[len(first)-50:])
	assert.False(t, strings.HasPrefix(chunks[1].Content, tail))
}

func TestChunkRecursiveSmallInputSingleChunk(t *testing.T) {
	c := New()
	chunks := c.Chunk("tiny", DefaultOptions())
	require.Len(t, chunks, 1)
	assert.Equal(t, "tiny", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestChunkSentenceKeepsBoundaries(t *testing.T) {
	text := "One sentence here. Another sentence follows. A third sentence ends it."
	c := New()

	chunks := c.Chunk(text, ChunkOptions{ChunkSize: 30, ChunkOverlap: 0, Strategy: "sentence"})
	require.GreaterOrEqual(t, len(chunks), 2)

	for _, ch := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(ch.Content))
	}
}

func TestChunkDefaultsAppliedForBadOptions(t *testing.T) {
	c := New()
	text := strings.Repeat("word ", 500)

	// overlap >= size must not loop forever
	chunks := c.Chunk(text, ChunkOptions{ChunkSize: 50, ChunkOverlap: 50, Strategy: "fixed"})
	assert.NotEmpty(t, chunks)
}
