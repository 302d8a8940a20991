package chunker

import (
	"strings"
	"unicode/utf8"
)

type Chunker interface {
	Chunk(text string, opts ChunkOptions) []TextChunk
}

type ChunkOptions struct {
	ChunkSize    int    // target chunk size in characters
	ChunkOverlap int    // overlap carried into the next chunk
	Strategy     string // "fixed", "recursive", "sentence"
}

type TextChunk struct {
	Content string
	Index   int
}

func DefaultOptions() ChunkOptions {
	return ChunkOptions{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		Strategy:     "recursive",
	}
}

type defaultChunker struct{}

func New() Chunker {
	return &defaultChunker{}
}

func (c *defaultChunker) Chunk(text string, opts ChunkOptions) []TextChunk {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1000
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = 0
	}

	switch opts.Strategy {
	case "sentence":
		return chunkBySentence(text, opts)
	case "fixed":
		return chunkFixed(text, opts)
	default:
		return chunkRecursive(text, opts)
	}
}

// chunkFixed slides a fixed-size window over the rune stream, stepping by
// ChunkSize-ChunkOverlap so consecutive chunks share a tail.
func chunkFixed(text string, opts ChunkOptions) []TextChunk {
	var chunks []TextChunk
	runes := []rune(text)
	idx := 0

	step := opts.ChunkSize - opts.ChunkOverlap
	if step <= 0 {
		step = opts.ChunkSize
	}

	for start := 0; start < len(runes); start += step {
		end := start + opts.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		content := string(runes[start:end])
		if strings.TrimSpace(content) != "" {
			chunks = append(chunks, TextChunk{Content: content, Index: idx})
			idx++
		}

		if end == len(runes) {
			break
		}
	}

	return chunks
}

// chunkRecursive splits on progressively finer separators until each piece
// fits the chunk size, carrying the overlap tail of each chunk into the next
// so neighboring chunks share context.
func chunkRecursive(text string, opts ChunkOptions) []TextChunk {
	separators := []string{"\n\n", "\n", ". ", " "}

	var chunks []TextChunk
	idx := 0
	var tail string

	for _, part := range splitRecursive(text, separators, opts.ChunkSize) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		content := part
		if tail != "" {
			content = tail + " " + part
		}
		chunks = append(chunks, TextChunk{Content: content, Index: idx})
		idx++
		tail = overlapTail(content, opts.ChunkOverlap)
	}

	return chunks
}

// overlapTail returns the last overlap runes of s, or "" when the chunk is
// too short to share a meaningful tail.
func overlapTail(s string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= overlap {
		return ""
	}
	return string(runes[len(runes)-overlap:])
}

func splitRecursive(text string, separators []string, chunkSize int) []string {
	if utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}

	if len(separators) == 0 {
		var result []string
		runes := []rune(text)
		for i := 0; i < len(runes); i += chunkSize {
			end := i + chunkSize
			if end > len(runes) {
				end = len(runes)
			}
			result = append(result, string(runes[i:end]))
		}
		return result
	}

	sep := separators[0]
	parts := strings.Split(text, sep)
	var result []string
	var current strings.Builder

	for _, part := range parts {
		if current.Len() > 0 && utf8.RuneCountInString(current.String()+sep+part) > chunkSize {
			result = append(result, splitRecursive(current.String(), separators[1:], chunkSize)...)
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(part)
	}

	if current.Len() > 0 {
		result = append(result, splitRecursive(current.String(), separators[1:], chunkSize)...)
	}

	return result
}

// chunkBySentence packs whole sentences into chunks, carrying the overlap
// tail of each chunk into the next.
func chunkBySentence(text string, opts ChunkOptions) []TextChunk {
	sentences := splitSentences(text)

	var chunks []TextChunk
	var current strings.Builder
	idx := 0

	flush := func() {
		content := strings.TrimSpace(current.String())
		if content == "" {
			return
		}
		chunks = append(chunks, TextChunk{Content: content, Index: idx})
		idx++

		if opts.ChunkOverlap > 0 {
			runes := []rune(current.String())
			if len(runes) > opts.ChunkOverlap {
				tail := string(runes[len(runes)-opts.ChunkOverlap:])
				current.Reset()
				current.WriteString(tail)
				return
			}
		}
		current.Reset()
	}

	for _, s := range sentences {
		if current.Len() > 0 && utf8.RuneCountInString(current.String()+s) > opts.ChunkSize {
			flush()
		}
		current.WriteString(s)
	}

	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, TextChunk{Content: strings.TrimSpace(current.String()), Index: idx})
	}

	return chunks
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}

	return sentences
}
