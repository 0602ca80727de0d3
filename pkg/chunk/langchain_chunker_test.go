package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBySize_RespectsChunkSize(t *testing.T) {
	text := strings.Repeat("word ", 400) // 2000 chars
	spans := splitBySize(text, 300, 50)

	require.NotEmpty(t, spans)
	for _, s := range spans {
		assert.LessOrEqual(t, s.End-s.Start, 300)
	}
}

func TestSplitBySize_AdjacentChunksShareExactOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 50) // 500 chars, no natural separators
	spans := splitBySize(text, 100, 20)

	require.Greater(t, len(spans), 1)
	for i := 1; i < len(spans); i++ {
		assert.Equal(t, spans[i-1].End-20, spans[i].Start, "chunk %d should start exactly chunk_overlap before the previous chunk's end", i)
	}
}

func TestSplitBySize_PrefersParagraphBreaks(t *testing.T) {
	text := "first paragraph here.\n\nsecond paragraph here.\n\nthird paragraph here."
	spans := splitBySize(text, 30, 0)

	require.NotEmpty(t, spans)
	for _, s := range spans {
		assert.LessOrEqual(t, s.End-s.Start, 30)
	}
}

func TestSplitBySize_EmptyTextReturnsNoSpans(t *testing.T) {
	assert.Empty(t, splitBySize("", 100, 20))
}

func TestSplitBySize_TextUnderChunkSizeReturnsOneSpan(t *testing.T) {
	spans := splitBySize("short text", 1000, 200)
	require.Len(t, spans, 1)
	assert.Equal(t, textSpan{0, len("short text")}, spans[0])
}

func TestChunkLangchainFile_LineNumbersAreStable(t *testing.T) {
	source := "line one\nline two\nline three\nline four\nline five\n"
	chunks := chunkLangchainFile(&FileInput{Path: "f.txt", Content: []byte(source)}, Options{ChunkSize: 15, ChunkOverlap: 5}, "")

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.GreaterOrEqual(t, c.EndLine, c.StartLine)
	}
}

func TestChunkLangchainFile_NormalizesCRLF(t *testing.T) {
	source := "line one\r\nline two\r\nline three\r\n"
	chunks := chunkLangchainFile(&FileInput{Path: "f.txt", Content: []byte(source)}, Options{ChunkSize: 1000, ChunkOverlap: 0}, "")

	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0].Content, "\r")
}
