package chunk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_Markdown_SplitsOnEveryHeadingLevel(t *testing.T) {
	source := `# Title

intro text

## Section A

content a

### Subsection

nested content

## Section B

content b
`
	chunks, err := Chunk(context.Background(), &FileInput{Path: "doc.md", Content: []byte(source)}, Options{})
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	assert.Contains(t, chunks[0].Content, "# Title")
	assert.Contains(t, chunks[1].Content, "## Section A")
	assert.Contains(t, chunks[2].Content, "### Subsection")
	assert.Contains(t, chunks[3].Content, "## Section B")

	for _, c := range chunks {
		assert.Equal(t, "markdown", c.Language)
	}
}

func TestChunk_Markdown_PreservesContentBeforeFirstHeading(t *testing.T) {
	source := "some preamble text\nmore preamble\n\n# First Heading\n\nbody\n"
	chunks, err := Chunk(context.Background(), &FileInput{Path: "doc.md", Content: []byte(source)}, Options{})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "preamble", chunks[0].NodeKind)
	assert.Contains(t, chunks[0].Content, "preamble text")
}

func TestChunk_Markdown_NoHeadingsReturnsSingleDocumentChunk(t *testing.T) {
	source := "just a plain paragraph with no headings at all.\n"
	chunks, err := Chunk(context.Background(), &FileInput{Path: "doc.md", Content: []byte(source)}, Options{})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "document", chunks[0].NodeKind)
}

func TestChunk_Markdown_EmptyFileReturnsNoChunks(t *testing.T) {
	chunks, err := Chunk(context.Background(), &FileInput{Path: "doc.md", Content: []byte("")}, Options{})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunk_MdxExtensionUsesMarkdownChunker(t *testing.T) {
	chunks, err := Chunk(context.Background(), &FileInput{Path: "doc.mdx", Content: []byte("# Heading\n\nbody\n")}, Options{})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "markdown", chunks[0].Language)
}
