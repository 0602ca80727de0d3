// Package embed provides the embedding-client contract (spec §4.9) and
// adapters over Ollama, OpenAI, and a deterministic offline fallback,
// plus a retry policy and an LRU caching wrapper shared by all of them.
package embed

import "context"

// Client generates vector embeddings for text.
type Client interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. The result
	// preserves input order: EmbedBatch(t)[i] corresponds to t[i].
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding dimension this client produces.
	Dimension() int

	// Close releases any resources (connections, file handles) held by
	// the client.
	Close() error
}

// PreprocessText replaces empty or whitespace-only input with a single
// space, per spec §4.9, so a provider never receives an empty string.
func PreprocessText(text string) string {
	for _, r := range text {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return text
		}
	}
	return " "
}
