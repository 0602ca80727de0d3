package indexer

import (
	"context"
	"log/slog"
	"time"

	"github.com/aman-cerp/codesearch/pkg/embed"
)

// stagedChunk pairs a chunk's content with the metadata needed to build a
// vectorstore.Document once it has been embedded.
type stagedChunk struct {
	relPath  string
	content  string
	ext      string
	metadata string
	start    int
	end      int
	fileIdx  int
}

// embedWithFallback embeds texts as one batch; if the batch fails (the
// client's own retry policy, §4.9, is already exhausted by the time
// EmbedBatch returns an error), it falls back to embedding one chunk at a
// time, pausing PerItemFallbackDelay between calls. A chunk that still
// fails is skipped with a WARN rather than failing the whole run (§4.6
// step 7). The returned slice is the same length as texts; a skipped
// index holds a nil vector.
func embedWithFallback(ctx context.Context, client embed.Client, texts []string, delay time.Duration) ([][]float32, error) {
	vecs, err := client.EmbedBatch(ctx, texts)
	if err == nil {
		return vecs, nil
	}

	slog.Warn("indexer: batch embedding failed, falling back to per-item embedding",
		slog.Int("batch_size", len(texts)), slog.String("error", err.Error()))

	vecs = make([][]float32, len(texts))
	for i, text := range texts {
		if i > 0 {
			if werr := sleepOrCancel(ctx, delay); werr != nil {
				return nil, werr
			}
		}
		vec, itemErr := client.Embed(ctx, text)
		if itemErr != nil {
			slog.Warn("indexer: skipping chunk after embedding failure",
				slog.Int("index", i), slog.String("error", itemErr.Error()))
			continue
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func sleepOrCancel(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return checkCancelled(ctx)
	}
}
