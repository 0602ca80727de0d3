package watcher

import (
	"context"
	"log/slog"

	"github.com/aman-cerp/codesearch/pkg/indexer"
)

// ReindexTrigger drives an incremental reindex from a Watcher's debounced
// event batches. Unlike the teacher's Coordinator, which applies each
// FileEvent individually against its own index, this module's
// Indexer.ReindexByChange already re-diffs the whole tree against its
// last snapshot — so the trigger's job is only to decide *when* to call
// it, not *what* changed. A batch of any size (including an
// OpConfigChange) collapses to a single ReindexByChange call.
type ReindexTrigger struct {
	watcher Watcher
	idx     *indexer.Indexer
	root    string

	// OnReindexed, if set, is called after each successful reindex with
	// its stats. OnError, if set, is called on a failed reindex or a
	// non-fatal watcher error.
	OnReindexed func(indexer.ReindexStats)
	OnError     func(error)
}

// NewReindexTrigger wires watcher to idx for codebase root.
func NewReindexTrigger(w Watcher, idx *indexer.Indexer, root string) *ReindexTrigger {
	return &ReindexTrigger{watcher: w, idx: idx, root: root}
}

// Run starts the watcher and blocks, triggering a ReindexByChange for
// every debounced event batch, until ctx is cancelled.
func (t *ReindexTrigger) Run(ctx context.Context) error {
	go t.drainErrors(ctx)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-t.watcher.Events():
				if !ok {
					return
				}
				t.handleBatch(ctx, batch)
			}
		}
	}()

	return t.watcher.Start(ctx, t.root)
}

func (t *ReindexTrigger) handleBatch(ctx context.Context, batch []FileEvent) {
	slog.Debug("watcher: triggering reindex", slog.Int("event_count", len(batch)))
	stats, err := t.idx.ReindexByChange(ctx, t.root, nil)
	if err != nil {
		if t.OnError != nil {
			t.OnError(err)
		}
		return
	}
	if t.OnReindexed != nil {
		t.OnReindexed(stats)
	}
}

func (t *ReindexTrigger) drainErrors(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-t.watcher.Errors():
			if !ok {
				return
			}
			if t.OnError != nil {
				t.OnError(err)
			}
		}
	}
}

// Stop stops the underlying watcher.
func (t *ReindexTrigger) Stop() error {
	return t.watcher.Stop()
}
