// Package status implements the in-process source of truth for
// per-codebase indexing lifecycle state, with an optional disk-backed
// shadow for crash recovery.
package status

import (
	"log/slog"
	"sync"

	"github.com/aman-cerp/codesearch/internal/canon"
)

// Registry tracks CodebaseEntry state per canonicalised root. All reads
// are served from memory; disk (when configured) is only used to
// hydrate at construction and to durably record transitions after the
// fact.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]CodebaseEntry
	disk    *diskShadow
}

// NewRegistry returns an empty, disk-less Registry. Entries live only for
// the life of the process.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]CodebaseEntry)}
}

// NewRegistryWithDisk returns a Registry backed by a bbolt database at
// dbPath, hydrated from any entries already persisted there.
func NewRegistryWithDisk(dbPath string) (*Registry, error) {
	disk, err := openDiskShadow(dbPath)
	if err != nil {
		return nil, err
	}

	entries, err := disk.loadAll()
	if err != nil {
		disk.Close()
		return nil, err
	}

	return &Registry{entries: entries, disk: disk}, nil
}

// Close releases the disk shadow, if any.
func (r *Registry) Close() error {
	if r.disk == nil {
		return nil
	}
	return r.disk.Close()
}

// Get returns root's current entry. The zero CodebaseEntry and false are
// returned when root has no tracked state (the "(absent)" state).
func (r *Registry) Get(root string) (CodebaseEntry, bool, error) {
	canonicalRoot, err := canon.Root(root)
	if err != nil {
		return CodebaseEntry{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[canonicalRoot]
	return entry, ok, nil
}

// Start transitions root from (absent) to Indexing{0}.
func (r *Registry) Start(root string) error {
	return r.setAndPersist(root, CodebaseEntry{Kind: KindIndexing, Progress: 0})
}

// Progress updates an in-progress root's percentage. pct is clamped to
// [0, 100].
func (r *Registry) Progress(root string, pct float64) error {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return r.setAndPersist(root, CodebaseEntry{Kind: KindIndexing, Progress: pct})
}

// SetIndexed transitions root to Indexed{files, chunks, status}. This is
// the state transition the race-fix rule in spec §4.5 is about: the
// in-memory map is updated before this call returns, so any concurrent
// Get sees the new state immediately regardless of how long the
// asynchronous disk write (below) takes.
func (r *Registry) SetIndexed(root string, files, chunks int, completionStatus string) error {
	return r.setAndPersist(root, CodebaseEntry{
		Kind:             KindIndexed,
		Files:            files,
		Chunks:           chunks,
		CompletionStatus: completionStatus,
	})
}

// SetFailed transitions root to IndexFailed{msg, last_pct}.
func (r *Registry) SetFailed(root string, message string, lastAttemptedPercentage float64) error {
	return r.setAndPersist(root, CodebaseEntry{
		Kind:                    KindIndexFailed,
		ErrorMessage:            message,
		LastAttemptedPercentage: lastAttemptedPercentage,
	})
}

// ForceReindex transitions root to Indexing{0} regardless of its current
// state (Indexed or IndexFailed).
func (r *Registry) ForceReindex(root string) error {
	return r.Start(root)
}

// Clear removes root's entry entirely, returning it to (absent).
func (r *Registry) Clear(root string) error {
	canonicalRoot, err := canon.Root(root)
	if err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.entries, canonicalRoot)
	r.mu.Unlock()

	if r.disk != nil {
		go func() {
			if err := r.disk.delete(canonicalRoot); err != nil {
				slog.Warn("status: failed to persist clear", slog.String("root", canonicalRoot), slog.String("error", err.Error()))
			}
		}()
	}
	return nil
}

// setAndPersist updates the in-memory entry for root synchronously, then
// fires off an asynchronous, best-effort disk write. The in-memory
// update is what callers observe; disk persistence failing never blocks
// or fails the caller, per spec §4.5.
func (r *Registry) setAndPersist(root string, entry CodebaseEntry) error {
	canonicalRoot, err := canon.Root(root)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.entries[canonicalRoot] = entry
	r.mu.Unlock()

	if r.disk != nil {
		go func() {
			if err := r.disk.save(canonicalRoot, entry); err != nil {
				slog.Warn("status: failed to persist transition", slog.String("root", canonicalRoot), slog.String("error", err.Error()))
			}
		}()
	}
	return nil
}
