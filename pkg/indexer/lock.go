package indexer

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/aman-cerp/codesearch/internal/canon"
	appErrors "github.com/aman-cerp/codesearch/internal/errors"
)

// acquireRootLock takes an exclusive, cross-process advisory lock scoped
// to canonicalRoot. The StatusRegistry's Indexing check above it only
// protects against two goroutines in this process racing on the same
// root; two separate codesearch processes pointed at the same codebase
// (a CLI invocation racing a long-running server, say) would otherwise
// both pass that check and corrupt the collection between them.
func (idx *Indexer) acquireRootLock(canonicalRoot string) (*flock.Flock, error) {
	if err := os.MkdirAll(idx.cfg.LockDir, 0o755); err != nil {
		return nil, appErrors.Wrap(appErrors.KindInternal, "indexer: creating lock directory", err).WithPath(idx.cfg.LockDir)
	}

	path := filepath.Join(idx.cfg.LockDir, canon.CollectionName(canonicalRoot)+".lock")
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, appErrors.Wrap(appErrors.KindInternal, "indexer: acquiring index lock", err).WithPath(path)
	}
	if !locked {
		return nil, appErrors.New(appErrors.KindAlreadyIndexing, "indexer: another process is already indexing this codebase")
	}
	return fl, nil
}
