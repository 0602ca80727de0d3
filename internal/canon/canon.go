// Package canon canonicalises codebase root paths so that snapshot
// lookup, collection naming, and the per-root write mutex all key off the
// same representation regardless of how the caller spelled the path.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// Root resolves path to an absolute, symlink-resolved form. Two different
// spellings of the same directory (relative vs absolute, through a
// symlink or not) canonicalise to the same string.
func Root(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// CollectionName derives the deterministic collection name
// `code_chunks_<hex16(sha256(canonicalRoot))>` from an already-canonicalised
// root.
func CollectionName(canonicalRoot string) string {
	sum := sha256.Sum256([]byte(canonicalRoot))
	return "code_chunks_" + hex.EncodeToString(sum[:])[:16]
}
