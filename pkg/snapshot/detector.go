package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/aman-cerp/codesearch/pkg/scanner"
)

// DiffOptions bounds the file set a Diff considers, mirroring the caller's
// indexing configuration so change detection agrees with the walk that
// will actually be indexed.
type DiffOptions struct {
	Extensions     []string
	IgnorePatterns []string
	MaxFileSize    int64
}

// Diff is the result of comparing a codebase's current file set against a
// prior snapshot: the three delta lists plus the freshly built snapshot
// the caller should persist once the downstream operation succeeds.
type Diff struct {
	Added       []string
	Modified    []string
	Removed     []string
	NewSnapshot map[string]string
}

// Detect enumerates root's current files via the scanner, hashes each
// with SHA-256, and compares the result against prior (as returned by
// Store.Load). All three delta lists are sorted lexicographically by
// relative path.
func Detect(ctx context.Context, root string, prior map[string]string, opts DiffOptions) (Diff, error) {
	walker, err := scanner.New(root, scanner.Options{
		Extensions:     opts.Extensions,
		IgnorePatterns: opts.IgnorePatterns,
		MaxFileSize:    opts.MaxFileSize,
	})
	if err != nil {
		return Diff{}, err
	}

	current := make(map[string]string)
	for entry := range walker.Walk(ctx) {
		digest, err := hashFile(entry.AbsPath)
		if err != nil {
			return Diff{}, err
		}
		current[filepath.ToSlash(entry.RelPath)] = digest
	}

	if err := ctx.Err(); err != nil {
		return Diff{}, err
	}

	diff := Diff{NewSnapshot: current}
	for relPath, digest := range current {
		priorDigest, existed := prior[relPath]
		switch {
		case !existed:
			diff.Added = append(diff.Added, relPath)
		case priorDigest != digest:
			diff.Modified = append(diff.Modified, relPath)
		}
	}
	for relPath := range prior {
		if _, stillPresent := current[relPath]; !stillPresent {
			diff.Removed = append(diff.Removed, relPath)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Modified)
	sort.Strings(diff.Removed)

	return diff, nil
}

func hashFile(absPath string) (string, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, 64*1024)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", readErr
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
