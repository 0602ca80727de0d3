// Package scanner walks a project directory and yields the files eligible
// for indexing: a lazy, restartable, deterministic depth-first traversal
// filtered by extension allow-list, ignore patterns, and a size cap.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/aman-cerp/codesearch/pkg/scanner/gitignore"
)

// DefaultMaxFileSize is the size cap applied when Options.MaxFileSize is zero.
const DefaultMaxFileSize = 1 * 1024 * 1024 // 1 MiB

// DefaultIgnorePatterns are always active, on top of anything the caller
// supplies in Options.IgnorePatterns.
var DefaultIgnorePatterns = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/.venv/**",
	"**/venv/**",
	"**/__pycache__/**",
	"**/.mypy_cache/**",
	"**/.pytest_cache/**",
	"**/dist/**",
	"**/build/**",
	"**/target/**",
	"**/.next/**",
	"**/.nuxt/**",
	"**/.idea/**",
	"**/.vscode/**",
	"**/*.lock",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
	"**/*.min.js",
	"**/*.min.css",
	"*.exe",
	"*.dll",
	"*.so",
	"*.dylib",
	"*.a",
	"*.o",
	"*.class",
	"*.pyc",
	"*.jpg",
	"*.jpeg",
	"*.png",
	"*.gif",
	"*.bmp",
	"*.ico",
	"*.pdf",
	"*.zip",
	"*.tar",
	"*.gz",
	"*.7z",
	"*.bin",
}

// Entry is a single discovered file, identified both by its absolute
// filesystem path and by its path relative to the walk's root.
type Entry struct {
	AbsPath string
	RelPath string
}

// Options configures a Walker.
type Options struct {
	// Extensions restricts output to files whose extension (including the
	// leading dot, e.g. ".go") appears in this list. A nil or empty list
	// means no extension filtering is applied.
	Extensions []string

	// IgnorePatterns is an ordered list of gitignore-style glob patterns,
	// applied after DefaultIgnorePatterns and in addition to them.
	IgnorePatterns []string

	// MaxFileSize caps the size, in bytes, of files that are yielded.
	// Files over the cap are skipped with a WARN log. Zero means
	// DefaultMaxFileSize.
	MaxFileSize int64
}

// Walker performs a deterministic, depth-first traversal of a root directory.
type Walker struct {
	root    string
	opts    Options
	matcher *gitignore.Matcher
	extSet  map[string]struct{}
}

// New builds a Walker rooted at root. The root must exist and be a directory.
func New(root string, opts Options) (*Walker, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("scanner: resolving root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("scanner: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scanner: root is not a directory: %s", absRoot)
	}

	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}

	matcher := gitignore.New()
	matcher.AddPatterns(DefaultIgnorePatterns)
	matcher.AddPatterns(opts.IgnorePatterns)

	var extSet map[string]struct{}
	if len(opts.Extensions) > 0 {
		extSet = make(map[string]struct{}, len(opts.Extensions))
		for _, e := range opts.Extensions {
			extSet[e] = struct{}{}
		}
	}

	return &Walker{root: absRoot, opts: opts, matcher: matcher, extSet: extSet}, nil
}

// Walk performs one full, independent traversal and streams results on the
// returned channel. The channel is closed when the walk finishes, whether
// it ran to completion or was cut short by ctx cancellation. Calling Walk
// again starts a brand new traversal from scratch — the Walker carries no
// state between calls, so a walk can always be restarted.
func (w *Walker) Walk(ctx context.Context) <-chan Entry {
	out := make(chan Entry)
	go func() {
		defer close(out)
		var ancestors []visitKey
		if key, ok := dirKey(w.root); ok {
			ancestors = append(ancestors, key)
		}
		w.walkDir(ctx, w.root, ancestors, out)
	}()
	return out
}

// visitKey identifies a directory by device+inode. walkDir carries the
// chain of keys from the walk root down to the current directory so a
// symlink that points back at one of its own ancestors is recognized as a
// cycle and skipped, without suppressing legitimate sibling paths that
// happen to resolve to the same directory.
type visitKey struct {
	dev uint64
	ino uint64
}

func (w *Walker) walkDir(ctx context.Context, dir string, ancestors []visitKey, out chan<- Entry) {
	select {
	case <-ctx.Done():
		return
	default:
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("scanner: cannot read directory", slog.String("path", dir), slog.String("error", err.Error()))
		return
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, de := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}

		absPath := filepath.Join(dir, de.Name())
		relPath, err := filepath.Rel(w.root, absPath)
		if err != nil {
			slog.Warn("scanner: cannot relativize path", slog.String("path", absPath), slog.String("error", err.Error()))
			continue
		}

		isDir := de.IsDir()
		isSymlink := de.Type()&fs.ModeSymlink != 0

		if isSymlink {
			target, err := os.Stat(absPath)
			if err != nil {
				slog.Warn("scanner: unresolvable symlink", slog.String("path", absPath), slog.String("error", err.Error()))
				continue
			}
			isDir = target.IsDir()
		}

		if w.matcher.Match(relPath, isDir) {
			continue
		}

		if isDir {
			next := ancestors
			if key, ok := dirKey(absPath); ok {
				cyclic := false
				for _, a := range ancestors {
					if a == key {
						cyclic = true
						break
					}
				}
				if cyclic {
					continue // symlink points back at an ancestor directory
				}
				next = append(append([]visitKey(nil), ancestors...), key)
			}
			w.walkDir(ctx, absPath, next, out)
			continue
		}

		w.emitFile(absPath, relPath, de, out, ctx)
	}
}

func (w *Walker) emitFile(absPath, relPath string, de fs.DirEntry, out chan<- Entry, ctx context.Context) {
	if w.extSet != nil {
		if _, ok := w.extSet[filepath.Ext(relPath)]; !ok {
			return
		}
	}

	info, err := de.Info()
	if err != nil {
		slog.Warn("scanner: cannot stat file", slog.String("path", absPath), slog.String("error", err.Error()))
		return
	}
	if de.Type()&fs.ModeSymlink != 0 {
		info, err = os.Stat(absPath)
		if err != nil {
			slog.Warn("scanner: cannot stat symlink target", slog.String("path", absPath), slog.String("error", err.Error()))
			return
		}
	}

	if info.Size() > w.opts.MaxFileSize {
		slog.Warn("scanner: file exceeds size cap, skipping",
			slog.String("path", absPath), slog.Int64("size", info.Size()), slog.Int64("cap", w.opts.MaxFileSize))
		return
	}

	select {
	case out <- Entry{AbsPath: absPath, RelPath: relPath}:
	case <-ctx.Done():
	}
}
