package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHybridWatcher_DetectsFileCreation(t *testing.T) {
	root := t.TempDir()

	w, err := NewHybridWatcher(Options{DebounceWindow: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Start(ctx, root)
	}()
	defer w.Stop()

	// Give the watcher a moment to register the root directory before
	// writing, since fsnotify only reports events after Add has run.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.go"), []byte("package main\n"), 0o644))

	select {
	case batch := <-w.Events():
		require.NotEmpty(t, batch)
		var sawCreate bool
		for _, e := range batch {
			if e.Path == "new.go" {
				sawCreate = true
			}
		}
		assert.True(t, sawCreate, "expected a create event for new.go")
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for file creation event")
	}
}

func TestHybridWatcher_IgnoresDefaultExcludedPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))

	w, err := NewHybridWatcher(Options{DebounceWindow: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx, root) }()
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "pkg.json"), []byte("{}"), 0o644))

	select {
	case batch := <-w.Events():
		t.Fatalf("expected no events for ignored path, got %v", batch)
	case <-time.After(500 * time.Millisecond):
		// correct: node_modules is excluded by scanner.DefaultIgnorePatterns
	}
}

func TestHybridWatcher_ConfigFileChangeReportsOpConfigChange(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".codesearch.yaml"), []byte("version: 1\n"), 0o644))

	w, err := NewHybridWatcher(Options{DebounceWindow: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx, root) }()
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".codesearch.yaml"), []byte("version: 2\n"), 0o644))

	select {
	case batch := <-w.Events():
		require.NotEmpty(t, batch)
		assert.Equal(t, OpConfigChange, batch[0].Operation)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for config change event")
	}
}
