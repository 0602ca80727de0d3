package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-cerp/codesearch/internal/canon"
)

func TestStore_Load_ReturnsEmptyMapOnFirstUse(t *testing.T) {
	dir := t.TempDir()
	root := t.TempDir()
	store := NewStore(dir)

	files, err := store.Load(root)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestStore_SaveThenLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	root := t.TempDir()
	store := NewStore(dir)

	want := map[string]string{
		"a.go": "deadbeef",
		"b.go": "cafebabe",
	}
	require.NoError(t, store.Save(root, want))

	got, err := store.Load(root)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_Save_WritesAtomically(t *testing.T) {
	dir := t.TempDir()
	root := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, store.Save(root, map[string]string{"a.go": "111"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "no leftover temp file should remain after a successful save")
	}

	require.NoError(t, store.Save(root, map[string]string{"a.go": "222"}))
	got, err := store.Load(root)
	require.NoError(t, err)
	assert.Equal(t, "222", got["a.go"])
}

func TestStore_Save_SameRootDifferentSpellingsShareOneFile(t *testing.T) {
	dir := t.TempDir()
	root := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, store.Save(root, map[string]string{"a.go": "111"}))

	relativeSpelling := filepath.Join(root, ".")
	got, err := store.Load(relativeSpelling)
	require.NoError(t, err)
	assert.Equal(t, "111", got["a.go"])
}

func TestStore_Load_RejectsCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	root := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, store.Save(root, map[string]string{"a.go": "111"}))
	canonicalRoot, err := canon.Root(root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.pathFor(canonicalRoot), []byte("not json"), 0o644))

	_, err = store.Load(root)
	require.Error(t, err)
}
