package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmapVectorCache_AppendAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code.vec")

	c, err := OpenMmapVectorCache(path, 3)
	require.NoError(t, err)
	defer c.Close()

	idx0, err := c.Append([]float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), idx0)

	idx1, err := c.Append([]float32{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), idx1)

	assert.Equal(t, uint64(2), c.Count())

	v0, err := c.Get(idx0)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, v0)

	v1, err := c.Get(idx1)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5, 6}, v1)
}

func TestMmapVectorCache_DimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code.vec")

	c, err := OpenMmapVectorCache(path, 3)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Append([]float32{1, 2})
	assert.Error(t, err)
}

func TestMmapVectorCache_GetOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code.vec")

	c, err := OpenMmapVectorCache(path, 2)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Append([]float32{1, 2})
	require.NoError(t, err)

	_, err = c.Get(1)
	assert.Error(t, err)
}

func TestMmapVectorCache_GrowsPastInitialCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code.vec")

	c, err := OpenMmapVectorCache(path, 4)
	require.NoError(t, err)
	defer c.Close()

	for i := 0; i < 200; i++ {
		_, err := c.Append([]float32{float32(i), float32(i + 1), float32(i + 2), float32(i + 3)})
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(200), c.Count())

	v, err := c.Get(150)
	require.NoError(t, err)
	assert.Equal(t, []float32{150, 151, 152, 153}, v)
}

func TestMmapVectorCache_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code.vec")

	c1, err := OpenMmapVectorCache(path, 3)
	require.NoError(t, err)
	_, err = c1.Append([]float32{1, 2, 3})
	require.NoError(t, err)
	_, err = c1.Append([]float32{4, 5, 6})
	require.NoError(t, err)
	require.NoError(t, c1.Close())

	c2, err := OpenMmapVectorCache(path, 3)
	require.NoError(t, err)
	defer c2.Close()

	assert.Equal(t, uint64(2), c2.Count())
	v, err := c2.Get(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5, 6}, v)
}

func TestMmapVectorCache_RejectsDimensionChangeOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code.vec")

	c1, err := OpenMmapVectorCache(path, 3)
	require.NoError(t, err)
	require.NoError(t, c1.Close())

	_, err = OpenMmapVectorCache(path, 4)
	assert.Error(t, err)
}

func TestHNSWStore_MmapCacheDir_MirrorsInsertedVectors(t *testing.T) {
	ctx := context.Background()
	cacheDir := t.TempDir()

	cfg := testConfig()
	cfg.MmapCacheDir = cacheDir
	s := NewHNSWStore(cfg)

	require.NoError(t, s.CreateCollection(ctx, "code", 3))
	require.NoError(t, s.Insert(ctx, "code", []Document{
		doc("a", []float32{1, 0, 0}),
		doc("b", []float32{0, 1, 0}),
	}))

	col := s.collections["code"]
	require.NotNil(t, col.vecCache)
	assert.Equal(t, uint64(2), col.vecCache.Count())

	require.NoError(t, s.DropCollection(ctx, "code"))
	assert.NoFileExists(t, filepath.Join(cacheDir, "code.vec"))
}

func TestNewPersistentHNSWStore_MmapCacheDir_DoesNotDoubleCountAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "docs.db")
	cacheDir := t.TempDir()

	cfg := testConfig()
	cfg.MmapCacheDir = cacheDir

	s1, err := NewPersistentHNSWStore(cfg, dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.CreateCollection(ctx, "code", 3))
	require.NoError(t, s1.Insert(ctx, "code", []Document{
		doc("a", []float32{1, 0, 0}),
		doc("b", []float32{0, 1, 0}),
	}))
	require.NoError(t, s1.Close())

	s2, err := NewPersistentHNSWStore(cfg, dbPath)
	require.NoError(t, err)
	defer s2.Close()

	col := s2.collections["code"]
	require.NotNil(t, col.vecCache)
	assert.Equal(t, uint64(2), col.vecCache.Count(), "rehydrating a second time must not duplicate cache entries")
}
