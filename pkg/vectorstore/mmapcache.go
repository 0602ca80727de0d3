package vectorstore

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"
)

// mmapCacheMagic and mmapHeaderSize describe the on-disk layout of an
// MmapVectorCache file: an 8-byte magic, an 8-byte dimension, an 8-byte
// count, followed by count*dim float32s written in insertion order.
var mmapCacheMagic = [8]byte{'C', 'S', 'V', 'E', 'C', '0', '1', ' '}

const (
	mmapHeaderSize  = 24
	mmapVectorBytes = 4 // float32
)

// MmapVectorCache is an optional, append-only mirror of a collection's
// dense vectors in insertion order, memory-mapped for near-zero-copy
// reads. It sits alongside, never replaces, the sqlite-backed DocStore
// that remains this module's source of truth: HNSWStore rebuilds both
// the in-memory graph and this cache from the DocStore on every restart,
// and a caller only pays for the mapping when HNSWConfig.MmapCacheDir is
// set. Grounded on AlexC1991-VoxAI_IDE's internal/storage.MmapVectorStore,
// generalized from that store's "the file IS the vector store" design to
// a bounded write-through mirror instead.
type MmapVectorCache struct {
	mu    sync.RWMutex
	file  *os.File
	mm    mmapHandle
	dim   int
	count uint64
}

// OpenMmapVectorCache opens (creating if absent) a vector cache at path
// for vectors of dimension dim. An existing file whose stored dimension
// disagrees with dim is an error: the caller's collection was recreated
// with a different embedder and the stale cache must be discarded by the
// caller (delete the file and call OpenMmapVectorCache again) rather than
// silently reinterpreted.
func OpenMmapVectorCache(path string, dim int) (*MmapVectorCache, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vectorstore: invalid mmap cache dimension %d", dim)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: opening mmap cache %s: %w", path, err)
	}

	c := &MmapVectorCache{file: f, dim: dim}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	if info.Size() == 0 {
		if err := c.initEmpty(); err != nil {
			_ = f.Close()
			return nil, err
		}
		return c, nil
	}

	if err := c.remap(info.Size()); err != nil {
		_ = f.Close()
		return nil, err
	}

	onDiskDim, onDiskCount, err := c.readHeader()
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	if int(onDiskDim) != dim {
		_ = c.Close()
		return nil, fmt.Errorf("vectorstore: mmap cache %s has dim %d, want %d", path, onDiskDim, dim)
	}
	c.count = onDiskCount
	return c, nil
}

func (c *MmapVectorCache) initEmpty() error {
	if err := c.file.Truncate(mmapHeaderSize); err != nil {
		return err
	}
	if err := c.remap(mmapHeaderSize); err != nil {
		return err
	}
	c.writeHeader()
	return nil
}

func (c *MmapVectorCache) readHeader() (dim uint64, count uint64, err error) {
	data := c.mm.bytes()
	if len(data) < mmapHeaderSize {
		return 0, 0, fmt.Errorf("vectorstore: mmap cache truncated (%d bytes)", len(data))
	}
	var magic [8]byte
	copy(magic[:], data[:8])
	if magic != mmapCacheMagic {
		return 0, 0, fmt.Errorf("vectorstore: mmap cache has bad magic")
	}
	dim = binary.LittleEndian.Uint64(data[8:16])
	count = binary.LittleEndian.Uint64(data[16:24])
	return dim, count, nil
}

func (c *MmapVectorCache) writeHeader() {
	data := c.mm.bytes()
	copy(data[:8], mmapCacheMagic[:])
	binary.LittleEndian.PutUint64(data[8:16], uint64(c.dim))
	binary.LittleEndian.PutUint64(data[16:24], c.count)
}

func (c *MmapVectorCache) remap(size int64) error {
	if err := c.mm.close(); err != nil {
		return err
	}
	return c.mm.open(c.file, size)
}

// Append adds vector to the cache and returns its index. vector must have
// the cache's configured dimension.
func (c *MmapVectorCache) Append(vector []float32) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(vector) != c.dim {
		return 0, fmt.Errorf("vectorstore: mmap cache dimension mismatch: have %d, want %d", len(vector), c.dim)
	}

	required := int64(mmapHeaderSize) + int64(c.count+1)*int64(c.dim)*mmapVectorBytes
	if required > int64(len(c.mm.bytes())) {
		grown := int64(len(c.mm.bytes())) * 2
		if grown < required {
			grown = required
		}
		if err := c.file.Truncate(grown); err != nil {
			return 0, fmt.Errorf("vectorstore: growing mmap cache: %w", err)
		}
		if err := c.remap(grown); err != nil {
			return 0, fmt.Errorf("vectorstore: remapping mmap cache: %w", err)
		}
	}

	offset := mmapHeaderSize + int(c.count)*c.dim*mmapVectorBytes
	data := c.mm.bytes()
	for i, v := range vector {
		binary.LittleEndian.PutUint32(data[offset+i*mmapVectorBytes:], math.Float32bits(v))
	}

	c.count++
	c.writeHeader()
	return c.count - 1, nil
}

// Get returns a copy of the vector stored at index.
func (c *MmapVectorCache) Get(index uint64) ([]float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index >= c.count {
		return nil, fmt.Errorf("vectorstore: mmap cache index %d out of range (count %d)", index, c.count)
	}

	offset := mmapHeaderSize + int(index)*c.dim*mmapVectorBytes
	data := c.mm.bytes()
	vec := make([]float32, c.dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[offset+i*mmapVectorBytes:]))
	}
	return vec, nil
}

// Count returns the number of vectors currently stored.
func (c *MmapVectorCache) Count() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

// Close unmaps and closes the underlying file.
func (c *MmapVectorCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	mmErr := c.mm.close()
	fErr := c.file.Close()
	if mmErr != nil {
		return mmErr
	}
	return fErr
}
