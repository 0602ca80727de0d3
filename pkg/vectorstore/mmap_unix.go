//go:build !windows

package vectorstore

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapHandle wraps the memory-mapped region backing an MmapVectorCache.
// Grounded on AlexC1991-VoxAI_IDE's internal/storage/mmap_unix.go, ported
// from raw syscall.Mmap/Munmap to golang.org/x/sys/unix for the wider
// platform coverage (and newer syscall numbers) x/sys tracks that the
// frozen syscall package no longer gets.
type mmapHandle struct {
	data []byte
}

func (m *mmapHandle) open(f *os.File, size int64) error {
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return err
	}
	m.data = data
	return nil
}

func (m *mmapHandle) close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}

func (m *mmapHandle) bytes() []byte {
	return m.data
}
