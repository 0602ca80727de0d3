//go:build windows

package vectorstore

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// mmapHandle is the Windows counterpart of mmap_unix.go's, grounded on
// AlexC1991-VoxAI_IDE's internal/storage/mmap_windows.go but built on
// golang.org/x/sys/windows's CreateFileMapping/MapViewOfFile rather than
// the raw syscall package.
type mmapHandle struct {
	data       []byte
	mapHandle  windows.Handle
	viewHandle uintptr
}

func (m *mmapHandle) open(f *os.File, size int64) error {
	hi := uint32(uint64(size) >> 32)
	lo := uint32(uint64(size) & 0xffffffff)

	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READWRITE, hi, lo, nil)
	if err != nil {
		return err
	}

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		_ = windows.CloseHandle(h)
		return err
	}

	m.mapHandle = h
	m.viewHandle = addr
	m.data = unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))
	return nil
}

func (m *mmapHandle) close() error {
	if m.viewHandle != 0 {
		_ = windows.UnmapViewOfFile(m.viewHandle)
		m.viewHandle = 0
	}
	if m.mapHandle != 0 {
		_ = windows.CloseHandle(m.mapHandle)
		m.mapHandle = 0
	}
	m.data = nil
	return nil
}

func (m *mmapHandle) bytes() []byte {
	return m.data
}
