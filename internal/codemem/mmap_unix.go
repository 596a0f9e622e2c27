//go:build unix

package codemem

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Mmap allocates each code buffer as its own anonymous private mapping,
// keeping translated code out of the garbage-collected heap. Buffers are
// rounded up to whole pages; growth within the rounded size is free.
type Mmap struct {
	mu       sync.Mutex
	pageSize int
	mapped   int
	regions  int
	freeErrs int
	freeErr  error
}

// NewMmap returns an mmap-backed allocator.
func NewMmap() (*Mmap, error) {
	return &Mmap{pageSize: os.Getpagesize()}, nil
}

func (m *Mmap) roundUp(size int) int {
	if size <= 0 {
		return m.pageSize
	}
	return (size + m.pageSize - 1) &^ (m.pageSize - 1)
}

func (m *Mmap) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, ErrOutOfMemory
	}
	n := m.roundUp(size)
	buf, err := unix.Mmap(-1, 0, n,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap code buffer of %d bytes: %w", n, err)
	}

	m.mu.Lock()
	m.mapped += n
	m.regions++
	m.mu.Unlock()

	return buf[:size], nil
}

func (m *Mmap) Realloc(buf []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, ErrOutOfMemory
	}
	if buf == nil {
		return m.Alloc(size)
	}
	if size <= cap(buf) {
		return buf[:size], nil
	}
	nb, err := m.Alloc(size)
	if err != nil {
		return nil, err
	}
	copy(nb, buf)
	m.Free(buf)
	return nb, nil
}

func (m *Mmap) Free(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	full := buf[:cap(buf)]
	err := unix.Munmap(full)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		// The region stays mapped and counted.
		m.freeErrs++
		m.freeErr = fmt.Errorf("failed to munmap code buffer of %d bytes: %w", len(full), err)
		return
	}
	m.mapped -= len(full)
	m.regions--
}

// Mapped returns the number of bytes and regions currently mapped.
func (m *Mmap) Mapped() (bytes, regions int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mapped, m.regions
}

// FreeErrors returns how many Free calls failed to unmap their buffer and
// the most recent failure.
func (m *Mmap) FreeErrors() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.freeErrs, m.freeErr
}
