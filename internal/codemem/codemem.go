// Package codemem provides the storage backends for translated code
// buffers.
package codemem

import (
	"errors"
	"sync"
)

// ErrOutOfMemory is returned when an allocator cannot satisfy a request.
var ErrOutOfMemory = errors.New("codemem: out of memory")

// Allocator hands out and reclaims code buffers. The translator grows a
// buffer with Realloc while emitting and shrinks it once a block is
// complete; the returned slice's length is the requested size.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Realloc(buf []byte, size int) ([]byte, error)
	Free(buf []byte)
}

// Heap allocates code buffers from the Go heap.
type Heap struct{}

func (Heap) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, ErrOutOfMemory
	}
	return make([]byte, size), nil
}

func (Heap) Realloc(buf []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, ErrOutOfMemory
	}
	if size <= cap(buf) {
		if size < len(buf)/2 {
			// Release most of the slack once a block is finished.
			nb := make([]byte, size)
			copy(nb, buf)
			return nb, nil
		}
		return buf[:size], nil
	}
	nb := make([]byte, size)
	copy(nb, buf)
	return nb, nil
}

func (Heap) Free([]byte) {}

// Limited caps the total bytes outstanding from the wrapped allocator.
// Requests that would exceed Max fail with ErrOutOfMemory.
type Limited struct {
	Allocator Allocator
	Max       int

	mu   sync.Mutex
	used int
}

func (l *Limited) Alloc(size int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.used+size > l.Max {
		return nil, ErrOutOfMemory
	}
	buf, err := l.Allocator.Alloc(size)
	if err != nil {
		return nil, err
	}
	l.used += len(buf)
	return buf, nil
}

func (l *Limited) Realloc(buf []byte, size int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.used-len(buf)+size > l.Max {
		return nil, ErrOutOfMemory
	}
	old := len(buf)
	nb, err := l.Allocator.Realloc(buf, size)
	if err != nil {
		return nil, err
	}
	l.used += len(nb) - old
	return nb, nil
}

func (l *Limited) Free(buf []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.used -= len(buf)
	l.Allocator.Free(buf)
}

// Used returns the bytes currently outstanding.
func (l *Limited) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}
