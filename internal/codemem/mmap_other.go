//go:build !unix

package codemem

import "errors"

// Mmap is unavailable on this platform.
type Mmap struct{ Heap }

// NewMmap reports that anonymous mappings are not supported here.
func NewMmap() (*Mmap, error) {
	return nil, errors.New("codemem: mmap allocator not supported on this platform")
}

// Mapped always reports zero.
func (m *Mmap) Mapped() (bytes, regions int) {
	return 0, 0
}

// FreeErrors always reports none.
func (m *Mmap) FreeErrors() (int, error) {
	return 0, nil
}
