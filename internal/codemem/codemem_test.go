package codemem

import (
	"errors"
	"testing"
)

func TestHeap(t *testing.T) {
	var h Heap
	buf, err := h.Alloc(64)
	if err != nil || len(buf) != 64 {
		t.Fatalf("Alloc(64) = %d bytes, %v", len(buf), err)
	}
	buf[0], buf[63] = 0xAA, 0x55

	grown, err := h.Realloc(buf, 256)
	if err != nil || len(grown) != 256 {
		t.Fatalf("Realloc(256) = %d bytes, %v", len(grown), err)
	}
	if grown[0] != 0xAA || grown[63] != 0x55 {
		t.Error("Realloc lost contents")
	}

	shrunk, err := h.Realloc(grown, 10)
	if err != nil || len(shrunk) != 10 || shrunk[0] != 0xAA {
		t.Fatalf("Realloc(10) = %v, %v", shrunk, err)
	}
	if cap(shrunk) >= 128 {
		t.Errorf("shrinking kept %d bytes of capacity", cap(shrunk))
	}

	if _, err := h.Alloc(-1); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("Alloc(-1) err = %v, want ErrOutOfMemory", err)
	}
	h.Free(shrunk)
}

func TestLimited(t *testing.T) {
	l := &Limited{Allocator: Heap{}, Max: 100}

	a, err := l.Alloc(60)
	if err != nil {
		t.Fatalf("Alloc(60): %v", err)
	}
	if _, err := l.Alloc(50); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("Alloc past Max err = %v, want ErrOutOfMemory", err)
	}
	if l.Used() != 60 {
		t.Errorf("Used() = %d, want 60", l.Used())
	}

	a, err = l.Realloc(a, 90)
	if err != nil {
		t.Fatalf("Realloc(90): %v", err)
	}
	if l.Used() != 90 {
		t.Errorf("Used() = %d, want 90", l.Used())
	}
	if _, err := l.Realloc(a, 101); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("Realloc past Max err = %v, want ErrOutOfMemory", err)
	}

	l.Free(a)
	if l.Used() != 0 {
		t.Errorf("Used() after Free = %d, want 0", l.Used())
	}
	if _, err := l.Alloc(100); err != nil {
		t.Errorf("Alloc(Max) after Free: %v", err)
	}
}

func TestMmap(t *testing.T) {
	m, err := NewMmap()
	if err != nil {
		t.Skipf("mmap allocator unavailable: %v", err)
	}

	buf, err := m.Alloc(100)
	if err != nil {
		t.Fatalf("Alloc(100): %v", err)
	}
	if len(buf) != 100 || cap(buf) < 100 {
		t.Fatalf("Alloc(100) len=%d cap=%d", len(buf), cap(buf))
	}
	for i := range buf {
		buf[i] = byte(i)
	}
	if bytes, regions := m.Mapped(); regions != 1 || bytes != cap(buf) {
		t.Errorf("Mapped() = %d, %d; want %d, 1", bytes, regions, cap(buf))
	}

	big, err := m.Realloc(buf, cap(buf)+1)
	if err != nil {
		t.Fatalf("Realloc: %v", err)
	}
	for i := 0; i < 100; i++ {
		if big[i] != byte(i) {
			t.Fatalf("Realloc lost byte %d", i)
		}
	}
	if _, regions := m.Mapped(); regions != 1 {
		t.Errorf("regions after Realloc = %d, want 1", regions)
	}

	m.Free(big)
	if bytes, regions := m.Mapped(); bytes != 0 || regions != 0 {
		t.Errorf("Mapped() after Free = %d, %d; want 0, 0", bytes, regions)
	}
}

func TestMmapFreeForeignBuffer(t *testing.T) {
	m, err := NewMmap()
	if err != nil {
		t.Skipf("mmap allocator unavailable: %v", err)
	}
	buf, err := m.Alloc(16)
	if err != nil {
		t.Fatalf("Alloc(16): %v", err)
	}
	defer m.Free(buf)

	m.Free(make([]byte, 64))

	n, ferr := m.FreeErrors()
	if n != 1 || ferr == nil {
		t.Errorf("FreeErrors() = %d, %v; want one failure", n, ferr)
	}
	if bytes, regions := m.Mapped(); bytes != cap(buf) || regions != 1 {
		t.Errorf("Mapped() = %d, %d; want %d, 1", bytes, regions, cap(buf))
	}
}
