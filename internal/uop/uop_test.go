package uop

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func heapGrow(buf []byte, size int) ([]byte, error) {
	nb := make([]byte, size)
	copy(nb, buf)
	return nb, nil
}

func ops(t *testing.T, code []byte) []Op {
	t.Helper()
	var got []Op
	if err := Walk(code, func(_ int, op Op) { got = append(got, op) }); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	return got
}

func TestAssemblerEncoding(t *testing.T) {
	a := NewAssembler(nil, heapGrow, 16)
	a.Begin(0x001000, 0x7005)
	a.LoadImm(Dst, 5)
	a.Alu(AluMove, 4, 0x0F)
	a.StoreD(0, 4)
	a.Cycles(4)
	a.SetPC(0x001002)
	a.Exit()

	if err := a.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	code := a.Bytes()

	want := []Op{Begin, LoadImm, Alu, StoreD, Cycles, SetPC, Exit}
	if diff := cmp.Diff(want, ops(t, code)); diff != "" {
		t.Errorf("ops (-want +got):\n%s", diff)
	}

	n := 0
	for _, op := range want {
		n += op.Len()
	}
	if a.Offset() != n || len(code) != n {
		t.Errorf("Offset() = %d, len = %d, want %d", a.Offset(), len(code), n)
	}

	if pc := U32(code, 1); pc != 0x001000 {
		t.Errorf("Begin pc = %06X, want 001000", pc)
	}
	if op := U16(code, 5); op != 0x7005 {
		t.Errorf("Begin opcode = %04X, want 7005", op)
	}
	if len(a.Buffer()) < len(code) {
		t.Errorf("Buffer() shorter than Bytes()")
	}
}

func TestBranchLinkPatch(t *testing.T) {
	a := NewAssembler(make([]byte, 64), heapGrow, 64)
	at := a.Bcc(7, 0x2000, LinkNone, 8)
	target := a.Offset()
	a.Exit()
	a.Patch32(at, uint32(target))

	if got := U32(a.Bytes(), at); got != uint32(target) {
		t.Errorf("patched link = %d, want %d", got, target)
	}
	if got := U32(a.Bytes(), at-4); got != 0x2000 {
		t.Errorf("target operand = %06X, want 002000", got)
	}

	// Out-of-range patches are ignored.
	before := append([]byte(nil), a.Bytes()...)
	a.Patch32(-1, 0)
	a.Patch32(a.Offset()-2, 0)
	if diff := cmp.Diff(before, a.Bytes()); diff != "" {
		t.Errorf("out of range patch changed code:\n%s", diff)
	}
}

func TestAssemblerGrowth(t *testing.T) {
	var sizes []int
	grow := func(buf []byte, size int) ([]byte, error) {
		sizes = append(sizes, size)
		return heapGrow(buf, size)
	}
	a := NewAssembler(make([]byte, 4), grow, 8)
	for i := 0; i < 4; i++ {
		a.SetPC(uint32(i) * 2)
	}
	if err := a.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if a.Offset() != 4*SetPC.Len() {
		t.Errorf("Offset() = %d, want %d", a.Offset(), 4*SetPC.Len())
	}
	for _, s := range sizes {
		if (s-4)%8 != 0 {
			t.Errorf("grow size %d is not the initial buffer plus a multiple of 8", s)
		}
	}
}

func TestAssemblerGrowFailure(t *testing.T) {
	errFull := errors.New("full")
	a := NewAssembler(make([]byte, 8), func([]byte, int) ([]byte, error) {
		return nil, errFull
	}, 8)

	a.Cycles(4)
	a.Begin(0x1000, 0x4E71)
	a.Exit()

	if !errors.Is(a.Err(), errFull) {
		t.Fatalf("Err() = %v, want %v", a.Err(), errFull)
	}
	if a.Offset() != Cycles.Len() {
		t.Errorf("Offset() = %d, want only the first op (%d)", a.Offset(), Cycles.Len())
	}
	if at := a.Bra(0, LinkNone); at != -1 {
		t.Errorf("Bra after failure = %d, want -1", at)
	}

	b := NewAssembler(nil, nil, 0)
	b.Exit()
	if b.Err() == nil {
		t.Error("assembler without grow func accepted an op past its buffer")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		off  int
		op   Op
		n    int
		err  error
	}{
		{"exit", []byte{byte(Exit)}, 0, Exit, 1, nil},
		{"cycles", []byte{byte(Cycles), 4, 0}, 0, Cycles, 3, nil},
		{"sign extend", []byte{byte(SignExt), Src, 2}, 0, SignExt, 3, nil},
		{"truncated operand", []byte{byte(SetPC), 0, 0}, 0, SetPC, 5, ErrTruncated},
		{"zeroed code", []byte{0, 0}, 0, Invalid, 1, ErrInvalid},
		{"unknown opcode", []byte{byte(numOps)}, 0, numOps, 1, ErrInvalid},
		{"offset past end", []byte{byte(Exit)}, 1, 0, 0, ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, n, err := Decode(tt.code, tt.off)
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if op != tt.op || n != tt.n {
				t.Errorf("Decode = (%v, %d), want (%v, %d)", op, n, tt.op, tt.n)
			}
		})
	}
}

func TestWalkStopsOnMalformed(t *testing.T) {
	code := []byte{byte(Begin), 0, 0, 0, 0, 0, 0, byte(Exit), byte(Check), 1}
	var seen []Op
	err := Walk(code, func(_ int, op Op) { seen = append(seen, op) })
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("Walk err = %v, want ErrTruncated", err)
	}
	if diff := cmp.Diff([]Op{Begin, Exit}, seen); diff != "" {
		t.Errorf("visited (-want +got):\n%s", diff)
	}
}

func TestOpString(t *testing.T) {
	if got := Interp.String(); got != "interp" {
		t.Errorf("Interp.String() = %q", got)
	}
	if got := Op(200).String(); got != "op(200)" {
		t.Errorf("Op(200).String() = %q", got)
	}
	for op := Op(0); op < numOps; op++ {
		if op.String() == "" {
			t.Errorf("op %d has no name", op)
		}
	}
}
