package m68k

import (
	"testing"

	"github.com/user-none/go-chip-m68k-jit/internal/uop"
)

// links returns the link operand of every branch micro-op in b.
func links(t *testing.T, b *block) map[uop.Op][]uint32 {
	t.Helper()
	out := make(map[uop.Op][]uint32)
	err := uop.Walk(b.code, func(off int, op uop.Op) {
		switch op {
		case uop.Bcc:
			out[op] = append(out[op], uop.U32(b.code, off+6))
		case uop.Bra:
			out[op] = append(out[op], uop.U32(b.code, off+5))
		case uop.DBcc:
			out[op] = append(out[op], uop.U32(b.code, off+7))
		}
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	return out
}

func TestForwardBranchLinked(t *testing.T) {
	bus := &testBus{}
	setVectors(bus, 0x800)
	load(bus, testPC,
		0x7000,         // MOVEQ #0,D0
		0x6702,         // BEQ.S $1006
		0x7063,         // MOVEQ #99,D0
		0x7201,         // MOVEQ #1,D1
		0x6700, 0x0100, // BEQ.W $110A (outside the block)
		0x4E72, 0x2700,
	)
	cpu := newTestCPU(bus)
	defer cpu.Close()

	b := cpu.jit.translate(testPC)
	if b == nil {
		t.Fatal("translate returned nil")
	}
	bcc := links(t, b)[uop.Bcc]
	if len(bcc) != 2 {
		t.Fatalf("found %d Bcc ops, want 2", len(bcc))
	}
	if bcc[0] == uop.LinkNone {
		t.Error("forward branch inside the block was not linked")
	}
	if bcc[1] != uop.LinkNone {
		t.Errorf("branch out of the block linked to %d", bcc[1])
	}

	runToStop(t, cpu)
	if cpu.D(0) != 0 || cpu.D(1) != 1 {
		t.Errorf("D0=%d D1=%d, want 0 and 1", cpu.D(0), cpu.D(1))
	}
}

func TestBackwardLoopStaysInBlock(t *testing.T) {
	bus := &testBus{}
	setVectors(bus, 0x800)
	load(bus, testPC,
		0x323C, 0x03E7, // MOVE.W #999,D1
		0x5280,         // ADDQ.L #1,D0
		0x51C9, 0xFFFC, // DBRA D1,$1004
		0x4E72, 0x2700,
	)

	for _, e := range engines {
		cpu := newTestCPU(bus, e.opts...)
		cpu.Run(100000)
		if cpu.D(0) != 1000 || !cpu.Stopped() {
			t.Fatalf("%s: D0=%d stopped=%v, want 1000 and stopped", e.name, cpu.D(0), cpu.Stopped())
		}

		if cpu.jit != nil {
			b := cpu.jit.find(testPC)
			if b == nil {
				t.Fatalf("%s: loop block not cached", e.name)
			}
			if l := links(t, b)[uop.DBcc]; len(l) != 1 || l[0] == uop.LinkNone {
				t.Errorf("%s: DBRA links = %v, want one resolved link", e.name, l)
			}
			if s := cpu.Stats(); s.HostEntries != 1 {
				t.Errorf("%s: HostEntries = %d, want the loop to run in one entry", e.name, s.HostEntries)
			}
		}
		cpu.Close()
	}
}

func TestChainedBlocks(t *testing.T) {
	bus := &testBus{}
	blockChain(bus, 8)
	cpu := newTestCPU(bus)
	defer cpu.Close()

	cpu.Run(10000)

	if !cpu.Stopped() || cpu.D(0) != 7 {
		t.Fatalf("stopped=%v D0=%d, want stopped with 7", cpu.Stopped(), cpu.D(0))
	}
	s := cpu.Stats()
	if s.Translations != 8 {
		t.Errorf("Translations = %d, want 8", s.Translations)
	}
	if s.Chained != 7 || s.HostEntries != 8 {
		t.Errorf("chained=%d entries=%d, want 7 and 8", s.Chained, s.HostEntries)
	}
}

func TestCallStack(t *testing.T) {
	bus := &testBus{}
	programs[1].load(bus) // subroutines
	cpu := newTestCPU(bus)
	defer cpu.Close()

	cpu.Run(100000)

	if !cpu.Stopped() || cpu.D(0) != 10 {
		t.Fatalf("stopped=%v D0=%d, want stopped with 10", cpu.Stopped(), cpu.D(0))
	}
	s := cpu.Stats()
	if s.CallStackHits != 10 || s.CallStackMisses != 0 {
		t.Errorf("call stack hits=%d misses=%d, want 10 and 0", s.CallStackHits, s.CallStackMisses)
	}
}

func TestCallStackMissOnManualReturn(t *testing.T) {
	// The subroutine replaces its return address, so RTS lands somewhere
	// no call was made from.
	bus := &testBus{}
	setVectors(bus, 0x800)
	load(bus, testPC,
		0x6100, 0x000E, // BSR.W $1010
		0x7001,         // MOVEQ #1,D0 (skipped)
		0x4E72, 0x2700,
	)
	load(bus, 0x1010,
		0x2EBC, 0x0000, 0x1020, // MOVE.L #$1020,(A7)
		0x4E75,                 // RTS
	)
	load(bus, 0x1020, 0x7002, 0x4E72, 0x2700) // MOVEQ #2,D0; STOP
	cpu := newTestCPU(bus)
	defer cpu.Close()

	cpu.Run(10000)

	if cpu.D(0) != 2 {
		t.Errorf("D0 = %d, want 2", cpu.D(0))
	}
	if s := cpu.Stats(); s.CallStackMisses != 1 || s.CallStackHits != 0 {
		t.Errorf("call stack hits=%d misses=%d, want 0 and 1", s.CallStackHits, s.CallStackMisses)
	}
}

func TestCallStackRing(t *testing.T) {
	cpu := newTestCPU(&testBus{})
	defer cpu.Close()
	j := cpu.jit

	var b block
	for i := 0; i < callStackSize+2; i++ {
		j.pushCall(uint32(0x2000+2*i), &b, i)
	}
	// The two oldest frames were overwritten.
	if _, _, ok := j.popCall(0x2000); ok {
		t.Error("oldest frame survived the wrap")
	}
	if _, off, ok := j.popCall(0x2000 + 2*(callStackSize+1)); !ok || off != callStackSize+1 {
		t.Errorf("newest frame: ok=%v off=%d", ok, off)
	}
	// A deeper match discards the frames above it.
	if _, off, ok := j.popCall(0x2000 + 2*4); !ok || off != 4 {
		t.Errorf("frame 4: ok=%v off=%d", ok, off)
	}
	if _, _, ok := j.popCall(0x2000 + 2*5); ok {
		t.Error("frame above the match survived")
	}
}
