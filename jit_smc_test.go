package m68k

import (
	"testing"

	"github.com/user-none/go-chip-m68k-jit/internal/codemem"
)

// selfModifying rewrites the MOVEQ at $1008 before reaching it.
var selfModifying = []uint16{
	0x31FC, 0x7005, 0x1008, // MOVE.W #$7005,$1008.w
	0x4E71,                 // NOP
	0x7001,                 // MOVEQ #1,D0 (becomes MOVEQ #5,D0)
	0x4E72, 0x2700,         // STOP
}

func TestSelfModifyingCode(t *testing.T) {
	for _, e := range engines {
		t.Run(e.name, func(t *testing.T) {
			bus := &testBus{}
			setVectors(bus, 0x800)
			load(bus, testPC, selfModifying...)
			cpu := newTestCPU(bus, e.opts...)
			defer cpu.Close()

			runToStop(t, cpu)

			if cpu.D(0) != 5 {
				t.Errorf("D0 = %d, want 5 from the rewritten instruction", cpu.D(0))
			}
			if cpu.jit == nil {
				return
			}
			s := cpu.Stats()
			if s.Invalidations == 0 {
				t.Error("write over translated code invalidated nothing")
			}
			if !cpu.jit.blacklisted(0x1008) {
				t.Error("rewritten range is not blacklisted")
			}
			if s.BlacklistHits == 0 {
				t.Error("no translation was refused inside the blacklist")
			}
		})
	}
}

// freeLog records the state of every block whose code is released.
type freeLog struct {
	codemem.Heap
	cpu   *CPU
	freed []block
}

func (f *freeLog) Free(buf []byte) {
	if len(buf) > 0 {
		for i := range f.cpu.jit.blocks {
			b := &f.cpu.jit.blocks[i]
			if b.used && len(b.code) > 0 && &b.code[0] == &buf[0] {
				f.freed = append(f.freed, *b)
			}
		}
	}
	f.Heap.Free(buf)
}

func TestRunningBlockClearedAfterReturn(t *testing.T) {
	bus := &testBus{}
	setVectors(bus, 0x800)
	load(bus, testPC, selfModifying...)
	mem := &freeLog{}
	cpu := newTestCPU(bus, WithAllocator(mem))
	mem.cpu = cpu
	defer cpu.Close()

	runToStop(t, cpu)

	if len(mem.freed) != 1 {
		t.Fatalf("%d blocks released, want 1", len(mem.freed))
	}
	b := mem.freed[0]
	if b.start != testPC || b.running || !b.mustClear {
		t.Errorf("released %06X running=%v mustClear=%v, want %06X deferred until its run returned",
			b.start, b.running, b.mustClear, testPC)
	}
	if cpu.jit.find(testPC) != nil {
		t.Error("rewritten block is still cached")
	}
	if cpu.D(0) != 5 {
		t.Errorf("D0 = %d, want 5", cpu.D(0))
	}
}

func TestBlacklistExpires(t *testing.T) {
	bus := &testBus{}
	setVectors(bus, 0x800)
	load(bus, testPC, selfModifying...)
	cpu := newTestCPU(bus, WithCacheLimits(CacheLimits{BlacklistTimeout: 4}))
	defer cpu.Close()
	j := cpu.jit

	runToStop(t, cpu)
	if !j.blacklisted(0x1008) {
		t.Fatal("rewritten range is not blacklisted")
	}

	j.stamp += 5
	j.expireBlacklist()
	if j.blacklisted(0x1008) {
		t.Error("blacklist entry outlived its timeout")
	}
	if b := j.translate(0x1008); b == nil {
		t.Error("translate refused an expired range")
	}
}

func TestBlacklistMerge(t *testing.T) {
	cpu := newTestCPU(&testBus{})
	defer cpu.Close()
	j := cpu.jit

	j.addBlacklist(0x2000, 0x2003)
	j.addBlacklist(0x2004, 0x2007)
	j.addBlacklist(0x3000, 0x3001)

	used := 0
	for _, e := range j.blacklist {
		if !e.free() {
			used++
		}
	}
	if used != 2 {
		t.Errorf("%d blacklist entries in use, want 2", used)
	}
	for _, pc := range []uint32{0x2000, 0x2006, 0x3000} {
		if !j.blacklisted(pc) {
			t.Errorf("%06X not blacklisted", pc)
		}
	}
	if j.blacklisted(0x2008) {
		t.Error("merge grew past the written range")
	}
}

func TestWriteNearCodeKeepsBlocks(t *testing.T) {
	// The loop writes to the same page as its own code without touching it.
	bus := &testBus{}
	setVectors(bus, 0x800)
	load(bus, testPC,
		0x7003,         // MOVEQ #3,D0
		0x31C0, 0x1800, // MOVE.W D0,$1800.w
		0x51C8, 0xFFFA, // DBRA D0,$1002
		0x4E72, 0x2700,
	)
	cpu := newTestCPU(bus)
	defer cpu.Close()

	runToStop(t, cpu)

	if got := bus.Read(Word, 0x1800); got != 0 {
		t.Errorf("$1800 = %d, want 0", got)
	}
	s := cpu.Stats()
	if s.Invalidations != 0 {
		t.Errorf("Invalidations = %d, want 0", s.Invalidations)
	}
	if cpu.jit.find(testPC) == nil {
		t.Error("block was dropped")
	}
	if !cpu.jit.pageHasCode(testPC) {
		t.Error("code page lost its guard bit")
	}
}

func TestTouchMemory(t *testing.T) {
	bus := &testBus{}
	setVectors(bus, 0x800)
	load(bus, testPC, 0x7001, 0x4E72, 0x2700) // MOVEQ #1,D0; STOP
	cpu := newTestCPU(bus)
	defer cpu.Close()

	restart := func() {
		cpu.SetState(Registers{PC: testPC, SR: 0x2700, SSP: testSSP})
		runToStop(t, cpu)
	}

	runToStop(t, cpu)
	if cpu.D(0) != 1 {
		t.Fatalf("D0 = %d, want 1", cpu.D(0))
	}

	// A change the CPU did not make is invisible until reported.
	writeWord(bus, testPC, 0x7009)
	restart()
	if cpu.D(0) != 1 {
		t.Errorf("D0 = %d, want the cached 1 before TouchMemory", cpu.D(0))
	}

	cpu.TouchMemory(testPC, 2)
	if cpu.jit.find(testPC) != nil {
		t.Error("TouchMemory left the block in place")
	}
	restart()
	if cpu.D(0) != 9 {
		t.Errorf("D0 = %d, want 9 after TouchMemory", cpu.D(0))
	}

	// Zero-sized and out-of-range touches are harmless.
	cpu.TouchMemory(testPC, 0)
	cpu.TouchMemory(0xFFFFF0, 0x100)
	if cpu.jit.find(testPC) == nil {
		t.Error("unrelated TouchMemory dropped the block")
	}
}

func TestWriteAcrossPageBoundary(t *testing.T) {
	// The long write at $1FFE rewrites the first word of the subroutine on
	// the next page.
	for _, e := range engines {
		t.Run(e.name, func(t *testing.T) {
			bus := &testBus{}
			setVectors(bus, 0x800)
			load(bus, 0x2000, 0x7001, 0x4E75) // MOVEQ #1,D0; RTS
			load(bus, 0x4000,
				0x4EB8, 0x2000,                 // JSR $2000.w
				0x2400,                         // MOVE.L D0,D2
				0x21FC, 0x0000, 0x7009, 0x1FFE, // MOVE.L #$7009,$1FFE.w
				0x4EB8, 0x2000,                 // JSR $2000.w
				0x4E72, 0x2700,
			)
			cpu := newTestCPU(bus, e.opts...)
			defer cpu.Close()
			cpu.SetState(Registers{PC: 0x4000, SR: 0x2700, SSP: testSSP})

			runToStop(t, cpu)

			if cpu.D(2) != 1 || cpu.D(0) != 9 {
				t.Errorf("D2=%d D0=%d, want 1 then 9 from the rewritten MOVEQ", cpu.D(2), cpu.D(0))
			}
			if cpu.jit == nil {
				return
			}
			if s := cpu.Stats(); s.Invalidations == 0 {
				t.Error("write over the subroutine invalidated nothing")
			}
			if !cpu.jit.blacklisted(0x2000) {
				t.Error("rewritten subroutine is not blacklisted")
			}
		})
	}
}

func TestWriteWrapsAddressSpace(t *testing.T) {
	// A long write at $FFFFFE stores its low word at $000000.
	for _, e := range engines {
		t.Run(e.name, func(t *testing.T) {
			bus := &testBus{}
			setVectors(bus, 0x800)
			load(bus, 0xFFF000,
				0x207C, 0x00FF, 0xFFFE, // MOVEA.L #$FFFFFE,A0
				0x203C, 0x1234, 0x5678, // MOVE.L #$12345678,D0
				0x2080,                 // MOVE.L D0,(A0)
				0x4E72, 0x2700,
			)
			cpu := newTestCPU(bus, e.opts...)
			defer cpu.Close()
			cpu.SetState(Registers{PC: 0xFFF000, SR: 0x2700, SSP: testSSP})

			runToStop(t, cpu)

			if hi, lo := bus.Read(Word, 0xFFFFFE), bus.Read(Word, 0); hi != 0x1234 || lo != 0x5678 {
				t.Errorf("$FFFFFE=%04X $000000=%04X, want 1234 and 5678", hi, lo)
			}
			if cpu.jit == nil {
				return
			}
			if s := cpu.Stats(); s.Invalidations != 0 {
				t.Errorf("Invalidations = %d, want 0", s.Invalidations)
			}
			if cpu.jit.find(0xFFF000) == nil {
				t.Error("block was dropped")
			}
		})
	}
}
