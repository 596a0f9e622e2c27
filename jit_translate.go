package m68k

import "github.com/user-none/go-chip-m68k-jit/internal/uop"

// nativeMargin is the most code one translated instruction can emit.
// A block stops before an instruction that could push it past
// MaxBlockNative.
const nativeMargin = 64

// translator compiles one block. Guest code is read through Bus.Read at
// translation time, so instruction fetches are not replayed when the
// block runs.
type translator struct {
	j   *jit
	c   *CPU
	asm *uop.Assembler

	start uint32 // first guest address of the block
	pc    uint32 // current instruction
	next  uint32 // instruction after the current one
	ext   uint32 // extension word cursor
	op    uint16
	cc    uint16 // flags the current instruction has to produce

	redirect bool // the template transferred control itself

	bt         [btCacheSize]btEntry
	btNext     int
	unresolved [unresolvedSize]unresolvedBranch
	unresNext  int
}

func newTranslator(j *jit, pc uint32, buf []byte) *translator {
	return &translator{
		j:     j,
		c:     j.cpu,
		asm:   uop.NewAssembler(buf, j.alloc.Realloc, j.limits.BlockExpand),
		start: pc,
	}
}

// run translates instructions from start until a terminating instruction
// or a size limit, and returns the last guest byte covered.
func (t *translator) run() (uint32, error) {
	j := t.j
	pc := t.start

	for {
		op := t.word(pc)
		words, defined := insnWords(op)
		next := pc + 2*uint32(words)
		if next-1 > 0xFFFFFF {
			// The previous instruction already set PC to pc.
			t.asm.Exit()
			return pc - 1, t.asm.Err()
		}

		t.pc, t.next, t.ext, t.op = pc, next, pc+2, op
		t.redirect = false

		last := !defined || endsBlock(op) || t.full(next)
		switch {
		case j.strict || last:
			t.cc = ccOut(op)
		default:
			t.cc = ccNeeded(op, t.word(next))
		}

		t.markTarget(pc, t.asm.Offset())
		if j.strict || needsCheck(op) {
			t.asm.Check(pc)
		}
		t.asm.Begin(pc, op)

		if emit := translateTable[groupIndex(op)]; defined && emit != nil && emit(t) {
			if !t.redirect {
				t.asm.SetPC(next)
			}
		} else {
			t.asm.Interp(op, next)
		}

		if err := t.asm.Err(); err != nil {
			return 0, err
		}
		if last {
			t.asm.Exit()
			return next - 1, t.asm.Err()
		}
		pc = next
	}
}

// full reports whether the block has to stop before the instruction at
// next.
func (t *translator) full(next uint32) bool {
	j := t.j
	return next > 0xFFFFFF ||
		next-t.start >= j.limits.MaxBlockGuest ||
		t.asm.Offset()+nativeMargin >= j.limits.MaxBlockNative ||
		j.blacklisted(next) ||
		j.find(next) != nil
}

// wrapsAddressSpace reports whether the instruction at pc runs past
// $FFFFFF. Such an instruction is never translated, so every block ends
// inside the 24-bit space.
func wrapsAddressSpace(bus Bus, pc uint32) bool {
	if pc+maxInsnBytes-1 <= 0xFFFFFF {
		return false
	}
	words, _ := insnWords(uint16(bus.Read(Word, pc)))
	return pc+2*uint32(words)-1 > 0xFFFFFF
}

// endsBlock reports whether op never falls through to the next
// instruction.
func endsBlock(op uint16) bool {
	switch {
	case op&0xFFC0 == 0x4EC0: // JMP
		return true
	case op&0xFFF0 == 0x4E40: // TRAP
		return true
	case op&0xFF00 == 0x6000: // BRA
		return true
	case op == 0x4E72, op == 0x4E73, op == 0x4E75, op == 0x4E77: // STOP, RTE, RTS, RTR
		return true
	case op == 0x4AFC, op>>12 == 0xA, op>>12 == 0xF:
		return true
	}
	return false
}

// needsCheck reports whether loose timing polls the budget before op.
// Every loop and every exit from straight-line code passes one of these.
func needsCheck(op uint16) bool {
	switch {
	case op&0xF000 == 0x6000: // Bcc, BRA, BSR
		return true
	case op&0xF0F8 == 0x50C8: // DBcc
		return true
	case op&0xFFF0 == 0x4E40: // TRAP
		return true
	case op&0xFF80 == 0x4E80: // JSR, JMP
		return true
	case op == 0x4E72, op == 0x4E73, op == 0x4E75, op == 0x4E77:
		return true
	}
	return false
}

func (t *translator) word(addr uint32) uint16 {
	return uint16(t.c.bus.Read(Word, addr&0xFFFFFF))
}

func (t *translator) extWord() uint16 {
	w := t.word(t.ext)
	t.ext += 2
	return w
}

func (t *translator) extLong() uint32 {
	hi := t.extWord()
	return uint32(hi)<<16 | uint32(t.extWord())
}

func (t *translator) imm(sz Size) uint32 {
	if sz == Long {
		return t.extLong()
	}
	return uint32(t.extWord()) & sz.Mask()
}

// mask returns the condition codes an ALU kind must write here.
func (t *translator) mask(kind uint8) uint8 {
	return uint8(aluFlags(kind) & t.cc)
}

func (t *translator) cycles(n uint64) {
	t.asm.Cycles(uint16(n))
}

// address emits the address calculation for a memory operand into slot.
// Displacements, absolute addresses and PC-relative bases are folded
// into the code.
func (t *translator) address(slot, mode, reg uint8, sz Size) {
	a := t.asm
	switch mode {
	case 2:
		a.EAInd(slot, reg)
	case 3:
		a.EAPostInc(slot, reg, uint8(postIncStep(reg, sz)))
	case 4:
		a.EAPreDec(slot, reg, uint8(postIncStep(reg, sz)))
	case 5:
		a.EADisp(slot, reg, int32(int16(t.extWord())))
	case 6:
		a.EAIndex(slot, reg, t.extWord())
	case 7:
		switch reg {
		case 0:
			a.EAAbs(slot, uint32(int32(int16(t.extWord()))))
		case 1:
			a.EAAbs(slot, t.extLong())
		case 2:
			base := t.ext
			a.EAAbs(slot, uint32(int32(base)+int32(int16(t.extWord()))))
		case 3:
			base := t.ext
			a.EAPCIndex(slot, base, t.extWord())
		}
	}
}

// load emits a read of an operand into latch. Memory operands leave their
// address in the slot of the same index.
func (t *translator) load(latch, mode, reg uint8, sz Size) {
	switch {
	case mode == 0:
		t.asm.LoadD(latch, reg, uint8(sz))
	case mode == 1:
		t.asm.LoadA(latch, reg, uint8(sz))
	case mode == 7 && reg == 4:
		t.asm.LoadImm(latch, t.imm(sz))
	default:
		t.address(latch, mode, reg, sz)
		t.asm.LoadMem(latch, latch, uint8(sz))
	}
}

// store writes the last ALU result to the destination. A memory
// destination must already have its address in slot Dst.
func (t *translator) store(mode, reg uint8, sz Size) {
	switch mode {
	case 0:
		t.asm.StoreD(reg, uint8(sz))
	case 1:
		t.asm.StoreA(reg)
	default:
		t.asm.StoreMem(uop.Dst, uint8(sz))
	}
}
