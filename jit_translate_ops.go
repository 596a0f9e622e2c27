package m68k

import "github.com/user-none/go-chip-m68k-jit/internal/uop"

// emitFunc translates the instruction in t.op. It returns false, having
// emitted nothing, when the encoding has no template or is illegal; the
// instruction is then run through its interpreter handler.
//
// Templates perform their bus accesses in the same order as the handlers
// and charge the cycles afterwards, so translated and interpreted code
// present identical timestamps to a CycleBus.
type emitFunc func(*translator) bool

// translateTable is indexed like groupTable.
var translateTable [128]emitFunc

func init() {
	rows := [16][8]emitFunc{
		{emitImmediate, emitImmediate, emitImmediate, emitImmediate},
		{emitMove, emitMove, emitMove, emitMove, emitMove, emitMove, emitMove, emitMove},
		{emitMove, emitMove, emitMove, emitMove, emitMove, emitMove, emitMove, emitMove},
		{emitMove, emitMove, emitMove, emitMove, emitMove, emitMove, emitMove, emitMove},
		{emitGroup4, emitGroup4, emitGroup4, emitGroup4, nil, nil, nil, emitLEA},
		{emitQuick, emitQuick, emitQuick, emitSccDBcc, emitQuick, emitQuick, emitQuick, emitSccDBcc},
		{emitBranch, emitBranch, emitBranch, emitBranch, emitBranch, emitBranch, emitBranch, emitBranch},
		{emitMOVEQ, emitMOVEQ, emitMOVEQ, emitMOVEQ},
		{emitToReg, emitToReg, emitToReg, nil, emitToEA, emitToEA, emitToEA, nil},
		{emitToReg, emitToReg, emitToReg, emitAddr, emitToEA, emitToEA, emitToEA, emitAddr},
		{},
		{emitToReg, emitToReg, emitToReg, emitAddr, emitEOR, emitEOR, emitEOR, emitAddr},
		{emitToReg, emitToReg, emitToReg, nil, emitToEA, emitToEA, emitToEA, nil},
		{emitToReg, emitToReg, emitToReg, emitAddr, emitToEA, emitToEA, emitToEA, emitAddr},
	}
	for hi, row := range rows {
		for lo, fn := range row {
			translateTable[hi<<3|lo] = fn
		}
	}
}

// binaryKind maps the top nibble of the two-operand groups to an ALU kind.
func binaryKind(op uint16) uint8 {
	switch op >> 12 {
	case 0x8:
		return uop.AluOr
	case 0x9:
		return uop.AluSub
	case 0xB:
		return uop.AluCmp
	case 0xC:
		return uop.AluAnd
	}
	return uop.AluAdd
}

func addrKind(op uint16) uint8 {
	switch op >> 12 {
	case 0x9:
		return uop.AluSubA
	case 0xB:
		return uop.AluCmpA
	}
	return uop.AluAddA
}

// emitMove covers MOVE and MOVEA. A memory destination is written before
// the flags are set, as in opMove, so the ALU runs once for the result
// and once more for the flags.
func emitMove(t *translator) bool {
	op := t.op
	sz := moveSizeMap[(op>>12)&3]
	srcMode, srcReg := eaFields(op)
	dstMode := uint8(op>>6) & 7
	dstReg := uint8(op>>9) & 7

	if dstMode == 1 {
		if sz == Byte || !eaLegal(srcMode, srcReg, sz, accessRead) {
			return false
		}
		t.load(uop.Src, srcMode, srcReg, sz)
		if sz == Word {
			t.asm.SignExt(uop.Src, uint8(Word))
		}
		t.asm.Alu(uop.AluMove, uint8(Long), 0)
		t.asm.StoreA(dstReg)
		t.cycles(moveaCycles(srcMode, srcReg, sz))
		return true
	}
	if !eaLegal(srcMode, srcReg, sz, accessRead) || !eaDataAlterable(dstMode, dstReg) {
		return false
	}

	t.load(uop.Src, srcMode, srcReg, sz)
	mask := t.mask(uop.AluMove)
	if dstMode == 0 {
		t.asm.Alu(uop.AluMove, uint8(sz), mask)
		t.asm.StoreD(dstReg, uint8(sz))
	} else {
		t.address(uop.Dst, dstMode, dstReg, sz)
		t.asm.Alu(uop.AluMove, uint8(sz), 0)
		t.asm.StoreMem(uop.Dst, uint8(sz))
		if mask != 0 {
			t.asm.Alu(uop.AluMove, uint8(sz), mask)
		}
	}
	t.cycles(moveCycles(srcMode, srcReg, dstMode, dstReg, sz))
	return true
}

func emitMOVEQ(t *translator) bool {
	if t.op&0x0100 != 0 {
		return false
	}
	dn := uint8(t.op>>9) & 7
	t.asm.LoadImm(uop.Src, signExtend(uint32(t.op), Byte))
	t.asm.Alu(uop.AluMove, uint8(Long), t.mask(uop.AluMove))
	t.asm.StoreD(dn, uint8(Long))
	t.cycles(4)
	return true
}

// emitImmediate covers ORI, ANDI, SUBI, ADDI, EORI and CMPI to a data
// alterable operand. The CCR and SR forms and the static bit group are
// interpreted.
func emitImmediate(t *translator) bool {
	kind := (t.op >> 9) & 7
	sz := sizeEncoding((t.op >> 6) & 3)
	mode, reg := eaFields(t.op)
	if kind == 4 || kind == 7 || sz == 0 || !eaDataAlterable(mode, reg) {
		return false
	}

	alu := [8]uint8{uop.AluOr, uop.AluAnd, uop.AluSub, uop.AluAdd, 0, uop.AluEor, uop.AluCmp}[kind]
	t.asm.LoadImm(uop.Src, t.imm(sz))
	t.load(uop.Dst, mode, reg, sz)
	t.asm.Alu(alu, uint8(sz), t.mask(alu))
	if alu == uop.AluCmp {
		t.cycles(cmpiCycles(mode, reg, sz))
		return true
	}
	t.store(mode, reg, sz)
	t.cycles(immCycles(mode, reg, sz))
	return true
}

// emitToReg covers the <ea>,Dn forms of ADD, SUB, AND, OR and CMP.
func emitToReg(t *translator) bool {
	alu := binaryKind(t.op)
	dn := uint8(t.op>>9) & 7
	sz := sizeEncoding((t.op >> 6) & 3)
	mode, reg := eaFields(t.op)
	if !eaLegal(mode, reg, sz, accessRead) || mode == 1 && (alu == uop.AluAnd || alu == uop.AluOr) {
		return false
	}

	t.load(uop.Src, mode, reg, sz)
	t.asm.LoadD(uop.Dst, dn, uint8(sz))
	t.asm.Alu(alu, uint8(sz), t.mask(alu))
	if alu == uop.AluCmp {
		t.cycles(cmpCycles(mode, reg, sz))
		return true
	}
	t.asm.StoreD(dn, uint8(sz))
	t.cycles(aluToRegCycles(mode, reg, sz))
	return true
}

// emitToEA covers the Dn,<ea> forms of ADD, SUB, AND and OR. Register
// modes here encode ADDX, SUBX, ABCD, SBCD and EXG, which are interpreted.
func emitToEA(t *translator) bool {
	alu := binaryKind(t.op)
	dn := uint8(t.op>>9) & 7
	sz := sizeEncoding(((t.op >> 6) & 7) - 4)
	mode, reg := eaFields(t.op)
	if mode < 2 || !eaLegal(mode, reg, sz, accessModify) {
		return false
	}

	t.load(uop.Dst, mode, reg, sz)
	t.asm.LoadD(uop.Src, dn, uint8(sz))
	t.asm.Alu(alu, uint8(sz), t.mask(alu))
	t.asm.StoreMem(uop.Dst, uint8(sz))
	t.cycles(aluToEACycles(mode, reg, sz))
	return true
}

// emitEOR handles EOR Dn,<ea>; address register mode is CMPM.
func emitEOR(t *translator) bool {
	dn := uint8(t.op>>9) & 7
	sz := sizeEncoding(((t.op >> 6) & 7) - 4)
	mode, reg := eaFields(t.op)
	if !eaDataAlterable(mode, reg) {
		return false
	}

	t.load(uop.Dst, mode, reg, sz)
	t.asm.LoadD(uop.Src, dn, uint8(sz))
	t.asm.Alu(uop.AluEor, uint8(sz), t.mask(uop.AluEor))
	t.store(mode, reg, sz)
	t.cycles(eorCycles(mode, reg, sz))
	return true
}

// emitAddr covers ADDA, SUBA and CMPA.
func emitAddr(t *translator) bool {
	alu := addrKind(t.op)
	an := uint8(t.op>>9) & 7
	sz := Word
	if (t.op>>6)&7 == 7 {
		sz = Long
	}
	mode, reg := eaFields(t.op)
	if !eaLegal(mode, reg, sz, accessRead) {
		return false
	}

	t.load(uop.Src, mode, reg, sz)
	t.asm.LoadA(uop.Dst, an, uint8(Long))
	t.asm.Alu(alu, uint8(sz), t.mask(alu))
	if alu == uop.AluCmpA {
		t.cycles(cmpaCycles(mode, reg, sz))
		return true
	}
	t.asm.StoreA(an)
	t.cycles(addrArithCycles(mode, reg, sz))
	return true
}

// emitQuick covers ADDQ and SUBQ.
func emitQuick(t *translator) bool {
	data := uint32(t.op>>9) & 7
	if data == 0 {
		data = 8
	}
	sz := sizeEncoding((t.op >> 6) & 3)
	mode, reg := eaFields(t.op)
	if !eaLegal(mode, reg, sz, accessModify) {
		return false
	}

	t.asm.LoadImm(uop.Src, data)
	if mode == 1 {
		alu := uop.AluAddA
		if t.op&0x0100 != 0 {
			alu = uop.AluSubA
		}
		t.asm.LoadA(uop.Dst, reg, uint8(Long))
		t.asm.Alu(alu, uint8(Long), 0)
		t.asm.StoreA(reg)
		t.cycles(quickCycles(mode, reg, sz))
		return true
	}

	alu := uop.AluAdd
	if t.op&0x0100 != 0 {
		alu = uop.AluSub
	}
	t.load(uop.Dst, mode, reg, sz)
	t.asm.Alu(alu, uint8(sz), t.mask(alu))
	t.store(mode, reg, sz)
	t.cycles(quickCycles(mode, reg, sz))
	return true
}

// emitSccDBcc covers Scc and DBcc. The extra cycles of a true Scc are
// charged by the Cycles op that follows it.
func emitSccDBcc(t *translator) bool {
	cc := uint8(t.op>>8) & 0xF
	mode, reg := eaFields(t.op)

	if mode == 1 {
		base := t.ext
		target := uint32(int32(base) + int32(int16(t.extWord())))
		at := t.asm.DBcc(cc, reg, target, uop.LinkNone)
		t.branch(target, at)
		return true
	}
	if !eaDataAlterable(mode, reg) {
		return false
	}

	taken := sccCycles(mode, reg, true)
	base := sccCycles(mode, reg, false)
	if mode == 0 {
		t.asm.Scc(cc, uint16(taken-base), 0)
		t.asm.StoreD(reg, uint8(Byte))
	} else {
		t.address(uop.Dst, mode, reg, Byte)
		t.asm.Scc(cc, uint16(taken-base), 0)
		t.asm.StoreMem(uop.Dst, uint8(Byte))
	}
	t.cycles(base)
	return true
}

// emitBranch covers Bcc, BRA and BSR.
func emitBranch(t *translator) bool {
	cc := uint8(t.op>>8) & 0xF
	disp := int32(int8(t.op))
	if disp == 0 {
		disp = int32(int16(t.extWord()))
	}
	target := uint32(int32(t.pc+2) + disp)

	switch cc {
	case 0:
		t.cycles(braCycles)
		at := t.asm.Bra(target, uop.LinkNone)
		t.branch(target, at)
		t.redirect = true
	case 1:
		t.asm.Call(t.next, target, bsrCycles)
		t.redirect = true
	default:
		notTaken := uint16(bccNotTakenByte)
		if t.op&0xFF == 0 {
			notTaken = bccNotTakenWord
		}
		at := t.asm.Bcc(cc, target, uop.LinkNone, notTaken)
		t.branch(target, at)
	}
	return true
}

func emitLEA(t *translator) bool {
	an := uint8(t.op>>9) & 7
	mode, reg := eaFields(t.op)
	if !eaControl(mode, reg) {
		return false
	}
	t.address(uop.Src, mode, reg, Long)
	t.asm.LeaA(uop.Src, an)
	t.cycles(leaCycles(mode, reg))
	return true
}

// emitGroup4 handles the common miscellaneous instructions. MOVEM, the
// SR and USP moves, LINK, UNLK, CHK and the traps are interpreted.
func emitGroup4(t *translator) bool {
	mode, reg := eaFields(t.op)
	switch group4Index(t.op) {
	case 4, 5, 6:
		return emitUnary(t, uop.AluClr)
	case 8, 9, 10:
		return emitUnary(t, uop.AluNeg)
	case 12, 13, 14:
		return emitUnary(t, uop.AluNot)
	case 20, 21, 22:
		return emitTST(t)
	case 17:
		if mode == 0 {
			t.asm.LoadD(uop.Dst, reg, uint8(Long))
			t.asm.Alu(uop.AluSwap, uint8(Long), t.mask(uop.AluSwap))
			t.asm.StoreD(reg, uint8(Long))
			t.cycles(4)
			return true
		}
		if !eaControl(mode, reg) {
			return false
		}
		t.address(uop.Src, mode, reg, Long)
		t.asm.PushEA(uop.Src)
		t.cycles(peaCycles(mode, reg))
		return true
	case 18, 19:
		if mode != 0 {
			return false
		}
		sz := Word
		if t.op&0x0040 != 0 {
			sz = Long
		}
		t.asm.LoadD(uop.Dst, reg, uint8(sz))
		t.asm.Alu(uop.AluExt, uint8(sz), t.mask(uop.AluExt))
		t.asm.StoreD(reg, uint8(sz))
		t.cycles(4)
		return true
	case 29:
		switch t.op {
		case 0x4E71:
			t.cycles(4)
			return true
		case 0x4E75:
			t.asm.Rts(rtsCycles)
			t.redirect = true
			return true
		}
		return false
	case 30:
		if !eaControl(mode, reg) {
			return false
		}
		t.address(uop.Src, mode, reg, Long)
		t.asm.CallEA(uop.Src, t.next, uint16(jsrCycles(mode, reg)))
		t.redirect = true
		return true
	case 31:
		if !eaControl(mode, reg) {
			return false
		}
		t.address(uop.Src, mode, reg, Long)
		t.asm.Jump(uop.Src, uint16(jmpCycles(mode, reg)))
		t.redirect = true
		return true
	}
	return false
}

// emitUnary covers CLR, NEG and NOT. CLR does not read its operand, so
// an odd address faults on the write; the flags are set after it, as in
// unary.
func emitUnary(t *translator, alu uint8) bool {
	sz := sizeEncoding((t.op >> 6) & 3)
	mode, reg := eaFields(t.op)
	if !eaDataAlterable(mode, reg) {
		return false
	}

	mask := t.mask(alu)
	switch {
	case alu != uop.AluClr:
		t.load(uop.Dst, mode, reg, sz)
	case mode != 0:
		t.address(uop.Dst, mode, reg, sz)
		t.asm.Alu(alu, uint8(sz), 0)
		t.asm.StoreMem(uop.Dst, uint8(sz))
		if mask != 0 {
			t.asm.Alu(alu, uint8(sz), mask)
		}
		t.cycles(unaryCycles(mode, reg, sz))
		return true
	}
	t.asm.Alu(alu, uint8(sz), mask)
	t.store(mode, reg, sz)
	t.cycles(unaryCycles(mode, reg, sz))
	return true
}

func emitTST(t *translator) bool {
	sz := sizeEncoding((t.op >> 6) & 3)
	mode, reg := eaFields(t.op)
	if !eaDataAlterable(mode, reg) {
		return false
	}
	t.load(uop.Dst, mode, reg, sz)
	t.asm.Alu(uop.AluTst, uint8(sz), t.mask(uop.AluTst))
	t.cycles(tstCycles(mode, reg, sz))
	return true
}
