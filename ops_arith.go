package m68k

import "github.com/user-none/go-chip-m68k-jit/internal/uop"

// fetchImm reads an immediate operand of the given size from the
// instruction stream. Byte immediates occupy the low half of a word.
func (c *CPU) fetchImm(sz Size) uint32 {
	if sz == Long {
		return c.fetchPCLong()
	}
	return uint32(c.fetchPC()) & sz.Mask()
}

// --- Immediate group: ORI, ANDI, SUBI, ADDI, EORI, CMPI ---

// opImmediate decodes 0000 KKK0 SS eee eee. KKK selects the operation;
// KKK=100 is the static bit group, which reuses the size field as the bit
// operation.
func opImmediate(c *CPU) {
	kind := (c.ir >> 9) & 7
	if kind == 4 {
		opBitStatic(c)
		return
	}

	sz := sizeEncoding((c.ir >> 6) & 3)
	mode, reg := eaFields(c.ir)

	if mode == 7 && reg == 4 && (kind == 0 || kind == 1 || kind == 5) {
		switch sz {
		case Byte:
			opImmToCCR(c, kind)
			return
		case Word:
			opImmToSR(c, kind)
			return
		}
	}

	if sz == 0 || kind == 7 || !eaDataAlterable(mode, reg) {
		c.illegal()
		return
	}

	imm := c.fetchImm(sz)
	dst := c.resolveEA(mode, reg, sz)
	d := dst.read(c, sz)

	var alu uint8
	switch kind {
	case 0:
		alu = uop.AluOr
	case 1:
		alu = uop.AluAnd
	case 2:
		alu = uop.AluSub
	case 3:
		alu = uop.AluAdd
	case 5:
		alu = uop.AluEor
	case 6:
		_, f := aluCompute(uop.AluCmp, imm, d, sz)
		c.setCC(f, ccNZVC)
		c.cycles += cmpiCycles(mode, reg, sz)
		return
	}

	r, f := aluCompute(alu, imm, d, sz)
	c.setCC(f, aluFlags(alu))
	dst.write(c, sz, r)
	c.cycles += immCycles(mode, reg, sz)
}

// --- ADD / SUB / CMP ---

// binaryToReg implements the <ea>,Dn forms of ADD, SUB, AND, OR and CMP.
func binaryToReg(c *CPU, alu uint8) {
	dn := (c.ir >> 9) & 7
	sz := sizeEncoding((c.ir >> 6) & 3)
	mode, reg := eaFields(c.ir)

	if !eaLegal(mode, reg, sz, accessRead) || mode == 1 && (alu == uop.AluAnd || alu == uop.AluOr) {
		c.illegal()
		return
	}
	src := c.resolveEA(mode, reg, sz)
	r, f := aluCompute(alu, src.read(c, sz), c.reg.D[dn], sz)
	c.setCC(f, aluFlags(alu))

	if alu == uop.AluCmp {
		c.cycles += cmpCycles(mode, reg, sz)
		return
	}
	mask := sz.Mask()
	c.reg.D[dn] = c.reg.D[dn]&^mask | r&mask
	c.cycles += aluToRegCycles(mode, reg, sz)
}

// binaryToEA implements the Dn,<ea> forms of ADD, SUB, AND and OR. The
// register-to-register encodings of this opmode belong to ADDX, SUBX, ABCD,
// SBCD and EXG and are routed away by the callers.
func binaryToEA(c *CPU, alu uint8) {
	dn := (c.ir >> 9) & 7
	sz := sizeEncoding(((c.ir >> 6) & 7) - 4)
	mode, reg := eaFields(c.ir)

	if mode < 2 || !eaLegal(mode, reg, sz, accessModify) {
		c.illegal()
		return
	}

	dst := c.resolveEA(mode, reg, sz)
	r, f := aluCompute(alu, c.reg.D[dn], dst.read(c, sz), sz)
	c.setCC(f, aluFlags(alu))
	dst.write(c, sz, r)
	c.cycles += aluToEACycles(mode, reg, sz)
}

func opADD(c *CPU) {
	binaryToReg(c, uop.AluAdd)
}

func opSUB(c *CPU) {
	binaryToReg(c, uop.AluSub)
}

func opCMP(c *CPU) {
	binaryToReg(c, uop.AluCmp)
}

func opADDtoEA(c *CPU) {
	switch (c.ir >> 3) & 7 {
	case 0:
		opADDXreg(c)
	case 1:
		opADDXmem(c)
	default:
		binaryToEA(c, uop.AluAdd)
	}
}

func opSUBtoEA(c *CPU) {
	switch (c.ir >> 3) & 7 {
	case 0:
		opSUBXreg(c)
	case 1:
		opSUBXmem(c)
	default:
		binaryToEA(c, uop.AluSub)
	}
}

// --- ADDA / SUBA / CMPA ---

// addrOp implements ADDA, SUBA and CMPA. Opmode 3 is word, 7 is long; a
// word source is sign-extended and the operation always covers the whole
// address register.
func addrOp(c *CPU, alu uint8) {
	an := (c.ir >> 9) & 7
	sz := Word
	if (c.ir>>6)&7 == 7 {
		sz = Long
	}
	mode, reg := eaFields(c.ir)

	src, _, ok := c.decodeEA(mode, reg, sz, accessRead)
	if !ok {
		c.illegal()
		return
	}
	r, f := aluCompute(alu, src.read(c, sz), c.reg.A[an], sz)
	if alu == uop.AluCmpA {
		c.setCC(f, ccNZVC)
		c.cycles += cmpaCycles(mode, reg, sz)
		return
	}
	c.reg.A[an] = r
	c.cycles += addrArithCycles(mode, reg, sz)
}

func opADDA(c *CPU) {
	addrOp(c, uop.AluAddA)
}

func opSUBA(c *CPU) {
	addrOp(c, uop.AluSubA)
}

func opCMPA(c *CPU) {
	addrOp(c, uop.AluCmpA)
}

// --- ADDQ / SUBQ ---

func quick(c *CPU, alu uint8) {
	data := uint32((c.ir >> 9) & 7)
	if data == 0 {
		data = 8
	}
	sz := sizeEncoding((c.ir >> 6) & 3)
	mode, reg := eaFields(c.ir)

	if !eaLegal(mode, reg, sz, accessModify) {
		c.illegal()
		return
	}

	if mode == 1 {
		// Address register destination: always 32-bit, no flags
		if alu == uop.AluAdd {
			c.reg.A[reg] += data
		} else {
			c.reg.A[reg] -= data
		}
		c.cycles += quickCycles(mode, reg, sz)
		return
	}

	dst := c.resolveEA(mode, reg, sz)
	r, f := aluCompute(alu, data, dst.read(c, sz), sz)
	c.setCC(f, ccXNZVC)
	dst.write(c, sz, r)
	c.cycles += quickCycles(mode, reg, sz)
}

func opADDQ(c *CPU) {
	quick(c, uop.AluAdd)
}

func opSUBQ(c *CPU) {
	quick(c, uop.AluSub)
}

// --- ADDX / SUBX ---

// extendFlags merges the flags of an extended operation. Z is only ever
// cleared so that multi-precision chains test the whole value.
func (c *CPU) extendFlags(f uint16, result uint32, sz Size) {
	if result&sz.Mask() == 0 {
		f = f&^flagZ | c.reg.SR&flagZ
	}
	c.setCC(f, ccXNZVC)
}

func addExtend(c *CPU, s, d uint32, sz Size) uint32 {
	r := (d + s + c.xBit()) & sz.Mask()
	c.extendFlags(flagsAdd(s, d, r, sz), r, sz)
	return r
}

func subExtend(c *CPU, s, d uint32, sz Size) uint32 {
	r := (d - s - c.xBit()) & sz.Mask()
	c.extendFlags(flagsSub(s, d, r, sz), r, sz)
	return r
}

// extendReg implements the Dy,Dx forms of ADDX and SUBX.
func extendReg(c *CPU, op func(*CPU, uint32, uint32, Size) uint32) {
	rx := (c.ir >> 9) & 7
	ry := c.ir & 7
	sz := sizeEncoding((c.ir >> 6) & 3)

	mask := sz.Mask()
	r := op(c, c.reg.D[ry]&mask, c.reg.D[rx]&mask, sz)
	c.reg.D[rx] = c.reg.D[rx]&^mask | r

	if sz == Long {
		c.cycles += 8
	} else {
		c.cycles += 4
	}
}

// extendMem implements the -(Ay),-(Ax) forms of ADDX and SUBX.
func extendMem(c *CPU, op func(*CPU, uint32, uint32, Size) uint32) {
	rx := uint8((c.ir >> 9) & 7)
	ry := uint8(c.ir & 7)
	sz := sizeEncoding((c.ir >> 6) & 3)

	src := c.resolveEA(4, ry, sz)
	s := src.read(c, sz)
	dst := c.resolveEA(4, rx, sz)
	d := dst.read(c, sz)
	dst.write(c, sz, op(c, s, d, sz))

	if sz == Long {
		c.cycles += 30
	} else {
		c.cycles += 18
	}
}

func opADDXreg(c *CPU) {
	extendReg(c, addExtend)
}

func opADDXmem(c *CPU) {
	extendMem(c, addExtend)
}

func opSUBXreg(c *CPU) {
	extendReg(c, subExtend)
}

func opSUBXmem(c *CPU) {
	extendMem(c, subExtend)
}

// --- CMPM ---

func opCMPM(c *CPU) {
	sz := sizeEncoding((c.ir >> 6) & 3)
	ay := uint8(c.ir & 7)
	ax := uint8((c.ir >> 9) & 7)

	src := c.resolveEA(3, ay, sz) // (Ay)+
	s := src.read(c, sz)
	dst := c.resolveEA(3, ax, sz) // (Ax)+
	d := dst.read(c, sz)
	_, f := aluCompute(uop.AluCmp, s, d, sz)
	c.setCC(f, ccNZVC)

	if sz == Long {
		c.cycles += 20
	} else {
		c.cycles += 12
	}
}

// --- MULU / MULS ---

// mulDivSource resolves the word source shared by MULU, MULS, DIVU and DIVS.
func mulDivSource(c *CPU) (val uint32, fetch uint64, ok bool) {
	mode, reg := eaFields(c.ir)
	if mode == 1 || !eaLegal(mode, reg, Word, accessRead) {
		c.illegal()
		return 0, 0, false
	}
	src := c.resolveEA(mode, reg, Word)
	return src.read(c, Word), eaFetchCycles(mode, reg, Word), true
}

func opMULU(c *CPU) {
	dn := (c.ir >> 9) & 7
	s, fetch, ok := mulDivSource(c)
	if !ok {
		return
	}
	result := s * (c.reg.D[dn] & 0xFFFF)
	c.reg.D[dn] = result
	c.setFlagsLogical(result, Long)
	c.cycles += 70 + fetch // base varies 38-70, using worst-case
}

func opMULS(c *CPU) {
	dn := (c.ir >> 9) & 7
	s, fetch, ok := mulDivSource(c)
	if !ok {
		return
	}
	result := uint32(int32(int16(s)) * int32(int16(c.reg.D[dn])))
	c.reg.D[dn] = result
	c.setFlagsLogical(result, Long)
	c.cycles += 70 + fetch // base varies 38-70, using worst-case
}

// --- DIVU / DIVS ---

func opDIVU(c *CPU) {
	dn := (c.ir >> 9) & 7
	divisor, fetch, ok := mulDivSource(c)
	if !ok {
		return
	}
	if divisor == 0 {
		c.cycles += 4 + fetch
		c.raise(vecDivideByZero)
		return
	}

	dividend := c.reg.D[dn]
	quotient := dividend / divisor
	remainder := dividend % divisor

	if quotient > 0xFFFF {
		c.reg.SR = c.reg.SR&^flagC | flagV
	} else {
		c.reg.D[dn] = remainder<<16 | quotient
		c.setFlagsLogical(quotient, Word)
	}

	c.cycles += 140 + fetch // base varies 76-140, using worst-case
}

func opDIVS(c *CPU) {
	dn := (c.ir >> 9) & 7
	s, fetch, ok := mulDivSource(c)
	if !ok {
		return
	}
	divisor := int64(int16(s))
	if divisor == 0 {
		c.cycles += 4 + fetch
		c.raise(vecDivideByZero)
		return
	}

	dividend := int64(int32(c.reg.D[dn]))
	quotient := dividend / divisor
	remainder := dividend % divisor

	if quotient > 32767 || quotient < -32768 {
		c.reg.SR = c.reg.SR&^(flagC|flagZ) | flagV | flagN
	} else {
		c.reg.D[dn] = uint32(remainder&0xFFFF)<<16 | uint32(quotient)&0xFFFF
		c.setFlagsLogical(uint32(quotient), Word)
	}

	c.cycles += 158 + fetch // base varies 120-158, using worst-case
}

// --- NEG / NEGX / CLR ---

// unary implements the read-modify-write single operand instructions.
func unary(c *CPU, alu uint8) {
	sz := sizeEncoding((c.ir >> 6) & 3)
	mode, reg := eaFields(c.ir)
	if !eaDataAlterable(mode, reg) {
		c.illegal()
		return
	}

	dst := c.resolveEA(mode, reg, sz)
	var d uint32
	if alu != uop.AluClr {
		d = dst.read(c, sz)
	}
	r, f := aluCompute(alu, 0, d, sz)
	dst.write(c, sz, r)
	c.setCC(f, aluFlags(alu))
	c.cycles += unaryCycles(mode, reg, sz)
}

func opNEG(c *CPU) {
	unary(c, uop.AluNeg)
}

func opCLR(c *CPU) {
	unary(c, uop.AluClr)
}

func opNOT(c *CPU) {
	unary(c, uop.AluNot)
}

func opNEGX(c *CPU) {
	sz := sizeEncoding((c.ir >> 6) & 3)
	mode, reg := eaFields(c.ir)
	if !eaDataAlterable(mode, reg) {
		c.illegal()
		return
	}

	dst := c.resolveEA(mode, reg, sz)
	dst.write(c, sz, subExtend(c, dst.read(c, sz), 0, sz))
	c.cycles += unaryCycles(mode, reg, sz)
}

// --- EXT ---

func opEXT(c *CPU, sz Size) {
	dn := c.ir & 7
	r, f := aluCompute(uop.AluExt, 0, c.reg.D[dn], sz)
	mask := sz.Mask()
	c.reg.D[dn] = c.reg.D[dn]&^mask | r&mask
	c.setCC(f, ccNZVC)
	c.cycles += 4
}

// --- CHK ---

// opCHK implements CHK <ea>,Dn (word only on 68000).
func opCHK(c *CPU) {
	dn := (c.ir >> 9) & 7
	bound, fetch, ok := mulDivSource(c)
	if !ok {
		return
	}
	val := int16(c.reg.D[dn])

	switch {
	case val < 0:
		c.reg.SR = c.reg.SR&^ccNZVC | flagN
		c.cycles += 4 + fetch
		c.raise(vecCHK)
	case val > int16(bound):
		c.reg.SR &^= ccNZVC
		c.cycles += 4 + fetch
		c.raise(vecCHK)
	default:
		c.cycles += 10 + fetch
	}
}
