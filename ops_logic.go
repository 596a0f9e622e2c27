package m68k

import "github.com/user-none/go-chip-m68k-jit/internal/uop"

// --- AND / OR / EOR ---

func opAND(c *CPU) {
	binaryToReg(c, uop.AluAnd)
}

func opOR(c *CPU) {
	binaryToReg(c, uop.AluOr)
}

// opANDtoEA covers opmodes 4-6 of the 1100 group, shared with ABCD and EXG.
func opANDtoEA(c *CPU) {
	opmode := (c.ir >> 6) & 7
	mode := (c.ir >> 3) & 7
	switch {
	case opmode == 4 && mode == 0:
		opABCDreg(c)
	case opmode == 4 && mode == 1:
		opABCDmem(c)
	case opmode == 5 && mode < 2, opmode == 6 && mode == 1:
		opEXG(c)
	case mode < 2:
		c.illegal()
	default:
		binaryToEA(c, uop.AluAnd)
	}
}

// opORtoEA covers opmodes 4-6 of the 1000 group, shared with SBCD.
func opORtoEA(c *CPU) {
	opmode := (c.ir >> 6) & 7
	mode := (c.ir >> 3) & 7
	switch {
	case opmode == 4 && mode == 0:
		opSBCDreg(c)
	case opmode == 4 && mode == 1:
		opSBCDmem(c)
	case mode < 2:
		c.illegal()
	default:
		binaryToEA(c, uop.AluOr)
	}
}

// opEOR implements EOR Dn,<ea>. Address register mode in this opmode is
// CMPM.
func opEOR(c *CPU) {
	dn := (c.ir >> 9) & 7
	sz := sizeEncoding(((c.ir >> 6) & 7) - 4)
	mode, reg := eaFields(c.ir)

	if mode == 1 {
		opCMPM(c)
		return
	}
	if !eaDataAlterable(mode, reg) {
		c.illegal()
		return
	}

	dst := c.resolveEA(mode, reg, sz)
	r, f := aluCompute(uop.AluEor, c.reg.D[dn], dst.read(c, sz), sz)
	c.setCC(f, ccNZVC)
	dst.write(c, sz, r)
	c.cycles += eorCycles(mode, reg, sz)
}

// --- TST / TAS ---

func opTST(c *CPU) {
	sz := sizeEncoding((c.ir >> 6) & 3)
	mode, reg := eaFields(c.ir)
	if !eaDataAlterable(mode, reg) {
		c.illegal()
		return
	}

	src := c.resolveEA(mode, reg, sz)
	_, f := aluCompute(uop.AluTst, 0, src.read(c, sz), sz)
	c.setCC(f, ccNZVC)
	c.cycles += tstCycles(mode, reg, sz)
}

// opTAS implements TAS <ea>. 0x4AFC in the same slot is the designated
// ILLEGAL instruction.
func opTAS(c *CPU) {
	mode, reg := eaFields(c.ir)
	if !eaDataAlterable(mode, reg) {
		c.illegal()
		return
	}

	dst := c.resolveEA(mode, reg, Byte)
	val := dst.read(c, Byte)
	c.setFlagsLogical(val, Byte)
	dst.write(c, Byte, val|0x80)

	if mode == 0 {
		c.cycles += 4
	} else {
		c.cycles += 10 + eaFetchCycles(mode, reg, Byte)
	}
}

// --- Shifts and Rotates ---
// ASL, ASR, LSL, LSR, ROL, ROR, ROXL, ROXR
// Register form: 1110 CCC D SS i TT RRR
//   CCC = count/register, D = direction (0=right, 1=left)
//   SS = size, i = 0:immediate count 1:register count
//   TT = type (00=AS, 01=LS, 10=ROX, 11=RO)
//   RRR = data register
// Memory form: 1110 0TT D 11 eee eee (always word, count=1)

const (
	shiftAS = iota
	shiftLS
	shiftROX
	shiftRO
)

func opShiftReg(c *CPU) {
	cnt := (c.ir >> 9) & 7
	left := c.ir&0x0100 != 0
	sz := sizeEncoding((c.ir >> 6) & 3)
	typ := (c.ir >> 3) & 3
	dreg := c.ir & 7

	var count uint32
	if c.ir&0x0020 != 0 {
		count = c.reg.D[cnt] & 63
	} else {
		count = uint32(cnt)
		if count == 0 {
			count = 8
		}
	}

	mask := sz.Mask()
	r, f, affected := shift(c.reg.D[dreg]&mask, count, left, typ, sz, c.reg.SR&flagX != 0)
	c.reg.D[dreg] = c.reg.D[dreg]&^mask | r
	c.setCC(f, affected)

	c.cycles += 6 + 2*uint64(count)
	if sz == Long {
		c.cycles += 2
	}
}

func opShiftMem(c *CPU) {
	mode, reg := eaFields(c.ir)
	if c.ir&0x0800 != 0 || mode < 2 || !eaLegal(mode, reg, Word, accessModify) {
		c.illegal()
		return
	}
	left := c.ir&0x0100 != 0
	typ := (c.ir >> 9) & 3

	dst := c.resolveEA(mode, reg, Word)
	r, f, affected := shift(dst.read(c, Word), 1, left, typ, Word, c.reg.SR&flagX != 0)
	c.setCC(f, affected)
	dst.write(c, Word, r)

	c.cycles += 8 + eaFetchCycles(mode, reg, Word)
}

// shift performs a shift or rotate of val by count. It returns the
// result, the produced flags, and the mask of flags the operation writes.
// X is left alone by RO and by any zero count.
func shift(val, count uint32, left bool, typ uint16, sz Size, x bool) (uint32, uint16, uint16) {
	msb := sz.MSB()
	mask := sz.Mask()
	bits := sz.Bits()

	if count == 0 {
		f := flagsLogical(val, sz)
		if typ == shiftROX && x {
			f |= flagC
		}
		return val, f, ccNZVC
	}

	var result uint32
	var f uint16
	affected := ccXNZVC

	switch typ {
	case shiftAS:
		var lastOut uint32
		if left {
			result = val
			for i := uint32(0); i < count; i++ {
				top := result & msb
				result = (result << 1) & mask
				if result&msb != top {
					f |= flagV
				}
			}
			if count <= bits {
				lastOut = (val >> (bits - count)) & 1
			}
		} else {
			sign := val & msb
			result = val
			for i := uint32(0); i < count; i++ {
				result = (result >> 1) | sign
			}
			result &= mask
			if count >= bits {
				lastOut = (val >> (bits - 1)) & 1
			} else {
				lastOut = (val >> (count - 1)) & 1
			}
		}
		if lastOut != 0 {
			f |= flagC | flagX
		}

	case shiftLS:
		var lastOut uint32
		if left {
			if count < bits {
				result = (val << count) & mask
			}
			if count <= bits {
				lastOut = (val >> (bits - count)) & 1
			}
		} else {
			if count < bits {
				result = val >> count
			}
			if count <= bits {
				lastOut = (val >> (count - 1)) & 1
			}
		}
		if lastOut != 0 {
			f |= flagC | flagX
		}

	case shiftROX:
		result = val
		carry := x
		for i := uint32(0); i < count; i++ {
			var in uint32
			if carry {
				in = 1
			}
			if left {
				carry = result&msb != 0
				result = ((result << 1) | in) & mask
			} else {
				carry = result&1 != 0
				result = (result >> 1) | in<<(bits-1)
			}
		}
		if carry {
			f |= flagC | flagX
		}

	case shiftRO:
		affected = ccNZVC
		n := count % bits
		if left {
			result = ((val << n) | (val >> (bits - n))) & mask
			if result&1 != 0 {
				f |= flagC
			}
		} else {
			result = ((val >> n) | (val << (bits - n))) & mask
			if result&msb != 0 {
				f |= flagC
			}
		}
	}

	if result&msb != 0 {
		f |= flagN
	}
	if result == 0 {
		f |= flagZ
	}
	return result, f, affected
}
