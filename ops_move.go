package m68k

import (
	"math/bits"

	"github.com/user-none/go-chip-m68k-jit/internal/uop"
)

// opMove implements MOVE and MOVEA.
// Encoding: 00SS DDDd ddss ssss
//
//	SS = size (01=B, 11=W, 10=L)
//	DDD/ddd = destination reg/mode (note: reversed from source)
//	sss/ssssss = source mode/reg
func opMove(c *CPU) {
	sz := moveSizeMap[(c.ir>>12)&3]
	srcMode, srcReg := eaFields(c.ir)
	dstMode := uint8((c.ir >> 6) & 7)
	dstReg := uint8((c.ir >> 9) & 7)

	if dstMode == 1 {
		opMOVEA(c, sz, srcMode, srcReg, dstReg)
		return
	}
	if !eaLegal(srcMode, srcReg, sz, accessRead) || !eaDataAlterable(dstMode, dstReg) {
		c.illegal()
		return
	}

	src := c.resolveEA(srcMode, srcReg, sz)
	val := src.read(c, sz)
	dst := c.resolveEA(dstMode, dstReg, sz)
	dst.write(c, sz, val)

	c.setFlagsLogical(val, sz)
	c.cycles += moveCycles(srcMode, srcReg, dstMode, dstReg, sz)
}

// opMOVEA loads an address register. Word sources are sign-extended and
// condition codes are not affected.
func opMOVEA(c *CPU, sz Size, srcMode, srcReg, an uint8) {
	if sz == Byte || !eaLegal(srcMode, srcReg, sz, accessRead) {
		c.illegal()
		return
	}
	src := c.resolveEA(srcMode, srcReg, sz)
	c.reg.A[an] = signExtend(src.read(c, sz), sz)
	c.cycles += moveaCycles(srcMode, srcReg, sz)
}

// opMOVEQ implements MOVEQ #imm8,Dn.
// Encoding: 0111 DDD0 dddddddd
func opMOVEQ(c *CPU) {
	dn := (c.ir >> 9) & 7
	c.reg.D[dn] = signExtend(uint32(c.ir), Byte)
	c.setFlagsLogical(c.reg.D[dn], Long)
	c.cycles += 4
}

// opLEA implements LEA <ea>,An.
// Encoding: 0100 AAA1 11ss ssss (control addressing modes only)
func opLEA(c *CPU) {
	an := (c.ir >> 9) & 7
	mode, reg := eaFields(c.ir)
	if !eaControl(mode, reg) {
		c.illegal()
		return
	}
	src := c.resolveEA(mode, reg, Long)
	c.reg.A[an] = src.address()
	c.cycles += leaCycles(mode, reg)
}

// opPEAorSWAP covers 0100 1000 01xx xxxx: SWAP Dn for data register mode,
// PEA <ea> for control modes.
func opPEAorSWAP(c *CPU) {
	mode, reg := eaFields(c.ir)
	if mode == 0 {
		r, f := aluCompute(uop.AluSwap, 0, c.reg.D[reg], Long)
		c.reg.D[reg] = r
		c.setCC(f, ccNZVC)
		c.cycles += 4
		return
	}
	if !eaControl(mode, reg) {
		c.illegal()
		return
	}
	src := c.resolveEA(mode, reg, Long)
	c.pushLong(src.address())
	c.cycles += peaCycles(mode, reg)
}

// --- MOVEM ---
// Encoding: 0100 1D00 1Sss ssss  D=direction(0=reg-to-mem,1=mem-to-reg), S=size(0=W,1=L)

// opMOVEMorEXT covers 0100 1000 1Sxx xxxx. Data register mode selects
// EXT.W / EXT.L; everything else is MOVEM registers to memory.
func opMOVEMorEXT(c *CPU) {
	mode, reg := eaFields(c.ir)
	long := c.ir&0x0040 != 0
	if mode == 0 {
		if long {
			opEXT(c, Long)
		} else {
			opEXT(c, Word)
		}
		return
	}
	if mode != 4 && (!eaControl(mode, reg) || mode == 7 && reg > 1) {
		c.illegal()
		return
	}

	sz := Word
	if long {
		sz = Long
	}
	mask := c.fetchPC()

	if mode == 4 {
		// -(An): mask is reversed, bit 0=A7, bit 15=D0. A stored base
		// register holds its initial value.
		addr := c.reg.A[reg]
		for i := 0; i < 16; i++ {
			if mask&(1<<uint(i)) == 0 {
				continue
			}
			addr -= uint32(sz)
			ri := 15 - i
			if ri < 8 {
				c.writeBus(sz, addr, c.reg.D[ri])
			} else {
				c.writeBus(sz, addr, c.reg.A[ri-8])
			}
		}
		c.reg.A[reg] = addr
	} else {
		dst := c.resolveEA(mode, reg, sz)
		addr := dst.address()
		for i := 0; i < 16; i++ {
			if mask&(1<<uint(i)) == 0 {
				continue
			}
			if i < 8 {
				c.writeBus(sz, addr, c.reg.D[i])
			} else {
				c.writeBus(sz, addr, c.reg.A[i-8])
			}
			addr += uint32(sz)
		}
	}

	c.cycles += movemCycles(false, mode, reg, sz, mask)
}

// opMOVEMload implements MOVEM memory to registers. Word loads are
// sign-extended into the full register, data registers included.
func opMOVEMload(c *CPU) {
	mode, reg := eaFields(c.ir)
	if mode != 3 && !eaControl(mode, reg) {
		c.illegal()
		return
	}

	sz := Word
	if c.ir&0x0040 != 0 {
		sz = Long
	}
	mask := c.fetchPC()

	var addr uint32
	if mode == 3 {
		addr = c.reg.A[reg]
	} else {
		src := c.resolveEA(mode, reg, sz)
		addr = src.address()
	}
	for i := 0; i < 16; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		val := signExtend(c.readBus(sz, addr), sz)
		if i < 8 {
			c.reg.D[i] = val
		} else {
			c.reg.A[i-8] = val
		}
		addr += uint32(sz)
	}
	if mode == 3 {
		c.reg.A[reg] = addr
	}

	c.cycles += movemCycles(true, mode, reg, sz, mask)
}

// movemCycles follows PRM Table 8-7: a per-mode base plus 4 cycles per
// word register or 8 per long register.
func movemCycles(load bool, mode, reg uint8, sz Size, mask uint16) uint64 {
	n := uint64(bits.OnesCount16(mask))
	perReg := uint64(4)
	if sz == Long {
		perReg = 8
	}

	var base uint64
	switch mode {
	case 2, 3, 4:
		base = 8
	case 5:
		base = 12
	case 6:
		base = 14
	case 7:
		switch reg {
		case 0, 2:
			base = 12
		case 1:
			base = 16
		case 3:
			base = 14
		}
	}
	if load {
		base += 4
	}
	return base + n*perReg
}

// opEXG implements EXG Dx,Dy / EXG Ax,Ay / EXG Dx,Ay.
// Encoding: 1100 XXX1 MMMM MYYY
func opEXG(c *CPU) {
	rx := (c.ir >> 9) & 7
	ry := c.ir & 7

	switch (c.ir >> 3) & 0x1F {
	case 0x08: // Data-Data
		c.reg.D[rx], c.reg.D[ry] = c.reg.D[ry], c.reg.D[rx]
	case 0x09: // Addr-Addr
		c.reg.A[rx], c.reg.A[ry] = c.reg.A[ry], c.reg.A[rx]
	case 0x11: // Data-Addr
		c.reg.D[rx], c.reg.A[ry] = c.reg.A[ry], c.reg.D[rx]
	}

	c.cycles += 6
}

// opMOVEP transfers alternate bytes between a data register and memory.
// Encoding: 0000 DDD OOO 001 AAA + 16-bit displacement
//
//	OOO=100: MOVEP.W (An),Dn   101: MOVEP.L (An),Dn
//	OOO=110: MOVEP.W Dn,(An)   111: MOVEP.L Dn,(An)
func opMOVEP(c *CPU) {
	dn := (c.ir >> 9) & 7
	an := c.ir & 7
	disp := int16(c.fetchPC())
	addr := uint32(int32(c.reg.A[an]) + int32(disp))

	n := 2
	if c.ir&0x0040 != 0 {
		n = 4
	}

	if c.ir&0x0080 == 0 {
		var val uint32
		for i := 0; i < n; i++ {
			val = val<<8 | c.readBus(Byte, addr+uint32(i*2))
		}
		if n == 2 {
			c.reg.D[dn] = c.reg.D[dn]&0xFFFF0000 | val
		} else {
			c.reg.D[dn] = val
		}
	} else {
		val := c.reg.D[dn]
		for i := 0; i < n; i++ {
			shift := uint(8 * (n - 1 - i))
			c.writeBus(Byte, addr+uint32(i*2), (val>>shift)&0xFF)
		}
	}

	c.cycles += 8 + 4*uint64(n)
}
