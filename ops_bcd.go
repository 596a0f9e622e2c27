package m68k

// ABCD / SBCD encoding: 1100 XXX1 0000 RYYY (ABCD), 1000 XXX1 0000 RYYY (SBCD)
// R=0: Dy,Dx  R=1: -(Ay),-(Ax)

// bcdReg applies op to the low bytes of Dy and Dx, storing into Dx.
func bcdReg(c *CPU, op func(*CPU, uint32, uint32) uint32) {
	rx := (c.ir >> 9) & 7
	ry := c.ir & 7

	result := op(c, c.reg.D[ry]&0xFF, c.reg.D[rx]&0xFF)
	c.reg.D[rx] = c.reg.D[rx]&0xFFFFFF00 | result
	c.cycles += 6
}

// bcdMem applies op to -(Ay) and -(Ax), storing into (Ax).
func bcdMem(c *CPU, op func(*CPU, uint32, uint32) uint32) {
	rx := uint8((c.ir >> 9) & 7)
	ry := uint8(c.ir & 7)

	src := c.resolveEA(4, ry, Byte)
	s := src.read(c, Byte)
	dst := c.resolveEA(4, rx, Byte)
	d := dst.read(c, Byte)
	dst.write(c, Byte, op(c, s, d))
	c.cycles += 18
}

func opABCDreg(c *CPU) { bcdReg(c, bcdAdd) }
func opABCDmem(c *CPU) { bcdMem(c, bcdAdd) }
func opSBCDreg(c *CPU) { bcdReg(c, bcdSub) }
func opSBCDmem(c *CPU) { bcdMem(c, bcdSub) }

// bcdAdd returns d + s + X in packed BCD and updates XNZVC. Z is only
// cleared, never set.
func bcdAdd(c *CPU, s, d uint32) uint32 {
	x := c.xBit()
	binary := s + d + x

	lo := (s & 0x0F) + (d & 0x0F) + x
	hi := (s & 0xF0) + (d & 0xF0)
	if lo > 9 {
		lo += 6
	}
	result := hi + lo

	carry := result > 0x99
	if carry {
		result += 0x60
	}

	r8 := result & 0xFF
	var f uint16
	if carry {
		f |= flagC | flagX
	}
	// V: bit 7 went from 0 to 1 during BCD correction
	if binary&0x80 == 0 && r8&0x80 != 0 {
		f |= flagV
	}
	c.bcdFlags(f, r8)
	return r8
}

// bcdSub returns d - s - X in packed BCD and updates XNZVC. Z is only
// cleared, never set.
func bcdSub(c *CPU, s, d uint32) uint32 {
	x := c.xBit()
	binary := d - s - x

	lo := (d & 0x0F) - (s & 0x0F) - x
	result := binary
	if lo&0x10 != 0 {
		result -= 6
	}

	borrow := d < s+x
	if borrow {
		result -= 0x60
	}

	r8 := result & 0xFF
	var f uint16
	if borrow {
		f |= flagC | flagX
	}
	// V: bit 7 went from 1 to 0 during BCD correction
	if binary&0x80 != 0 && r8&0x80 == 0 {
		f |= flagV
	}
	c.bcdFlags(f, r8)
	return r8
}

func (c *CPU) bcdFlags(f uint16, r8 uint32) {
	if r8&0x80 != 0 {
		f |= flagN
	}
	mask := flagX | flagN | flagV | flagC
	if r8 != 0 {
		mask |= flagZ
	}
	c.setCC(f, mask)
}

// opNBCD implements NBCD <ea>: 0 - <ea> - X in packed BCD.
// Encoding: 0100 1000 00ss ssss
func opNBCD(c *CPU) {
	mode, reg := eaFields(c.ir)
	if !eaDataAlterable(mode, reg) {
		c.illegal()
		return
	}

	dst := c.resolveEA(mode, reg, Byte)
	d := dst.read(c, Byte)
	dst.write(c, Byte, bcdSub(c, d, 0))

	if mode == 0 {
		c.cycles += 6
	} else {
		c.cycles += 8 + eaFetchCycles(mode, reg, Byte)
	}
}
