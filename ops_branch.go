package m68k

// branchTarget reads the displacement of a Bcc/BRA/BSR and returns the
// target. An 8-bit displacement of zero selects a 16-bit extension word;
// both are relative to the instruction address + 2.
func (c *CPU) branchTarget() uint32 {
	base := c.reg.PC
	disp := int32(int8(c.ir))
	if disp == 0 {
		disp = int32(int16(c.fetchPC()))
	}
	return uint32(int32(base) + disp)
}

// opBcc implements Bcc, BRA (cc=0) and BSR (cc=1).
// Encoding: 0110 CCCC DDDDDDDD
func opBcc(c *CPU) {
	cc := uint8(c.ir>>8) & 0xF
	target := c.branchTarget()

	switch {
	case cc == 0:
		c.reg.PC = target
		c.cycles += braCycles
	case cc == 1:
		c.pushLong(c.reg.PC)
		c.reg.PC = target
		c.cycles += bsrCycles
	case conditionTrue(c.reg.SR, cc):
		c.reg.PC = target
		c.cycles += bccTaken
	case c.ir&0xFF == 0:
		c.cycles += bccNotTakenWord
	default:
		c.cycles += bccNotTakenByte
	}
}

// opSccDBcc covers 0101 CCCC 11xx xxxx: DBcc for address register mode,
// Scc otherwise.
func opSccDBcc(c *CPU) {
	mode, reg := eaFields(c.ir)
	cc := uint8(c.ir>>8) & 0xF
	if mode == 1 {
		opDBcc(c, cc, reg)
		return
	}
	if !eaDataAlterable(mode, reg) {
		c.illegal()
		return
	}

	dst := c.resolveEA(mode, reg, Byte)
	taken := conditionTrue(c.reg.SR, cc)
	if taken {
		dst.write(c, Byte, 0xFF)
	} else {
		dst.write(c, Byte, 0x00)
	}
	c.cycles += sccCycles(mode, reg, taken)
}

// opDBcc implements DBcc Dn,<label>.
// Encoding: 0101 CCCC 1100 1DDD + 16-bit displacement
func opDBcc(c *CPU, cc, dn uint8) {
	base := c.reg.PC
	disp := int16(c.fetchPC())

	if conditionTrue(c.reg.SR, cc) {
		// Condition true: no branch, no decrement
		c.cycles += dbccCondTrue
		return
	}

	// Decrement low word of Dn
	val := uint16(c.reg.D[dn]) - 1
	c.reg.D[dn] = c.reg.D[dn]&0xFFFF0000 | uint32(val)

	if val == 0xFFFF {
		// Counter expired: fall through
		c.cycles += dbccExpired
		return
	}
	c.reg.PC = uint32(int32(base) + int32(disp))
	c.cycles += dbccTaken
}

// opJMP implements JMP <ea>.
// Encoding: 0100 1110 11ss ssss (control addressing modes)
func opJMP(c *CPU) {
	mode, reg := eaFields(c.ir)
	if !eaControl(mode, reg) {
		c.illegal()
		return
	}
	dst := c.resolveEA(mode, reg, Long)
	c.reg.PC = dst.address()
	c.cycles += jmpCycles(mode, reg)
}

// opJSR implements JSR <ea>. The pushed return address is the PC after
// any extension words.
func opJSR(c *CPU) {
	mode, reg := eaFields(c.ir)
	if !eaControl(mode, reg) {
		c.illegal()
		return
	}
	dst := c.resolveEA(mode, reg, Long)
	c.pushLong(c.reg.PC)
	c.reg.PC = dst.address()
	c.cycles += jsrCycles(mode, reg)
}

func opRTS(c *CPU) {
	c.reg.PC = c.popLong()
	c.cycles += rtsCycles
}

func opRTE(c *CPU) {
	if !c.privileged() {
		return
	}
	sr := c.popWord()
	pc := c.popLong()
	c.setSR(sr)
	c.reg.PC = pc
	c.cycles += 20
}

func opRTR(c *CPU) {
	ccr := c.popWord()
	c.setCCR(uint8(ccr))
	c.reg.PC = c.popLong()
	c.cycles += 20
}
