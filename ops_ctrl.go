package m68k

func opNOP(c *CPU) {
	c.cycles += 4
}

// opSTOP loads SR and waits for an interrupt. PC is left after the
// immediate word, so the interrupt frame returns to the next instruction.
func opSTOP(c *CPU) {
	if !c.privileged() {
		return
	}
	imm := c.fetchPC()
	c.setSR(imm)
	c.stopped = true
	c.cycles += 4
}

func opRESET(c *CPU) {
	if !c.privileged() {
		return
	}
	c.bus.Reset()
	c.cycles += 132
}

// opTRAP implements TRAP #n (vector 32+n).
func opTRAP(c *CPU) {
	c.cycles += 4
	c.raise(vecTrap0 + uint8(c.ir&0xF))
}

func opTRAPV(c *CPU) {
	if c.reg.SR&flagV != 0 {
		c.raise(vecTRAPV)
		return
	}
	c.cycles += 4
}

// opLINK implements LINK An,#disp.
// Encoding: 0100 1110 0101 0AAA
func opLINK(c *CPU) {
	an := c.ir & 7
	disp := int16(c.fetchPC())

	if an == 7 {
		// The stacked value is the already decremented stack pointer
		c.reg.A[7] -= 4
		c.writeBus(Long, c.reg.A[7], c.reg.A[7])
	} else {
		c.pushLong(c.reg.A[an])
		c.reg.A[an] = c.reg.A[7]
	}
	c.reg.A[7] = uint32(int32(c.reg.A[7]) + int32(disp))

	c.cycles += 16
}

// opUNLK implements UNLK An.
// Encoding: 0100 1110 0101 1AAA
func opUNLK(c *CPU) {
	an := c.ir & 7
	c.reg.A[7] = c.reg.A[an]
	c.reg.A[an] = c.popLong()

	c.cycles += 12
}

// --- MOVE to/from SR, MOVE to CCR, MOVE USP ---

// opMOVEfromSR implements MOVE SR,<ea>, unprivileged on the 68000.
func opMOVEfromSR(c *CPU) {
	mode, reg := eaFields(c.ir)
	if !eaDataAlterable(mode, reg) {
		c.illegal()
		return
	}

	dst := c.resolveEA(mode, reg, Word)
	dst.write(c, Word, uint32(c.reg.SR))

	if mode == 0 {
		c.cycles += 6
	} else {
		c.cycles += 8 + eaFetchCycles(mode, reg, Word)
	}
}

// srSource resolves the word source of MOVE to CCR / MOVE to SR.
func srSource(c *CPU) (mode, reg uint8, ok bool) {
	mode, reg = eaFields(c.ir)
	if mode == 1 || !eaLegal(mode, reg, Word, accessRead) {
		c.illegal()
		return mode, reg, false
	}
	return mode, reg, true
}

func opMOVEtoCCR(c *CPU) {
	mode, reg, ok := srSource(c)
	if !ok {
		return
	}
	src := c.resolveEA(mode, reg, Word)
	c.setCCR(uint8(src.read(c, Word)))
	c.cycles += 12 + eaFetchCycles(mode, reg, Word)
}

func opMOVEtoSR(c *CPU) {
	mode, reg, ok := srSource(c)
	if !ok || !c.privileged() {
		return
	}
	src := c.resolveEA(mode, reg, Word)
	c.setSR(uint16(src.read(c, Word)))
	c.cycles += 12 + eaFetchCycles(mode, reg, Word)
}

// opMOVEtoUSP implements MOVE An,USP.
func opMOVEtoUSP(c *CPU) {
	if !c.privileged() {
		return
	}
	c.reg.USP = c.reg.A[c.ir&7]
	c.cycles += 4
}

// opMOVEfromUSP implements MOVE USP,An.
func opMOVEfromUSP(c *CPU) {
	if !c.privileged() {
		return
	}
	c.reg.A[c.ir&7] = c.reg.USP
	c.cycles += 4
}

// --- ORI/ANDI/EORI to CCR and SR ---
// kind is the immediate group selector: 0=OR, 1=AND, 5=EOR.

func applyImm(kind uint16, v, imm uint16) uint16 {
	switch kind {
	case 0:
		return v | imm
	case 1:
		return v & imm
	}
	return v ^ imm
}

func opImmToCCR(c *CPU, kind uint16) {
	imm := c.fetchPC()
	c.setCCR(uint8(applyImm(kind, c.reg.SR&0xFF, imm&0xFF)))
	c.cycles += 20
}

func opImmToSR(c *CPU, kind uint16) {
	if !c.privileged() {
		return
	}
	imm := c.fetchPC()
	c.setSR(applyImm(kind, c.reg.SR, imm))
	c.cycles += 20
}
