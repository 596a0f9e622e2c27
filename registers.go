package m68k

// Registers returns a snapshot of the programmer-visible registers. The
// inactive stack pointer is kept up to date in USP or SSP.
func (c *CPU) Registers() Registers {
	r := c.reg
	if r.SR&flagS != 0 {
		r.SSP = r.A[7]
	} else {
		r.USP = r.A[7]
	}
	return r
}

// SetState loads a complete register set and clears the run state
// (stopped, halted, pending exception and interrupt, cycle counter).
// A7 is taken from SSP or USP according to SR.
func (c *CPU) SetState(regs Registers) {
	c.cycleBus, _ = c.bus.(CycleBus)
	c.reg.D = regs.D
	c.reg.SR = regs.SR & srMask
	c.reg.USP = regs.USP
	c.reg.SSP = regs.SSP
	c.reg.PC = regs.PC
	c.reg.IR = regs.IR
	c.stopped = false
	c.halted = false
	c.cycles = 0
	c.deficit = 0
	c.irq = 0
	c.irqVec = nil
	c.exc = 0

	// A7 is the active stack pointer: SSP in supervisor mode, USP in user mode
	for i := 0; i < 7; i++ {
		c.reg.A[i] = regs.A[i]
	}
	if regs.SR&flagS != 0 {
		c.reg.A[7] = regs.SSP
	} else {
		c.reg.A[7] = regs.USP
	}
	if c.jit != nil {
		c.jit.dropResume()
	}
}

// D returns data register n (0-7).
func (c *CPU) D(n int) uint32 {
	return c.reg.D[n&7]
}

// SetD sets data register n (0-7).
func (c *CPU) SetD(n int, v uint32) {
	c.reg.D[n&7] = v
}

// A returns address register n (0-7). A7 is the active stack pointer.
func (c *CPU) A(n int) uint32 {
	return c.reg.A[n&7]
}

// SetA sets address register n (0-7). A7 is the active stack pointer.
func (c *CPU) SetA(n int, v uint32) {
	c.reg.A[n&7] = v
}

func (c *CPU) PC() uint32 {
	return c.reg.PC
}

// SetPC moves execution to pc. A STOP in progress is not cancelled.
func (c *CPU) SetPC(pc uint32) {
	c.reg.PC = pc
	if c.jit != nil {
		c.jit.dropResume()
	}
}

func (c *CPU) SR() uint16 {
	return c.reg.SR
}

// SetSR writes the status register, swapping stacks on a mode change. A
// lowered interrupt mask takes effect at the next instruction boundary.
func (c *CPU) SetSR(sr uint16) {
	c.setSR(sr)
	if c.jit != nil {
		c.jit.dropResume()
	}
}

// USP returns the user stack pointer, live in A7 while in user mode.
func (c *CPU) USP() uint32 {
	if c.supervisor() {
		return c.reg.USP
	}
	return c.reg.A[7]
}

func (c *CPU) SetUSP(v uint32) {
	if c.supervisor() {
		c.reg.USP = v
	} else {
		c.reg.A[7] = v
	}
}

// SSP returns the supervisor stack pointer, live in A7 while in
// supervisor mode.
func (c *CPU) SSP() uint32 {
	if c.supervisor() {
		return c.reg.A[7]
	}
	return c.reg.SSP
}

func (c *CPU) SetSSP(v uint32) {
	if c.supervisor() {
		c.reg.A[7] = v
	} else {
		c.reg.SSP = v
	}
}
