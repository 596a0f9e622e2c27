package m68k

// SetIRQ sets the interrupt request level presented to the CPU (0-7).
// The level is compared against the SR mask at instruction boundaries,
// after SR writes, and between translated blocks. An accepted interrupt
// acknowledges the request, returning the level to 0.
func (c *CPU) SetIRQ(level uint8) {
	c.irq = level & 7
	c.irqVec = nil
}

// IRQ returns the current interrupt request level.
func (c *CPU) IRQ() uint8 {
	return c.irq
}

// RequestInterrupt queues an interrupt at the given priority level (1-7).
// Pass nil for vector to use auto-vectoring.
// A higher level replaces a lower pending level.
func (c *CPU) RequestInterrupt(level uint8, vector *uint8) {
	level &= 7
	if level > c.irq {
		c.irq = level
		c.irqVec = vector
	}
}

// interruptReady reports whether the requested level beats the mask.
// Level 7 is non-maskable.
func (c *CPU) interruptReady() bool {
	if c.irq == 0 {
		return false
	}
	mask := uint8((c.reg.SR >> 8) & 7)
	return c.irq > mask || c.irq == 7
}

// checkInterrupt services the pending interrupt if it is not masked and
// reports whether it did.
func (c *CPU) checkInterrupt() bool {
	if c.halted || !c.interruptReady() {
		return false
	}

	level := c.irq
	vec := c.irqVec
	c.irq = 0
	c.irqVec = nil
	c.stopped = false

	vectorNum := uint8(vecAutoVector1 - 1 + level)
	if vec != nil {
		vectorNum = *vec
	}
	c.enterException(vectorNum, level)
	return true
}
