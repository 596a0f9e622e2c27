package m68k

// MC68000 exception vector numbers.
const (
	vecResetSSP           = 0
	vecResetPC            = 1
	vecBusError           = 2
	vecAddressError       = 3
	vecIllegalInstruction = 4
	vecDivideByZero       = 5
	vecCHK                = 6
	vecTRAPV              = 7
	vecPrivilegeViolation = 8
	vecTrace              = 9
	vecLineA              = 10
	vecLineF              = 11
	vecUninitialized      = 15
	vecSpuriousInterrupt  = 24
	vecAutoVector1        = 25
	vecTrap0              = 32 // TRAP #0 through TRAP #15 = vectors 32-47
)

// exceptionCycles returns the processing cost of taking an exception,
// excluding any cycles the faulting instruction already charged.
func exceptionCycles(vector uint8) uint64 {
	switch {
	case vector == vecBusError || vector == vecAddressError:
		return 50
	case vector == vecDivideByZero:
		return 38
	case vector == vecCHK:
		return 40
	case vector >= vecSpuriousInterrupt && vector < vecTrap0:
		return 44
	}
	return 34
}

// Fault status word bits for the group 0 exception frame.
const (
	faultRead        = 0x10
	faultNotInsn     = 0x08
	fcUserData       = 1
	fcUserProgram    = 2
	fcSupervisorData = 5
	fcSupervisorProg = 6
)

// busFault carries the details of an address error. readBus and writeBus
// panic with it to abort the instruction; execute recovers it.
type busFault struct {
	addr   uint32
	status uint16
}

// faultStatus builds the status word for an access in the current mode.
func (c *CPU) faultStatus(write, insn bool) uint16 {
	var st uint16
	if !write {
		st |= faultRead
	}
	switch {
	case insn && c.supervisor():
		st |= fcSupervisorProg
	case insn:
		st |= fcUserProgram
	case c.supervisor():
		st |= faultNotInsn | fcSupervisorData
	default:
		st |= faultNotInsn | fcUserData
	}
	return st
}

// raise marks an exception as pending. The instruction that raises it
// returns normally; the exception is taken at the instruction boundary.
func (c *CPU) raise(vector uint8) {
	if c.exc == 0 {
		c.exc = vector
	}
}

// illegal raises the exception for an unimplemented opcode. The stacked
// PC is the address of the offending instruction.
func (c *CPU) illegal() {
	c.reg.PC = c.prevPC
	switch c.ir >> 12 {
	case 0xA:
		c.raise(vecLineA)
	case 0xF:
		c.raise(vecLineF)
	default:
		c.raise(vecIllegalInstruction)
	}
}

// privileged reports whether the CPU is in supervisor mode and raises a
// privilege violation otherwise.
func (c *CPU) privileged() bool {
	if c.supervisor() {
		return true
	}
	c.reg.PC = c.prevPC
	c.raise(vecPrivilegeViolation)
	return false
}

// addressError records the fault frame data and raises vector 3.
func (c *CPU) addressError(f busFault) {
	c.fault = f
	c.raise(vecAddressError)
}

// takeException processes the pending exception: enters supervisor mode,
// pushes the return frame, reads the vector, and jumps to the handler.
// Interrupts pass their level so the mask is raised to it.
func (c *CPU) takeException() {
	c.enterException(c.exc, 0)
}

func (c *CPU) enterException(vector, level uint8) {
	c.exc = 0
	c.lastException = vector

	// Log error exceptions (vectors 2-11) for diagnostics
	if vector >= vecBusError && vector <= vecLineF {
		c.logf("exception %d at PC=%06x SR=%04x", vector, c.reg.PC, c.reg.SR)
	}

	oldSR := c.reg.SR

	// Enter supervisor mode, clear trace
	if c.reg.SR&flagS == 0 {
		c.reg.USP = c.reg.A[7]
		c.reg.A[7] = c.reg.SSP
	}
	c.reg.SR = (c.reg.SR | flagS) & ^flagT
	if level != 0 {
		c.reg.SR = (c.reg.SR & 0xF8FF) | uint16(level)<<8
	}

	if c.reg.A[7]&1 != 0 {
		c.doubleFault("odd stack pointer %06x taking vector %d", c.reg.A[7], vector)
		return
	}

	c.pushLong(c.reg.PC)
	c.pushWord(oldSR)
	if vector == vecBusError || vector == vecAddressError {
		c.pushWord(c.ir)
		c.pushLong(c.fault.addr)
		c.pushWord(c.fault.status)
	}

	// Read handler address from vector table
	addr := c.readBus(Long, uint32(vector)*4)
	if addr == 0 {
		fallback := uint32(vecUninitialized)
		if level != 0 {
			fallback = vecSpuriousInterrupt
		}
		c.logf("vector %d uninitialized, using vector %d", vector, fallback)
		addr = c.readBus(Long, fallback*4)
		if addr == 0 {
			c.doubleFault("no handler for vector %d", vector)
			return
		}
	}
	if addr&1 != 0 {
		c.doubleFault("odd handler address %06x for vector %d", addr, vector)
		return
	}
	c.reg.PC = addr
	if level != 0 {
		c.cycles += 44
	} else {
		c.cycles += exceptionCycles(vector)
	}
	if c.jit != nil {
		c.jit.dropResume()
	}
}

// doubleFault halts the processor. Only a reset recovers.
func (c *CPU) doubleFault(format string, args ...any) {
	c.logf("double fault: "+format, args...)
	c.halted = true
}
