// Package m68k implements a Motorola 68000 CPU emulator with a block
// translator.
//
// The MC68000 is a 32-bit internal / 16-bit external CISC processor with:
//   - Eight 32-bit data registers (D0-D7)
//   - Eight 32-bit address registers (A0-A7), where A7 is the stack pointer
//   - A 32-bit program counter (24-bit external address bus)
//   - A 16-bit status register (system byte + condition code register)
//   - Dual stack pointers (USP for user mode, SSP for supervisor mode)
//
// Instructions are executed either one at a time by the interpreter, or
// in translated blocks: runs of guest instructions compiled to a compact
// micro-op form, cached by start address and chained together. Both paths
// produce identical architectural state and cycle counts.
package m68k

import (
	"fmt"
	"log"
)

// Bus provides word-aligned memory access for the CPU.
// All addresses are 24-bit (masked by the CPU before calling). Word and
// long accesses are always to even addresses; odd accesses raise an
// address error inside the CPU and never reach the bus.
type Bus interface {
	Read(op Size, addr uint32) uint32
	Write(op Size, addr uint32, val uint32)
	Reset()
}

// CycleBus is optionally implemented by a Bus that needs
// per-access cycle timestamps (e.g., for device timing, DMA).
type CycleBus interface {
	Bus
	ReadCycle(cycle uint64, op Size, addr uint32) uint32
	WriteCycle(cycle uint64, op Size, addr uint32, val uint32)
}

// Registers holds the programmer-visible state of the MC68000.
type Registers struct {
	D   [8]uint32 // Data registers
	A   [8]uint32 // Address registers (A7 is active stack pointer)
	PC  uint32    // Program counter
	SR  uint16    // Status register
	USP uint32    // User stack pointer (shadowed)
	SSP uint32    // Supervisor stack pointer (shadowed)
	IR  uint16    // Instruction register (first word of executing instruction)
}

// CPU is the MC68000 processor. A CPU is not safe for concurrent use.
type CPU struct {
	reg      Registers
	bus      Bus
	cycleBus CycleBus // non-nil when bus implements CycleBus
	cycles   uint64

	// The instruction register holds the first word of the currently
	// executing instruction, latched at fetch time.
	ir uint16

	stopped bool   // Set by STOP, cleared by interrupt
	halted  bool   // Set by double fault
	prevPC  uint32 // PC of the current instruction

	// Interrupt request
	irq    uint8  // Requested priority level (1-7, 0=none)
	irqVec *uint8 // Vector for the request (nil = auto-vector)

	// Exception state
	exc           uint8    // Pending exception vector, 0 = none
	lastException uint8    // Most recently taken vector
	fault         busFault // Frame data for the pending address error

	// Cycle deficit from StepCycles when an instruction's cost exceeded the budget.
	deficit int

	cfg config
	log *log.Logger
	jit *jit // nil when translation is disabled
}

// New creates a CPU wired to the given bus and performs a hardware reset.
// The reset reads the initial SSP from address 0 and PC from address 4.
func New(bus Bus, opts ...Option) *CPU {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &CPU{bus: bus, cfg: cfg, log: cfg.logger}
	if c.log == nil {
		c.log = log.Default()
	}
	if cfg.jit {
		c.jit = newJIT(c)
	}
	c.Reset()
	return c
}

// Close releases every translated block. The CPU keeps working through
// the interpreter afterwards. An allocator that reports failed releases,
// such as codemem.Mmap, has its last failure returned.
func (c *CPU) Close() error {
	if c.jit == nil {
		return nil
	}
	c.jit.reset()
	alloc := c.jit.alloc
	c.jit = nil
	if fe, ok := alloc.(interface{ FreeErrors() (int, error) }); ok {
		if n, err := fe.FreeErrors(); n > 0 {
			return fmt.Errorf("m68k: %d code buffers not released: %w", n, err)
		}
	}
	return nil
}

// Reset performs a hardware reset: loads SSP from address 0x000000 and
// PC from address 0x000004, enters supervisor mode with interrupts masked.
// All translated code is discarded.
func (c *CPU) Reset() {
	c.cycleBus, _ = c.bus.(CycleBus)
	c.reg = Registers{SR: 0x2700}
	c.stopped = false
	c.halted = false
	c.cycles = 0
	c.deficit = 0
	c.irq = 0
	c.irqVec = nil
	c.exc = 0
	c.lastException = 0
	if c.jit != nil {
		c.jit.reset()
	}

	if c.cycleBus != nil {
		ssp := c.cycleBus.ReadCycle(c.cycles, Long, 0)
		c.reg.A[7] = ssp
		c.reg.SSP = ssp
		c.reg.PC = c.cycleBus.ReadCycle(c.cycles, Long, 4)
	} else {
		ssp := c.bus.Read(Long, 0)
		c.reg.A[7] = ssp
		c.reg.SSP = ssp
		c.reg.PC = c.bus.Read(Long, 4)
	}
}

// Halted returns true if the CPU is halted due to a double fault.
func (c *CPU) Halted() bool {
	return c.halted
}

// Stopped returns true while the CPU waits in a STOP instruction.
func (c *CPU) Stopped() bool {
	return c.stopped
}

// Exception returns the vector number of the most recently taken
// exception or interrupt, 0 if none since reset.
func (c *CPU) Exception() uint8 {
	return c.lastException
}

// FaultAddress returns the access address recorded by the last address
// error.
func (c *CPU) FaultAddress() uint32 {
	return c.fault.addr
}

// Step executes a single instruction and returns the number of cycles consumed.
// A pending interrupt is serviced first, and an exception raised by the
// instruction is taken before Step returns.
// Returns 0 if the CPU is halted (double fault).
func (c *CPU) Step() int {
	if c.halted {
		return 0
	}

	before := c.cycles

	if c.stopped {
		c.cycles += 4
		c.checkInterrupt()
		return int(c.cycles - before)
	}

	c.checkInterrupt()
	if !c.halted {
		c.step()
	}

	return int(c.cycles - before)
}

// step interprets one instruction and takes any exception it raised.
func (c *CPU) step() {
	if c.reg.PC&1 != 0 {
		c.logf("address error: odd PC=%06x prevPC=%06x prevIR=%04x",
			c.reg.PC, c.prevPC, c.ir)
		c.addressError(busFault{addr: c.reg.PC & 0xFFFFFF, status: c.faultStatus(false, true)})
	} else {
		c.execute()
	}
	if c.exc != 0 {
		c.takeException()
	}
}

// execute fetches and dispatches the instruction at PC. An address error
// inside the instruction aborts it and leaves the exception pending.
func (c *CPU) execute() {
	pc := c.reg.PC
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(busFault)
			if !ok {
				panic(r)
			}
			c.reg.PC = pc + 2
			c.addressError(f)
		}
	}()

	c.prevPC = pc
	c.ir = c.fetchPC()
	c.reg.IR = c.ir
	if c.cfg.trace != nil {
		c.cfg.trace(pc, c.ir)
	}
	groupTable[groupIndex(c.ir)](c)
}

// StepCycles executes a single instruction within the given cycle budget.
// If a previous instruction's cost exceeded its budget, the deficit is paid
// down first without executing a new instruction. When a new instruction
// executes and its cost exceeds the budget, the excess is stored as a
// deficit to be charged on subsequent calls. Returns the number of cycles
// consumed from this call's budget.
func (c *CPU) StepCycles(budget int) int {
	if c.halted {
		return 0
	}

	// Pay down deficit from a previous instruction that exceeded its budget.
	if c.deficit > 0 {
		if budget >= c.deficit {
			n := c.deficit
			c.deficit = 0
			return n
		}
		c.deficit -= budget
		return budget
	}

	cost := c.Step()

	if cost <= budget {
		return cost
	}

	c.deficit = cost - budget
	return budget
}

// Deficit returns the remaining cycle deficit from a previous StepCycles
// call where the instruction cost exceeded the budget.
func (c *CPU) Deficit() int {
	return c.deficit
}

// Cycles returns the total cycle count since the last reset.
func (c *CPU) Cycles() uint64 {
	return c.cycles
}

// AddCycles advances the cycle counter by n without executing any
// instruction. Used to account for external bus-hold periods such as
// DMA seizing the 68K bus.
func (c *CPU) AddCycles(n uint64) {
	c.cycles += n
}

func (c *CPU) logf(format string, args ...any) {
	c.log.Printf("[m68k] "+format, args...)
}

// debugf logs only when verbose output is enabled.
func (c *CPU) debugf(format string, args ...any) {
	if c.cfg.verbose {
		c.log.Printf("[m68k] "+format, args...)
	}
}

// readBus reads from the bus with 24-bit address masking.
// Word and long accesses to odd addresses abort the instruction with an
// address error.
func (c *CPU) readBus(sz Size, addr uint32) uint32 {
	if sz != Byte && addr&1 != 0 {
		c.logf("address error: read %s from odd addr=%06x PC=%06x prevPC=%06x IR=%04x",
			sz, addr&0xFFFFFF, c.reg.PC, c.prevPC, c.ir)
		panic(busFault{addr: addr & 0xFFFFFF, status: c.faultStatus(false, false)})
	}
	addr &= 0xFFFFFF
	if c.cycleBus != nil {
		return c.cycleBus.ReadCycle(c.cycles, sz, addr)
	}
	return c.bus.Read(sz, addr)
}

// writeBus writes to the bus with 24-bit address masking. Writes landing
// on a page that holds translated code are reported to the translator.
// Word and long accesses to odd addresses abort the instruction with an
// address error.
func (c *CPU) writeBus(sz Size, addr uint32, val uint32) {
	if sz != Byte && addr&1 != 0 {
		c.logf("address error: write %s to odd addr=%06x val=%08x PC=%06x prevPC=%06x IR=%04x",
			sz, addr&0xFFFFFF, val&sz.Mask(), c.reg.PC, c.prevPC, c.ir)
		panic(busFault{addr: addr & 0xFFFFFF, status: c.faultStatus(true, false)})
	}
	addr &= 0xFFFFFF
	val &= sz.Mask()
	if c.cycleBus != nil {
		c.cycleBus.WriteCycle(c.cycles, sz, addr, val)
	} else {
		c.bus.Write(sz, addr, val)
	}
	if c.jit != nil {
		c.jit.guardWrite(addr, uint32(sz))
	}
}

// fetchPC reads a 16-bit word at the current PC and advances PC by 2.
func (c *CPU) fetchPC() uint16 {
	val := c.readBus(Word, c.reg.PC)
	c.reg.PC += 2
	return uint16(val)
}

// fetchPCLong reads a 32-bit long at the current PC and advances PC by 4.
func (c *CPU) fetchPCLong() uint32 {
	hi := c.fetchPC()
	lo := c.fetchPC()
	return uint32(hi)<<16 | uint32(lo)
}

// pushWord pushes a 16-bit word onto the active stack (A7).
func (c *CPU) pushWord(val uint16) {
	c.reg.A[7] -= 2
	c.writeBus(Word, c.reg.A[7], uint32(val))
}

// pushLong pushes a 32-bit long onto the active stack (A7).
func (c *CPU) pushLong(val uint32) {
	c.reg.A[7] -= 4
	c.writeBus(Long, c.reg.A[7], val)
}

// popWord pops a 16-bit word from the active stack (A7).
func (c *CPU) popWord() uint16 {
	val := c.readBus(Word, c.reg.A[7])
	c.reg.A[7] += 2
	return uint16(val)
}

// popLong pops a 32-bit long from the active stack (A7).
func (c *CPU) popLong() uint32 {
	val := c.readBus(Long, c.reg.A[7])
	c.reg.A[7] += 4
	return val
}

// supervisor returns true if the CPU is in supervisor mode.
func (c *CPU) supervisor() bool {
	return c.reg.SR&flagS != 0
}

// setSR sets the status register, handling stack pointer swaps
// when transitioning between supervisor and user mode. A lowered mask is
// noticed at the next instruction or block boundary.
func (c *CPU) setSR(sr uint16) {
	oldS := c.reg.SR & flagS
	newS := sr & flagS

	if oldS != 0 && newS == 0 {
		// Leaving supervisor mode: save SSP, restore USP
		c.reg.SSP = c.reg.A[7]
		c.reg.A[7] = c.reg.USP
	} else if oldS == 0 && newS != 0 {
		// Entering supervisor mode: save USP, restore SSP
		c.reg.USP = c.reg.A[7]
		c.reg.A[7] = c.reg.SSP
	}

	c.reg.SR = sr & srMask
}

// setCCR sets only the condition code register (low byte of SR).
// Only bits 0-4 (XNZVC) are valid on the 68000; bits 5-7 are always 0.
func (c *CPU) setCCR(ccr uint8) {
	c.reg.SR = (c.reg.SR & 0xFF00) | uint16(ccr&0x1F)
}
