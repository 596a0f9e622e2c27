package m68k

// EA addressing mode categories.
const (
	eaDataReg   = iota // Data register direct (Dn)
	eaAddrReg          // Address register direct (An)
	eaMemory           // All memory addressing modes
	eaImmediate        // Immediate (#imm)
)

// accessIntent describes how an instruction uses its operand. It selects
// both the legality rule and the timing column.
type accessIntent uint8

const (
	accessRead   accessIntent = iota // source operand
	accessWrite                      // destination only
	accessModify                     // read-modify-write
)

// ea represents a resolved effective address operand.
type ea struct {
	mode uint8  // eaDataReg, eaAddrReg, eaMemory, eaImmediate
	reg  uint8  // register number (for register modes)
	addr uint32 // memory address (for memory modes)
	imm  uint32 // immediate value (for immediate mode)
}

// read returns the value at this effective address.
func (e ea) read(c *CPU, sz Size) uint32 {
	switch e.mode {
	case eaDataReg:
		return c.reg.D[e.reg] & sz.Mask()
	case eaAddrReg:
		return c.reg.A[e.reg] & sz.Mask()
	case eaMemory:
		return c.readBus(sz, e.addr)
	case eaImmediate:
		return e.imm & sz.Mask()
	}
	return 0
}

// write stores a value at this effective address.
// Data register writes preserve upper bits for byte/word operations.
// Address register word writes sign-extend to 32 bits.
func (e ea) write(c *CPU, sz Size, val uint32) {
	switch e.mode {
	case eaDataReg:
		mask := sz.Mask()
		c.reg.D[e.reg] = (c.reg.D[e.reg] & ^mask) | (val & mask)
	case eaAddrReg:
		c.reg.A[e.reg] = signExtend(val, sz)
	case eaMemory:
		c.writeBus(sz, e.addr, val)
	}
}

// address returns the memory address (only valid for memory EAs).
func (e ea) address() uint32 {
	return e.addr
}

// eaLegal reports whether the mode/register pair is an architecturally
// valid operand for the given size and intent: byte access to An, and
// writes to PC-relative or immediate operands, are illegal, as are the
// unassigned mode 7 registers.
func eaLegal(mode, reg uint8, sz Size, intent accessIntent) bool {
	switch mode {
	case 1:
		return sz != Byte
	case 7:
		switch reg {
		case 0, 1:
			return true
		case 2, 3, 4:
			return intent == accessRead
		}
		return false
	}
	return true
}

// eaControl reports whether the EA is a control addressing mode, as
// accepted by LEA, PEA, JMP, JSR and MOVEM.
func eaControl(mode, reg uint8) bool {
	switch mode {
	case 2, 5, 6:
		return true
	case 7:
		return reg <= 3
	}
	return false
}

// eaDataAlterable reports whether the EA is a data alterable mode: any
// mode except An, PC-relative and immediate.
func eaDataAlterable(mode, reg uint8) bool {
	return mode != 1 && eaLegal(mode, reg, Long, accessWrite)
}

// eaCycles returns the operand cost for the intent. Predecrement is two
// cycles cheaper when the operand is only written.
func eaCycles(mode, reg uint8, sz Size, intent accessIntent) uint64 {
	if intent == accessWrite {
		return eaWriteCycles(mode, reg, sz)
	}
	return eaFetchCycles(mode, reg, sz)
}

// decodeEA validates and resolves an operand, returning its cost. An
// illegal combination returns ok=false without consuming extension words.
func (c *CPU) decodeEA(mode, reg uint8, sz Size, intent accessIntent) (e ea, cycles uint64, ok bool) {
	if !eaLegal(mode, reg, sz, intent) {
		return ea{}, 0, false
	}
	return c.resolveEA(mode, reg, sz), eaCycles(mode, reg, sz, intent), true
}

// postIncStep returns the (An)+ / -(An) step for a size. The stack pointer
// always stays word-aligned.
func postIncStep(reg uint8, sz Size) uint32 {
	if reg == 7 && sz == Byte {
		return 2
	}
	return uint32(sz)
}

// resolveEA decodes and resolves an effective address from a mode/register pair.
// The mode is bits 5-3 and reg is bits 2-0 of the standard EA field.
// Extension words are fetched from the instruction stream as needed.
// Callers have already checked legality through the dispatch tables.
func (c *CPU) resolveEA(mode, reg uint8, sz Size) ea {
	switch mode {
	case 0: // Dn - Data register direct
		return ea{mode: eaDataReg, reg: reg}

	case 1: // An - Address register direct
		return ea{mode: eaAddrReg, reg: reg}

	case 2: // (An) - Address register indirect
		return ea{mode: eaMemory, addr: c.reg.A[reg]}

	case 3: // (An)+ - Address register indirect with postincrement
		addr := c.reg.A[reg]
		c.reg.A[reg] += postIncStep(reg, sz)
		return ea{mode: eaMemory, addr: addr}

	case 4: // -(An) - Address register indirect with predecrement
		c.reg.A[reg] -= postIncStep(reg, sz)
		return ea{mode: eaMemory, addr: c.reg.A[reg]}

	case 5: // d16(An) - Address register indirect with displacement
		disp := int16(c.fetchPC())
		return ea{mode: eaMemory, addr: uint32(int32(c.reg.A[reg]) + int32(disp))}

	case 6: // d8(An,Xn) - Address register indirect with index
		ext := c.fetchPC()
		return ea{mode: eaMemory, addr: c.calcIndex(c.reg.A[reg], ext)}

	case 7:
		switch reg {
		case 0: // abs.W - Absolute short (sign-extended to 32 bits)
			addr := int16(c.fetchPC())
			return ea{mode: eaMemory, addr: uint32(int32(addr))}

		case 1: // abs.L - Absolute long
			addr := c.fetchPCLong()
			return ea{mode: eaMemory, addr: addr}

		case 2: // d16(PC) - PC relative with displacement
			pc := c.reg.PC // PC points to the extension word
			disp := int16(c.fetchPC())
			return ea{mode: eaMemory, addr: uint32(int32(pc) + int32(disp))}

		case 3: // d8(PC,Xn) - PC relative with index
			pc := c.reg.PC // PC points to the extension word
			ext := c.fetchPC()
			return ea{mode: eaMemory, addr: c.calcIndex(pc, ext)}

		case 4: // #imm - Immediate
			switch sz {
			case Byte:
				val := c.fetchPC()
				return ea{mode: eaImmediate, imm: uint32(val & 0xFF)}
			case Word:
				val := c.fetchPC()
				return ea{mode: eaImmediate, imm: uint32(val)}
			case Long:
				val := c.fetchPCLong()
				return ea{mode: eaImmediate, imm: val}
			}
		}
	}

	c.illegal()
	return ea{}
}

// calcIndex computes a base + d8(Xn) indexed address from an extension word.
// Extension word format: D/A | Reg(3) | W/L | 0(3) | Disp(8)
func (c *CPU) calcIndex(base uint32, ext uint16) uint32 {
	return indexAddress(base, ext, &c.reg)
}

func indexAddress(base uint32, ext uint16, r *Registers) uint32 {
	disp := int8(ext & 0xFF)
	xn := (ext >> 12) & 7

	var idx int32
	if ext&0x8000 != 0 {
		idx = int32(r.A[xn])
	} else {
		idx = int32(r.D[xn])
	}

	// Bit 11: 0 = sign-extend word index, 1 = full long index
	if ext&0x0800 == 0 {
		idx = int32(int16(idx))
	}

	return uint32(int32(base) + idx + int32(disp))
}
