package m68k

// Status register flag bits.
const (
	flagC uint16 = 1 << iota // Carry
	flagV                    // Overflow
	flagZ                    // Zero
	flagN                    // Negative
	flagX                    // Extend

	flagS uint16 = 1 << 13 // Supervisor
	flagT uint16 = 1 << 15 // Trace
)

// Condition-code groups used by the flag helpers and the need analysis.
const (
	ccNZVC  = flagN | flagZ | flagV | flagC
	ccXNZVC = flagX | ccNZVC
)

// srMask covers the implemented 68000 SR bits: T__S__III___XNZVC.
const srMask uint16 = 0xA71F

// flagsAdd returns XNZVC after an addition: result = dst + src.
func flagsAdd(src, dst, result uint32, sz Size) uint16 {
	msb := sz.MSB()
	mask := sz.Mask()
	r := result & mask
	s := src & mask
	d := dst & mask

	var f uint16
	if r == 0 {
		f |= flagZ
	}
	if r&msb != 0 {
		f |= flagN
	}
	// Overflow: both operands same sign, result different sign
	if (s^r)&(d^r)&msb != 0 {
		f |= flagV
	}
	// Carry: unsigned overflow
	if (s&d|(s|d)&^r)&msb != 0 {
		f |= flagC | flagX
	}
	return f
}

// flagsSub returns XNZVC after a subtraction: result = dst - src.
func flagsSub(src, dst, result uint32, sz Size) uint16 {
	msb := sz.MSB()
	mask := sz.Mask()
	r := result & mask
	s := src & mask
	d := dst & mask

	var f uint16
	if r == 0 {
		f |= flagZ
	}
	if r&msb != 0 {
		f |= flagN
	}
	// Overflow: operands different sign, result sign differs from dst
	if (s^d)&(r^d)&msb != 0 {
		f |= flagV
	}
	// Borrow
	if (s&^d|r&^d|s&r)&msb != 0 {
		f |= flagC | flagX
	}
	return f
}

// flagsCmp returns NZVC after a comparison. X is never produced.
func flagsCmp(src, dst, result uint32, sz Size) uint16 {
	return flagsSub(src, dst, result, sz) &^ flagX
}

// flagsLogical returns NZ with VC clear.
func flagsLogical(result uint32, sz Size) uint16 {
	var f uint16
	if result&sz.Mask() == 0 {
		f |= flagZ
	}
	if result&sz.MSB() != 0 {
		f |= flagN
	}
	return f
}

// setCC merges the bits of f selected by mask into the CCR.
func (c *CPU) setCC(f, mask uint16) {
	c.reg.SR = c.reg.SR&^mask | f&mask
}

func (c *CPU) setFlagsAdd(src, dst, result uint32, sz Size) {
	c.setCC(flagsAdd(src, dst, result, sz), ccXNZVC)
}

func (c *CPU) setFlagsSub(src, dst, result uint32, sz Size) {
	c.setCC(flagsSub(src, dst, result, sz), ccXNZVC)
}

// setFlagsCmp sets NZVC after a comparison. Does not modify the X flag.
func (c *CPU) setFlagsCmp(src, dst, result uint32, sz Size) {
	c.setCC(flagsCmp(src, dst, result, sz), ccNZVC)
}

// setFlagsLogical sets NZ, clears VC after a logical operation.
func (c *CPU) setFlagsLogical(result uint32, sz Size) {
	c.setCC(flagsLogical(result, sz), ccNZVC)
}

// xBit returns the X flag as 0 or 1.
func (c *CPU) xBit() uint32 {
	if c.reg.SR&flagX != 0 {
		return 1
	}
	return 0
}

// testCondition evaluates an MC68000 condition code (0-15).
func (c *CPU) testCondition(cc uint16) bool {
	return conditionTrue(c.reg.SR, uint8(cc))
}

// conditionTrue evaluates condition cc against the flags in sr.
func conditionTrue(sr uint16, cc uint8) bool {
	switch cc {
	case 0: // T - True
		return true
	case 1: // F - False
		return false
	case 2: // HI - !C & !Z
		return sr&(flagC|flagZ) == 0
	case 3: // LS - C | Z
		return sr&(flagC|flagZ) != 0
	case 4: // CC - !C
		return sr&flagC == 0
	case 5: // CS - C
		return sr&flagC != 0
	case 6: // NE - !Z
		return sr&flagZ == 0
	case 7: // EQ - Z
		return sr&flagZ != 0
	case 8: // VC - !V
		return sr&flagV == 0
	case 9: // VS - V
		return sr&flagV != 0
	case 10: // PL - !N
		return sr&flagN == 0
	case 11: // MI - N
		return sr&flagN != 0
	}

	n := sr&flagN != 0
	v := sr&flagV != 0
	z := sr&flagZ != 0
	switch cc {
	case 12: // GE
		return n == v
	case 13: // LT
		return n != v
	case 14: // GT
		return n == v && !z
	case 15: // LE
		return z || n != v
	}
	return false
}
