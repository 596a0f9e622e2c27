package m68k

// Bit operations have two forms:
// Dynamic: 0000 DDD1 tt eee eee (Dn specifies bit number)
// Static:  0000 1000 tt eee eee + immediate word (bit number in extension)
// tt = 00:BTST, 01:BCHG, 10:BCLR, 11:BSET
// For Dn destination: operates on long (bit mod 32)
// For memory: operates on byte (bit mod 8)

const (
	bitTST = iota
	bitCHG
	bitCLR
	bitSET
)

// bitRegCycles and bitMemCycles hold the dynamic-form timing; the static
// form costs four more for the extension word. Memory forms add the EA.
var (
	bitRegCycles = [4]uint64{6, 8, 10, 8}
	bitMemCycles = [4]uint64{4, 8, 8, 8}
)

// opBitDynamic covers opmodes 4-7 of group 0. Address register mode in
// these opmodes is MOVEP.
func opBitDynamic(c *CPU) {
	mode, _ := eaFields(c.ir)
	if mode == 1 {
		opMOVEP(c)
		return
	}
	dn := (c.ir >> 9) & 7
	bitOp(c, int((c.ir>>6)&3), c.reg.D[dn], 0)
}

func opBitStatic(c *CPU) {
	mode, reg := eaFields(c.ir)
	if mode == 7 && reg == 4 {
		c.illegal()
		return
	}
	op := int((c.ir >> 6) & 3)
	if !bitOperandLegal(op, mode, reg) {
		c.illegal()
		return
	}
	bitNum := uint32(c.fetchPC() & 0xFF)
	bitOp(c, op, bitNum, 4)
}

// bitOperandLegal reports whether the EA is valid for the bit operation:
// BTST accepts any data mode, the others need a data alterable one.
func bitOperandLegal(op int, mode, reg uint8) bool {
	if op == bitTST {
		return mode != 1 && eaLegal(mode, reg, Byte, accessRead)
	}
	return eaDataAlterable(mode, reg)
}

func bitOp(c *CPU, op int, bitNum uint32, extra uint64) {
	mode, reg := eaFields(c.ir)
	if !bitOperandLegal(op, mode, reg) {
		c.illegal()
		return
	}

	if mode == 0 {
		mask := uint32(1) << (bitNum & 31)
		c.reg.D[reg] = bitApply(c, op, c.reg.D[reg], mask)
		c.cycles += bitRegCycles[op] + extra
		return
	}

	mask := uint32(1) << (bitNum & 7)
	dst := c.resolveEA(mode, reg, Byte)
	val := dst.read(c, Byte)
	r := bitApply(c, op, val, mask)
	if op != bitTST {
		dst.write(c, Byte, r)
	}
	c.cycles += bitMemCycles[op] + extra + eaFetchCycles(mode, reg, Byte)
}

// bitApply sets Z from the tested bit and returns the modified value.
func bitApply(c *CPU, op int, val, mask uint32) uint32 {
	if val&mask == 0 {
		c.reg.SR |= flagZ
	} else {
		c.reg.SR &^= flagZ
	}
	switch op {
	case bitCHG:
		return val ^ mask
	case bitCLR:
		return val &^ mask
	case bitSET:
		return val | mask
	}
	return val
}
