package m68k

// Condition code liveness between adjacent instructions.
//
// Each opcode has an input set (flags it reads, or that become visible if
// it traps) and an output set (flags it always overwrites). ccTable packs
// them as input<<8 | output. A flag produced by one instruction only has
// to be computed if the next instruction reads it or leaves it alone.
//
// The analysis assumes well-formed code. An address error or interrupt
// between the two instructions can expose a stale flag in the stacked SR.

var ccTable [1 << 16]uint16

func init() {
	for op := 0; op < len(ccTable); op++ {
		in, out := ccFlagsOf(uint16(op))
		ccTable[op] = in<<8 | out
	}
}

func ccIn(op uint16) uint16 {
	return ccTable[op] >> 8
}

func ccOut(op uint16) uint16 {
	return ccTable[op] & 0xFF
}

// ccNeeded returns the flags of op that must be computed when next is the
// following instruction.
func ccNeeded(op, next uint16) uint16 {
	return ccOut(op) & (ccIn(next) | ^ccOut(next))
}

// conditionFlags returns the flags a condition code test reads.
func conditionFlags(cc uint8) uint16 {
	switch cc {
	case 0, 1:
		return 0
	case 2, 3:
		return flagC | flagZ
	case 4, 5:
		return flagC
	case 6, 7:
		return flagZ
	case 8, 9:
		return flagV
	case 10, 11:
		return flagN
	case 12, 13:
		return flagN | flagV
	}
	return flagN | flagV | flagZ
}

// ccFlagsOf classifies one opcode. Anything that may transfer control,
// trap or expose SR reads every flag.
func ccFlagsOf(op uint16) (in, out uint16) {
	const all = ccXNZVC
	mode := uint8(op>>3) & 7
	opmode := (op >> 6) & 7
	sz := (op >> 6) & 3

	switch op >> 12 {
	case 0x0:
		if op&0x0100 != 0 || (op>>9)&7 == 4 {
			if op&0x0100 != 0 && mode == 1 {
				return 0, 0 // MOVEP
			}
			return 0, flagZ // bit operations
		}
		if op&0x3F == 0x3C {
			return all, all // to CCR / SR
		}
		if sz == 3 {
			return all, 0
		}
		switch (op >> 9) & 7 {
		case 2, 3: // SUBI, ADDI
			return 0, all
		case 0, 1, 5, 6: // ORI, ANDI, EORI, CMPI
			return 0, ccNZVC
		}
		return all, 0

	case 0x1, 0x2, 0x3:
		if opmode == 1 {
			return 0, 0 // MOVEA
		}
		return 0, ccNZVC

	case 0x4:
		return ccGroup4(op)

	case 0x5:
		if sz == 3 {
			cc := uint8(op>>8) & 0xF
			if mode == 1 {
				return all, 0 // DBcc
			}
			return conditionFlags(cc), 0 // Scc
		}
		if mode == 1 {
			return 0, 0 // ADDQ/SUBQ to An
		}
		return 0, all

	case 0x6:
		return all, 0

	case 0x7:
		if op&0x0100 != 0 {
			return all, 0
		}
		return 0, ccNZVC

	case 0x8, 0xC:
		switch {
		case opmode == 3 || opmode == 7:
			if op>>12 == 0x8 {
				return all, flagV | flagC // DIVU/DIVS: may trap
			}
			return 0, ccNZVC // MULU/MULS
		case opmode == 4 && mode < 2:
			return flagX | flagZ, all // ABCD/SBCD
		case opmode >= 4 && mode < 2:
			if op>>12 == 0xC {
				return 0, 0 // EXG
			}
			return all, 0
		}
		return 0, ccNZVC

	case 0x9, 0xD:
		switch {
		case opmode == 3 || opmode == 7:
			return 0, 0 // ADDA/SUBA
		case opmode >= 4 && mode < 2:
			return flagX | flagZ, all // ADDX/SUBX
		}
		return 0, all

	case 0xB:
		return 0, ccNZVC

	case 0xE:
		typ := (op >> 3) & 3
		if sz == 3 {
			typ = (op >> 9) & 3
			if op&0x0800 != 0 {
				return all, 0
			}
		}
		var in uint16
		if typ == shiftROX {
			in = flagX
		}
		if typ == shiftRO {
			return in, ccNZVC
		}
		if sz != 3 && op&0x0020 != 0 {
			// Register count may be zero, which leaves X alone
			return in, ccNZVC
		}
		return in, all
	}

	// Line A, Line F
	return all, 0
}

func ccGroup4(op uint16) (in, out uint16) {
	const all = ccXNZVC
	mode := uint8(op>>3) & 7

	if op&0x0100 != 0 {
		if (op>>6)&7 == 7 {
			return 0, 0 // LEA
		}
		return all, 0 // CHK
	}

	switch group4Index(op) {
	case 0, 1, 2: // NEGX
		return flagX | flagZ, all
	case 3, 15, 23, 29, 30, 31: // MOVE from SR, MOVE to SR, TAS/ILLEGAL, misc, JSR, JMP
		if op == 0x4E71 {
			return 0, 0
		}
		if op&0xFFF8 == 0x4E50 || op&0xFFF8 == 0x4E58 || op&0xFFF0 == 0x4E60 {
			return 0, 0 // LINK, UNLK, MOVE USP
		}
		if group4Index(op) == 23 && op != 0x4AFC {
			return 0, ccNZVC // TAS
		}
		return all, 0
	case 4, 5, 6, 8, 9, 10: // CLR, NEG
		return 0, ccOutUnary(op)
	case 11: // MOVE to CCR
		return 0, all
	case 12, 13, 14, 20, 21, 22: // NOT, TST
		return 0, ccNZVC
	case 16: // NBCD
		return flagX | flagZ, all
	case 17: // PEA, SWAP
		if mode == 0 {
			return 0, ccNZVC
		}
		return 0, 0
	case 18, 19, 26, 27: // MOVEM, EXT
		if mode == 0 {
			return 0, ccNZVC
		}
		return 0, 0
	}
	return all, 0
}

// ccOutUnary distinguishes CLR, which leaves X alone, from NEG.
func ccOutUnary(op uint16) uint16 {
	if (op>>9)&7 == 1 {
		return ccNZVC
	}
	return ccXNZVC
}
