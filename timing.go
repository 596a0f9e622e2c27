package m68k

// Instruction timing shared by the interpreter handlers and the block
// translator. Both must charge identical cycles for the same encoding, so
// every formula used by a translated template lives here.

// eaFetchCycles returns the source operand EA timing (PRM Table 8-1).
// For register-direct modes (Dn, An) returns 0.
// For memory/immediate modes returns the fetch cost.
// Long adds 4 to all non-zero values.
func eaFetchCycles(mode, reg uint8, sz Size) uint64 {
	var base uint64
	switch mode {
	case 0, 1: // Dn, An
		base = 0
	case 2, 3: // (An), (An)+
		base = 4
	case 4: // -(An)
		base = 6
	case 5: // d16(An)
		base = 8
	case 6: // d8(An,Xn)
		base = 10
	case 7:
		switch reg {
		case 0: // abs.W
			base = 8
		case 1: // abs.L
			base = 12
		case 2: // d16(PC)
			base = 8
		case 3: // d8(PC,Xn)
			base = 10
		case 4: // #imm
			base = 4
		}
	}
	if sz == Long && base > 0 {
		base += 4
	}
	return base
}

// eaWriteCycles returns the destination EA write timing.
// Same as eaFetchCycles except -(An) costs 4 (not 6).
func eaWriteCycles(mode, reg uint8, sz Size) uint64 {
	if mode == 4 {
		if sz == Long {
			return 8
		}
		return 4
	}
	return eaFetchCycles(mode, reg, sz)
}

// memOperand reports whether the EA is a memory operand (not a register
// or immediate).
func memOperand(mode, reg uint8) bool {
	return mode >= 2 && !(mode == 7 && reg == 4)
}

func moveCycles(srcMode, srcReg, dstMode, dstReg uint8, sz Size) uint64 {
	return 4 + eaFetchCycles(srcMode, srcReg, sz) + eaWriteCycles(dstMode, dstReg, sz)
}

func moveaCycles(mode, reg uint8, sz Size) uint64 {
	return 4 + eaFetchCycles(mode, reg, sz)
}

// aluToRegCycles covers ADD, SUB, AND and OR with a data register
// destination.
func aluToRegCycles(mode, reg uint8, sz Size) uint64 {
	fetch := eaFetchCycles(mode, reg, sz)
	if sz != Long {
		return 4 + fetch
	}
	if memOperand(mode, reg) {
		return 6 + fetch
	}
	return 8 + fetch
}

// aluToEACycles covers ADD, SUB, AND, OR and EOR with a memory destination.
func aluToEACycles(mode, reg uint8, sz Size) uint64 {
	if sz == Long {
		return 12 + eaFetchCycles(mode, reg, sz)
	}
	return 8 + eaFetchCycles(mode, reg, sz)
}

func eorCycles(mode, reg uint8, sz Size) uint64 {
	if mode == 0 {
		if sz == Long {
			return 8
		}
		return 4
	}
	return aluToEACycles(mode, reg, sz)
}

// addrArithCycles covers ADDA and SUBA.
func addrArithCycles(mode, reg uint8, sz Size) uint64 {
	fetch := eaFetchCycles(mode, reg, sz)
	if sz == Long && memOperand(mode, reg) {
		return 6 + fetch
	}
	return 8 + fetch
}

// immCycles covers ADDI, SUBI, ANDI, ORI and EORI.
func immCycles(mode, reg uint8, sz Size) uint64 {
	if mode == 0 {
		if sz == Long {
			return 16
		}
		return 8
	}
	if sz == Long {
		return 20 + eaFetchCycles(mode, reg, sz)
	}
	return 12 + eaFetchCycles(mode, reg, sz)
}

// quickCycles covers ADDQ and SUBQ.
func quickCycles(mode, reg uint8, sz Size) uint64 {
	switch mode {
	case 0:
		if sz == Long {
			return 8
		}
		return 4
	case 1:
		return 8
	}
	if sz == Long {
		return 12 + eaFetchCycles(mode, reg, sz)
	}
	return 8 + eaFetchCycles(mode, reg, sz)
}

func cmpCycles(mode, reg uint8, sz Size) uint64 {
	if sz == Long {
		return 6 + eaFetchCycles(mode, reg, sz)
	}
	return 4 + eaFetchCycles(mode, reg, sz)
}

func cmpaCycles(mode, reg uint8, sz Size) uint64 {
	return 6 + eaFetchCycles(mode, reg, sz)
}

func cmpiCycles(mode, reg uint8, sz Size) uint64 {
	if mode == 0 {
		if sz == Long {
			return 14
		}
		return 8
	}
	if sz == Long {
		return 12 + eaFetchCycles(mode, reg, sz)
	}
	return 8 + eaFetchCycles(mode, reg, sz)
}

// unaryCycles covers NEG, NEGX, CLR and NOT.
func unaryCycles(mode, reg uint8, sz Size) uint64 {
	if mode == 0 {
		if sz == Long {
			return 6
		}
		return 4
	}
	if sz == Long {
		return 12 + eaFetchCycles(mode, reg, sz)
	}
	return 8 + eaFetchCycles(mode, reg, sz)
}

func tstCycles(mode, reg uint8, sz Size) uint64 {
	return 4 + eaFetchCycles(mode, reg, sz)
}

// controlCycles returns the control-mode address calculation cost used by
// LEA, PEA, JMP and JSR. PRM: (An)=0, d16(An)=4, d8(An,Xn)=8, abs.W=4,
// abs.L=8, d16(PC)=4, d8(PC,Xn)=8.
func controlCycles(mode, reg uint8) uint64 {
	switch mode {
	case 2:
		return 0
	case 5:
		return 4
	case 6:
		return 8
	case 7:
		switch reg {
		case 0, 2:
			return 4
		case 1, 3:
			return 8
		}
	}
	return 0
}

func leaCycles(mode, reg uint8) uint64 {
	return 4 + controlCycles(mode, reg)
}

func peaCycles(mode, reg uint8) uint64 {
	return 12 + controlCycles(mode, reg)
}

// jmpCycles: (An)=8, d16(An)=10, d8(An,Xn)=14, abs.W=10, abs.L=12,
// d16(PC)=10, d8(PC,Xn)=14.
func jmpCycles(mode, reg uint8) uint64 {
	switch mode {
	case 2:
		return 8
	case 5:
		return 10
	case 6:
		return 14
	case 7:
		switch reg {
		case 0, 2:
			return 10
		case 1:
			return 12
		case 3:
			return 14
		}
	}
	return 8
}

func jsrCycles(mode, reg uint8) uint64 {
	return jmpCycles(mode, reg) + 8
}

func sccCycles(mode, reg uint8, taken bool) uint64 {
	if mode == 0 {
		if taken {
			return 6
		}
		return 4
	}
	return 8 + eaWriteCycles(mode, reg, Byte)
}

// Branch timing.
const (
	bccTaken        = 10
	bccNotTakenByte = 8
	bccNotTakenWord = 12
	braCycles       = 10
	bsrCycles       = 18
	dbccCondTrue    = 12
	dbccExpired     = 14
	dbccTaken       = 10
	rtsCycles       = 16
)
