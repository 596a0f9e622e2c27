package m68k

// opFunc is the handler signature for a single MC68000 instruction.
// The first word of the instruction is already in c.ir when called.
type opFunc func(*CPU)

// Instructions are dispatched in two levels. The first level is indexed by
// the top nibble and the opmode field (bits 8-6), which together separate
// the instruction families. Handlers validate the remaining fields and
// raise an illegal instruction for unassigned encodings.
var (
	groupTable     [128]opFunc
	group4Table    [32]opFunc
	trapGroupTable [8]opFunc
)

// groupIndex returns the first-level table index: top nibble in bits 6-3,
// opmode in bits 2-0.
func groupIndex(op uint16) int {
	return int(op>>9&0x78 | op>>6&7)
}

// group4Index separates the 0100 miscellaneous group by bits 11-9 and the
// size field.
func group4Index(op uint16) int {
	return int(op>>7&0x1C | op>>6&3)
}

func init() {
	rows := [16][8]opFunc{
		{opImmediate, opImmediate, opImmediate, opImmediate, opBitDynamic, opBitDynamic, opBitDynamic, opBitDynamic},
		{opMove, opMove, opMove, opMove, opMove, opMove, opMove, opMove},
		{opMove, opMove, opMove, opMove, opMove, opMove, opMove, opMove},
		{opMove, opMove, opMove, opMove, opMove, opMove, opMove, opMove},
		{opGroup4, opGroup4, opGroup4, opGroup4, opIllegal, opIllegal, opCHK, opLEA},
		{opADDQ, opADDQ, opADDQ, opSccDBcc, opSUBQ, opSUBQ, opSUBQ, opSccDBcc},
		{opBcc, opBcc, opBcc, opBcc, opBcc, opBcc, opBcc, opBcc},
		{opMOVEQ, opMOVEQ, opMOVEQ, opMOVEQ, opIllegal, opIllegal, opIllegal, opIllegal},
		{opOR, opOR, opOR, opDIVU, opORtoEA, opORtoEA, opORtoEA, opDIVS},
		{opSUB, opSUB, opSUB, opSUBA, opSUBtoEA, opSUBtoEA, opSUBtoEA, opSUBA},
		{opIllegal, opIllegal, opIllegal, opIllegal, opIllegal, opIllegal, opIllegal, opIllegal},
		{opCMP, opCMP, opCMP, opCMPA, opEOR, opEOR, opEOR, opCMPA},
		{opAND, opAND, opAND, opMULU, opANDtoEA, opANDtoEA, opANDtoEA, opMULS},
		{opADD, opADD, opADD, opADDA, opADDtoEA, opADDtoEA, opADDtoEA, opADDA},
		{opShiftReg, opShiftReg, opShiftReg, opShiftMem, opShiftReg, opShiftReg, opShiftReg, opShiftMem},
		{opIllegal, opIllegal, opIllegal, opIllegal, opIllegal, opIllegal, opIllegal, opIllegal},
	}
	for hi, row := range rows {
		for lo, fn := range row {
			groupTable[hi<<3|lo] = fn
		}
	}

	group4Table = [32]opFunc{
		opNEGX, opNEGX, opNEGX, opMOVEfromSR,
		opCLR, opCLR, opCLR, opIllegal,
		opNEG, opNEG, opNEG, opMOVEtoCCR,
		opNOT, opNOT, opNOT, opMOVEtoSR,
		opNBCD, opPEAorSWAP, opMOVEMorEXT, opMOVEMorEXT,
		opTST, opTST, opTST, opTAS,
		opIllegal, opIllegal, opMOVEMload, opMOVEMload,
		opIllegal, opTrapGroup, opJSR, opJMP,
	}

	trapGroupTable = [8]opFunc{
		opTRAP, opTRAP, opLINK, opUNLK, opMOVEtoUSP, opMOVEfromUSP, opMisc, opIllegal,
	}
}

// opIllegal covers unassigned encodings and the Line A / Line F emulator
// traps.
func opIllegal(c *CPU) {
	c.illegal()
}

func opGroup4(c *CPU) {
	group4Table[group4Index(c.ir)](c)
}

// opTrapGroup dispatches 0x4E40-0x4E7F.
func opTrapGroup(c *CPU) {
	trapGroupTable[(c.ir>>3)&7](c)
}

// opMisc dispatches the fixed encodings 0x4E70-0x4E77.
func opMisc(c *CPU) {
	switch c.ir & 7 {
	case 0:
		opRESET(c)
	case 1:
		opNOP(c)
	case 2:
		opSTOP(c)
	case 3:
		opRTE(c)
	case 5:
		opRTS(c)
	case 6:
		opTRAPV(c)
	case 7:
		opRTR(c)
	default:
		c.illegal()
	}
}

// eaFields extracts the standard mode/register EA field from bits 5-0.
func eaFields(op uint16) (mode, reg uint8) {
	return uint8(op>>3) & 7, uint8(op) & 7
}
