package m68k

// Size represents the operand width of a memory access or ALU operation.
type Size int

const (
	Byte Size = 1
	Word Size = 2
	Long Size = 4
)

// Mask returns a bitmask covering the valid bits for this size.
func (s Size) Mask() uint32 {
	switch s {
	case Byte:
		return 0xFF
	case Word:
		return 0xFFFF
	case Long:
		return 0xFFFFFFFF
	default:
		return 0
	}
}

// MSB returns the most-significant bit position for this size.
func (s Size) MSB() uint32 {
	switch s {
	case Byte:
		return 0x80
	case Word:
		return 0x8000
	case Long:
		return 0x80000000
	default:
		return 0
	}
}

// Bits returns the number of bits for this size.
func (s Size) Bits() uint32 {
	return uint32(s) * 8
}

// Suffix returns the assembler size suffix letter.
func (s Size) Suffix() byte {
	switch s {
	case Byte:
		return 'b'
	case Word:
		return 'w'
	default:
		return 'l'
	}
}

// String returns a human-readable name for this size.
func (s Size) String() string {
	switch s {
	case Byte:
		return "byte"
	case Word:
		return "word"
	case Long:
		return "long"
	default:
		return "unknown"
	}
}

// sizeEncoding maps the standard 2-bit size field (bits 7-6) to Size.
// The reserved encoding 3 maps to 0.
func sizeEncoding(bits uint16) Size {
	switch bits {
	case 0:
		return Byte
	case 1:
		return Word
	case 2:
		return Long
	}
	return 0
}

// moveSizeMap maps the MOVE size encoding to Size.
// MOVE uses non-standard encoding: 01=Byte, 11=Word, 10=Long.
var moveSizeMap = [4]Size{0, Byte, Long, Word}

// signExtend widens a value of the given size to 32 bits.
func signExtend(v uint32, sz Size) uint32 {
	switch sz {
	case Byte:
		return uint32(int32(int8(v)))
	case Word:
		return uint32(int32(int16(v)))
	}
	return v
}
