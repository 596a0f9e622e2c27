package m68k

import "github.com/user-none/go-chip-m68k-jit/internal/uop"

// aluCompute evaluates one of the shared ALU kinds. Binary kinds compute
// dst op src; unary kinds work on dst alone. The returned flags hold every
// bit the kind can produce; callers merge them under aluFlags(kind), or a
// narrower mask when later instructions overwrite some of them.
//
// The interpreter handlers and translated blocks both go through here, so
// a translated ADD and an interpreted ADD cannot disagree.
func aluCompute(kind uint8, src, dst uint32, sz Size) (uint32, uint16) {
	switch kind {
	case uop.AluAddA, uop.AluSubA, uop.AluCmpA:
		return addrCompute(kind, src, dst, sz)
	}

	mask := sz.Mask()
	src &= mask
	dst &= mask

	switch kind {
	case uop.AluMove:
		return src, flagsLogical(src, sz)
	case uop.AluAdd:
		r := (dst + src) & mask
		return r, flagsAdd(src, dst, r, sz)
	case uop.AluSub:
		r := (dst - src) & mask
		return r, flagsSub(src, dst, r, sz)
	case uop.AluCmp:
		r := (dst - src) & mask
		return r, flagsCmp(src, dst, r, sz)
	case uop.AluAnd:
		r := dst & src
		return r, flagsLogical(r, sz)
	case uop.AluOr:
		r := dst | src
		return r, flagsLogical(r, sz)
	case uop.AluEor:
		r := dst ^ src
		return r, flagsLogical(r, sz)
	case uop.AluNeg:
		r := (0 - dst) & mask
		return r, flagsSub(dst, 0, r, sz)
	case uop.AluNot:
		r := ^dst & mask
		return r, flagsLogical(r, sz)
	case uop.AluClr:
		return 0, flagZ
	case uop.AluTst:
		return dst, flagsLogical(dst, sz)
	case uop.AluExt:
		var r uint32
		if sz == Word {
			r = uint32(int32(int8(dst))) & 0xFFFF
		} else {
			r = uint32(int32(int16(dst)))
		}
		return r, flagsLogical(r, sz)
	case uop.AluSwap:
		r := dst>>16 | dst<<16
		return r, flagsLogical(r, Long)
	}

	return dst, 0
}

// addrCompute handles the address register kinds, which always work on
// the full register with the source sign-extended from sz.
func addrCompute(kind uint8, src, dst uint32, sz Size) (uint32, uint16) {
	src = signExtend(src, sz)
	switch kind {
	case uop.AluAddA:
		return dst + src, 0
	case uop.AluSubA:
		return dst - src, 0
	}
	r := dst - src
	return r, flagsCmp(src, dst, r, Long)
}

// aluFlags returns the condition codes an ALU kind writes.
func aluFlags(kind uint8) uint16 {
	switch kind {
	case uop.AluAdd, uop.AluSub, uop.AluNeg:
		return ccXNZVC
	case uop.AluAddA, uop.AluSubA:
		return 0
	}
	return ccNZVC
}
