// Package uop defines the micro-operation encoding that translated 68000
// blocks are compiled to, and an assembler that emits it.
//
// Every micro-op is one opcode byte followed by fixed-width little-endian
// operands. Addresses and branch links are 32 bits so that link slots can
// be patched in place once a forward branch target has been emitted.
package uop

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Op is a micro-op opcode.
type Op uint8

const (
	// Invalid is never emitted; zeroed code decodes as it.
	Invalid   Op = iota
	Begin        // pc u32, opcode u16: start of a guest instruction
	Check        // pc u32: cycle budget and interrupt poll
	Cycles       // n u16
	SetPC        // pc u32: commit the fallthrough PC, honour abort
	EAInd        // slot u8, an u8
	EAPostInc    // slot u8, an u8, step u8
	EAPreDec     // slot u8, an u8, step u8
	EADisp       // slot u8, an u8, disp u32
	EAIndex      // slot u8, an u8, ext u16
	EAAbs        // slot u8, addr u32
	EAPCIndex    // slot u8, base u32, ext u16
	LoadD        // latch u8, reg u8, size u8
	LoadA        // latch u8, reg u8, size u8
	LoadImm      // latch u8, val u32
	LoadMem      // latch u8, slot u8, size u8
	SignExt      // latch u8, size u8
	Alu          // kind u8, size u8, ccmask u8
	StoreD       // reg u8, size u8
	StoreA       // reg u8
	StoreMem     // slot u8, size u8
	LeaA         // slot u8, an u8
	PushEA       // slot u8
	Bcc          // cond u8, target u32, link u32, notTaken u16
	Bra          // target u32, link u32
	DBcc         // cond u8, reg u8, target u32, link u32
	Scc          // cond u8, taken u16, notTaken u16: extra cycles, charged by the next Cycles
	Call         // ret u32, target u32, cycles u16
	CallEA       // slot u8, ret u32, cycles u16
	Jump         // slot u8, cycles u16
	Rts          // cycles u16
	Interp       // opcode u16, next u32
	Exit         //
	numOps
)

// Latches hold operands between a load and the ALU.
const (
	Src uint8 = iota
	Dst
)

// ALU kinds. Binary kinds compute Dst op Src; unary kinds work on Dst.
const (
	AluMove uint8 = iota // res = src, logical flags
	AluAdd
	AluSub
	AluCmp
	AluAnd
	AluOr
	AluEor
	AluNeg
	AluNot
	AluClr
	AluTst
	AluExt
	AluSwap
	AluAddA
	AluSubA
	AluCmpA
	NumAlu
)

// LinkNone marks a branch whose target has no native offset in the block.
const LinkNone uint32 = 0xFFFFFFFF

var operandLen = [numOps]int{
	Invalid:   0,
	Begin:     6,
	Check:     4,
	Cycles:    2,
	SetPC:     4,
	EAInd:     2,
	EAPostInc: 3,
	EAPreDec:  3,
	EADisp:    6,
	EAIndex:   4,
	EAAbs:     5,
	EAPCIndex: 7,
	LoadD:     3,
	LoadA:     3,
	LoadImm:   5,
	LoadMem:   3,
	SignExt:   2,
	Alu:       3,
	StoreD:    2,
	StoreA:    1,
	StoreMem:  2,
	LeaA:      2,
	PushEA:    1,
	Bcc:       11,
	Bra:       8,
	DBcc:      10,
	Scc:       5,
	Call:      10,
	CallEA:    7,
	Jump:      3,
	Rts:       2,
	Interp:    6,
	Exit:      0,
}

var opNames = [numOps]string{
	"invalid", "begin", "check", "cycles", "setpc",
	"ea.ind", "ea.postinc", "ea.predec", "ea.disp", "ea.index", "ea.abs", "ea.pcindex",
	"load.d", "load.a", "load.imm", "load.mem", "signext",
	"alu", "store.d", "store.a", "store.mem", "lea", "pushea",
	"bcc", "bra", "dbcc", "scc", "call", "call.ea", "jump", "rts",
	"interp", "exit",
}

// Len returns the encoded length of the op including its operands.
func (o Op) Len() int {
	if o >= numOps {
		return 1
	}
	return 1 + operandLen[o]
}

func (o Op) String() string {
	if o >= numOps {
		return fmt.Sprintf("op(%d)", uint8(o))
	}
	return opNames[o]
}

// Decode errors.
var (
	ErrTruncated = errors.New("uop: truncated micro-op")
	ErrInvalid   = errors.New("uop: invalid micro-op")
)

// Decode returns the op at off and its encoded length.
func Decode(code []byte, off int) (Op, int, error) {
	if off < 0 || off >= len(code) {
		return 0, 0, ErrTruncated
	}
	op := Op(code[off])
	n := op.Len()
	if op == Invalid || op >= numOps {
		return op, n, ErrInvalid
	}
	if off+n > len(code) {
		return op, n, ErrTruncated
	}
	return op, n, nil
}

// U16 and U32 read little-endian operands; the executor uses them inline.
func U16(code []byte, off int) uint16 { return binary.LittleEndian.Uint16(code[off:]) }
func U32(code []byte, off int) uint32 { return binary.LittleEndian.Uint32(code[off:]) }

// GrowFunc resizes a code buffer to at least size bytes, preserving its
// contents. It is backed by the caller's allocator.
type GrowFunc func(buf []byte, size int) ([]byte, error)

// Assembler emits micro-ops into a growable buffer. Once growth fails,
// every further emit is dropped and Err reports the failure.
type Assembler struct {
	buf    []byte
	offset int
	grow   GrowFunc
	expand int
	err    error
}

// NewAssembler creates an assembler over buf that grows by expand bytes
// at a time through grow.
func NewAssembler(buf []byte, grow GrowFunc, expand int) *Assembler {
	if expand <= 0 {
		expand = 4096
	}
	return &Assembler{buf: buf, grow: grow, expand: expand}
}

// Offset returns current write position
func (a *Assembler) Offset() int {
	return a.offset
}

// Bytes returns the assembled code
func (a *Assembler) Bytes() []byte {
	return a.buf[:a.offset]
}

// Buffer returns the full backing buffer, including unused capacity.
func (a *Assembler) Buffer() []byte {
	return a.buf
}

// Err returns the first growth failure, if any.
func (a *Assembler) Err() error {
	return a.err
}

func (a *Assembler) reserve(n int) bool {
	if a.err != nil {
		return false
	}
	if a.offset+n <= len(a.buf) {
		return true
	}
	size := len(a.buf) + a.expand
	for size < a.offset+n {
		size += a.expand
	}
	if a.grow == nil {
		a.err = errors.New("uop: buffer full")
		return false
	}
	nb, err := a.grow(a.buf, size)
	if err != nil {
		a.err = err
		return false
	}
	a.buf = nb
	return true
}

// op writes the opcode and returns the offset of its first operand, or -1
// when the buffer could not grow.
func (a *Assembler) op(o Op) int {
	if !a.reserve(o.Len()) {
		return -1
	}
	a.buf[a.offset] = byte(o)
	at := a.offset + 1
	a.offset += o.Len()
	return at
}

func (a *Assembler) put8(at int, v uint8)   { a.buf[at] = v }
func (a *Assembler) put16(at int, v uint16) { binary.LittleEndian.PutUint16(a.buf[at:], v) }
func (a *Assembler) put32(at int, v uint32) { binary.LittleEndian.PutUint32(a.buf[at:], v) }

// Patch32 overwrites a 32-bit operand previously emitted at at.
func (a *Assembler) Patch32(at int, v uint32) {
	if at < 0 || at+4 > a.offset {
		return
	}
	a.put32(at, v)
}

func (a *Assembler) Begin(pc uint32, opcode uint16) {
	if at := a.op(Begin); at >= 0 {
		a.put32(at, pc)
		a.put16(at+4, opcode)
	}
}

func (a *Assembler) Check(pc uint32) {
	if at := a.op(Check); at >= 0 {
		a.put32(at, pc)
	}
}

func (a *Assembler) Cycles(n uint16) {
	if n == 0 {
		return
	}
	if at := a.op(Cycles); at >= 0 {
		a.put16(at, n)
	}
}

func (a *Assembler) SetPC(pc uint32) {
	if at := a.op(SetPC); at >= 0 {
		a.put32(at, pc)
	}
}

func (a *Assembler) EAInd(slot, an uint8) {
	if at := a.op(EAInd); at >= 0 {
		a.put8(at, slot)
		a.put8(at+1, an)
	}
}

func (a *Assembler) EAPostInc(slot, an, step uint8) {
	if at := a.op(EAPostInc); at >= 0 {
		a.put8(at, slot)
		a.put8(at+1, an)
		a.put8(at+2, step)
	}
}

func (a *Assembler) EAPreDec(slot, an, step uint8) {
	if at := a.op(EAPreDec); at >= 0 {
		a.put8(at, slot)
		a.put8(at+1, an)
		a.put8(at+2, step)
	}
}

func (a *Assembler) EADisp(slot, an uint8, disp int32) {
	if at := a.op(EADisp); at >= 0 {
		a.put8(at, slot)
		a.put8(at+1, an)
		a.put32(at+2, uint32(disp))
	}
}

func (a *Assembler) EAIndex(slot, an uint8, ext uint16) {
	if at := a.op(EAIndex); at >= 0 {
		a.put8(at, slot)
		a.put8(at+1, an)
		a.put16(at+2, ext)
	}
}

func (a *Assembler) EAAbs(slot uint8, addr uint32) {
	if at := a.op(EAAbs); at >= 0 {
		a.put8(at, slot)
		a.put32(at+1, addr)
	}
}

func (a *Assembler) EAPCIndex(slot uint8, base uint32, ext uint16) {
	if at := a.op(EAPCIndex); at >= 0 {
		a.put8(at, slot)
		a.put32(at+1, base)
		a.put16(at+5, ext)
	}
}

func (a *Assembler) LoadD(latch, reg, size uint8) {
	if at := a.op(LoadD); at >= 0 {
		a.put8(at, latch)
		a.put8(at+1, reg)
		a.put8(at+2, size)
	}
}

func (a *Assembler) LoadA(latch, reg, size uint8) {
	if at := a.op(LoadA); at >= 0 {
		a.put8(at, latch)
		a.put8(at+1, reg)
		a.put8(at+2, size)
	}
}

func (a *Assembler) LoadImm(latch uint8, val uint32) {
	if at := a.op(LoadImm); at >= 0 {
		a.put8(at, latch)
		a.put32(at+1, val)
	}
}

func (a *Assembler) LoadMem(latch, slot, size uint8) {
	if at := a.op(LoadMem); at >= 0 {
		a.put8(at, latch)
		a.put8(at+1, slot)
		a.put8(at+2, size)
	}
}

func (a *Assembler) SignExt(latch, size uint8) {
	if at := a.op(SignExt); at >= 0 {
		a.put8(at, latch)
		a.put8(at+1, size)
	}
}

func (a *Assembler) Alu(kind, size, ccmask uint8) {
	if at := a.op(Alu); at >= 0 {
		a.put8(at, kind)
		a.put8(at+1, size)
		a.put8(at+2, ccmask)
	}
}

func (a *Assembler) StoreD(reg, size uint8) {
	if at := a.op(StoreD); at >= 0 {
		a.put8(at, reg)
		a.put8(at+1, size)
	}
}

func (a *Assembler) StoreA(reg uint8) {
	if at := a.op(StoreA); at >= 0 {
		a.put8(at, reg)
	}
}

func (a *Assembler) StoreMem(slot, size uint8) {
	if at := a.op(StoreMem); at >= 0 {
		a.put8(at, slot)
		a.put8(at+1, size)
	}
}

func (a *Assembler) LeaA(slot, an uint8) {
	if at := a.op(LeaA); at >= 0 {
		a.put8(at, slot)
		a.put8(at+1, an)
	}
}

func (a *Assembler) PushEA(slot uint8) {
	if at := a.op(PushEA); at >= 0 {
		a.put8(at, slot)
	}
}

// Bcc emits a conditional branch and returns the offset of its link
// operand for later patching, or -1.
func (a *Assembler) Bcc(cond uint8, target, link uint32, notTaken uint16) int {
	at := a.op(Bcc)
	if at < 0 {
		return -1
	}
	a.put8(at, cond)
	a.put32(at+1, target)
	a.put32(at+5, link)
	a.put16(at+9, notTaken)
	return at + 5
}

// Bra emits an unconditional branch and returns its link operand offset.
func (a *Assembler) Bra(target, link uint32) int {
	at := a.op(Bra)
	if at < 0 {
		return -1
	}
	a.put32(at, target)
	a.put32(at+4, link)
	return at + 4
}

// DBcc emits a decrement-and-branch and returns its link operand offset.
func (a *Assembler) DBcc(cond, reg uint8, target, link uint32) int {
	at := a.op(DBcc)
	if at < 0 {
		return -1
	}
	a.put8(at, cond)
	a.put8(at+1, reg)
	a.put32(at+2, target)
	a.put32(at+6, link)
	return at + 6
}

func (a *Assembler) Scc(cond uint8, taken, notTaken uint16) {
	if at := a.op(Scc); at >= 0 {
		a.put8(at, cond)
		a.put16(at+1, taken)
		a.put16(at+3, notTaken)
	}
}

// Call, CallEA, Jump and Rts charge their cycles after the stack access,
// so they carry the count instead of relying on a separate Cycles op.
func (a *Assembler) Call(ret, target uint32, cycles uint16) {
	if at := a.op(Call); at >= 0 {
		a.put32(at, ret)
		a.put32(at+4, target)
		a.put16(at+8, cycles)
	}
}

func (a *Assembler) CallEA(slot uint8, ret uint32, cycles uint16) {
	if at := a.op(CallEA); at >= 0 {
		a.put8(at, slot)
		a.put32(at+1, ret)
		a.put16(at+5, cycles)
	}
}

func (a *Assembler) Jump(slot uint8, cycles uint16) {
	if at := a.op(Jump); at >= 0 {
		a.put8(at, slot)
		a.put16(at+1, cycles)
	}
}

func (a *Assembler) Rts(cycles uint16) {
	if at := a.op(Rts); at >= 0 {
		a.put16(at, cycles)
	}
}

func (a *Assembler) Interp(opcode uint16, next uint32) {
	if at := a.op(Interp); at >= 0 {
		a.put16(at, opcode)
		a.put32(at+2, next)
	}
}

func (a *Assembler) Exit() { a.op(Exit) }

// Walk calls fn for every micro-op in code, stopping at the first
// malformed op.
func Walk(code []byte, fn func(off int, op Op)) error {
	for off := 0; off < len(code); {
		op, n, err := Decode(code, off)
		if err != nil {
			return fmt.Errorf("at offset %d: %w", off, err)
		}
		fn(off, op)
		off += n
	}
	return nil
}
