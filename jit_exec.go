package m68k

import (
	"fmt"

	"github.com/user-none/go-chip-m68k-jit/internal/uop"
)

// exitCode tells the driver why translated code returned.
type exitCode uint8

const (
	exitEnd    exitCode = iota // PC holds the next guest address
	exitCheck                  // cycle budget used up or interrupt ready
	exitFault                  // an exception is pending
	exitCall                   // BSR/JSR; jit.callRet holds the return address
	exitReturn                 // RTS
)

func (e exitCode) String() string {
	switch e {
	case exitEnd:
		return "end"
	case exitCheck:
		return "check"
	case exitFault:
		return "fault"
	case exitCall:
		return "call"
	case exitReturn:
		return "return"
	}
	return fmt.Sprintf("exit(%d)", uint8(e))
}

// execState is the scratch state of one run of translated code.
type execState struct {
	ea   [2]uint32 // resolved operand addresses
	lat  [2]uint32 // operand latches, indexed by uop.Src / uop.Dst
	res  uint32    // last ALU result
	pend uint64    // cycles deferred to the next Cycles op
	pc   uint32    // address of the current guest instruction
}

// invoke runs b's code from offset off until it exits. It returns the
// cycles consumed, the exit reason and, for check and call exits, the
// code offset to continue from.
//
// An address error raised by a guest access unwinds to here the same way
// it unwinds to execute in the interpreter.
func (j *jit) invoke(b *block, off int, limit uint64) (cycles int, exit exitCode, resume int) {
	c := j.cpu
	code := b.code
	start := c.cycles
	var x execState

	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(busFault)
			if !ok {
				panic(r)
			}
			c.reg.PC = x.pc + 2
			c.addressError(f)
			cycles, exit, resume = int(c.cycles-start), exitFault, 0
		}
	}()

	done := func(e exitCode, at int) (int, exitCode, int) {
		return int(c.cycles - start), e, at
	}

	for {
		op := uop.Op(code[off])
		a := off + 1

		switch op {
		case uop.Begin:
			x.pc = uop.U32(code, a)
			c.prevPC = x.pc
			c.ir = uop.U16(code, a+4)
			c.reg.IR = c.ir

		case uop.Check:
			if c.cycles >= limit || c.interruptReady() {
				c.reg.PC = uop.U32(code, a)
				return done(exitCheck, off)
			}

		case uop.Cycles:
			c.cycles += uint64(uop.U16(code, a)) + x.pend
			x.pend = 0

		case uop.SetPC:
			c.reg.PC = uop.U32(code, a)
			if c.exc != 0 {
				return done(exitFault, 0)
			}
			if b.mustClear {
				return done(exitEnd, 0)
			}

		case uop.EAInd:
			x.ea[code[a]] = c.reg.A[code[a+1]]

		case uop.EAPostInc:
			an := code[a+1]
			x.ea[code[a]] = c.reg.A[an]
			c.reg.A[an] += uint32(code[a+2])

		case uop.EAPreDec:
			an := code[a+1]
			c.reg.A[an] -= uint32(code[a+2])
			x.ea[code[a]] = c.reg.A[an]

		case uop.EADisp:
			x.ea[code[a]] = c.reg.A[code[a+1]] + uop.U32(code, a+2)

		case uop.EAIndex:
			x.ea[code[a]] = indexAddress(c.reg.A[code[a+1]], uop.U16(code, a+2), &c.reg)

		case uop.EAAbs:
			x.ea[code[a]] = uop.U32(code, a+1)

		case uop.EAPCIndex:
			x.ea[code[a]] = indexAddress(uop.U32(code, a+1), uop.U16(code, a+5), &c.reg)

		case uop.LoadD:
			x.lat[code[a]] = c.reg.D[code[a+1]] & Size(code[a+2]).Mask()

		case uop.LoadA:
			x.lat[code[a]] = c.reg.A[code[a+1]] & Size(code[a+2]).Mask()

		case uop.LoadImm:
			x.lat[code[a]] = uop.U32(code, a+1)

		case uop.LoadMem:
			x.lat[code[a]] = c.readBus(Size(code[a+2]), x.ea[code[a+1]])

		case uop.SignExt:
			x.lat[code[a]] = signExtend(x.lat[code[a]], Size(code[a+1]))

		case uop.Alu:
			r, f := aluCompute(code[a], x.lat[uop.Src], x.lat[uop.Dst], Size(code[a+1]))
			x.res = r
			mask := uint16(code[a+2])
			c.reg.SR = c.reg.SR&^mask | f&mask

		case uop.StoreD:
			mask := Size(code[a+1]).Mask()
			r := code[a]
			c.reg.D[r] = c.reg.D[r]&^mask | x.res&mask

		case uop.StoreA:
			c.reg.A[code[a]] = x.res

		case uop.StoreMem:
			c.writeBus(Size(code[a+1]), x.ea[code[a]], x.res)

		case uop.LeaA:
			c.reg.A[code[a+1]] = x.ea[code[a]]

		case uop.PushEA:
			c.pushLong(x.ea[code[a]])

		case uop.Bcc:
			if conditionTrue(c.reg.SR, code[a]) {
				c.cycles += bccTaken
				c.reg.PC = uop.U32(code, a+1)
				if link := uop.U32(code, a+5); link != uop.LinkNone && !b.mustClear {
					off = int(link)
					continue
				}
				return done(exitEnd, 0)
			}
			c.cycles += uint64(uop.U16(code, a+9))

		case uop.Bra:
			c.reg.PC = uop.U32(code, a)
			if link := uop.U32(code, a+4); link != uop.LinkNone && !b.mustClear {
				off = int(link)
				continue
			}
			return done(exitEnd, 0)

		case uop.DBcc:
			if conditionTrue(c.reg.SR, code[a]) {
				c.cycles += dbccCondTrue
				break
			}
			r := code[a+1]
			v := uint16(c.reg.D[r]) - 1
			c.reg.D[r] = c.reg.D[r]&0xFFFF0000 | uint32(v)
			if v == 0xFFFF {
				c.cycles += dbccExpired
				break
			}
			c.cycles += dbccTaken
			c.reg.PC = uop.U32(code, a+2)
			if link := uop.U32(code, a+6); link != uop.LinkNone && !b.mustClear {
				off = int(link)
				continue
			}
			return done(exitEnd, 0)

		case uop.Scc:
			if conditionTrue(c.reg.SR, code[a]) {
				x.res = 0xFF
				x.pend += uint64(uop.U16(code, a+1))
			} else {
				x.res = 0
				x.pend += uint64(uop.U16(code, a+3))
			}

		case uop.Call:
			ret := uop.U32(code, a)
			c.pushLong(ret)
			c.reg.PC = uop.U32(code, a+4)
			c.cycles += uint64(uop.U16(code, a+8))
			j.callRet = ret
			return done(exitCall, off+op.Len())

		case uop.CallEA:
			ret := uop.U32(code, a+1)
			target := x.ea[code[a]]
			c.pushLong(ret)
			c.reg.PC = target
			c.cycles += uint64(uop.U16(code, a+5))
			j.callRet = ret
			return done(exitCall, off+op.Len())

		case uop.Jump:
			c.reg.PC = x.ea[code[a]]
			c.cycles += uint64(uop.U16(code, a+1))
			return done(exitEnd, 0)

		case uop.Rts:
			c.reg.PC = c.popLong()
			c.cycles += uint64(uop.U16(code, a))
			return done(exitReturn, 0)

		case uop.Interp:
			opcode := uop.U16(code, a)
			next := uop.U32(code, a+2)
			sys := c.reg.SR & 0xFF00
			c.reg.PC = x.pc + 2
			c.ir = opcode
			groupTable[groupIndex(opcode)](c)
			if c.exc != 0 {
				return done(exitFault, 0)
			}
			if c.reg.PC != next || c.reg.SR&0xFF00 != sys || c.stopped || c.halted || b.mustClear {
				return done(exitEnd, 0)
			}

		case uop.Exit:
			return done(exitEnd, 0)

		default:
			panic(fmt.Sprintf("m68k: bad micro-op %v at offset %d in block %06x", op, off, b.start))
		}

		off += op.Len()
	}
}

// dumpCode logs b's micro-ops, with the guest instruction beside each
// Begin.
func (j *jit) dumpCode(b *block) {
	err := uop.Walk(b.code, func(off int, op uop.Op) {
		if op != uop.Begin {
			j.cpu.logf("  %04x %v", off, op)
			return
		}
		pc := uop.U32(b.code, off+1)
		text, _ := j.cpu.Disassemble(pc)
		j.cpu.logf("  %04x %-10v %06x %s", off, op, pc, text)
	})
	if err != nil {
		j.cpu.logf("  block %06x: %v", b.start, err)
	}
}
