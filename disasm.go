package m68k

import (
	"fmt"
	"math/bits"
	"strings"
)

// insnFormat describes one disassembly pattern. The first entry with
// op&mask == test wins. Operand tags in the format are expanded:
//
//	<ea.s>     EA field in bits 5-0, operand size s (b, w, l)
//	<ea2.s>    MOVE destination EA in bits 11-6
//	<imm.s>    immediate of size s from the extension words
//	<imm16d>   16-bit extension word in decimal (bit numbers, displacements)
//	<reg>      register number in bits 11-9
//	<reg0>     register number in bits 2-0
//	<count>    quick count in bits 11-9, 0 meaning 8
//	<trap>     trap vector in bits 3-0
//	<quick8>   signed 8-bit immediate in bits 7-0
//	<pcrel8>   branch target from the 8-bit displacement
//	<pcrel16>  branch target from a 16-bit extension word
//	<mask>     MOVEM register mask word, read without output
//	<reglist>  the mask as a register list
//	<tsilger>  the mask in predecrement order
type insnFormat struct {
	mask, test uint16
	format     string
}

var conditionNames = [16]string{
	"T", "F", "HI", "LS", "CC", "CS", "NE", "EQ",
	"VC", "VS", "PL", "MI", "GE", "LT", "GT", "LE",
}

var insnFormats []insnFormat

func init() {
	add := func(mask, test uint16, format string) {
		insnFormats = append(insnFormats, insnFormat{mask, test, format})
	}
	sized := func(mask, test uint16, format string) {
		for i, s := range []string{"b", "w", "l"} {
			f := strings.ReplaceAll(format, ".s", "."+s)
			add(mask, test|uint16(i)<<6, strings.Replace(f, "."+s, "."+strings.ToUpper(s), 1))
		}
	}

	// Immediate group
	for _, g := range []struct {
		base uint16
		name string
		ccr  bool
	}{
		{0x0000, "ORI", true}, {0x0200, "ANDI", true}, {0x0400, "SUBI", false},
		{0x0600, "ADDI", false}, {0x0A00, "EORI", true}, {0x0C00, "CMPI", false},
	} {
		if g.ccr {
			add(0xFFFF, g.base|0x003C, g.name+".B #<imm.b>,CCR")
			add(0xFFFF, g.base|0x007C, g.name+".W #<imm.w>,SR")
		}
		sized(0xFFC0, g.base, g.name+".s #<imm.s>,<ea.s>")
	}

	// Bit operations and MOVEP
	add(0xF1F8, 0x0108, "MOVEP.W <imm16d>(A<reg0>),D<reg>")
	add(0xF1F8, 0x0148, "MOVEP.L <imm16d>(A<reg0>),D<reg>")
	add(0xF1F8, 0x0188, "MOVEP.W D<reg>,<imm16d>(A<reg0>)")
	add(0xF1F8, 0x01C8, "MOVEP.L D<reg>,<imm16d>(A<reg0>)")
	for i, name := range []string{"BTST", "BCHG", "BCLR", "BSET"} {
		add(0xFFC0, 0x0800|uint16(i)<<6, name+" #<imm16d>,<ea.b>")
		add(0xF1C0, 0x0100|uint16(i)<<6, name+" D<reg>,<ea.b>")
	}

	// MOVE
	add(0xF1C0, 0x2040, "MOVEA.L <ea.l>,A<reg>")
	add(0xF000, 0x2000, "MOVE.L <ea.l>,<ea2.l>")
	add(0xF1C0, 0x3040, "MOVEA.W <ea.w>,A<reg>")
	add(0xF000, 0x3000, "MOVE.W <ea.w>,<ea2.w>")
	add(0xF1C0, 0x1040, "???")
	add(0xF000, 0x1000, "MOVE.B <ea.b>,<ea2.b>")

	// Miscellaneous
	sized(0xFFC0, 0x4000, "NEGX.s <ea.s>")
	add(0xFFC0, 0x40C0, "MOVE.W SR,<ea.w>")
	sized(0xFFC0, 0x4200, "CLR.s <ea.s>")
	sized(0xFFC0, 0x4400, "NEG.s <ea.s>")
	add(0xFFC0, 0x44C0, "MOVE.W <ea.w>,CCR")
	sized(0xFFC0, 0x4600, "NOT.s <ea.s>")
	add(0xFFC0, 0x46C0, "MOVE.W <ea.w>,SR")
	add(0xFFF8, 0x4808, "???")
	add(0xFFC0, 0x4800, "NBCD.B <ea.b>")
	add(0xFFF8, 0x4840, "SWAP.W D<reg0>")
	add(0xFFF8, 0x4848, "???")
	add(0xFFC0, 0x4840, "PEA.L <ea.l>")
	add(0xFFF8, 0x4880, "EXT.W D<reg0>")
	add(0xFFF8, 0x48A0, "MOVEM.W <mask><tsilger>,-(A<reg0>)")
	add(0xFFC0, 0x4880, "MOVEM.W <mask><reglist>,<ea.w>")
	add(0xFFF8, 0x48C0, "EXT.L D<reg0>")
	add(0xFFF8, 0x48E0, "MOVEM.L <mask><tsilger>,-(A<reg0>)")
	add(0xFFC0, 0x48C0, "MOVEM.L <mask><reglist>,<ea.l>")
	sized(0xFFC0, 0x4A00, "TST.s <ea.s>")
	add(0xFFFF, 0x4AFC, "ILLEGAL")
	add(0xFFC0, 0x4AC0, "TAS <ea.b>")
	add(0xFFC0, 0x4C80, "MOVEM.W <mask><ea.w>,<reglist>")
	add(0xFFC0, 0x4CC0, "MOVEM.L <mask><ea.l>,<reglist>")
	add(0xFFF0, 0x4E40, "TRAP #<trap>")
	add(0xFFF8, 0x4E50, "LINK A<reg0>,#<imm.w>")
	add(0xFFF8, 0x4E58, "UNLK A<reg0>")
	add(0xFFF8, 0x4E60, "MOVE A<reg0>,USP")
	add(0xFFF8, 0x4E68, "MOVE USP,A<reg0>")
	add(0xFFFF, 0x4E70, "RESET")
	add(0xFFFF, 0x4E71, "NOP")
	add(0xFFFF, 0x4E72, "STOP #<imm.w>")
	add(0xFFFF, 0x4E73, "RTE")
	add(0xFFFF, 0x4E75, "RTS")
	add(0xFFFF, 0x4E76, "TRAPV")
	add(0xFFFF, 0x4E77, "RTR")
	add(0xFFC0, 0x4E80, "JSR <ea.l>")
	add(0xFFC0, 0x4EC0, "JMP <ea.l>")
	add(0xF1C0, 0x4180, "CHK.W <ea.w>,D<reg>")
	add(0xF1C0, 0x41C0, "LEA.L <ea.l>,A<reg>")

	// ADDQ, SUBQ, Scc, DBcc
	sized(0xF1C0, 0x5000, "ADDQ.s #<count>,<ea.s>")
	sized(0xF1C0, 0x5100, "SUBQ.s #<count>,<ea.s>")
	for cc, name := range conditionNames {
		if cc == 1 {
			add(0xFFF8, 0x51C8, "DBRA D<reg0>,<pcrel16>")
		} else {
			add(0xFFF8, 0x50C8|uint16(cc)<<8, "DB"+name+" D<reg0>,<pcrel16>")
		}
		add(0xFFC0, 0x50C0|uint16(cc)<<8, "S"+name+".B <ea.b>")
	}

	// Branches
	for cc, name := range conditionNames {
		switch cc {
		case 0:
			name = "RA"
		case 1:
			name = "SR"
		}
		add(0xFFFF, 0x6000|uint16(cc)<<8, "B"+name+".W <pcrel16>")
		add(0xFF00, 0x6000|uint16(cc)<<8, "B"+name+".S <pcrel8>")
	}

	add(0xF100, 0x7000, "MOVEQ #<quick8>,D<reg>")

	// OR, DIVx, SBCD
	add(0xF1F8, 0x8100, "SBCD.B D<reg0>,D<reg>")
	add(0xF1F8, 0x8108, "SBCD.B -(A<reg0>),-(A<reg>)")
	add(0xF1F0, 0x8140, "???")
	add(0xF1F0, 0x8180, "???")
	sized(0xF1C0, 0x8000, "OR.s <ea.s>,D<reg>")
	add(0xF1C0, 0x80C0, "DIVU.W <ea.w>,D<reg>")
	sized(0xF1C0, 0x8100, "OR.s D<reg>,<ea.s>")
	add(0xF1C0, 0x81C0, "DIVS.W <ea.w>,D<reg>")

	// SUB, SUBA, SUBX
	sized(0xF1F8, 0x9100, "SUBX.s D<reg0>,D<reg>")
	sized(0xF1F8, 0x9108, "SUBX.s -(A<reg0>),-(A<reg>)")
	sized(0xF1C0, 0x9000, "SUB.s <ea.s>,D<reg>")
	add(0xF1C0, 0x90C0, "SUBA.W <ea.w>,A<reg>")
	sized(0xF1C0, 0x9100, "SUB.s D<reg>,<ea.s>")
	add(0xF1C0, 0x91C0, "SUBA.L <ea.l>,A<reg>")

	// CMP, CMPA, CMPM, EOR
	sized(0xF1F8, 0xB108, "CMPM.s (A<reg0>)+,(A<reg>)+")
	sized(0xF1C0, 0xB000, "CMP.s <ea.s>,D<reg>")
	add(0xF1C0, 0xB0C0, "CMPA.W <ea.w>,A<reg>")
	sized(0xF1C0, 0xB100, "EOR.s D<reg>,<ea.s>")
	add(0xF1C0, 0xB1C0, "CMPA.L <ea.l>,A<reg>")

	// AND, MULx, ABCD, EXG
	add(0xF1F8, 0xC100, "ABCD.B D<reg0>,D<reg>")
	add(0xF1F8, 0xC108, "ABCD.B -(A<reg0>),-(A<reg>)")
	add(0xF1F8, 0xC140, "EXG.L D<reg>,D<reg0>")
	add(0xF1F8, 0xC148, "EXG.L A<reg>,A<reg0>")
	add(0xF1F8, 0xC180, "???")
	add(0xF1F8, 0xC188, "EXG.L D<reg>,A<reg0>")
	sized(0xF1C0, 0xC000, "AND.s <ea.s>,D<reg>")
	add(0xF1C0, 0xC0C0, "MULU.W <ea.w>,D<reg>")
	sized(0xF1C0, 0xC100, "AND.s D<reg>,<ea.s>")
	add(0xF1C0, 0xC1C0, "MULS.W <ea.w>,D<reg>")

	// ADD, ADDA, ADDX
	sized(0xF1F8, 0xD100, "ADDX.s D<reg0>,D<reg>")
	sized(0xF1F8, 0xD108, "ADDX.s -(A<reg0>),-(A<reg>)")
	sized(0xF1C0, 0xD000, "ADD.s <ea.s>,D<reg>")
	add(0xF1C0, 0xD0C0, "ADDA.W <ea.w>,A<reg>")
	sized(0xF1C0, 0xD100, "ADD.s D<reg>,<ea.s>")
	add(0xF1C0, 0xD1C0, "ADDA.L <ea.l>,A<reg>")

	// Shifts and rotates
	shiftNames := [4]string{"AS", "LS", "ROX", "RO"}
	for t, name := range shiftNames {
		for dir, d := range []string{"R", "L"} {
			add(0xFFC0, 0xE0C0|uint16(t)<<9|uint16(dir)<<8, name+d+".W <ea.w>")
			for i, s := range []string{"B", "W", "L"} {
				base := 0xE000 | uint16(dir)<<8 | uint16(i)<<6 | uint16(t)<<3
				add(0xF1F8, base, name+d+"."+s+" #<count>,D<reg0>")
				add(0xF1F8, base|0x20, name+d+"."+s+" D<reg>,D<reg0>")
			}
		}
	}
}

func lookupFormat(op uint16) string {
	for i := range insnFormats {
		if op&insnFormats[i].mask == insnFormats[i].test {
			return insnFormats[i].format
		}
	}
	return "???"
}

// decoder walks an instruction format. With a nil reader it only counts
// extension words; with a nil builder it produces no text.
type decoder struct {
	op   uint16
	pc   uint32 // address of the opcode word
	addr uint32 // next extension word
	mask uint16 // MOVEM register mask, read ahead of the EA
	read func(addr uint32) uint16
	sb   *strings.Builder
}

func (d *decoder) word() uint16 {
	var w uint16
	if d.read != nil {
		w = d.read(d.addr)
	}
	d.addr += 2
	return w
}

func (d *decoder) long() uint32 {
	hi := d.word()
	return uint32(hi)<<16 | uint32(d.word())
}

func (d *decoder) printf(format string, args ...any) {
	if d.sb != nil {
		fmt.Fprintf(d.sb, format, args...)
	}
}

func (d *decoder) hex(v uint32) {
	if v < 10 {
		d.printf("%d", v)
	} else {
		d.printf("$%X", v)
	}
}

func tagSize(s byte) Size {
	switch s {
	case 'b':
		return Byte
	case 'w':
		return Word
	}
	return Long
}

func (d *decoder) run(format string) {
	for len(format) > 0 {
		i := strings.IndexByte(format, '<')
		if i < 0 {
			d.printf("%s", format)
			return
		}
		d.printf("%s", format[:i])
		format = format[i+1:]
		j := strings.IndexByte(format, '>')
		if j < 0 {
			return
		}
		d.tag(format[:j])
		format = format[j+1:]
	}
}

func (d *decoder) tag(tag string) {
	op := d.op
	switch {
	case strings.HasPrefix(tag, "ea2."):
		d.ea(uint8(op>>6)&7, uint8(op>>9)&7, tagSize(tag[4]))
	case strings.HasPrefix(tag, "ea."):
		d.ea(uint8(op>>3)&7, uint8(op)&7, tagSize(tag[3]))
	case strings.HasPrefix(tag, "imm."):
		d.imm(tagSize(tag[4]))
	case tag == "imm16d":
		d.printf("%d", int16(d.word()))
	case tag == "reg":
		d.printf("%d", op>>9&7)
	case tag == "reg0":
		d.printf("%d", op&7)
	case tag == "count":
		n := op >> 9 & 7
		if n == 0 {
			n = 8
		}
		d.printf("%d", n)
	case tag == "trap":
		d.printf("%d", op&15)
	case tag == "quick8":
		d.printf("%d", int8(op))
	case tag == "pcrel8":
		d.printf("$%X", uint32(int32(d.pc+2)+int32(int8(op))))
	case tag == "pcrel16":
		base := d.addr
		d.printf("$%X", uint32(int32(base)+int32(int16(d.word()))))
	case tag == "mask":
		d.mask = d.word()
	case tag == "reglist":
		d.reglist(d.mask)
	case tag == "tsilger":
		d.reglist(bits.Reverse16(d.mask))
	}
}

func (d *decoder) imm(sz Size) {
	var v uint32
	if sz == Long {
		v = d.long()
	} else {
		v = uint32(d.word()) & sz.Mask()
	}
	d.hex(v)
}

func (d *decoder) ea(mode, reg uint8, sz Size) {
	switch mode {
	case 0:
		d.printf("D%d", reg)
	case 1:
		d.printf("A%d", reg)
	case 2:
		d.printf("(A%d)", reg)
	case 3:
		d.printf("(A%d)+", reg)
	case 4:
		d.printf("-(A%d)", reg)
	case 5:
		d.printf("%d(A%d)", int16(d.word()), reg)
	case 6:
		ext := d.word()
		d.printf("%d(A%d,%s)", int8(ext), reg, indexName(ext))
	case 7:
		switch reg {
		case 0:
			d.printf("($%X).w", d.word())
		case 1:
			d.printf("($%X).l", d.long())
		case 2:
			base := d.addr
			d.printf("$%X(PC)", uint32(int32(base)+int32(int16(d.word()))))
		case 3:
			base := d.addr
			ext := d.word()
			d.printf("$%X(PC,%s)", uint32(int32(base)+int32(int8(ext))), indexName(ext))
		case 4:
			d.printf("#")
			d.imm(sz)
		default:
			d.printf("???")
		}
	}
}

func indexName(ext uint16) string {
	kind, size := 'D', 'w'
	if ext&0x8000 != 0 {
		kind = 'A'
	}
	if ext&0x0800 != 0 {
		size = 'l'
	}
	return fmt.Sprintf("%c%d.%c", kind, ext>>12&7, size)
}

// reglist prints a MOVEM mask (bit 0 = D0) as ranges: D0-D3/A6.
func (d *decoder) reglist(mask uint16) {
	if mask == 0 {
		d.printf("0")
		return
	}
	first := true
	for r := 0; r < 16; {
		if mask&(1<<r) == 0 {
			r++
			continue
		}
		end := r
		for end+1 < 16 && end+1 != 8 && mask&(1<<(end+1)) != 0 {
			end++
		}
		if !first {
			d.printf("/")
		}
		first = false
		d.printf("%s", regName(r))
		if end > r {
			d.printf("-%s", regName(end))
		}
		r = end + 1
	}
}

func regName(r int) string {
	if r < 8 {
		return fmt.Sprintf("D%d", r)
	}
	return fmt.Sprintf("A%d", r-8)
}

// insnWords returns the length in words of the instruction starting with
// op, and whether op is a defined instruction. 68000 instruction length
// depends only on the first word.
func insnWords(op uint16) (int, bool) {
	format := lookupFormat(op)
	if format == "???" {
		return 1, false
	}
	d := decoder{op: op, addr: 2}
	d.run(format)
	return int(d.addr / 2), true
}

// Disassemble returns the instruction at addr in Motorola syntax and its
// length in words. Memory is read through Bus.Read. An odd address or an
// undefined opcode yields "???" and one word.
func (c *CPU) Disassemble(addr uint32) (string, int) {
	if addr&1 != 0 {
		return "???", 1
	}
	read := func(a uint32) uint16 {
		return uint16(c.bus.Read(Word, a&0xFFFFFF))
	}
	op := read(addr)
	format := lookupFormat(op)
	if format == "???" {
		return "???", 1
	}
	var sb strings.Builder
	d := decoder{op: op, pc: addr, addr: addr + 2, read: read, sb: &sb}
	d.run(format)
	return sb.String(), int((d.addr - addr) / 2)
}
