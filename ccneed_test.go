package m68k

import "testing"

func TestCCNeeded(t *testing.T) {
	tests := []struct {
		name     string
		op, next uint16
		want     uint16
	}{
		{"CMP then MOVEQ", 0xB041, 0x7005, 0},
		{"CMP then BEQ", 0xB041, 0x6702, ccNZVC},
		{"CMP then LEA", 0xB041, 0x41F8, ccNZVC},
		{"CMP then NOP", 0xB041, 0x4E71, ccNZVC},
		{"ADD then MOVEQ keeps X", 0xD041, 0x7005, flagX},
		{"ADD then ADDX", 0xD041, 0xD141, flagX | flagZ},
		{"ADD then ADD", 0xD041, 0xD041, 0},
		{"NEG then CLR keeps X", 0x4440, 0x4240, flagX},
		{"CLR then NEG", 0x4240, 0x4440, 0},
		{"TST then Scc EQ", 0x4A40, 0x57C0, ccNZVC},
		{"SUBQ then DBF", 0x5340, 0x51C8, ccXNZVC},
		{"MOVE then RTS", 0x3001, 0x4E75, ccNZVC},
		{"MOVEA produces nothing", 0x3041, 0x7005, 0},
		{"DIVU then MOVEQ", 0x80C1, 0x7005, 0},
		{"DIVU then NOP", 0x80C1, 0x4E71, flagV | flagC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ccNeeded(tt.op, tt.next); got != tt.want {
				t.Errorf("ccNeeded(%04X, %04X) = %05b, want %05b", tt.op, tt.next, got, tt.want)
			}
		})
	}
}

func TestCCFlagsOf(t *testing.T) {
	tests := []struct {
		name    string
		op      uint16
		in, out uint16
	}{
		{"MOVEQ", 0x7005, 0, ccNZVC},
		{"ADDQ.W Dn", 0x5640, 0, ccXNZVC},
		{"ADDQ.W An", 0x5648, 0, 0},
		{"CLR.W", 0x4240, 0, ccNZVC},
		{"NEG.W", 0x4440, 0, ccXNZVC},
		{"NEGX.W", 0x4040, flagX | flagZ, ccXNZVC},
		{"SWAP", 0x4840, 0, ccNZVC},
		{"PEA", 0x4850, 0, 0},
		{"EXT.W", 0x4880, 0, ccNZVC},
		{"MOVEM", 0x48D0, 0, 0},
		{"LEA", 0x41D0, 0, 0},
		{"CHK", 0x4190, ccXNZVC, 0},
		{"NOP", 0x4E71, 0, 0},
		{"LINK", 0x4E56, 0, 0},
		{"TAS", 0x4AD0, 0, ccNZVC},
		{"ILLEGAL", 0x4AFC, ccXNZVC, 0},
		{"RTS", 0x4E75, ccXNZVC, 0},
		{"JSR", 0x4E90, ccXNZVC, 0},
		{"MOVE to CCR", 0x44C0, 0, ccXNZVC},
		{"BTST", 0x0300, 0, flagZ},
		{"MOVEP", 0x0108, 0, 0},
		{"ORI to CCR", 0x003C, ccXNZVC, ccXNZVC},
		{"ADDI.W", 0x0640, 0, ccXNZVC},
		{"CMPI.W", 0x0C40, 0, ccNZVC},
		{"EXG", 0xC141, 0, 0},
		{"ABCD", 0xC101, flagX | flagZ, ccXNZVC},
		{"ADDA.W", 0xD0C1, 0, 0},
		{"ROXL.W #1,Dn", 0xE350, flagX, ccXNZVC},
		{"ROXL.W memory", 0xE5D0, flagX, ccXNZVC},
		{"ROL.W Dn,Dn", 0xE378, 0, ccNZVC},
		{"ROXL.W Dn,Dn", 0xE370, flagX, ccNZVC},
		{"LSL.W #1,Dn", 0xE348, 0, ccXNZVC},
		{"LSL.W Dn,Dn", 0xE368, 0, ccNZVC},
		{"Bcc", 0x6702, ccXNZVC, 0},
		{"Line A", 0xA000, ccXNZVC, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if in, out := ccIn(tt.op), ccOut(tt.op); in != tt.in || out != tt.out {
				t.Errorf("%04X: in=%05b out=%05b, want in=%05b out=%05b", tt.op, in, out, tt.in, tt.out)
			}
		})
	}
}

func TestConditionFlags(t *testing.T) {
	want := [16]uint16{
		0, 0,
		flagC | flagZ, flagC | flagZ,
		flagC, flagC,
		flagZ, flagZ,
		flagV, flagV,
		flagN, flagN,
		flagN | flagV, flagN | flagV,
		flagN | flagV | flagZ, flagN | flagV | flagZ,
	}
	for cc := uint8(0); cc < 16; cc++ {
		if got := conditionFlags(cc); got != want[cc] {
			t.Errorf("conditionFlags(%d) = %05b, want %05b", cc, got, want[cc])
		}
	}
}
