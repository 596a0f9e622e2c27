package m68k

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var sstPath = flag.String("sstpath", "", "directory containing SST JSON test files")
var sstStrict = flag.Bool("sststrict", false, "run all SST tests including known failures")

// sstSkip lists JSON files that fail due to documented design choices.
// Remove entries as features are implemented to re-enable those tests.
var sstSkip = map[string]string{
	"TAS.json":   "TAS is not fully modeled",
	"TRAPV.json": "TRAPV is not fully modeled",

	// Cycle count approximations (see README Design Notes):
	// Multiply/divide use flat worst-case values instead of operand-dependent timing.
	"MULU.json": "cycle approximation: flat worst-case 70 (real 38-70)",
	"MULS.json": "cycle approximation: flat worst-case 70 (real 38-70)",
	"DIVU.json": "cycle approximation: flat worst-case 140 (real 76-140)",
	"DIVS.json": "cycle approximation: flat worst-case 158 (real 120-158)",

	// CHK exception processing uses a fixed 34-cycle cost rather than
	// instruction-specific timing which varies by addressing mode and trap condition.
	"CHK.json": "cycle approximation: fixed 34-cycle exception cost",

	// Bit manipulation #imm,Dn timing: PRM values are 2 cycles off from
	// hardware-verified results for all four instructions.
	"BTST.json": "cycle approximation: BTST #imm,Dn 8 vs hardware 10",
	"BCHG.json": "cycle approximation: BCHG #imm,Dn 12 vs hardware 10",
	"BCLR.json": "cycle approximation: BCLR #imm,Dn 14 vs hardware 12",
	"BSET.json": "cycle approximation: BSET #imm,Dn 12 vs hardware 10",
}

var sstEngines = []struct {
	name string
	opts []Option
}{
	{"interp", []Option{WithJIT(false)}},
	{"jit", []Option{WithStrictTiming(true)}},
}

type sstJSONState struct {
	D0       uint32     `json:"d0"`
	D1       uint32     `json:"d1"`
	D2       uint32     `json:"d2"`
	D3       uint32     `json:"d3"`
	D4       uint32     `json:"d4"`
	D5       uint32     `json:"d5"`
	D6       uint32     `json:"d6"`
	D7       uint32     `json:"d7"`
	A0       uint32     `json:"a0"`
	A1       uint32     `json:"a1"`
	A2       uint32     `json:"a2"`
	A3       uint32     `json:"a3"`
	A4       uint32     `json:"a4"`
	A5       uint32     `json:"a5"`
	A6       uint32     `json:"a6"`
	USP      uint32     `json:"usp"`
	SSP      uint32     `json:"ssp"`
	SR       uint16     `json:"sr"`
	PC       uint32     `json:"pc"`
	Prefetch [2]uint16  `json:"prefetch"`
	RAM      [][]uint32 `json:"ram"`
}

func (s *sstJSONState) toM68kState() cpuState {
	st := cpuState{
		D:   [8]uint32{s.D0, s.D1, s.D2, s.D3, s.D4, s.D5, s.D6, s.D7},
		A:   [7]uint32{s.A0, s.A1, s.A2, s.A3, s.A4, s.A5, s.A6},
		PC:  s.PC,
		SR:  s.SR,
		USP: s.USP,
		SSP: s.SSP,
	}
	for _, entry := range s.RAM {
		st.RAM = append(st.RAM, [2]uint32{entry[0], entry[1]})
	}
	return st
}

type sstJSONTest struct {
	Name         string       `json:"name"`
	Initial      sstJSONState `json:"initial"`
	Final        sstJSONState `json:"final"`
	Transactions []any        `json:"transactions"`
	Length       int          `json:"length"`
}

// runSSTTest runs one SingleStepTests case. The interpreter executes it
// with Step; translated code runs it as Run(1) under strict timing, which
// stops at the first instruction boundary. Cases that double fault are
// skipped since the state after a halt is undefined.
func runSSTTest(t *testing.T, init, want cpuState, opts []Option) {
	t.Helper()

	cpu, bus := loadState(init, opts...)
	var gotCycles int
	if cpu.jit == nil {
		gotCycles = cpu.Step()
	} else {
		gotCycles = cpu.Run(1)
	}

	if cpu.Halted() {
		t.Skip("double fault")
	}
	checkState(t, cpu, bus, want, gotCycles)
}

func TestSSTRunner(t *testing.T) {
	if *sstPath == "" {
		t.Skip("no -sstpath provided")
	}

	entries, err := os.ReadDir(*sstPath)
	if err != nil {
		t.Fatalf("reading sstpath: %v", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		fname := entry.Name()
		if reason, ok := sstSkip[fname]; ok && !*sstStrict {
			t.Run(fname, func(t *testing.T) {
				t.Skipf("known failure: %s (use -sststrict to run)", reason)
			})
			continue
		}
		t.Run(fname, func(t *testing.T) {
			t.Parallel()
			data, err := os.ReadFile(filepath.Join(*sstPath, fname))
			if err != nil {
				t.Fatalf("reading %s: %v", fname, err)
			}

			var tests []sstJSONTest
			if err := json.Unmarshal(data, &tests); err != nil {
				t.Fatalf("parsing %s: %v", fname, err)
			}

			for i := range tests {
				jt := &tests[i]
				init := jt.Initial.toM68kState()
				want := jt.Final.toM68kState()
				want.Cycles = jt.Length

				for _, e := range sstEngines {
					t.Run(e.name+"/"+jt.Name, func(t *testing.T) {
						runSSTTest(t, init, want, e.opts)
					})
				}
			}
		})
	}
}
