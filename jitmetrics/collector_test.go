package jitmetrics

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	m68k "github.com/user-none/go-chip-m68k-jit"
)

type fixedSource m68k.Stats

func (f fixedSource) Stats() m68k.Stats { return m68k.Stats(f) }

func gather(t *testing.T, c *Collector) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily)
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func value(f *dto.MetricFamily) float64 {
	m := f.GetMetric()[0]
	switch f.GetType() {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	}
	return -1
}

func TestCollectorReportsSnapshot(t *testing.T) {
	c := New("emu", prometheus.Labels{"cpu": "main"})
	c.Sample(fixedSource{
		Translations:    12,
		AllocFailures:   1,
		Evictions:       3,
		Invalidations:   4,
		BlacklistHits:   5,
		Chained:         600,
		HostEntries:     700,
		CallStackHits:   8,
		CallStackMisses: 9,
		Blocks:          10,
		CodeBytes:       4096,
	})

	got := make(map[string]float64)
	for name, f := range gather(t, c) {
		got[name] = value(f)
	}
	want := map[string]float64{
		"emu_jit_translations_total":      12,
		"emu_jit_alloc_failures_total":    1,
		"emu_jit_evictions_total":         3,
		"emu_jit_invalidations_total":     4,
		"emu_jit_blacklist_hits_total":    5,
		"emu_jit_chained_total":           600,
		"emu_jit_host_entries_total":      700,
		"emu_jit_call_stack_hits_total":   8,
		"emu_jit_call_stack_misses_total": 9,
		"emu_jit_blocks":                  10,
		"emu_jit_code_bytes":              4096,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectorTypesAndLabels(t *testing.T) {
	c := New("", prometheus.Labels{"cpu": "sub"})
	families := gather(t, c)

	tests := []struct {
		name string
		typ  dto.MetricType
	}{
		{"jit_translations_total", dto.MetricType_COUNTER},
		{"jit_host_entries_total", dto.MetricType_COUNTER},
		{"jit_blocks", dto.MetricType_GAUGE},
		{"jit_code_bytes", dto.MetricType_GAUGE},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := families[tt.name]
			if !ok {
				t.Fatalf("family %s missing", tt.name)
			}
			if f.GetType() != tt.typ {
				t.Errorf("type = %v, want %v", f.GetType(), tt.typ)
			}
			labels := f.GetMetric()[0].GetLabel()
			if len(labels) != 1 || labels[0].GetName() != "cpu" || labels[0].GetValue() != "sub" {
				t.Errorf("labels = %v, want cpu=sub", labels)
			}
			if v := value(f); v != 0 {
				t.Errorf("value before any sample = %v, want 0", v)
			}
		})
	}
}

func TestCollectorFromCPU(t *testing.T) {
	mem := make([]byte, 1<<16)
	// Reset vectors: SSP=0x8000, PC=0x1000. Program: MOVEQ #1,D0; BRA.S *-2
	copy(mem[0:], []byte{0x00, 0x00, 0x80, 0x00, 0x00, 0x00, 0x10, 0x00})
	copy(mem[0x1000:], []byte{0x70, 0x01, 0x60, 0xFE})
	cpu := m68k.New(&flatBus{mem: mem})
	defer cpu.Close()

	cpu.Run(1000)
	c := New("", nil)
	c.Sample(cpu)

	families := gather(t, c)
	if v := value(families["jit_translations_total"]); v < 1 {
		t.Errorf("translations = %v, want at least 1", v)
	}
	if v := value(families["jit_blocks"]); v < 1 {
		t.Errorf("blocks = %v, want at least 1", v)
	}
}

type flatBus struct {
	mem []byte
}

func (b *flatBus) Read(sz m68k.Size, addr uint32) uint32 {
	var v uint32
	for i := uint32(0); i < uint32(sz); i++ {
		a := int(addr + i)
		v <<= 8
		if a < len(b.mem) {
			v |= uint32(b.mem[a])
		}
	}
	return v
}

func (b *flatBus) Write(sz m68k.Size, addr uint32, val uint32) {
	for i := int(sz) - 1; i >= 0; i-- {
		if a := int(addr) + i; a < len(b.mem) {
			b.mem[a] = byte(val)
		}
		val >>= 8
	}
}

func (b *flatBus) Reset() {}
