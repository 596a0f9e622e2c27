// Package jitmetrics exports block translator counters to Prometheus.
//
// A CPU is not safe for concurrent use, so the collector never calls into
// one. The emulation loop hands it snapshots with Observe or Sample, and
// scrapes report the latest snapshot.
package jitmetrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	m68k "github.com/user-none/go-chip-m68k-jit"
)

// Source reports translator counters. *m68k.CPU implements it.
type Source interface {
	Stats() m68k.Stats
}

type metric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(s *m68k.Stats) float64
}

// Collector is a prometheus.Collector over the last observed Stats.
type Collector struct {
	mu      sync.Mutex
	stats   m68k.Stats
	metrics []metric
}

// New creates a collector. Metric names are prefixed with namespace and
// the "jit" subsystem; labels are attached to every series.
func New(namespace string, labels prometheus.Labels) *Collector {
	c := &Collector{}
	counter := func(name, help string, value func(s *m68k.Stats) uint64) {
		c.metrics = append(c.metrics, metric{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "jit", name), help, nil, labels),
			kind:  prometheus.CounterValue,
			value: func(s *m68k.Stats) float64 {
				return float64(value(s))
			},
		})
	}
	gauge := func(name, help string, value func(s *m68k.Stats) int) {
		c.metrics = append(c.metrics, metric{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "jit", name), help, nil, labels),
			kind:  prometheus.GaugeValue,
			value: func(s *m68k.Stats) float64 {
				return float64(value(s))
			},
		})
	}

	counter("translations_total", "Blocks translated.",
		func(s *m68k.Stats) uint64 { return s.Translations })
	counter("alloc_failures_total", "Translations aborted for lack of code memory.",
		func(s *m68k.Stats) uint64 { return s.AllocFailures })
	counter("evictions_total", "Blocks removed under cache pressure.",
		func(s *m68k.Stats) uint64 { return s.Evictions })
	counter("invalidations_total", "Blocks cleared by guest writes or explicit invalidation.",
		func(s *m68k.Stats) uint64 { return s.Invalidations })
	counter("blacklist_hits_total", "Translations refused in a blacklisted range.",
		func(s *m68k.Stats) uint64 { return s.BlacklistHits })
	counter("chained_total", "Block transitions made without leaving translated code.",
		func(s *m68k.Stats) uint64 { return s.Chained })
	counter("host_entries_total", "Entries into translated code.",
		func(s *m68k.Stats) uint64 { return s.HostEntries })
	counter("call_stack_hits_total", "Subroutine returns resumed from the call stack.",
		func(s *m68k.Stats) uint64 { return s.CallStackHits })
	counter("call_stack_misses_total", "Subroutine returns that needed a cache lookup.",
		func(s *m68k.Stats) uint64 { return s.CallStackMisses })
	gauge("blocks", "Live translated blocks.",
		func(s *m68k.Stats) int { return s.Blocks })
	gauge("code_bytes", "Bytes of translated code held by live blocks.",
		func(s *m68k.Stats) int { return s.CodeBytes })

	return c
}

// Observe records a snapshot for the next scrape.
func (c *Collector) Observe(s m68k.Stats) {
	c.mu.Lock()
	c.stats = s
	c.mu.Unlock()
}

// Sample takes a snapshot from src. Call it from the goroutine that owns
// the CPU.
func (c *Collector) Sample(src Source) {
	c.Observe(src.Stats())
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	s := c.stats
	c.mu.Unlock()

	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(&s))
	}
}
