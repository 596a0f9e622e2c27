package m68k

import "github.com/user-none/go-chip-m68k-jit/internal/codemem"

// Guest pages tracked by the write guard.
const (
	pageBits  = 12
	pageCount = 1 << (24 - pageBits)
)

// Fixed table sizes.
const (
	btCacheSize    = 64
	unresolvedSize = 16
	blacklistSize  = 16
	callStackSize  = 8
)

// Stats holds translator counters. Blocks and CodeBytes are gauges; the
// rest only grow until Reset.
type Stats struct {
	Translations    uint64 // Blocks created
	AllocFailures   uint64 // Translations aborted for lack of code memory or DataLimit room
	Evictions       uint64 // Blocks removed for cache pressure
	Invalidations   uint64 // Blocks cleared by writes, TouchMemory or retranslation
	BlacklistHits   uint64 // Translations refused inside a blacklisted range
	Chained         uint64 // Block transitions that stayed inside Run's inner loop
	HostEntries     uint64 // Calls into translated code
	CallStackHits   uint64 // Returns resumed from the call stack
	CallStackMisses uint64 // Returns that fell back to a cache lookup
	Blocks          int    // Live blocks
	CodeBytes       int    // Translated bytes held by live blocks
}

// jit holds all translation state for one CPU.
type jit struct {
	cpu    *CPU
	limits CacheLimits
	strict bool
	alloc  codemem.Allocator
	flush  func(code []byte)

	blocks []block
	chains []*block // hash chain heads, indexed by hashPC
	total  int      // bytes held by live blocks
	live   int
	stamp  uint32 // advanced once per native run

	pages     [pageCount / 64]uint64
	blacklist [blacklistSize]blacklistEntry
	calls     [callStackSize]callFrame
	callTop   int // index of the next free frame, wrapping

	// Resume point left by a budget check in the middle of a block.
	resume    *block
	resumeOff int
	resumePC  uint32

	// Return address of the last Call exit.
	callRet uint32

	stats Stats
}

func newJIT(c *CPU) *jit {
	j := &jit{
		cpu:    c,
		limits: c.cfg.limits,
		strict: c.cfg.strict,
		alloc:  c.cfg.alloc,
		flush:  c.cfg.flush,
	}
	j.blocks = make([]block, j.limits.Blocks)
	j.chains = make([]*block, j.limits.Blocks)
	return j
}

// reset frees every block and forgets all guard and link state. Counters
// are cleared too.
func (j *jit) reset() {
	for i := range j.blocks {
		b := &j.blocks[i]
		if b.used {
			j.alloc.Free(b.code)
		}
		*b = block{}
	}
	for i := range j.chains {
		j.chains[i] = nil
	}
	j.total = 0
	j.live = 0
	j.stamp = 0
	j.pages = [pageCount / 64]uint64{}
	j.blacklist = [blacklistSize]blacklistEntry{}
	j.calls = [callStackSize]callFrame{}
	j.callTop = 0
	j.dropResume()
	j.stats = Stats{}
}

// dropResume forgets the mid-block resume point. Called whenever PC, SR or
// the block itself changes outside translated code.
func (j *jit) dropResume() {
	j.resume = nil
	j.resumeOff = 0
	j.resumePC = 0
}

func (j *jit) setResume(b *block, off int, pc uint32) {
	j.resume = b
	j.resumeOff = off
	j.resumePC = pc
}

func (j *jit) pageHasCode(addr uint32) bool {
	p := (addr & 0xFFFFFF) >> pageBits
	return j.pages[p>>6]&(1<<(p&63)) != 0
}

func (j *jit) setPage(p uint32) {
	j.pages[p>>6] |= 1 << (p & 63)
}

func (j *jit) clearPageBit(p uint32) {
	j.pages[p>>6] &^= 1 << (p & 63)
}

// Stats returns a snapshot of the translator counters. A CPU without
// translation reports zeroes.
func (c *CPU) Stats() Stats {
	if c.jit == nil {
		return Stats{}
	}
	s := c.jit.stats
	s.Blocks = c.jit.live
	s.CodeBytes = c.jit.total
	return s
}
