package m68k

import (
	"errors"

	"github.com/cespare/xxhash/v2"
)

var errOverDataLimit = errors.New("m68k: block does not fit in the code data limit")

// block is one translated run of guest instructions.
type block struct {
	start, end uint32 // guest range, both inclusive
	code       []byte
	stamp      uint32 // last touched
	used       bool
	running    bool
	mustClear  bool // cleared once the current run returns
	next, prev *block
}

// fingerprint identifies a block's code in logs and tests.
func (b *block) fingerprint() uint64 {
	return xxhash.Sum64(b.code)
}

func (b *block) contains(addr uint32) bool {
	return addr >= b.start && addr <= b.end
}

func (b *block) overlaps(start, end uint32) bool {
	return b.start <= end && b.end >= start
}

func (j *jit) hashPC(pc uint32) int {
	return int((pc >> 1) % uint32(len(j.blocks)))
}

// older reports whether stamp a is older than stamp b. The counter wraps,
// so ages are compared instead of raw values.
func (j *jit) older(a, b uint32) bool {
	return j.stamp-a > j.stamp-b
}

// find returns the block starting at pc, or nil.
func (j *jit) find(pc uint32) *block {
	for b := j.chains[j.hashPC(pc)]; b != nil; b = b.next {
		if b.start == pc {
			return b
		}
	}
	return nil
}

// lookup returns the block for pc, translating one if needed. A nil
// result means pc has to be interpreted.
func (j *jit) lookup(pc uint32) *block {
	if b := j.find(pc); b != nil {
		return b
	}
	return j.translate(pc)
}

// translate builds a new block at pc. Existing blocks that cover pc are
// cleared first so that live blocks never overlap.
func (j *jit) translate(pc uint32) *block {
	if pc == 0 || pc&1 != 0 || pc > 0xFFFFFF || wrapsAddressSpace(j.cpu.bus, pc) {
		return nil
	}
	j.expireBlacklist()
	if j.blacklisted(pc) {
		j.stats.BlacklistHits++
		return nil
	}

	for i := range j.blocks {
		if b := &j.blocks[i]; b.used && b.contains(pc) {
			j.invalidate(b)
		}
	}
	for j.total >= j.limits.DataLimit {
		if !j.evictOldest() {
			break
		}
	}

	b := j.freeSlot(pc)
	if b == nil {
		return nil
	}

	buf, err := j.alloc.Alloc(j.limits.BlockExpand)
	if err != nil {
		j.allocFailed(pc, err)
		return nil
	}
	t := newTranslator(j, pc, buf)
	end, err := t.run()
	code := t.asm.Buffer()
	if err != nil {
		j.alloc.Free(code)
		j.allocFailed(pc, err)
		return nil
	}
	code, err = j.alloc.Realloc(code, t.asm.Offset())
	if err != nil {
		j.alloc.Free(t.asm.Buffer())
		j.allocFailed(pc, err)
		return nil
	}

	for j.total+len(code) > j.limits.DataLimit {
		if !j.evictOldest() {
			j.alloc.Free(code)
			j.allocFailed(pc, errOverDataLimit)
			return nil
		}
	}

	*b = block{start: pc, end: end, code: code, stamp: j.stamp, used: true}
	h := j.hashPC(pc)
	b.next = j.chains[h]
	if b.next != nil {
		b.next.prev = b
	}
	j.chains[h] = b
	j.total += len(code)
	j.live++
	for p := pc >> pageBits; p <= end>>pageBits; p++ {
		j.setPage(p)
	}

	if j.flush != nil {
		j.flush(code)
	}
	j.stats.Translations++
	j.cpu.debugf("translated %06x-%06x: %d bytes, fingerprint %016x",
		pc, end, len(code), b.fingerprint())
	if j.cpu.cfg.verbose {
		j.dumpCode(b)
	}
	return b
}

func (j *jit) allocFailed(pc uint32, err error) {
	j.stats.AllocFailures++
	j.cpu.debugf("translation at %06x failed: %v", pc, err)
}

// freeSlot scans linearly from the hash position for an unused entry.
// When the table is full the oldest block gives up its slot.
func (j *jit) freeSlot(pc uint32) *block {
	n := len(j.blocks)
	h := j.hashPC(pc)
	for i := 0; i < n; i++ {
		if b := &j.blocks[(h+i)%n]; !b.used {
			return b
		}
	}
	if victim := j.oldest(); victim != nil {
		j.evict(victim)
		if !victim.used {
			return victim
		}
	}
	return nil
}

// oldest returns the least recently touched block that can be freed now.
func (j *jit) oldest() *block {
	var victim *block
	for i := range j.blocks {
		b := &j.blocks[i]
		if !b.used || b.running {
			continue
		}
		if victim == nil || j.older(b.stamp, victim.stamp) {
			victim = b
		}
	}
	return victim
}

func (j *jit) evictOldest() bool {
	victim := j.oldest()
	if victim == nil {
		return false
	}
	j.evict(victim)
	return true
}

func (j *jit) evict(b *block) {
	j.cpu.debugf("evicting %06x-%06x", b.start, b.end)
	j.stats.Evictions++
	j.clear(b)
}

// invalidate clears a block whose guest code changed or is being
// replaced.
func (j *jit) invalidate(b *block) {
	j.stats.Invalidations++
	j.clear(b)
}

// clear frees a block. A running block is only marked; the driver clears
// it when its run returns.
func (j *jit) clear(b *block) {
	if b.running {
		b.mustClear = true
		return
	}
	for i := range j.calls {
		if j.calls[i].block == b {
			j.calls[i] = callFrame{}
		}
	}
	if j.resume == b {
		j.dropResume()
	}

	j.alloc.Free(b.code)
	j.total -= len(b.code)
	j.live--

	if b.prev != nil {
		b.prev.next = b.next
	} else {
		j.chains[j.hashPC(b.start)] = b.next
	}
	if b.next != nil {
		b.next.prev = b.prev
	}
	*b = block{}
}
