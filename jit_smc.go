package m68k

// blacklistEntry marks a guest range that was written while translated.
// Nothing is translated starting inside it until it expires. An entry
// with start and end both zero is free.
type blacklistEntry struct {
	start, end uint32
	stamp      uint32
}

func (e *blacklistEntry) free() bool {
	return e.start == 0 && e.end == 0
}

// maxInsnBytes is the longest 68000 instruction. A write can only change
// instructions that start this close before it.
const maxInsnBytes = 10

// blacklisted reports whether pc lies in a live blacklist entry.
func (j *jit) blacklisted(pc uint32) bool {
	for i := range j.blacklist {
		e := &j.blacklist[i]
		if !e.free() && pc >= e.start && pc <= e.end {
			return true
		}
	}
	return false
}

// expireBlacklist frees entries untouched for BlacklistTimeout runs.
func (j *jit) expireBlacklist() {
	for i := range j.blacklist {
		e := &j.blacklist[i]
		if !e.free() && j.stamp-e.stamp > j.limits.BlacklistTimeout {
			j.cpu.debugf("blacklist %06x-%06x expired", e.start, e.end)
			*e = blacklistEntry{}
		}
	}
}

// guardWrite passes a CPU write of size bytes at addr to clearWrite when
// it touches a page holding translated code. A write that runs past
// $FFFFFF wraps to address 0 and is handled as two writes.
func (j *jit) guardWrite(addr, size uint32) {
	if end := addr + size - 1; end > 0xFFFFFF {
		j.guardWrite(0, end-0xFFFFFF)
		size = 0x1000000 - addr
	}
	if j.pageHasCode(addr) || j.pageHasCode(addr+size-1) {
		j.clearWrite(addr, size)
	}
}

// clearWrite handles a CPU write of size bytes at addr to a page that
// holds translated code. Blocks covering the written bytes are cleared
// (or deferred if running) and the range is blacklisted.
func (j *jit) clearWrite(addr, size uint32) {
	end := addr + size - 1
	for i := range j.blacklist {
		e := &j.blacklist[i]
		if !e.free() && addr >= e.start && end <= e.end {
			e.stamp = j.stamp
			return
		}
	}

	first, last := addr>>pageBits, end>>pageBits
	for p := first; p <= last; p++ {
		j.clearPageBit(p)
	}

	start := addr &^ 1
	hit := false
	for i := range j.blocks {
		b := &j.blocks[i]
		if !b.used {
			continue
		}
		if b.overlaps(addr, end) {
			if !hit || b.start < start {
				start = b.start
			}
			hit = true
			j.invalidate(b)
			if b.used {
				j.markPages(b, first, last)
			}
			continue
		}
		j.markPages(b, first, last)
	}
	if !hit {
		return
	}

	// Only instructions that begin shortly before the write can contain it.
	if floor := addr&^1 - (maxInsnBytes - 2); addr >= maxInsnBytes-2 && start < floor {
		start = floor
	}
	j.addBlacklist(start, end)
}

// markPages re-sets the bits of pages in [first,last] that b still spans.
func (j *jit) markPages(b *block, first, last uint32) {
	lo, hi := b.start>>pageBits, b.end>>pageBits
	for p := first; p <= last; p++ {
		if p >= lo && p <= hi {
			j.setPage(p)
		}
	}
}

// addBlacklist merges [start,end] into an overlapping entry, or takes a
// free or the oldest slot.
func (j *jit) addBlacklist(start, end uint32) {
	var slot *blacklistEntry
	for i := range j.blacklist {
		e := &j.blacklist[i]
		if e.free() {
			if slot == nil || !slot.free() {
				slot = e
			}
			continue
		}
		if e.start <= end+1 && e.end+1 >= start {
			e.start = min(e.start, start)
			e.end = max(e.end, end)
			e.stamp = j.stamp
			j.cpu.debugf("blacklist merged to %06x-%06x", e.start, e.end)
			return
		}
		if slot == nil || !slot.free() && j.older(e.stamp, slot.stamp) {
			slot = e
		}
	}
	*slot = blacklistEntry{start: start, end: end, stamp: j.stamp}
	j.cpu.debugf("blacklisted %06x-%06x", start, end)
}

// TouchMemory tells the CPU that guest memory in [addr, addr+size) was
// changed behind its back, by DMA or a loader for example. Translations on
// every touched page are discarded. Writes made through the Bus by the CPU
// itself are tracked automatically.
func (c *CPU) TouchMemory(addr, size uint32) {
	if c.jit == nil || size == 0 {
		return
	}
	c.jit.touch(addr&0xFFFFFF, size)
}

func (j *jit) touch(addr, size uint32) {
	end := addr + size - 1
	if end > 0xFFFFFF || end < addr {
		end = 0xFFFFFF
	}
	first, last := addr>>pageBits, end>>pageBits
	lo, hi := first<<pageBits, last<<pageBits|(1<<pageBits-1)

	for p := first; p <= last; p++ {
		j.clearPageBit(p)
	}
	for i := range j.blocks {
		b := &j.blocks[i]
		if !b.used || !b.overlaps(lo, hi) {
			continue
		}
		j.invalidate(b)
		if b.used {
			j.markPages(b, first, last)
		}
	}
	j.dropResume()
}
