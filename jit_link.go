package m68k

import "github.com/user-none/go-chip-m68k-jit/internal/uop"

// Branches inside a block jump straight to the target's code when the
// target has been translated into the same block. Backward targets come
// from the branch-target cache; forward branches wait in the unresolved
// list until their target is reached. A branch that is never resolved
// keeps uop.LinkNone and exits to the driver.

type btEntry struct {
	pc    uint32
	off   int
	valid bool
}

type unresolvedBranch struct {
	target uint32
	at     int // offset of the link operand
	valid  bool
}

// markTarget records that the instruction at pc starts at code offset
// off, and patches every pending branch to it.
func (t *translator) markTarget(pc uint32, off int) {
	for i := range t.unresolved {
		u := &t.unresolved[i]
		if u.valid && u.target == pc {
			t.asm.Patch32(u.at, uint32(off))
			u.valid = false
		}
	}
	t.bt[t.btNext] = btEntry{pc: pc, off: off, valid: true}
	t.btNext = (t.btNext + 1) % btCacheSize
}

// linkFor returns the code offset of an already translated target, or
// uop.LinkNone.
func (t *translator) linkFor(target uint32) uint32 {
	for i := range t.bt {
		if e := &t.bt[i]; e.valid && e.pc == target {
			return uint32(e.off)
		}
	}
	return uop.LinkNone
}

// branch wires the link operand at at. Forward targets that may still be
// translated into this block are queued; the oldest queued branch is
// dropped when the list is full.
func (t *translator) branch(target uint32, at int) {
	if at < 0 || target&1 != 0 {
		return
	}
	if off := t.linkFor(target); off != uop.LinkNone {
		t.asm.Patch32(at, off)
		return
	}
	if target <= t.pc || target-t.start >= t.j.limits.MaxBlockGuest {
		return
	}
	t.unresolved[t.unresNext] = unresolvedBranch{target: target, at: at, valid: true}
	t.unresNext = (t.unresNext + 1) % unresolvedSize
}
