package m68k

// callFrame remembers where translated code continues after a subroutine
// returns. A zero returnPC marks an unused or invalidated frame.
type callFrame struct {
	returnPC uint32
	block    *block
	resume   int // code offset of the instruction at returnPC
}

// pushCall records a BSR/JSR made from b. The stack is a ring; the oldest
// frame is overwritten once it is full.
func (j *jit) pushCall(returnPC uint32, b *block, resume int) {
	j.calls[j.callTop] = callFrame{returnPC: returnPC, block: b, resume: resume}
	j.callTop = (j.callTop + 1) % callStackSize
}

// popCall searches from the most recent frame for one returning to pc.
// Frames above the match are discarded with it.
func (j *jit) popCall(pc uint32) (*block, int, bool) {
	for n := 1; n <= callStackSize; n++ {
		i := (j.callTop - n + callStackSize) % callStackSize
		f := j.calls[i]
		if f.returnPC == 0 || f.returnPC != pc {
			continue
		}
		for k := 1; k <= n; k++ {
			j.calls[(j.callTop-k+callStackSize)%callStackSize] = callFrame{}
		}
		j.callTop = i
		j.stats.CallStackHits++
		return f.block, f.resume, true
	}
	j.stats.CallStackMisses++
	return nil, 0, false
}
