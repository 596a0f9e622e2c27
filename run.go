package m68k

// Run executes instructions until at least cycles cycles have elapsed and
// returns the number actually consumed. The last instruction, or with loose
// timing the last stretch of translated code, may overshoot the budget.
//
// A halted or stopped CPU consumes the whole budget. Interrupts are
// accepted between instructions; translated code polls for them at its
// check points.
func (c *CPU) Run(cycles int) int {
	if cycles <= 0 {
		return 0
	}
	start := c.cycles
	limit := start + uint64(cycles)

	for c.cycles < limit {
		switch {
		case c.halted:
			c.cycles = limit
			continue
		case c.exc != 0:
			c.takeException()
			continue
		case c.checkInterrupt():
			continue
		case c.stopped:
			c.cycles = limit
			continue
		}

		if c.jit != nil && c.cfg.trace == nil && c.jit.run(limit) {
			continue
		}
		c.step()
	}
	return int(c.cycles - start)
}

// run executes translated code at PC, chaining from block to block while
// budget remains. It reports false when PC cannot be translated and the
// caller has to interpret one instruction.
func (j *jit) run(limit uint64) bool {
	c := j.cpu

	var b *block
	off := 0
	if j.resume != nil && j.resumePC == c.reg.PC {
		b, off = j.resume, j.resumeOff
	} else if b = j.lookup(c.reg.PC); b == nil {
		return false
	}
	j.dropResume()

	for {
		j.stamp++
		b.stamp = j.stamp
		b.running = true
		_, exit, resume := j.invoke(b, off, limit)
		b.running = false
		j.stats.HostEntries++

		if b.mustClear {
			j.clear(b)
			b = nil
		}

		switch exit {
		case exitFault:
			c.takeException()
			return true
		case exitCheck:
			if b != nil {
				j.setResume(b, resume, c.reg.PC)
			}
			return true
		case exitCall:
			if b != nil {
				j.pushCall(j.callRet, b, resume)
			}
		case exitReturn:
			if rb, roff, ok := j.popCall(c.reg.PC); ok {
				if c.cycles >= limit || c.interruptReady() {
					j.setResume(rb, roff, c.reg.PC)
					return true
				}
				j.stats.Chained++
				b, off = rb, roff
				continue
			}
		}

		if c.cycles >= limit || c.stopped || c.halted || c.interruptReady() {
			return true
		}
		next := j.lookup(c.reg.PC)
		if next == nil {
			return true
		}
		j.stats.Chained++
		b, off = next, 0
	}
}
