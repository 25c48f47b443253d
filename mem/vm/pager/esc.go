package pager

import (
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/sim"
)

const numESCClasses = 4

// escPager is the enhanced second chance (NRU) policy. Every scan sorts the
// frames into four classes by (referenced, modified) and evicts the first
// frame found in the lowest non-empty class. Once more than interval
// instructions have passed since the last reset, the scan also clears every
// reference bit.
type escPager struct {
	pagerBase

	interval  sim.VTime
	lastReset sim.VTime
	hasReset  bool
}

func (p *escPager) FindVictim(mem *vm.Memory, now sim.VTime) *vm.Frame {
	n := mustHaveFrames(mem)

	var firstOfClass [numESCClasses]*vm.Frame

	reset := p.resetDue(now)
	start := p.hand

	for {
		frame := mem.Frames.Frame(p.hand)
		pte := mem.OwnerPTE(frame)

		class := escClass(pte)
		if firstOfClass[class] == nil {
			firstOfClass[class] = frame
		}

		if reset {
			pte.Referenced = false
		}

		p.advance(n)
		if p.hand == start {
			break
		}
	}

	if reset {
		p.lastReset = now
		p.hasReset = true
	}

	for _, victim := range firstOfClass {
		if victim != nil {
			p.resumeAfter(victim.Number, n)
			return victim
		}
	}

	panic("no frame classified during a full scan")
}

// resetDue tells if the reference bits should be cleared by the scan at now.
// Before the first reset, the last reset counts as happening one instruction
// before time 0.
func (p *escPager) resetDue(now sim.VTime) bool {
	if !p.hasReset {
		return now+1 > p.interval
	}

	return now-p.lastReset > p.interval
}

func escClass(pte *vm.PTE) int {
	class := 0
	if pte.Referenced {
		class += 2
	}

	if pte.Modified {
		class++
	}

	return class
}
