package pager

import (
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/sim"
)

const agingTopBit uint32 = 0x80000000

// agingPager keeps a 32-bit history register per frame. Every scan shifts
// each register right by one and moves the reference bit into the top bit.
// The frame with the smallest register is evicted, the first one found on a
// tie.
type agingPager struct {
	pagerBase
}

func (p *agingPager) FindVictim(mem *vm.Memory, _ sim.VTime) *vm.Frame {
	n := mustHaveFrames(mem)

	var victim *vm.Frame

	start := p.hand

	for {
		frame := mem.Frames.Frame(p.hand)
		pte := mem.OwnerPTE(frame)
		referenced := pte.Referenced

		frame.Age >>= 1
		if referenced {
			frame.Age |= agingTopBit
			pte.Referenced = false
		}

		p.inspected(p, FrameInspection{
			Policy:     Aging,
			Frame:      frame.Number,
			Owner:      frame.Owner,
			Page:       frame.Page,
			Referenced: referenced,
			Age:        frame.Age,
		})

		if victim == nil || frame.Age < victim.Age {
			victim = frame
		}

		p.advance(n)
		if p.hand == start {
			break
		}
	}

	p.resumeAfter(victim.Number, n)

	return victim
}
