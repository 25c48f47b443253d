package pager

import (
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/sim"
)

// clockPager gives referenced frames a second chance. It clears the
// reference bit of every referenced frame under the hand and evicts the first
// frame whose bit is already clear.
type clockPager struct {
	pagerBase
}

func (p *clockPager) FindVictim(mem *vm.Memory, _ sim.VTime) *vm.Frame {
	n := mustHaveFrames(mem)

	for {
		frame := mem.Frames.Frame(p.hand)
		pte := mem.OwnerPTE(frame)
		p.advance(n)

		if !pte.Referenced {
			return frame
		}

		pte.Referenced = false
	}
}
