package pager

import (
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/sim"
)

// fifoPager evicts frames in frame-table order, regardless of use.
type fifoPager struct {
	pagerBase
}

func (p *fifoPager) FindVictim(mem *vm.Memory, _ sim.VTime) *vm.Frame {
	n := mustHaveFrames(mem)

	victim := mem.Frames.Frame(p.hand)
	p.advance(n)

	return victim
}
