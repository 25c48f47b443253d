package pager

import (
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/sim"
)

// randomPager evicts a frame drawn from the random source. The hand is not
// used; the position lives in the random source.
type randomPager struct {
	pagerBase

	random RandomSource
}

func (p *randomPager) FindVictim(mem *vm.Memory, _ sim.VTime) *vm.Frame {
	n := mustHaveFrames(mem)

	return mem.Frames.Frame(p.random.Next(n) - 1)
}
