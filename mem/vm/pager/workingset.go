package pager

import (
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/sim"
)

// workingSetPager evicts a frame that has left the working set, that is, a
// frame not used for more than tau instructions. Referenced frames are in the
// working set: their bit is cleared and their time of last use becomes now.
// If every unreferenced frame is still inside the window, the one used least
// recently is evicted. If every frame was referenced, the pager scans again.
type workingSetPager struct {
	pagerBase

	tau sim.VTime
}

func (p *workingSetPager) FindVictim(mem *vm.Memory, now sim.VTime) *vm.Frame {
	n := mustHaveFrames(mem)

	for {
		victim, done := p.scan(mem, now, n)
		if victim != nil {
			p.resumeAfter(victim.Number, n)
			return victim
		}

		if done {
			panic("working-set scan ended without a victim")
		}
	}
}

// scan makes one rotation. It returns nil when every frame was referenced.
// done is set when a scan can no longer make progress.
func (p *workingSetPager) scan(
	mem *vm.Memory,
	now sim.VTime,
	n int,
) (victim *vm.Frame, done bool) {
	var oldest *vm.Frame

	start := p.hand
	cleared := false

	for {
		frame := mem.Frames.Frame(p.hand)
		pte := mem.OwnerPTE(frame)
		elapsed := sinceLastUse(frame, now)

		p.inspected(p, FrameInspection{
			Policy:        WorkingSet,
			Frame:         frame.Number,
			Owner:         frame.Owner,
			Page:          frame.Page,
			Referenced:    pte.Referenced,
			TimeOfLastUse: frame.TimeOfLastUse,
			Elapsed:       elapsed,
		})

		switch {
		case pte.Referenced:
			pte.Referenced = false
			frame.TimeOfLastUse = now
			cleared = true
		case elapsed > p.tau:
			return frame, true
		case oldest == nil || frame.TimeOfLastUse < oldest.TimeOfLastUse:
			oldest = frame
		}

		p.advance(n)
		if p.hand == start {
			break
		}
	}

	return oldest, !cleared
}

func sinceLastUse(frame *vm.Frame, now sim.VTime) sim.VTime {
	if frame.TimeOfLastUse > now {
		return 0
	}

	return now - frame.TimeOfLastUse
}
