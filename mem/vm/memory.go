package vm

import (
	"fmt"

	"github.com/sarchlab/vmsim/sim"
)

// A VictimFinder picks the frame to take away from its current page when
// there is no free frame left.
type VictimFinder interface {
	FindVictim(mem *Memory, now sim.VTime) *Frame
}

// Memory is the whole memory state of a simulation: the frame pool and every
// process. Processes, pages and frames refer to each other by number only.
type Memory struct {
	Frames    *FramePool
	Processes []*Process
}

// NewMemory creates the memory state with numFrames free frames. The
// processes must be numbered 0..len(processes)-1 in order.
func NewMemory(numFrames int, processes []*Process) *Memory {
	for i, p := range processes {
		if p.ID != PID(i) {
			panic(fmt.Sprintf("process at position %d has pid %d", i, p.ID))
		}
	}

	return &Memory{
		Frames:    NewFramePool(numFrames),
		Processes: processes,
	}
}

// Process returns the process with the given pid.
func (m *Memory) Process(pid PID) (*Process, bool) {
	if pid < 0 || int(pid) >= len(m.Processes) {
		return nil, false
	}

	return m.Processes[pid], true
}

// OwnerPTE returns the page table entry of the page that the frame holds.
// The frame must not be free.
func (m *Memory) OwnerPTE(f *Frame) *PTE {
	if f.IsFree() {
		panic(fmt.Sprintf("frame %d has no owner", f.Number))
	}

	return m.Processes[f.Owner].PTE(f.Page)
}

// GetFrame returns a free frame if there is one. Otherwise, it asks the
// victim finder. The caller must unmap the previous owner of a returned
// victim before binding the frame again.
func (m *Memory) GetFrame(finder VictimFinder, now sim.VTime) *Frame {
	f, ok := m.Frames.AllocateFree()
	if ok {
		return f
	}

	return finder.FindVictim(m, now)
}

// CheckInvariants verifies that owned frames and present page table entries
// match one to one, and that free frames are exactly the ones on the free
// list.
func (m *Memory) CheckInvariants() error {
	numOwned := 0
	for i := 0; i < m.Frames.Len(); i++ {
		f := m.Frames.Frame(i)
		if f.IsFree() {
			continue
		}

		numOwned++

		p, ok := m.Process(f.Owner)
		if !ok || !ValidPage(f.Page) {
			return fmt.Errorf("frame %d is owned by unknown page %d:%d",
				f.Number, f.Owner, f.Page)
		}

		pte := p.PTE(f.Page)
		if !pte.Present || pte.Frame != f.Number {
			return fmt.Errorf("frame %d claims %d:%d, which does not map it",
				f.Number, f.Owner, f.Page)
		}
	}

	numPresent := 0
	for _, p := range m.Processes {
		for page := range p.PageTable {
			pte := &p.PageTable[page]
			if !pte.Present {
				continue
			}

			numPresent++

			if pte.Frame < 0 || pte.Frame >= m.Frames.Len() {
				return fmt.Errorf("page %d:%d maps frame %d out of range",
					p.ID, page, pte.Frame)
			}

			f := m.Frames.Frame(pte.Frame)
			if f.Owner != p.ID || f.Page != page {
				return fmt.Errorf("page %d:%d maps frame %d owned by %d:%d",
					p.ID, page, f.Number, f.Owner, f.Page)
			}
		}
	}

	if numOwned != numPresent {
		return fmt.Errorf("%d frames owned but %d pages present",
			numOwned, numPresent)
	}

	if numOwned+m.Frames.NumFree() != m.Frames.Len() {
		return fmt.Errorf("%d frames owned and %d free out of %d",
			numOwned, m.Frames.NumFree(), m.Frames.Len())
	}

	for _, number := range m.Frames.FreeFrames() {
		if !m.Frames.Frame(number).IsFree() {
			return fmt.Errorf("frame %d is on the free list but owned", number)
		}
	}

	return nil
}
