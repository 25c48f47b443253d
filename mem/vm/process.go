package vm

// PID identifies a process. PIDs are assigned in load order starting at 0.
type PID int

// ProcessStats counts the memory events that happened to the pages of one
// process.
type ProcessStats struct {
	Unmaps   uint64
	Maps     uint64
	Ins      uint64
	Outs     uint64
	FileIns  uint64
	FileOuts uint64
	Zeros    uint64
	SegV     uint64
	SegProt  uint64
}

// A Process is an address space: the VMAs declared for it, its page table
// and the counters of what happened to it.
type Process struct {
	ID        PID
	VMAs      []VMA
	PageTable PageTable
	Stats     ProcessStats
}

// NewProcess creates a process with an all-zero page table.
func NewProcess(id PID, vmas []VMA) *Process {
	p := &Process{
		ID:   id,
		VMAs: make([]VMA, len(vmas)),
	}
	copy(p.VMAs, vmas)

	return p
}

// FindVMA returns the first VMA that covers the page.
func (p *Process) FindVMA(page int) (VMA, bool) {
	for _, vma := range p.VMAs {
		if vma.Contains(page) {
			return vma, true
		}
	}

	return VMA{}, false
}

// PTE returns the page table entry of the page. The page must be valid.
func (p *Process) PTE(page int) *PTE {
	if !ValidPage(page) {
		panic("page out of page table range")
	}

	return &p.PageTable[page]
}
