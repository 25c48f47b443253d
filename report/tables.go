package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
)

// pteSize is the width of a packed page table entry in bytes. It is part of
// the TOTALCOST line.
const pteSize = 4

// PageTableLine formats the page table of a process.
func PageTableLine(p *vm.Process) string {
	var b strings.Builder

	fmt.Fprintf(&b, "PT[%d]:", p.ID)

	for page := range p.PageTable {
		pte := &p.PageTable[page]

		switch {
		case pte.Present:
			b.WriteByte(' ')
			b.WriteString(strconv.Itoa(page))
			b.WriteByte(':')
			b.WriteByte(flag(pte.Referenced, 'R'))
			b.WriteByte(flag(pte.Modified, 'M'))
			b.WriteByte(flag(pte.PagedOut, 'S'))
		case pte.PagedOut:
			b.WriteString(" #")
		default:
			b.WriteString(" *")
		}
	}

	return b.String()
}

func flag(set bool, c byte) byte {
	if set {
		return c
	}

	return '-'
}

// FrameTableLine formats the owner of every frame.
func FrameTableLine(mem *vm.Memory) string {
	var b strings.Builder

	b.WriteString("FT:")

	for i := 0; i < mem.Frames.Len(); i++ {
		f := mem.Frames.Frame(i)
		if f.IsFree() {
			b.WriteString(" *")
			continue
		}

		fmt.Fprintf(&b, " %d:%d", f.Owner, f.Page)
	}

	return b.String()
}

// ProcessLine formats the counters of a process.
func ProcessLine(p *vm.Process) string {
	s := p.Stats

	return fmt.Sprintf(
		"PROC[%d]: U=%d M=%d I=%d O=%d FI=%d FO=%d Z=%d SV=%d SP=%d",
		p.ID, s.Unmaps, s.Maps, s.Ins, s.Outs,
		s.FileIns, s.FileOuts, s.Zeros, s.SegV, s.SegProt)
}

// TotalsLine formats the run totals.
func TotalsLine(stats mmu.Stats) string {
	return fmt.Sprintf("TOTALCOST %d %d %d %d %d",
		stats.Instructions, stats.ContextSwitches, stats.ProcessExits,
		stats.Cost, pteSize)
}

// PrintSummary writes the end-of-run tables selected by the options, in the
// order page tables, frame table, statistics.
func PrintSummary(
	w io.Writer,
	o Options,
	mem *vm.Memory,
	stats mmu.Stats,
) error {
	lines := []string{}

	if o.PageTablesAtEnd {
		for _, p := range mem.Processes {
			lines = append(lines, PageTableLine(p))
		}
	}

	if o.FrameTableAtEnd {
		lines = append(lines, FrameTableLine(mem))
	}

	if o.Summary {
		for _, p := range mem.Processes {
			lines = append(lines, ProcessLine(p))
		}

		lines = append(lines, TotalsLine(stats))
	}

	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}

	return nil
}
