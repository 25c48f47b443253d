package report

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"

	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/mem/vm/pager"
	"github.com/sarchlab/vmsim/sim"
)

// A Printer writes the report of a run.
type Printer struct {
	w       *bufio.Writer
	options Options
	mmu     *mmu.Comp
	err     error
}

// NewPrinter creates a printer. It registers itself on the MMU and its pager
// when per-instruction output is requested.
func NewPrinter(w io.Writer, options Options, m *mmu.Comp) *Printer {
	p := &Printer{
		w:       bufio.NewWriter(w),
		options: options,
		mmu:     m,
	}

	if options.InstructionOutcome ||
		options.CurrentPageTableEach ||
		options.AllPageTablesEach ||
		options.FrameTableEach {
		m.AcceptHook(p)
	}

	if options.PagerDetails {
		m.Pager().AcceptHook(p)
	}

	return p
}

// Err returns the first write error.
func (p *Printer) Err() error {
	return p.err
}

func (p *Printer) println(args ...any) {
	if p.err != nil {
		return
	}

	_, p.err = fmt.Fprintln(p.w, args...)
}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}

	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// Func prints what the hooks deliver.
func (p *Printer) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case mmu.HookPosInstructionStart:
		if p.options.InstructionOutcome {
			r := ctx.Item.(mmu.InstructionRecord)
			p.printf("%d: ==> %s %d\n",
				r.Time, r.Instruction.Op, r.Instruction.Operand)
		}
	case mmu.HookPosOutcome:
		if p.options.InstructionOutcome {
			p.printOutcome(ctx.Item.(mmu.Outcome))
		}
	case mmu.HookPosInstructionEnd:
		p.printAfterInstruction(ctx.Item.(mmu.InstructionRecord))
	case pager.HookPosFrameInspected:
		p.printInspection(ctx.Item.(pager.FrameInspection))
	}
}

func (p *Printer) printOutcome(o mmu.Outcome) {
	switch o.Kind {
	case mmu.OutcomeExit:
		p.printf("EXIT current process %d\n", o.PID)
	case mmu.OutcomeUnmap:
		p.printf(" UNMAP %d:%d\n", o.PID, o.Page)
	case mmu.OutcomeMap:
		p.printf(" MAP %d\n", o.Frame)
	case mmu.OutcomeOut, mmu.OutcomeFileOut, mmu.OutcomeIn,
		mmu.OutcomeFileIn, mmu.OutcomeZero, mmu.OutcomeSegV,
		mmu.OutcomeSegProt:
		p.println("", o.Kind)
	}
}

func (p *Printer) printAfterInstruction(r mmu.InstructionRecord) {
	mem := p.mmu.Memory()

	if p.options.CurrentPageTableEach {
		if proc, ok := mem.Process(r.Current); ok {
			p.println(PageTableLine(proc))
		}
	}

	if p.options.AllPageTablesEach {
		for _, proc := range mem.Processes {
			p.println(PageTableLine(proc))
		}
	}

	if p.options.FrameTableEach {
		p.println(FrameTableLine(mem))
	}
}

func (p *Printer) printInspection(i pager.FrameInspection) {
	switch i.Policy {
	case pager.Aging:
		p.printf("%d: %x\n", i.Frame, i.Age)
	case pager.WorkingSet:
		p.printf("%d(%d %d:%d %d %d) \n", i.Frame, boolToInt(i.Referenced),
			i.Owner, i.Page, i.TimeOfLastUse, i.Elapsed)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

// Handle prints the end-of-run tables and flushes the output.
func (p *Printer) Handle(_ sim.VTime) {
	if p.err == nil {
		p.err = PrintSummary(p.w, p.options, p.mmu.Memory(), p.mmu.Stats())
	}

	if err := p.w.Flush(); err != nil && p.err == nil {
		p.err = err
	}

	if p.err != nil {
		slog.Error("failed to write report", "error", p.err)
	}
}
