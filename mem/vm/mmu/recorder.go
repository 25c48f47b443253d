package mmu

import (
	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/sim"
)

type outcomeEntry struct {
	Instruction uint64
	Op          string
	Operand     int
	Kind        string
	PID         int
	Page        int
	Frame       int
	Cost        uint64
}

type processStatsEntry struct {
	PID      int
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

type runTotalsEntry struct {
	Instructions    uint64
	ContextSwitches uint64
	ProcessExits    uint64
	Cost            uint64
}

// An OutcomeRecorder writes every outcome of an MMU into a data recorder.
// When the simulation ends, it also writes the per-process counters and the
// run totals.
type OutcomeRecorder struct {
	recorder datarecording.DataRecorder
	mmu      *Comp
	current  InstructionRecord
}

// NewOutcomeRecorder creates the tables and attaches the recorder to the MMU.
func NewOutcomeRecorder(
	recorder datarecording.DataRecorder,
	mmu *Comp,
) *OutcomeRecorder {
	r := &OutcomeRecorder{
		recorder: recorder,
		mmu:      mmu,
	}

	recorder.CreateTable("outcome", outcomeEntry{})
	recorder.CreateTable("process_stats", processStatsEntry{})
	recorder.CreateTable("run_totals", runTotalsEntry{})

	mmu.AcceptHook(r)

	return r
}

// Func records the outcomes delivered by the MMU.
func (r *OutcomeRecorder) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case HookPosInstructionStart:
		r.current = ctx.Item.(InstructionRecord)
	case HookPosOutcome:
		o := ctx.Item.(Outcome)
		r.recorder.InsertData("outcome", outcomeEntry{
			Instruction: uint64(o.Time),
			Op:          r.current.Instruction.Op.String(),
			Operand:     r.current.Instruction.Operand,
			Kind:        o.Kind.String(),
			PID:         int(o.PID),
			Page:        o.Page,
			Frame:       o.Frame,
			Cost:        o.Cost,
		})
	}
}

// Handle writes the final statistics and flushes the recorder.
func (r *OutcomeRecorder) Handle(_ sim.VTime) {
	for _, p := range r.mmu.Memory().Processes {
		s := p.Stats
		r.recorder.InsertData("process_stats", processStatsEntry{
			PID:      int(p.ID),
			Unmaps:   s.Unmaps,
			Maps:     s.Maps,
			Ins:      s.Ins,
			Outs:     s.Outs,
			FileIns:  s.FileIns,
			FileOuts: s.FileOuts,
			Zeros:    s.Zeros,
			SegV:     s.SegV,
			SegProt:  s.SegProt,
		})
	}

	stats := r.mmu.Stats()
	r.recorder.InsertData("run_totals", runTotalsEntry{
		Instructions:    stats.Instructions,
		ContextSwitches: stats.ContextSwitches,
		ProcessExits:    stats.ProcessExits,
		Cost:            stats.Cost,
	})

	r.recorder.Flush()
}
