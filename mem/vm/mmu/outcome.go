package mmu

import (
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/sim"
)

// OutcomeKind is something that happened while executing an instruction.
// Every outcome has a cost.
type OutcomeKind int

// The outcome kinds.
const (
	OutcomeAccess OutcomeKind = iota
	OutcomeContextSwitch
	OutcomeExit
	OutcomeUnmap
	OutcomeOut
	OutcomeFileOut
	OutcomeIn
	OutcomeFileIn
	OutcomeZero
	OutcomeMap
	OutcomeSegV
	OutcomeSegProt
)

var outcomeNames = [...]string{
	OutcomeAccess:        "ACCESS",
	OutcomeContextSwitch: "CTXSW",
	OutcomeExit:          "EXIT",
	OutcomeUnmap:         "UNMAP",
	OutcomeOut:           "OUT",
	OutcomeFileOut:       "FOUT",
	OutcomeIn:            "IN",
	OutcomeFileIn:        "FIN",
	OutcomeZero:          "ZERO",
	OutcomeMap:           "MAP",
	OutcomeSegV:          "SEGV",
	OutcomeSegProt:       "SEGPROT",
}

func (k OutcomeKind) String() string {
	if k < 0 || int(k) >= len(outcomeNames) {
		return "UNKNOWN"
	}

	return outcomeNames[k]
}

// An Outcome is delivered to hooks at HookPosOutcome. PID is the process the
// outcome is charged to. Page and Frame are -1 when they do not apply.
type Outcome struct {
	Time  sim.VTime
	Kind  OutcomeKind
	PID   vm.PID
	Page  int
	Frame int
	Cost  uint64
}

// An InstructionRecord is delivered to hooks at HookPosInstructionStart and
// HookPosInstructionEnd. Current is the current process at the time of the
// hook, or vm.NoOwner if no process has been switched to yet.
type InstructionRecord struct {
	Time        sim.VTime
	Instruction vm.Instruction
	Current     vm.PID
}

// Hook positions of the MMU.
var (
	HookPosInstructionStart = &sim.HookPos{Name: "InstructionStart"}
	HookPosOutcome          = &sim.HookPos{Name: "Outcome"}
	HookPosInstructionEnd   = &sim.HookPos{Name: "InstructionEnd"}
)

// Stats are the totals of a run.
type Stats struct {
	Instructions    uint64
	ContextSwitches uint64
	ProcessExits    uint64
	Cost            uint64
}
