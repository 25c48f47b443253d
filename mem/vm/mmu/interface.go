package mmu

import "github.com/sarchlab/vmsim/mem/vm"

// An InstructionSource hands out the trace one instruction at a time. ok is
// false once the trace is exhausted.
type InstructionSource interface {
	Next() (inst vm.Instruction, ok bool, err error)
}
