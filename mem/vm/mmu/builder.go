package mmu

import (
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/pager"
	"github.com/sarchlab/vmsim/sim"
)

// A Builder can build MMU component
type Builder struct {
	engine          sim.EventScheduler
	memory          *vm.Memory
	pager           pager.Pager
	source          InstructionSource
	costs           CostTable
	checkInvariants bool
}

// MakeBuilder creates a new builder with the default cost table.
func MakeBuilder() Builder {
	return Builder{
		costs: DefaultCosts(),
	}
}

// WithEngine sets the engine that drives the MMU.
func (b Builder) WithEngine(engine sim.EventScheduler) Builder {
	b.engine = engine
	return b
}

// WithMemory sets the frames and processes the MMU works on.
func (b Builder) WithMemory(mem *vm.Memory) Builder {
	b.memory = mem
	return b
}

// WithPager sets the replacement policy.
func (b Builder) WithPager(p pager.Pager) Builder {
	b.pager = p
	return b
}

// WithInstructionSource sets where the instructions come from.
func (b Builder) WithInstructionSource(s InstructionSource) Builder {
	b.source = s
	return b
}

// WithCosts replaces the cost table.
func (b Builder) WithCosts(costs CostTable) Builder {
	b.costs = costs
	return b
}

// WithInvariantCheck makes the MMU verify the frame and page table
// consistency after every instruction.
func (b Builder) WithInvariantCheck(enabled bool) Builder {
	b.checkInvariants = enabled
	return b
}

// Build returns a newly created MMU component
func (b Builder) Build(name string) *Comp {
	if b.engine == nil {
		panic("mmu requires an engine")
	}

	if b.memory == nil {
		panic("mmu requires a memory")
	}

	if b.pager == nil {
		panic("mmu requires a pager")
	}

	return &Comp{
		HookableBase:    sim.NewHookableBase(),
		name:            name,
		engine:          b.engine,
		mem:             b.memory,
		pager:           b.pager,
		source:          b.source,
		costs:           b.costs,
		checkInvariants: b.checkInvariants,
	}
}
