// Package mmu runs the trace against the memory state. It handles context
// switches, process exits, and reads and writes, including the page fault
// path.
package mmu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/pager"
	"github.com/sarchlab/vmsim/sim"
)

var (
	// ErrNoCurrentProcess is returned for an instruction that needs a current
	// process before any context switch.
	ErrNoCurrentProcess = errors.New("no current process")

	// ErrInvalidOperand is returned for an unknown pid, a page outside the
	// page table, or an unknown operation.
	ErrInvalidOperand = errors.New("invalid operand")
)

type instructionEvent struct {
	inst vm.Instruction
}

// Comp is the MMU component. It executes one instruction per event; the
// engine time of an event is the number of instructions executed before it.
type Comp struct {
	*sim.HookableBase

	name            string
	engine          sim.EventScheduler
	mem             *vm.Memory
	pager           pager.Pager
	source          InstructionSource
	costs           CostTable
	checkInvariants bool

	current *vm.Process
	stats   Stats
}

// Name returns the name of the component.
func (c *Comp) Name() string {
	return c.name
}

// Memory returns the memory state the MMU works on.
func (c *Comp) Memory() *vm.Memory {
	return c.mem
}

// Pager returns the replacement policy.
func (c *Comp) Pager() pager.Pager {
	return c.pager
}

// Stats returns the run totals so far.
func (c *Comp) Stats() Stats {
	return c.stats
}

// Costs returns the cost table in use.
func (c *Comp) Costs() CostTable {
	return c.costs
}

// CurrentProcess returns the pid of the current process.
func (c *Comp) CurrentProcess() (vm.PID, bool) {
	if c.current == nil {
		return vm.NoOwner, false
	}

	return c.current.ID, true
}

// Start schedules the first instruction of the trace.
func (c *Comp) Start() error {
	return c.scheduleNext(c.engine.CurrentTime())
}

// Handle executes an instruction event.
func (c *Comp) Handle(event any) error {
	switch e := event.(type) {
	case *instructionEvent:
		return c.handleInstruction(e)
	default:
		return fmt.Errorf("mmu: unknown event type %T", event)
	}
}

func (c *Comp) handleInstruction(e *instructionEvent) error {
	now := c.engine.CurrentTime()

	c.invokeInstructionHook(HookPosInstructionStart, now, e.inst)

	err := c.Execute(now, e.inst)
	if err != nil {
		return fmt.Errorf("instruction %d (%s): %w", now, e.inst, err)
	}

	c.invokeInstructionHook(HookPosInstructionEnd, now, e.inst)

	return c.scheduleNext(now + 1)
}

func (c *Comp) scheduleNext(t sim.VTime) error {
	if c.source == nil {
		return nil
	}

	inst, ok, err := c.source.Next()
	if err != nil {
		return err
	}

	if !ok {
		return nil
	}

	c.engine.Schedule(sim.ScheduledEvent{
		Event:   &instructionEvent{inst: inst},
		Time:    t,
		Handler: c,
	})

	return nil
}

// Execute runs one instruction at time now. The engine calls it through
// Handle; it is exported so that an instruction can be replayed directly.
func (c *Comp) Execute(now sim.VTime, inst vm.Instruction) error {
	var err error

	switch inst.Op {
	case vm.OpContextSwitch:
		err = c.contextSwitch(now, inst.Operand)
	case vm.OpExit:
		err = c.exitCurrent(now)
	case vm.OpRead, vm.OpWrite:
		err = c.access(now, inst.Operand, inst.Op == vm.OpWrite)
	default:
		err = fmt.Errorf("%w: unknown operation %q", ErrInvalidOperand, byte(inst.Op))
	}

	if err != nil {
		return err
	}

	c.stats.Instructions++

	if c.checkInvariants {
		if err := c.mem.CheckInvariants(); err != nil {
			panic(fmt.Sprintf("memory invariant broken after instruction %d: %v",
				now, err))
		}
	}

	return nil
}

func (c *Comp) contextSwitch(now sim.VTime, pid int) error {
	p, ok := c.mem.Process(vm.PID(pid))
	if !ok {
		return fmt.Errorf("%w: no process %d", ErrInvalidOperand, pid)
	}

	c.current = p
	c.stats.ContextSwitches++
	c.charge(now, OutcomeContextSwitch, p, -1, -1)

	return nil
}

// exitCurrent releases every frame of the current process and clears its
// page table. The process record stays for reporting.
func (c *Comp) exitCurrent(now sim.VTime) error {
	p := c.current
	if p == nil {
		return ErrNoCurrentProcess
	}

	c.stats.ProcessExits++
	c.charge(now, OutcomeExit, p, -1, -1)

	for page := range p.PageTable {
		pte := &p.PageTable[page]

		if pte.Present {
			frame := c.mem.Frames.Frame(pte.Frame)

			c.charge(now, OutcomeUnmap, p, page, frame.Number)
			if pte.Modified && pte.FileMapped {
				c.charge(now, OutcomeFileOut, p, page, frame.Number)
			}

			c.mem.Frames.Release(frame)
		}

		pte.Clear()
	}

	return nil
}

func (c *Comp) access(now sim.VTime, page int, write bool) error {
	p := c.current
	if p == nil {
		return ErrNoCurrentProcess
	}

	if !vm.ValidPage(page) {
		return fmt.Errorf("%w: page %d outside [0, %d)",
			ErrInvalidOperand, page, vm.MaxVPages)
	}

	c.charge(now, OutcomeAccess, p, page, -1)

	pte := p.PTE(page)
	if !pte.Present && !c.pageIn(now, p, page, pte) {
		return nil
	}

	pte.Referenced = true

	if !write {
		return nil
	}

	if pte.WriteProtect {
		c.charge(now, OutcomeSegProt, p, page, pte.Frame)
		return nil
	}

	pte.Modified = true

	return nil
}

// pageIn handles a page fault. It returns false if the page is not part of
// any VMA.
func (c *Comp) pageIn(now sim.VTime, p *vm.Process, page int, pte *vm.PTE) bool {
	vma, ok := p.FindVMA(page)
	if !ok {
		c.charge(now, OutcomeSegV, p, page, -1)
		return false
	}

	// VMAs never change, so copying on every fault gives the first-touch
	// values.
	pte.FileMapped = vma.FileMapped
	pte.WriteProtect = vma.WriteProtected

	frame := c.mem.GetFrame(c.pager, now)
	if !frame.IsFree() {
		c.evict(now, frame)
	}

	c.mem.Frames.Bind(frame, p.ID, page)
	pte.Frame = frame.Number
	pte.Present = true

	switch {
	case pte.PagedOut:
		c.charge(now, OutcomeIn, p, page, frame.Number)
	case pte.FileMapped:
		c.charge(now, OutcomeFileIn, p, page, frame.Number)
	default:
		c.charge(now, OutcomeZero, p, page, frame.Number)
	}

	c.charge(now, OutcomeMap, p, page, frame.Number)
	c.pager.Refresh(frame, now)

	return true
}

// evict takes the frame away from the page that holds it, writing the page
// back if it is dirty.
func (c *Comp) evict(now sim.VTime, frame *vm.Frame) {
	owner := c.mem.Processes[frame.Owner]
	pte := owner.PTE(frame.Page)

	if !pte.Present || pte.Frame != frame.Number {
		panic(fmt.Sprintf("frame %d is not mapped by its owner %d:%d",
			frame.Number, frame.Owner, frame.Page))
	}

	c.charge(now, OutcomeUnmap, owner, frame.Page, frame.Number)

	if pte.Modified {
		if pte.FileMapped {
			c.charge(now, OutcomeFileOut, owner, frame.Page, frame.Number)
		} else {
			c.charge(now, OutcomeOut, owner, frame.Page, frame.Number)
			pte.PagedOut = true
		}
	}

	pte.Unmap()
}

// charge adds the cost of the outcome to the total, counts it against the
// process, and tells the hooks.
func (c *Comp) charge(
	now sim.VTime,
	kind OutcomeKind,
	p *vm.Process,
	page, frame int,
) {
	cost := c.costs.Of(kind)
	c.stats.Cost += cost

	countOutcome(&p.Stats, kind)

	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosOutcome,
		Item: Outcome{
			Time:  now,
			Kind:  kind,
			PID:   p.ID,
			Page:  page,
			Frame: frame,
			Cost:  cost,
		},
	})
}

func countOutcome(s *vm.ProcessStats, kind OutcomeKind) {
	switch kind {
	case OutcomeUnmap:
		s.Unmaps++
	case OutcomeMap:
		s.Maps++
	case OutcomeIn:
		s.Ins++
	case OutcomeOut:
		s.Outs++
	case OutcomeFileIn:
		s.FileIns++
	case OutcomeFileOut:
		s.FileOuts++
	case OutcomeZero:
		s.Zeros++
	case OutcomeSegV:
		s.SegV++
	case OutcomeSegProt:
		s.SegProt++
	}
}

func (c *Comp) invokeInstructionHook(
	pos *sim.HookPos,
	now sim.VTime,
	inst vm.Instruction,
) {
	if c.NumHooks() == 0 {
		return
	}

	current, _ := c.CurrentProcess()

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    pos,
		Item: InstructionRecord{
			Time:        now,
			Instruction: inst,
			Current:     current,
		},
	})
}
