package mmu

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/pager"
	"github.com/sarchlab/vmsim/sim"
)

type sliceSource struct {
	insts []vm.Instruction
}

func (s *sliceSource) Next() (vm.Instruction, bool, error) {
	if len(s.insts) == 0 {
		return vm.Instruction{}, false, nil
	}

	inst := s.insts[0]
	s.insts = s.insts[1:]

	return inst, true, nil
}

func trace(insts ...vm.Instruction) *sliceSource {
	return &sliceSource{insts: insts}
}

func c(pid int) vm.Instruction  { return vm.Instruction{Op: vm.OpContextSwitch, Operand: pid} }
func r(page int) vm.Instruction { return vm.Instruction{Op: vm.OpRead, Operand: page} }
func w(page int) vm.Instruction { return vm.Instruction{Op: vm.OpWrite, Operand: page} }
func e() vm.Instruction         { return vm.Instruction{Op: vm.OpExit} }

// costRecorder sums the cost of the outcomes of every instruction.
type costRecorder struct {
	outcomes []Outcome
	perTime  map[sim.VTime]uint64
}

func newCostRecorder() *costRecorder {
	return &costRecorder{perTime: make(map[sim.VTime]uint64)}
}

func (r *costRecorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosOutcome {
		return
	}

	o := ctx.Item.(Outcome)
	r.outcomes = append(r.outcomes, o)
	r.perTime[o.Time] += o.Cost
}

func (r *costRecorder) kinds(t sim.VTime) []OutcomeKind {
	kinds := []OutcomeKind{}
	for _, o := range r.outcomes {
		if o.Time == t {
			kinds = append(kinds, o.Kind)
		}
	}

	return kinds
}

// stateChecker verifies the memory state at the end of every instruction
// and remembers the number of free frames at that point.
type stateChecker struct {
	mem     *vm.Memory
	errs    []error
	numFree []int
}

func newStateChecker(mem *vm.Memory) *stateChecker {
	return &stateChecker{mem: mem}
}

func (s *stateChecker) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosInstructionEnd {
		return
	}

	if err := s.mem.CheckInvariants(); err != nil {
		s.errs = append(s.errs, err)
	}

	s.numFree = append(s.numFree, s.mem.Frames.NumFree())
}

var _ = Describe("MMU", func() {
	var (
		engine   *sim.SerialEngine
		mem      *vm.Memory
		proc     *vm.Process
		recorder *costRecorder
	)

	buildProcs := func(
		numFrames int,
		procs []*vm.Process,
		source InstructionSource,
	) *Comp {
		proc = procs[0]
		mem = vm.NewMemory(numFrames, procs)
		p := pager.MakeBuilder().WithKind(pager.FIFO).Build("Pager")

		comp := MakeBuilder().
			WithEngine(engine).
			WithMemory(mem).
			WithPager(p).
			WithInstructionSource(source).
			WithInvariantCheck(true).
			Build("MMU")
		comp.AcceptHook(recorder)

		return comp
	}

	build := func(numFrames int, vmas []vm.VMA, source InstructionSource) *Comp {
		return buildProcs(numFrames, []*vm.Process{vm.NewProcess(0, vmas)}, source)
	}

	run := func(comp *Comp) error {
		Expect(comp.Start()).To(Succeed())
		return engine.Run()
	}

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		recorder = newCostRecorder()
	})

	It("should run the small FIFO scenario", func() {
		comp := build(2, []vm.VMA{{StartPage: 0, EndPage: 9}},
			trace(c(0), r(0), w(1), r(2)))

		Expect(run(comp)).To(Succeed())

		Expect(recorder.perTime[0]).To(Equal(uint64(130)))
		Expect(recorder.perTime[1]).To(Equal(uint64(501)))
		Expect(recorder.perTime[2]).To(Equal(uint64(501)))
		Expect(recorder.perTime[3]).To(Equal(uint64(911)))
		Expect(recorder.kinds(3)).To(Equal([]OutcomeKind{
			OutcomeAccess, OutcomeUnmap, OutcomeZero, OutcomeMap,
		}))

		Expect(proc.PTE(0).Present).To(BeFalse())
		Expect(proc.PTE(1).Present).To(BeTrue())
		Expect(proc.PTE(1).Modified).To(BeTrue())
		Expect(proc.PTE(2).Present).To(BeTrue())
		Expect(proc.PTE(2).Frame).To(Equal(0))

		stats := comp.Stats()
		Expect(stats.Instructions).To(Equal(uint64(4)))
		Expect(stats.ContextSwitches).To(Equal(uint64(1)))
		Expect(stats.ProcessExits).To(Equal(uint64(0)))
		Expect(stats.Cost).To(Equal(uint64(130 + 501 + 501 + 911)))

		Expect(proc.Stats).To(Equal(vm.ProcessStats{
			Unmaps: 1,
			Maps:   3,
			Zeros:  3,
		}))
	})

	It("should charge a victim's write-back to the process that owns it", func() {
		vmas := []vm.VMA{{StartPage: 0, EndPage: 9}}
		p0 := vm.NewProcess(0, vmas)
		p1 := vm.NewProcess(1, vmas)

		comp := buildProcs(2, []*vm.Process{p0, p1},
			trace(c(0), w(0), c(1), r(0), r(1), e(), c(0), r(0)))

		checker := newStateChecker(mem)
		comp.AcceptHook(checker)

		Expect(run(comp)).To(Succeed())

		Expect(checker.errs).To(BeEmpty())
		Expect(checker.numFree).To(HaveLen(8))
		Expect(checker.numFree[5]).To(Equal(2))

		Expect(recorder.kinds(4)).To(Equal([]OutcomeKind{
			OutcomeAccess, OutcomeUnmap, OutcomeOut, OutcomeZero, OutcomeMap,
		}))
		for _, o := range recorder.outcomes {
			if o.Time != 4 {
				continue
			}

			switch o.Kind {
			case OutcomeUnmap, OutcomeOut:
				Expect(o.PID).To(Equal(vm.PID(0)))
				Expect(o.Page).To(Equal(0))
				Expect(o.Frame).To(Equal(0))
			default:
				Expect(o.PID).To(Equal(vm.PID(1)))
			}
		}

		Expect(recorder.kinds(7)).To(Equal([]OutcomeKind{
			OutcomeAccess, OutcomeIn, OutcomeMap,
		}))

		Expect(p0.Stats).To(Equal(vm.ProcessStats{
			Unmaps: 1,
			Maps:   2,
			Ins:    1,
			Outs:   1,
			Zeros:  1,
		}))
		Expect(p1.Stats).To(Equal(vm.ProcessStats{
			Unmaps: 2,
			Maps:   2,
			Zeros:  2,
		}))

		for page := range p1.PageTable {
			Expect(p1.PageTable[page]).To(Equal(vm.PTE{}))
		}

		Expect(p0.PTE(0).Present).To(BeTrue())
		Expect(p0.PTE(0).PagedOut).To(BeTrue())
		Expect(p0.PTE(0).Frame).To(Equal(1))
		Expect(mem.Frames.FreeFrames()).To(Equal([]int{0}))
		Expect(mem.CheckInvariants()).To(Succeed())
	})

	It("should make the total cost the sum of the outcome costs", func() {
		comp := build(1, []vm.VMA{{StartPage: 0, EndPage: 9}},
			trace(c(0), w(0), r(1), r(0), w(20), e()))

		Expect(run(comp)).To(Succeed())

		sum := uint64(0)
		for _, o := range recorder.outcomes {
			sum += o.Cost
		}
		Expect(comp.Stats().Cost).To(Equal(sum))
	})

	It("should charge the costs of a custom cost table", func() {
		costs := DefaultCosts()
		costs.Map *= 2

		mem = vm.NewMemory(1, []*vm.Process{
			vm.NewProcess(0, []vm.VMA{{StartPage: 0, EndPage: 9}}),
		})
		comp := MakeBuilder().
			WithEngine(engine).
			WithMemory(mem).
			WithPager(pager.MakeBuilder().Build("Pager")).
			WithInstructionSource(trace(c(0), r(0), r(1))).
			WithCosts(costs).
			Build("MMU")

		Expect(comp.Costs().Map).To(Equal(uint64(700)))
		Expect(run(comp)).To(Succeed())
		Expect(comp.Stats().Cost).To(Equal(uint64(
			130 + (1 + 150 + 700) + (1 + 410 + 150 + 700))))
	})

	It("should give the same result for the same input", func() {
		insts := []vm.Instruction{c(0), r(0), w(1), r(2), w(3), r(0), r(4)}

		comp := build(3, []vm.VMA{{StartPage: 0, EndPage: 9}},
			trace(insts...))
		Expect(run(comp)).To(Succeed())
		first := recorder.outcomes

		engine = sim.NewSerialEngine()
		recorder = newCostRecorder()
		comp = build(3, []vm.VMA{{StartPage: 0, EndPage: 9}},
			trace(insts...))
		Expect(run(comp)).To(Succeed())

		Expect(recorder.outcomes).To(Equal(first))
	})

	It("should swap a dirty anonymous page out and back in", func() {
		comp := build(1, []vm.VMA{{StartPage: 0, EndPage: 9}},
			trace(c(0), w(0), r(1), r(0)))

		Expect(run(comp)).To(Succeed())

		Expect(recorder.perTime[1]).To(Equal(uint64(501)))
		Expect(recorder.kinds(2)).To(Equal([]OutcomeKind{
			OutcomeAccess, OutcomeUnmap, OutcomeOut, OutcomeZero, OutcomeMap,
		}))
		Expect(recorder.perTime[2]).To(Equal(uint64(1 + 410 + 2750 + 150 + 350)))
		Expect(recorder.kinds(3)).To(Equal([]OutcomeKind{
			OutcomeAccess, OutcomeUnmap, OutcomeIn, OutcomeMap,
		}))
		Expect(recorder.perTime[3]).To(Equal(uint64(1 + 410 + 3200 + 350)))

		Expect(proc.PTE(0).PagedOut).To(BeTrue())
		Expect(proc.PTE(0).Modified).To(BeFalse())
		Expect(proc.Stats.Outs).To(Equal(uint64(1)))
		Expect(proc.Stats.Ins).To(Equal(uint64(1)))
	})

	It("should write back a dirty file mapped victim with FOUT", func() {
		comp := build(1, []vm.VMA{{StartPage: 0, EndPage: 9, FileMapped: true}},
			trace(c(0), w(0), r(1), r(0)))

		Expect(run(comp)).To(Succeed())

		Expect(recorder.kinds(1)).To(Equal([]OutcomeKind{
			OutcomeAccess, OutcomeFileIn, OutcomeMap,
		}))
		Expect(recorder.kinds(2)).To(Equal([]OutcomeKind{
			OutcomeAccess, OutcomeUnmap, OutcomeFileOut, OutcomeFileIn, OutcomeMap,
		}))
		Expect(recorder.kinds(3)).To(Equal([]OutcomeKind{
			OutcomeAccess, OutcomeUnmap, OutcomeFileIn, OutcomeMap,
		}))
		Expect(proc.PTE(0).PagedOut).To(BeFalse())
		Expect(proc.Stats.FileIns).To(Equal(uint64(3)))
		Expect(proc.Stats.FileOuts).To(Equal(uint64(1)))
	})

	It("should report a segmentation violation without using a frame", func() {
		comp := build(2, []vm.VMA{{StartPage: 0, EndPage: 9}},
			trace(c(0), r(20), w(20)))

		Expect(run(comp)).To(Succeed())

		Expect(recorder.kinds(1)).To(Equal([]OutcomeKind{
			OutcomeAccess, OutcomeSegV,
		}))
		Expect(recorder.perTime[1]).To(Equal(uint64(441)))
		Expect(recorder.kinds(2)).To(Equal([]OutcomeKind{
			OutcomeAccess, OutcomeSegV,
		}))
		Expect(proc.Stats.SegV).To(Equal(uint64(2)))
		Expect(proc.PTE(20).Present).To(BeFalse())
		Expect(proc.PTE(20).Referenced).To(BeFalse())
		Expect(mem.Frames.NumFree()).To(Equal(2))
	})

	It("should report a protection violation and keep the page clean", func() {
		comp := build(2, []vm.VMA{{StartPage: 0, EndPage: 3, WriteProtected: true}},
			trace(c(0), w(0), w(0)))

		Expect(run(comp)).To(Succeed())

		Expect(recorder.perTime[1]).To(Equal(uint64(1 + 150 + 350 + 410)))
		Expect(recorder.kinds(2)).To(Equal([]OutcomeKind{
			OutcomeAccess, OutcomeSegProt,
		}))
		Expect(proc.PTE(0).Present).To(BeTrue())
		Expect(proc.PTE(0).Referenced).To(BeTrue())
		Expect(proc.PTE(0).Modified).To(BeFalse())
		Expect(proc.PTE(0).WriteProtect).To(BeTrue())
		Expect(proc.Stats.SegProt).To(Equal(uint64(2)))
	})

	It("should release every frame on exit", func() {
		comp := build(2, []vm.VMA{{StartPage: 0, EndPage: 9, FileMapped: true}},
			trace(c(0), w(0), r(1), e()))

		Expect(run(comp)).To(Succeed())

		Expect(recorder.kinds(3)).To(Equal([]OutcomeKind{
			OutcomeExit, OutcomeUnmap, OutcomeFileOut, OutcomeUnmap,
		}))
		Expect(recorder.perTime[3]).To(Equal(uint64(1230 + 410 + 2800 + 410)))
		Expect(mem.Frames.NumFree()).To(Equal(2))
		for page := range proc.PageTable {
			Expect(proc.PageTable[page]).To(Equal(vm.PTE{}))
		}
		Expect(comp.Stats().ProcessExits).To(Equal(uint64(1)))
		Expect(proc.Stats.Unmaps).To(Equal(uint64(2)))
		Expect(proc.Stats.FileOuts).To(Equal(uint64(1)))
	})

	It("should not charge the access cost of an exit or a context switch", func() {
		comp := build(1, []vm.VMA{{StartPage: 0, EndPage: 9}},
			trace(c(0), e()))

		Expect(run(comp)).To(Succeed())

		Expect(recorder.perTime[0]).To(Equal(uint64(130)))
		Expect(recorder.perTime[1]).To(Equal(uint64(1230)))
	})

	It("should fail on an access before any context switch", func() {
		comp := build(1, []vm.VMA{{StartPage: 0, EndPage: 9}}, trace(r(0)))

		err := run(comp)

		Expect(errors.Is(err, ErrNoCurrentProcess)).To(BeTrue())
		Expect(comp.Stats().Instructions).To(Equal(uint64(0)))
	})

	It("should fail on an exit before any context switch", func() {
		comp := build(1, []vm.VMA{{StartPage: 0, EndPage: 9}}, trace(e()))

		Expect(errors.Is(run(comp), ErrNoCurrentProcess)).To(BeTrue())
	})

	It("should fail on a switch to an unknown process", func() {
		comp := build(1, []vm.VMA{{StartPage: 0, EndPage: 9}}, trace(c(3)))

		Expect(errors.Is(run(comp), ErrInvalidOperand)).To(BeTrue())
	})

	It("should fail on a page outside of the page table", func() {
		comp := build(1, []vm.VMA{{StartPage: 0, EndPage: 9}},
			trace(c(0), r(vm.MaxVPages), r(0)))

		err := run(comp)

		Expect(errors.Is(err, ErrInvalidOperand)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("instruction 1"))
		Expect(comp.Stats().Instructions).To(Equal(uint64(1)))
	})

	It("should panic if the memory state is broken", func() {
		comp := build(1, []vm.VMA{{StartPage: 0, EndPage: 9}}, nil)
		proc.PTE(5).Present = true

		Expect(func() { _ = comp.Execute(0, c(0)) }).To(Panic())
	})

	It("should report the current process", func() {
		comp := build(1, []vm.VMA{{StartPage: 0, EndPage: 9}}, nil)

		_, ok := comp.CurrentProcess()
		Expect(ok).To(BeFalse())

		Expect(comp.Execute(0, c(0))).To(Succeed())

		pid, ok := comp.CurrentProcess()
		Expect(ok).To(BeTrue())
		Expect(pid).To(Equal(vm.PID(0)))
	})

	Context("with a mocked instruction source", func() {
		var (
			mockCtrl *gomock.Controller
			source   *MockInstructionSource
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			source = NewMockInstructionSource(mockCtrl)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should read one instruction ahead", func() {
			comp := build(1, []vm.VMA{{StartPage: 0, EndPage: 9}}, source)

			gomock.InOrder(
				source.EXPECT().Next().Return(c(0), true, nil),
				source.EXPECT().Next().Return(vm.Instruction{}, false, nil),
			)

			Expect(run(comp)).To(Succeed())
			Expect(comp.Stats().Instructions).To(Equal(uint64(1)))
		})

		It("should stop on a source error", func() {
			comp := build(1, []vm.VMA{{StartPage: 0, EndPage: 9}}, source)
			readErr := errors.New("bad line")

			gomock.InOrder(
				source.EXPECT().Next().Return(c(0), true, nil),
				source.EXPECT().Next().Return(vm.Instruction{}, false, readErr),
			)

			Expect(comp.Start()).To(Succeed())
			err := engine.Run()

			Expect(errors.Is(err, readErr)).To(BeTrue())
		})
	})

	Context("with a mocked hook", func() {
		var (
			mockCtrl *gomock.Controller
			hook     *MockHook
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			hook = NewMockHook(mockCtrl)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should wrap every instruction with start and end hooks", func() {
			comp := build(1, []vm.VMA{{StartPage: 0, EndPage: 9}}, nil)
			comp.AcceptHook(hook)

			gomock.InOrder(
				hook.EXPECT().Func(gomock.Any()).Do(func(ctx sim.HookCtx) {
					Expect(ctx.Pos).To(Equal(HookPosInstructionStart))
					Expect(ctx.Item.(InstructionRecord).Current).
						To(Equal(vm.NoOwner))
				}),
				hook.EXPECT().Func(gomock.Any()).Do(func(ctx sim.HookCtx) {
					Expect(ctx.Pos).To(Equal(HookPosOutcome))
					Expect(ctx.Item.(Outcome).Kind).
						To(Equal(OutcomeContextSwitch))
				}),
				hook.EXPECT().Func(gomock.Any()).Do(func(ctx sim.HookCtx) {
					Expect(ctx.Pos).To(Equal(HookPosInstructionEnd))
					Expect(ctx.Item.(InstructionRecord).Current).
						To(Equal(vm.PID(0)))
				}),
			)

			err := comp.Handle(&instructionEvent{inst: c(0)})

			Expect(err).To(Succeed())
		})
	})
})
