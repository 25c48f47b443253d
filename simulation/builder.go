package simulation

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/rs/xid"

	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/mem/vm/pager"
	"github.com/sarchlab/vmsim/monitoring"
	"github.com/sarchlab/vmsim/report"
	"github.com/sarchlab/vmsim/rng"
	"github.com/sarchlab/vmsim/sim"
)

// Builder can be used to build a simulation.
type Builder struct {
	numFrames       int
	processes       []*vm.Process
	source          mmu.InstructionSource
	pagerBuilder    pager.Builder
	randomValues    []int
	reportWriter    io.Writer
	reportOptions   report.Options
	checkInvariants bool
	eventLogger     *slog.Logger

	recordOn       bool
	outputFileName string

	monitorOn         bool
	monitorPort       int
	openBrowser       bool
	totalInstructions uint64
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		pagerBuilder: pager.MakeBuilder(),
	}
}

// WithNumFrames sets the size of the frame table.
func (b Builder) WithNumFrames(n int) Builder {
	b.numFrames = n
	return b
}

// WithProcesses sets the processes declared by the input.
func (b Builder) WithProcesses(procs []*vm.Process) Builder {
	b.processes = procs
	return b
}

// WithInstructionSource sets where the instructions are read from.
func (b Builder) WithInstructionSource(s mmu.InstructionSource) Builder {
	b.source = s
	return b
}

// WithPagerKind selects the replacement policy.
func (b Builder) WithPagerKind(kind pager.Kind) Builder {
	b.pagerBuilder = b.pagerBuilder.WithKind(kind)
	return b
}

// WithTau sets the working-set window.
func (b Builder) WithTau(tau sim.VTime) Builder {
	b.pagerBuilder = b.pagerBuilder.WithTau(tau)
	return b
}

// WithResetInterval sets how often the ESC pager clears reference bits.
func (b Builder) WithResetInterval(interval sim.VTime) Builder {
	b.pagerBuilder = b.pagerBuilder.WithResetInterval(interval)
	return b
}

// WithRandomValues sets the values of the random file.
func (b Builder) WithRandomValues(values []int) Builder {
	b.randomValues = values
	return b
}

// WithReport sets where the report goes and what it contains.
func (b Builder) WithReport(w io.Writer, options report.Options) Builder {
	b.reportWriter = w
	b.reportOptions = options

	return b
}

// WithInvariantCheck verifies the memory state after every instruction.
func (b Builder) WithInvariantCheck(enabled bool) Builder {
	b.checkInvariants = enabled
	return b
}

// WithEventLogging logs every event handled by the engine at the debug
// level.
func (b Builder) WithEventLogging(logger *slog.Logger) Builder {
	b.eventLogger = logger
	return b
}

// WithRecording records every outcome into <filename>.sqlite3. An empty name
// picks a unique one.
func (b Builder) WithRecording(filename string) Builder {
	b.recordOn = true
	b.outputFileName = filename

	return b
}

// WithMonitoring starts the monitoring server on the given port. Port 0
// picks a free port. A total of 0 means the number of instructions is not
// known in advance.
func (b Builder) WithMonitoring(
	port int,
	openBrowser bool,
	totalInstructions uint64,
) Builder {
	b.monitorOn = true
	b.monitorPort = port
	b.openBrowser = openBrowser
	b.totalInstructions = totalInstructions

	return b
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	if b.source == nil {
		return nil, fmt.Errorf("simulation requires an instruction source")
	}

	if b.numFrames <= 0 {
		return nil, fmt.Errorf("simulation requires frames, got %d", b.numFrames)
	}

	s := &Simulation{
		id:     xid.New().String(),
		engine: sim.NewSerialEngine(),
	}

	s.memory = vm.NewMemory(b.numFrames, b.processes)

	if b.eventLogger != nil {
		s.engine.AcceptHook(sim.NewEventLogger(b.eventLogger))
	}

	err := b.buildPager(s)
	if err != nil {
		return nil, err
	}

	s.mmu = mmu.MakeBuilder().
		WithEngine(s.engine).
		WithMemory(s.memory).
		WithPager(s.pager).
		WithInstructionSource(b.source).
		WithInvariantCheck(b.checkInvariants).
		Build("MMU")

	if b.reportWriter != nil {
		s.printer = report.NewPrinter(b.reportWriter, b.reportOptions, s.mmu)
		s.engine.RegisterSimulationEndHandler(s.printer)
	}

	if b.recordOn {
		err = b.buildRecorder(s)
		if err != nil {
			return nil, err
		}
	}

	if b.monitorOn {
		err = b.buildMonitor(s)
		if err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (b Builder) buildPager(s *Simulation) error {
	pb := b.pagerBuilder

	if pb.Kind() == pager.Random {
		seq, err := rng.NewSequence(b.randomValues)
		if err != nil {
			return fmt.Errorf("random file: %w", err)
		}

		s.random = seq
		pb = pb.WithRandomSource(seq)
	}

	s.pager = pb.Build("Pager")

	return nil
}

func (b Builder) buildRecorder(s *Simulation) error {
	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "vmsim_" + s.id
	}

	recorder, err := datarecording.New(outputPath)
	if err != nil {
		return err
	}

	s.dataRecorder = recorder
	s.engine.RegisterSimulationEndHandler(
		mmu.NewOutcomeRecorder(recorder, s.mmu))

	return nil
}

func (b Builder) buildMonitor(s *Simulation) error {
	s.monitor = monitoring.NewMonitor().
		WithPortNumber(b.monitorPort).
		WithBrowser(b.openBrowser)
	s.monitor.RegisterEngine(s.engine)
	s.monitor.RegisterMMU(s.mmu)
	s.progress = s.monitor.TrackInstructions(s.mmu, b.totalInstructions)

	url, err := s.monitor.StartServer()
	if err != nil {
		return err
	}

	slog.Info("monitor started", "url", url)

	return nil
}
