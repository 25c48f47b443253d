// Package simulation puts the engine, the MMU and its collaborators together
// for one run.
package simulation

import (
	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/mem/vm/pager"
	"github.com/sarchlab/vmsim/monitoring"
	"github.com/sarchlab/vmsim/report"
	"github.com/sarchlab/vmsim/rng"
	"github.com/sarchlab/vmsim/sim"
)

// A Simulation is one configured run.
type Simulation struct {
	id string

	engine *sim.SerialEngine
	memory *vm.Memory
	pager  pager.Pager
	random *rng.Sequence
	mmu    *mmu.Comp

	printer      *report.Printer
	dataRecorder datarecording.DataRecorder
	monitor      *monitoring.Monitor
	progress     *monitoring.InstructionProgress
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() sim.Engine {
	return s.engine
}

// GetMMU returns the MMU of the simulation.
func (s *Simulation) GetMMU() *mmu.Comp {
	return s.mmu
}

// GetMemory returns the frames and processes.
func (s *Simulation) GetMemory() *vm.Memory {
	return s.memory
}

// GetRandomSequence returns the random sequence used by the random pager, or
// nil for other pagers.
func (s *Simulation) GetRandomSequence() *rng.Sequence {
	return s.random
}

// GetDataRecorder returns the data recorder used in the simulation. It is nil
// when recording is off.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation. It is nil when
// monitoring is off.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// Run executes the whole trace. The end-of-run report and the final
// statistics are only produced when every instruction succeeds.
func (s *Simulation) Run() error {
	err := s.mmu.Start()
	if err != nil {
		return err
	}

	err = s.engine.Run()
	if err != nil {
		return err
	}

	s.engine.Finished()

	if s.progress != nil {
		s.monitor.CompleteProgressBar(s.progress.Bar())
	}

	if s.printer != nil {
		return s.printer.Err()
	}

	return nil
}

// Terminate terminates the simulation.
func (s *Simulation) Terminate() error {
	var err error

	if s.dataRecorder != nil {
		err = s.dataRecorder.Close()
	}

	if s.monitor != nil {
		if stopErr := s.monitor.StopServer(); err == nil {
			err = stopErr
		}
	}

	return err
}
