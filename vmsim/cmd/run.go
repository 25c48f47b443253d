package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sarchlab/vmsim/config"
	"github.com/sarchlab/vmsim/report"
	"github.com/sarchlab/vmsim/sim"
	"github.com/sarchlab/vmsim/simulation"
	"github.com/sarchlab/vmsim/trace"
)

func run(cfg config.Config, stdout io.Writer) error {
	kind, err := cfg.PagerKind()
	if err != nil {
		return err
	}

	inputFile, err := os.Open(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("cannot open input file: %w", err)
	}
	defer inputFile.Close()

	reader := trace.NewReader(inputFile)

	procs, err := reader.ReadProcesses()
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.InputPath, err)
	}

	randomValues, err := readRandomFile(cfg.RandomPath)
	if err != nil {
		return err
	}

	builder := simulation.MakeBuilder().
		WithNumFrames(cfg.NumFrames).
		WithProcesses(procs).
		WithInstructionSource(reader).
		WithPagerKind(kind).
		WithTau(cfg.Tau).
		WithResetInterval(cfg.ESCInterval).
		WithRandomValues(randomValues).
		WithReport(stdout, report.ParseOptions(cfg.Options)).
		WithInvariantCheck(cfg.CheckInvariants)

	if level, _ := cfg.SlogLevel(); level <= slog.LevelDebug {
		builder = builder.WithEventLogging(slog.Default())
	}

	if cfg.RecordDB != "" {
		sim.UseXIDGenerator()
		builder = builder.WithRecording(cfg.RecordDB)
	}

	if cfg.MonitorPort != 0 {
		total, err := countInstructions(cfg.InputPath)
		if err != nil {
			return err
		}

		builder = builder.WithMonitoring(cfg.MonitorPort, cfg.OpenBrowser, total)
	}

	s, err := builder.Build()
	if err != nil {
		return err
	}

	slog.Info("simulation started",
		"id", s.ID(),
		"frames", cfg.NumFrames,
		"pager", kind,
		"processes", len(procs))

	runErr := s.Run()
	if runErr != nil {
		runErr = fmt.Errorf("%s: %w", cfg.InputPath, runErr)
	}

	termErr := s.Terminate()
	if runErr != nil {
		return runErr
	}

	slog.Info("simulation finished",
		"instructions", s.GetMMU().Stats().Instructions,
		"cost", s.GetMMU().Stats().Cost)

	return termErr
}

func readRandomFile(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open random file: %w", err)
	}
	defer f.Close()

	values, err := trace.ReadRandomSequence(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return values, nil
}

func countInstructions(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return trace.CountInstructions(f)
}
