// Package cmd provides the command-line interface of vmsim.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/vmsim/config"
	"github.com/sarchlab/vmsim/sim"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd(os.Stdout)

func newRootCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vmsim [flags] inputfile randomfile",
		Short: "vmsim simulates demand paging with a choice of page replacement policies.",
		Long: `vmsim reads a trace of processes and memory references and ` +
			`simulates how the operating system maps virtual pages to ` +
			`physical frames. It reports the outcome of every instruction, ` +
			`the final page and frame tables and the cost of the run.`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}

			setupLogging(cfg)

			return run(cfg, stdout)
		},
	}

	f := cmd.Flags()
	f.IntP("frames", "f", 0, "number of physical frames (1-128)")
	f.StringP("algo", "a", "", "replacement policy: f(ifo) r(andom) c(lock) e(sc) a(ging) w(orking set)")
	f.StringP("options", "o", "", "report options, any of O P F S x y f a")
	f.Uint64("tau", 0, "working-set window in instructions")
	f.Uint64("esc-interval", 0, "instructions between ESC reference bit resets")
	f.String("record", "", "record every outcome into <path>.sqlite3")
	f.Int("monitor", 0, "serve the monitor on this port, 0 to disable")
	f.Bool("open-browser", false, "open the monitor in a browser")
	f.Bool("check", false, "verify the memory invariants after every instruction")
	f.String("log-level", "", "log level: debug, info, warn or error")
	f.String("env-file", ".env", "dotenv file to load settings from")

	return cmd
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadConfig builds the configuration from the defaults, the dotenv file,
// the environment and the flags that were set, in increasing precedence.
func loadConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	cfg := config.Default()
	f := cmd.Flags()

	envFile, _ := f.GetString("env-file")
	if err := cfg.LoadEnv(envFile); err != nil {
		return cfg, err
	}

	if f.Changed("frames") {
		cfg.NumFrames, _ = f.GetInt("frames")
	}

	if f.Changed("algo") {
		cfg.Algorithm, _ = f.GetString("algo")
	}

	if f.Changed("options") {
		cfg.Options, _ = f.GetString("options")
	}

	if f.Changed("tau") {
		tau, _ := f.GetUint64("tau")
		cfg.Tau = sim.VTime(tau)
	}

	if f.Changed("esc-interval") {
		interval, _ := f.GetUint64("esc-interval")
		cfg.ESCInterval = sim.VTime(interval)
	}

	if f.Changed("record") {
		cfg.RecordDB, _ = f.GetString("record")
	}

	if f.Changed("monitor") {
		cfg.MonitorPort, _ = f.GetInt("monitor")
	}

	if f.Changed("open-browser") {
		cfg.OpenBrowser, _ = f.GetBool("open-browser")
	}

	if f.Changed("check") {
		cfg.CheckInvariants, _ = f.GetBool("check")
	}

	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}

	if len(args) > 0 {
		cfg.InputPath = args[0]
	}

	if len(args) > 1 {
		cfg.RandomPath = args[1]
	}

	return cfg, cfg.Validate()
}

func setupLogging(cfg config.Config) {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelWarn
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: level})))
}
