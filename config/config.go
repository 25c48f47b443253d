// Package config holds the settings of a simulation run. Settings come from
// command-line flags, VMSIM_* environment variables, a .env file and the
// defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sarchlab/vmsim/mem/vm/pager"
	"github.com/sarchlab/vmsim/sim"
)

// MaxFrames is the largest frame table supported. A packed PTE has 7 bits
// for the frame number.
const MaxFrames = 128

var (
	// ErrInvalidFrames is returned when the number of frames is out of range.
	ErrInvalidFrames = errors.New("invalid number of frames")

	// ErrMissingInput is returned when the input or the random file is not
	// given.
	ErrMissingInput = errors.New("missing input file")

	// ErrInvalidValue is returned for a setting that cannot be parsed.
	ErrInvalidValue = errors.New("invalid setting")
)

// Config is the configuration of one run.
type Config struct {
	NumFrames       int
	Algorithm       string
	Options         string
	InputPath       string
	RandomPath      string
	Tau             sim.VTime
	ESCInterval     sim.VTime
	RecordDB        string
	MonitorPort     int
	OpenBrowser     bool
	CheckInvariants bool
	LogLevel        string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		NumFrames:   16,
		Algorithm:   "f",
		Tau:         pager.DefaultTau,
		ESCInterval: pager.DefaultResetInterval,
		LogLevel:    "warn",
	}
}

// The environment variables read by LoadEnv.
const (
	EnvFrames      = "VMSIM_FRAMES"
	EnvAlgorithm   = "VMSIM_ALGO"
	EnvOptions     = "VMSIM_OPTIONS"
	EnvTau         = "VMSIM_TAU"
	EnvESCInterval = "VMSIM_ESC_INTERVAL"
	EnvRecord      = "VMSIM_RECORD"
	EnvMonitorPort = "VMSIM_MONITOR_PORT"
	EnvOpenBrowser = "VMSIM_OPEN_BROWSER"
	EnvCheck       = "VMSIM_CHECK"
	EnvLogLevel    = "VMSIM_LOG_LEVEL"
)

// LoadEnv loads the given dotenv files, if they exist, and then applies the
// VMSIM_* environment variables. Variables already in the environment win
// over the ones in the files.
func (c *Config) LoadEnv(files ...string) error {
	for _, f := range files {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}

	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	integer := func(name string, dst *int) {
		v, ok := lookup(name)
		if !ok {
			return
		}

		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidValue, name, v))
			return
		}

		*dst = n
	}

	vtime := func(name string, dst *sim.VTime) {
		v, ok := lookup(name)
		if !ok {
			return
		}

		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidValue, name, v))
			return
		}

		*dst = sim.VTime(n)
	}

	boolean := func(name string, dst *bool) {
		v, ok := lookup(name)
		if !ok {
			return
		}

		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidValue, name, v))
			return
		}

		*dst = b
	}

	integer(EnvFrames, &c.NumFrames)
	str(EnvAlgorithm, &c.Algorithm)
	str(EnvOptions, &c.Options)
	vtime(EnvTau, &c.Tau)
	vtime(EnvESCInterval, &c.ESCInterval)
	str(EnvRecord, &c.RecordDB)
	integer(EnvMonitorPort, &c.MonitorPort)
	boolean(EnvOpenBrowser, &c.OpenBrowser)
	boolean(EnvCheck, &c.CheckInvariants)
	str(EnvLogLevel, &c.LogLevel)

	return errors.Join(errs...)
}

// Validate checks that the configuration can run.
func (c Config) Validate() error {
	if c.NumFrames <= 0 || c.NumFrames > MaxFrames {
		return fmt.Errorf("%w: %d, must be in [1, %d]",
			ErrInvalidFrames, c.NumFrames, MaxFrames)
	}

	if _, err := pager.ParseKind(c.Algorithm); err != nil {
		return err
	}

	if c.InputPath == "" {
		return fmt.Errorf("%w: no input file specified", ErrMissingInput)
	}

	if c.RandomPath == "" {
		return fmt.Errorf("%w: no random file specified", ErrMissingInput)
	}

	if c.Tau == 0 || c.ESCInterval == 0 {
		return fmt.Errorf("%w: tau and reset interval must be positive",
			ErrInvalidValue)
	}

	if c.MonitorPort < 0 || c.MonitorPort > 65535 {
		return fmt.Errorf("%w: monitor port %d", ErrInvalidValue, c.MonitorPort)
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	return nil
}

// PagerKind returns the replacement policy selected by Algorithm.
func (c Config) PagerKind() (pager.Kind, error) {
	return pager.ParseKind(c.Algorithm)
}

// SlogLevel converts LogLevel into a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(c.LogLevel))
	if err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidValue, c.LogLevel)
	}

	return level, nil
}
