// Package trace reads the simulator input: the process preamble followed by
// the instruction stream, and the random number file.
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/vmsim/mem/vm"
)

// ErrMalformed is returned for any input that does not follow the format.
var ErrMalformed = errors.New("malformed input")

// A Reader reads an input file. ReadProcesses must be called once before the
// instructions are read with Next.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a reader on top of r.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		scanner: bufio.NewScanner(r),
	}
}

// Line returns the number of the last line read.
func (r *Reader) Line() int {
	return r.line
}

func (r *Reader) malformed(format string, args ...any) error {
	return fmt.Errorf("line %d: %w: %s",
		r.line, ErrMalformed, fmt.Sprintf(format, args...))
}

// nextLine returns the next line that is neither a comment nor blank.
func (r *Reader) nextLine() ([]string, bool, error) {
	for r.scanner.Scan() {
		r.line++

		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		return strings.Fields(text), true, nil
	}

	return nil, false, r.scanner.Err()
}

func (r *Reader) mustNextLine(what string) ([]string, error) {
	fields, ok, err := r.nextLine()
	if err != nil {
		return nil, err
	}

	if !ok {
		r.line++
		return nil, r.malformed("unexpected end of input, expecting %s", what)
	}

	return fields, nil
}

func (r *Reader) readCount(what string) (int, error) {
	fields, err := r.mustNextLine(what)
	if err != nil {
		return 0, err
	}

	if len(fields) != 1 {
		return 0, r.malformed("expecting a single %s, got %q",
			what, strings.Join(fields, " "))
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return 0, r.malformed("invalid %s %q", what, fields[0])
	}

	return n, nil
}

// ReadProcesses reads the preamble that declares the processes and their
// VMAs. The processes are numbered in the order they appear.
func (r *Reader) ReadProcesses() ([]*vm.Process, error) {
	numProcs, err := r.readCount("process count")
	if err != nil {
		return nil, err
	}

	procs := make([]*vm.Process, 0, numProcs)
	for pid := 0; pid < numProcs; pid++ {
		vmas, err := r.readVMAs()
		if err != nil {
			return nil, fmt.Errorf("process %d: %w", pid, err)
		}

		procs = append(procs, vm.NewProcess(vm.PID(pid), vmas))
	}

	return procs, nil
}

func (r *Reader) readVMAs() ([]vm.VMA, error) {
	numVMAs, err := r.readCount("VMA count")
	if err != nil {
		return nil, err
	}

	vmas := make([]vm.VMA, 0, numVMAs)
	for i := 0; i < numVMAs; i++ {
		vma, err := r.readVMA()
		if err != nil {
			return nil, err
		}

		vmas = append(vmas, vma)
	}

	return vmas, nil
}

func (r *Reader) readVMA() (vm.VMA, error) {
	fields, err := r.mustNextLine("a VMA")
	if err != nil {
		return vm.VMA{}, err
	}

	if len(fields) != 4 {
		return vm.VMA{}, r.malformed(
			"a VMA needs 4 fields, got %d", len(fields))
	}

	values := make([]int, 4)
	for i, f := range fields {
		values[i], err = strconv.Atoi(f)
		if err != nil {
			return vm.VMA{}, r.malformed("invalid VMA field %q", f)
		}
	}

	start, end := values[0], values[1]
	if start < 0 || start > end || end >= vm.MaxVPages {
		return vm.VMA{}, r.malformed(
			"VMA [%d, %d] outside [0, %d)", start, end, vm.MaxVPages)
	}

	for _, flag := range values[2:] {
		if flag != 0 && flag != 1 {
			return vm.VMA{}, r.malformed("VMA flag %d is not 0 or 1", flag)
		}
	}

	return vm.VMA{
		StartPage:      start,
		EndPage:        end,
		WriteProtected: values[2] == 1,
		FileMapped:     values[3] == 1,
	}, nil
}

// Next returns the next instruction. ok is false at the end of the input.
func (r *Reader) Next() (inst vm.Instruction, ok bool, err error) {
	fields, ok, err := r.nextLine()
	if err != nil || !ok {
		return vm.Instruction{}, false, err
	}

	if len(fields) != 2 || len(fields[0]) != 1 {
		return vm.Instruction{}, false, r.malformed(
			"expecting an instruction, got %q", strings.Join(fields, " "))
	}

	op, valid := vm.ParseOp(fields[0][0])
	if !valid {
		return vm.Instruction{}, false, r.malformed(
			"unknown operation %q", fields[0])
	}

	operand, err := strconv.Atoi(fields[1])
	if err != nil {
		return vm.Instruction{}, false, r.malformed(
			"invalid operand %q", fields[1])
	}

	return vm.Instruction{Op: op, Operand: operand}, true, nil
}

// CountInstructions reads a whole input and returns the number of
// instructions in it.
func CountInstructions(input io.Reader) (uint64, error) {
	r := NewReader(input)

	if _, err := r.ReadProcesses(); err != nil {
		return 0, err
	}

	var n uint64

	for {
		_, ok, err := r.Next()
		if err != nil {
			return 0, err
		}

		if !ok {
			return n, nil
		}

		n++
	}
}
