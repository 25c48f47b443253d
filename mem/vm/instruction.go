package vm

import "fmt"

// Op is the kind of a trace instruction. The values are the characters used
// in trace files.
type Op byte

// The instruction kinds.
const (
	OpContextSwitch Op = 'c'
	OpExit          Op = 'e'
	OpRead          Op = 'r'
	OpWrite         Op = 'w'
)

// ParseOp converts a trace character into an Op.
func ParseOp(c byte) (Op, bool) {
	switch Op(c) {
	case OpContextSwitch, OpExit, OpRead, OpWrite:
		return Op(c), true
	default:
		return 0, false
	}
}

func (o Op) String() string {
	return string(rune(o))
}

// An Instruction is one line of the trace. Operand is a pid for a context
// switch, a virtual page for a read or a write, and unused for an exit.
type Instruction struct {
	Op      Op
	Operand int
}

func (i Instruction) String() string {
	return fmt.Sprintf("%s %d", i.Op, i.Operand)
}
