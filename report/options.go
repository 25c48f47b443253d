// Package report prints the textual output of a run. A Printer is attached
// as a hook to the MMU and the pager for the per-instruction output and as a
// simulation end handler for the final tables.
package report

// Options selects what is printed. Each field corresponds to one option
// letter.
type Options struct {
	InstructionOutcome   bool // O
	PageTablesAtEnd      bool // P
	FrameTableAtEnd      bool // F
	Summary              bool // S
	CurrentPageTableEach bool // x
	AllPageTablesEach    bool // y
	FrameTableEach       bool // f
	PagerDetails         bool // a
}

// ParseOptions turns an option string such as "OPFS" into Options. Letters
// that select nothing are ignored.
func ParseOptions(s string) Options {
	o := Options{}

	for _, c := range s {
		switch c {
		case 'O':
			o.InstructionOutcome = true
		case 'P':
			o.PageTablesAtEnd = true
		case 'F':
			o.FrameTableAtEnd = true
		case 'S':
			o.Summary = true
		case 'x':
			o.CurrentPageTableEach = true
		case 'y':
			o.AllPageTablesEach = true
		case 'f':
			o.FrameTableEach = true
		case 'a':
			o.PagerDetails = true
		}
	}

	return o
}
