package mmu

// A CostTable holds the cost, in cycles, of every kind of outcome.
type CostTable struct {
	Access        uint64
	ContextSwitch uint64
	ProcessExit   uint64
	Unmap         uint64
	PageOut       uint64
	FileOut       uint64
	PageIn        uint64
	FileIn        uint64
	ZeroFill      uint64
	Map           uint64
	SegV          uint64
	SegProt       uint64
}

// DefaultCosts returns the standard cost table.
func DefaultCosts() CostTable {
	return CostTable{
		Access:        1,
		ContextSwitch: 130,
		ProcessExit:   1230,
		Unmap:         410,
		PageOut:       2750,
		FileOut:       2800,
		PageIn:        3200,
		FileIn:        2350,
		ZeroFill:      150,
		Map:           350,
		SegV:          440,
		SegProt:       410,
	}
}

// Of returns the cost of one outcome of the given kind.
func (t CostTable) Of(kind OutcomeKind) uint64 {
	switch kind {
	case OutcomeAccess:
		return t.Access
	case OutcomeContextSwitch:
		return t.ContextSwitch
	case OutcomeExit:
		return t.ProcessExit
	case OutcomeUnmap:
		return t.Unmap
	case OutcomeOut:
		return t.PageOut
	case OutcomeFileOut:
		return t.FileOut
	case OutcomeIn:
		return t.PageIn
	case OutcomeFileIn:
		return t.FileIn
	case OutcomeZero:
		return t.ZeroFill
	case OutcomeMap:
		return t.Map
	case OutcomeSegV:
		return t.SegV
	case OutcomeSegProt:
		return t.SegProt
	default:
		panic("unknown outcome kind")
	}
}
