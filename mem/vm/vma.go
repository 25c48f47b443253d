// Package vm describes the virtual memory state of the simulated machine:
// the address spaces of the processes, their page tables, and the physical
// frames the pages live in.
package vm

// A VMA is a contiguous, inclusive range of virtual pages that share the same
// protection and backing.
type VMA struct {
	StartPage      int
	EndPage        int
	WriteProtected bool
	FileMapped     bool
}

// Contains tells if the virtual page falls inside the VMA.
func (v VMA) Contains(page int) bool {
	return page >= v.StartPage && page <= v.EndPage
}
