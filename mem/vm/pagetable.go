package vm

// MaxVPages is the number of page table entries every process has, whether
// or not the pages are covered by a VMA.
const MaxVPages = 64

// A PTE is the state of one virtual page. Frame is only meaningful while
// Present is set.
type PTE struct {
	Present      bool
	Modified     bool
	Referenced   bool
	PagedOut     bool
	WriteProtect bool
	FileMapped   bool
	Frame        int
}

// A PageTable holds one PTE for every virtual page of a process.
type PageTable [MaxVPages]PTE

// Unmap marks the page as not resident. PagedOut, WriteProtect and FileMapped
// survive so that the next fault knows where the content lives.
func (p *PTE) Unmap() {
	p.Present = false
	p.Modified = false
	p.Referenced = false
}

// Clear puts the entry back to the all-zero state of a fresh process.
func (p *PTE) Clear() {
	*p = PTE{}
}

// ValidPage tells if the page number indexes a page table entry.
func ValidPage(page int) bool {
	return page >= 0 && page < MaxVPages
}
