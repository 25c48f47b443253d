package vm

import (
	"container/list"

	"github.com/sarchlab/vmsim/sim"
)

// NoOwner marks a frame that does not hold any page.
const NoOwner PID = -1

// A Frame is a physical page. A frame is either free or holds exactly one
// page of one process.
type Frame struct {
	Number int
	Owner  PID
	Page   int

	// TimeOfLastUse is used by the working-set pager.
	TimeOfLastUse sim.VTime

	// Age is the shift register used by the aging pager.
	Age uint32
}

// IsFree tells if the frame holds no page.
func (f *Frame) IsFree() bool {
	return f.Owner == NoOwner
}

// A FramePool owns the frame table and the list of free frames. Frames are
// handed out from the free list in FIFO order.
type FramePool struct {
	frames   []Frame
	freeList *list.List
}

// NewFramePool creates a pool of n frames. All frames start free, ordered
// by frame number.
func NewFramePool(n int) *FramePool {
	if n <= 0 {
		panic("frame pool must have at least one frame")
	}

	p := &FramePool{
		frames:   make([]Frame, n),
		freeList: list.New(),
	}

	for i := range p.frames {
		p.frames[i] = Frame{
			Number: i,
			Owner:  NoOwner,
			Page:   -1,
		}
		p.freeList.PushBack(i)
	}

	return p
}

// Len returns the number of frames in the pool.
func (p *FramePool) Len() int {
	return len(p.frames)
}

// Frame returns the frame with the given number.
func (p *FramePool) Frame(number int) *Frame {
	return &p.frames[number]
}

// NumFree returns the number of frames on the free list.
func (p *FramePool) NumFree() int {
	return p.freeList.Len()
}

// FreeFrames returns the frame numbers on the free list, in the order they
// will be allocated.
func (p *FramePool) FreeFrames() []int {
	numbers := make([]int, 0, p.freeList.Len())
	for e := p.freeList.Front(); e != nil; e = e.Next() {
		numbers = append(numbers, e.Value.(int))
	}

	return numbers
}

// AllocateFree pops the frame at the front of the free list.
func (p *FramePool) AllocateFree() (*Frame, bool) {
	front := p.freeList.Front()
	if front == nil {
		return nil, false
	}

	p.freeList.Remove(front)

	return &p.frames[front.Value.(int)], true
}

// Bind records that the frame now holds the page of the process.
func (p *FramePool) Bind(f *Frame, pid PID, page int) {
	f.Owner = pid
	f.Page = page
}

// Release clears the owner of the frame and appends it to the free list.
func (p *FramePool) Release(f *Frame) {
	if f.IsFree() {
		panic("releasing a frame that is already free")
	}

	f.Owner = NoOwner
	f.Page = -1
	p.freeList.PushBack(f.Number)
}
