package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/sim"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// MoveInProgressToFinished reduces the number of in progress item by a certain
// amount and increase the finished item by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}

type progressBarRsp struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

func (b *ProgressBar) snapshot() progressBarRsp {
	b.Lock()
	defer b.Unlock()

	return progressBarRsp{
		ID:         b.ID,
		Name:       b.Name,
		StartTime:  b.StartTime,
		Total:      b.Total,
		Finished:   b.Finished,
		InProgress: b.InProgress,
	}
}

// An InstructionProgress moves a progress bar forward every time the MMU
// finishes an instruction.
type InstructionProgress struct {
	bar *ProgressBar
}

// TrackInstructions creates a progress bar for a run of total instructions
// and keeps it updated. A total of 0 means the length is unknown.
func (m *Monitor) TrackInstructions(
	c *mmu.Comp,
	total uint64,
) *InstructionProgress {
	p := &InstructionProgress{
		bar: m.CreateProgressBar(c.Name(), total),
	}

	c.AcceptHook(p)

	return p
}

// Func marks an instruction in progress when it starts and finished when it
// ends.
func (p *InstructionProgress) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case mmu.HookPosInstructionStart:
		p.bar.IncrementInProgress(1)
	case mmu.HookPosInstructionEnd:
		p.bar.MoveInProgressToFinished(1)
	}
}

// Bar returns the progress bar being updated.
func (p *InstructionProgress) Bar() *ProgressBar {
	return p.bar
}
