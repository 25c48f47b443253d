// Package pager implements the page replacement policies that pick a victim
// frame when the frame pool has no free frame left.
package pager

import (
	"errors"
	"fmt"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/sim"
)

// Kind identifies a replacement policy. The values are the letters used on
// the command line.
type Kind byte

// The supported replacement policies.
const (
	FIFO       Kind = 'f'
	Random     Kind = 'r'
	Clock      Kind = 'c'
	ESC        Kind = 'e'
	Aging      Kind = 'a'
	WorkingSet Kind = 'w'
)

// ErrUnknownKind is returned for a policy letter that names no policy.
var ErrUnknownKind = errors.New("unknown replacement policy")

// ParseKind converts a policy letter into a Kind.
func ParseKind(s string) (Kind, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}

	k := Kind(s[0])
	switch k {
	case FIFO, Random, Clock, ESC, Aging, WorkingSet:
		return k, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

func (k Kind) String() string {
	switch k {
	case FIFO:
		return "FIFO"
	case Random:
		return "Random"
	case Clock:
		return "Clock"
	case ESC:
		return "ESC"
	case Aging:
		return "Aging"
	case WorkingSet:
		return "WorkingSet"
	default:
		return fmt.Sprintf("Kind(%d)", byte(k))
	}
}

// A Pager is a replacement policy. FindVictim is only called when every
// frame is owned. The returned frame still belongs to its old page.
type Pager interface {
	sim.Named
	sim.Hookable
	vm.VictimFinder

	// Kind tells which policy the pager implements.
	Kind() Kind

	// Hand returns the frame number the next scan starts from.
	Hand() int

	// Refresh resets the replacement bookkeeping of a frame that has just
	// been given a new page.
	Refresh(f *vm.Frame, now sim.VTime)
}

// HookPosFrameInspected is triggered for every frame that the aging and the
// working-set pagers look at during a scan. The item is a FrameInspection.
var HookPosFrameInspected = &sim.HookPos{Name: "FrameInspected"}

// A FrameInspection describes one frame as seen by a scan. Referenced is the
// reference bit before the scan touched it.
type FrameInspection struct {
	Policy        Kind
	Frame         int
	Owner         vm.PID
	Page          int
	Referenced    bool
	Age           uint32
	TimeOfLastUse sim.VTime
	Elapsed       sim.VTime
}

type pagerBase struct {
	*sim.HookableBase

	name string
	kind Kind
	hand int
}

func newPagerBase(name string, kind Kind) pagerBase {
	return pagerBase{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		kind:         kind,
	}
}

func (b *pagerBase) Name() string {
	return b.name
}

func (b *pagerBase) Kind() Kind {
	return b.kind
}

func (b *pagerBase) Hand() int {
	return b.hand
}

func (b *pagerBase) Refresh(f *vm.Frame, now sim.VTime) {
	f.TimeOfLastUse = now
	f.Age = 0
}

// advance moves the hand one frame forward, wrapping around the table.
func (b *pagerBase) advance(numFrames int) {
	b.hand = (b.hand + 1) % numFrames
}

// resumeAfter puts the hand right after the given frame.
func (b *pagerBase) resumeAfter(frame, numFrames int) {
	b.hand = (frame + 1) % numFrames
}

func (b *pagerBase) inspected(domain sim.Hookable, detail FrameInspection) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(sim.HookCtx{
		Domain: domain,
		Pos:    HookPosFrameInspected,
		Item:   detail,
	})
}

func mustHaveFrames(mem *vm.Memory) int {
	n := mem.Frames.Len()
	if n == 0 {
		panic("no frame to pick a victim from")
	}

	return n
}
