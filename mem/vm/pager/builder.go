package pager

import (
	"fmt"

	"github.com/sarchlab/vmsim/sim"
)

// DefaultTau is the working-set window. A frame not used for more than Tau
// instructions is outside the working set.
const DefaultTau sim.VTime = 49

// DefaultResetInterval is the number of instructions after which the
// enhanced second chance pager clears all reference bits during a scan.
const DefaultResetInterval sim.VTime = 47

// A RandomSource returns numbers in [1, bound].
type RandomSource interface {
	Next(bound int) int
}

// A Builder can build pagers.
type Builder struct {
	kind          Kind
	tau           sim.VTime
	resetInterval sim.VTime
	random        RandomSource
}

// MakeBuilder creates a builder with the default parameters and the FIFO
// policy.
func MakeBuilder() Builder {
	return Builder{
		kind:          FIFO,
		tau:           DefaultTau,
		resetInterval: DefaultResetInterval,
	}
}

// WithKind sets the replacement policy to build.
func (b Builder) WithKind(kind Kind) Builder {
	b.kind = kind
	return b
}

// WithTau sets the working-set window.
func (b Builder) WithTau(tau sim.VTime) Builder {
	b.tau = tau
	return b
}

// WithResetInterval sets how often the enhanced second chance pager clears
// the reference bits.
func (b Builder) WithResetInterval(interval sim.VTime) Builder {
	b.resetInterval = interval
	return b
}

// WithRandomSource sets where the random pager gets its numbers from.
func (b Builder) WithRandomSource(r RandomSource) Builder {
	b.random = r
	return b
}

// Kind returns the replacement policy the builder builds.
func (b Builder) Kind() Kind {
	return b.kind
}

// Build creates the pager.
func (b Builder) Build(name string) Pager {
	switch b.kind {
	case FIFO:
		return &fifoPager{pagerBase: newPagerBase(name, FIFO)}
	case Random:
		if b.random == nil {
			panic("random pager requires a random source")
		}

		return &randomPager{
			pagerBase: newPagerBase(name, Random),
			random:    b.random,
		}
	case Clock:
		return &clockPager{pagerBase: newPagerBase(name, Clock)}
	case ESC:
		return &escPager{
			pagerBase: newPagerBase(name, ESC),
			interval:  b.resetInterval,
		}
	case Aging:
		return &agingPager{pagerBase: newPagerBase(name, Aging)}
	case WorkingSet:
		return &workingSetPager{
			pagerBase: newPagerBase(name, WorkingSet),
			tau:       b.tau,
		}
	default:
		panic(fmt.Sprintf("%v: %v", ErrUnknownKind, b.kind))
	}
}
