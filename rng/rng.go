// Package rng provides the deterministic random number stream used by the
// simulator. The numbers come from a pre-loaded file so that two runs over
// the same input make exactly the same random choices.
package rng

import (
	"errors"
	"fmt"
)

// ErrEmptySequence is returned when a sequence is built with no values.
var ErrEmptySequence = errors.New("rng: random sequence is empty")

// A Sequence hands out values from a fixed list of non-negative integers,
// wrapping around at the end of the list.
type Sequence struct {
	values []int
	cursor int
}

// NewSequence creates a Sequence over a copy of values.
func NewSequence(values []int) (*Sequence, error) {
	if len(values) == 0 {
		return nil, ErrEmptySequence
	}

	for i, v := range values {
		if v < 0 {
			return nil, fmt.Errorf("rng: value %d at position %d is negative", v, i)
		}
	}

	s := &Sequence{
		values: make([]int, len(values)),
	}
	copy(s.values, values)

	return s, nil
}

// Next returns a number in [1, bound] and advances the cursor by one.
//
// Next panics if the sequence was never loaded or bound is not positive.
// Both mean the simulator was wired incorrectly.
func (s *Sequence) Next(bound int) int {
	if s == nil || len(s.values) == 0 {
		panic(ErrEmptySequence)
	}

	if bound <= 0 {
		panic(fmt.Sprintf("rng: bound must be positive, got %d", bound))
	}

	v := 1 + s.values[s.cursor]%bound
	s.cursor = (s.cursor + 1) % len(s.values)

	return v
}

// Cursor returns the position of the value the next call will consume.
func (s *Sequence) Cursor() int {
	return s.cursor
}

// Len returns the number of values in the sequence.
func (s *Sequence) Len() int {
	return len(s.values)
}
