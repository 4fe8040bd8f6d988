// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sequencer discards responses that arrive after a newer one was
// already applied.
package sequencer

// Sequencer tracks the highest accepted server sequence number.
// It is not safe for concurrent use.
type Sequencer struct {
	last int64
}

// New returns a sequencer that has accepted nothing yet.
func New() *Sequencer { return &Sequencer{last: -1} }

// Accept reports whether a response carrying seq should be applied.
// Responses without a sequence number are always accepted. A sequence
// number strictly lower than the last accepted one is rejected and leaves
// the sequencer unchanged.
func (s *Sequencer) Accept(seq *int64) bool {
	if seq == nil {
		return true
	}
	if *seq < s.last {
		return false
	}
	s.last = *seq
	return true
}

// Last returns the highest accepted sequence number, or -1.
func (s *Sequencer) Last() int64 { return s.last }
