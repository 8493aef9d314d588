package clock

import (
	"sync"
	"time"
)

// Clock abstracts time operations for testability.
type Clock interface {
	Now() time.Time
}

// Real is a Clock backed by the system clock.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time { return time.Now() }

// Mock is a Clock that always returns a fixed time.
type Mock struct {
	T time.Time
}

// Now returns the fixed time.
func (m Mock) Now() time.Time { return m.T }

// Sequence returns its times in order and then repeats the last one.
// It is safe for concurrent use.
type Sequence struct {
	mu    sync.Mutex
	times []time.Time
	next  int
}

// NewSequence returns a Sequence over ts.
func NewSequence(ts ...time.Time) *Sequence {
	return &Sequence{times: ts}
}

// Now returns the next time in the sequence.
func (s *Sequence) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.times) == 0 {
		return time.Time{}
	}
	if s.next >= len(s.times) {
		return s.times[len(s.times)-1]
	}
	t := s.times[s.next]
	s.next++
	return t
}
