// Package memstore provides the "memory" store driver, a bounded in-process
// journal for single-instance runs and tests.
package memstore

import (
	"context"
	"sync"

	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/config"
	"github.com/jensholdgaard/franchise-auction/internal/notify"
	"github.com/jensholdgaard/franchise-auction/internal/store"
)

// DefaultCapacity is how many notices the journal keeps.
const DefaultCapacity = 1000

func init() {
	store.Register("memory", open)
}

func open(_ context.Context, _ config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	return &store.Repositories{
		Journal: NewJournal(DefaultCapacity, clk),
		Closer:  store.NopCloser{},
		Ping:    func(context.Context) error { return nil },
	}, nil
}

// Journal keeps the most recent notices in memory, dropping the oldest once
// full.
type Journal struct {
	mu       sync.Mutex
	notices  []notify.Notice
	capacity int
	clock    clock.Clock
}

// NewJournal returns a Journal holding at most capacity notices.
func NewJournal(capacity int, clk clock.Clock) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Journal{capacity: capacity, clock: clk}
}

// Record appends n, stamping it with the clock when it has no time.
func (j *Journal) Record(_ context.Context, n notify.Notice) error {
	if n.At.IsZero() {
		n.At = j.clock.Now().UTC()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.notices) == j.capacity {
		copy(j.notices, j.notices[1:])
		j.notices = j.notices[:len(j.notices)-1]
	}
	j.notices = append(j.notices, n)
	return nil
}

// Recent returns up to limit notices, newest first. A non-positive limit
// returns all of them.
func (j *Journal) Recent(_ context.Context, limit int) ([]notify.Notice, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if limit <= 0 || limit > len(j.notices) {
		limit = len(j.notices)
	}
	out := make([]notify.Notice, 0, limit)
	for i := len(j.notices) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, j.notices[i])
	}
	return out, nil
}
