package store

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/config"
)

// Repositories is what a store driver hands back from Open.
type Repositories struct {
	Journal JournalRepository
	// Closer releases the driver's connection, if any.
	Closer io.Closer
	// Ping reports whether the journal backend is reachable. It backs the
	// readiness probe.
	Ping func(ctx context.Context) error
}

// Driver opens a journal backend for cfg.
type Driver func(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*Repositories, error)

var (
	driversMu sync.RWMutex
	drivers   = map[string]Driver{}
)

// Register makes a driver available under name. Driver packages call it
// from init. It panics if name is taken or d is nil.
func Register(name string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if d == nil {
		panic("store: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("store: Register called twice for driver " + name)
	}
	drivers[name] = d
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Open opens the journal backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*Repositories, error) {
	driversMu.RLock()
	d, ok := drivers[cfg.Driver]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown store driver %q (registered: %v)", cfg.Driver, Drivers())
	}
	repos, err := d(ctx, cfg, clk)
	if err != nil {
		return nil, fmt.Errorf("store driver %s: %w", cfg.Driver, err)
	}
	return repos, nil
}

// NopCloser is an io.Closer with nothing to release.
type NopCloser struct{}

// Close does nothing.
func (NopCloser) Close() error { return nil }
