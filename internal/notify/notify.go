// Package notify carries human-readable outcome notices from the auction
// engine to whatever displays them. Notices are informational; correctness
// never depends on them.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Severity grades a notice.
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Error   Severity = "error"
)

// Notice is one outcome message.
type Notice struct {
	Intent      string    `json:"intent" db:"intent"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Severity    Severity  `json:"severity" db:"severity"`
	At          time.Time `json:"at" db:"created_at"`
}

// Sink receives notices.
type Sink interface {
	Notify(ctx context.Context, n Notice)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notice)

// Notify calls f.
func (f SinkFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// Discard drops every notice.
var Discard Sink = SinkFunc(func(context.Context, Notice) {})

// Multi fans a notice out to every sink in order.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, n Notice) {
		for _, s := range sinks {
			s.Notify(ctx, n)
		}
	})
}

// LogSink writes notices to a structured logger. Error notices are logged at
// warn level: they are rejected commands, not system faults.
type LogSink struct {
	Logger *slog.Logger
}

// Notify logs n.
func (s LogSink) Notify(ctx context.Context, n Notice) {
	level := slog.LevelInfo
	if n.Severity == Error {
		level = slog.LevelWarn
	}
	s.Logger.Log(ctx, level, n.Title,
		slog.String("intent", n.Intent),
		slog.String("description", n.Description),
		slog.String("severity", string(n.Severity)),
	)
}

// Recorder keeps every notice in memory. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify records n.
func (r *Recorder) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of the recorded notices, oldest first.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Last returns the most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}
