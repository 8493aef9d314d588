// Package history records what happened during the auction: every accepted
// bid, sale and unsold resolution, newest first. The log's head is what an
// undo reverts.
package history

import (
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/jensholdgaard/franchise-auction/internal/clock"
)

// Action identifies an event kind.
type Action string

const (
	Bid    Action = "bid"
	Sold   Action = "sold"
	Unsold Action = "unsold"
)

// Fallback names used when the head cannot be resolved.
const (
	UnknownLot    = "Unknown Player"
	UnknownBidder = "Unknown Team"
)

// Event is a single immutable history record. LotName and BidderName are
// point-in-time snapshots. BidderID and Amount are empty for unsold events.
type Event struct {
	ID         string    `json:"id"`
	LotID      string    `json:"lot_id"`
	LotName    string    `json:"lot_name"`
	Action     Action    `json:"action"`
	BidderID   string    `json:"bidder_id,omitempty"`
	BidderName string    `json:"bidder_name,omitempty"`
	Amount     int       `json:"amount,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Namer resolves display names for the head backfill.
type Namer interface {
	LotName(id string) (string, bool)
	BidderName(id string) (string, bool)
}

// Log is the append-at-head event sequence. It is not safe for concurrent
// use.
type Log struct {
	// events is stored oldest first; the head is the last element.
	events []Event
	namer  Namer
	clock  clock.Clock
}

// New returns an empty Log. namer may be nil, in which case unresolved names
// fall back to UnknownLot / UnknownBidder.
func New(namer Namer, clk clock.Clock) *Log {
	return &Log{namer: namer, clock: clk}
}

// Append records e as the new head and returns it as stored. A missing ID or
// timestamp is filled in, and timestamps never go backwards.
func (l *Log) Append(e Event) Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.clock.Now().UTC()
	}
	if head, ok := l.Head(); ok && e.CreatedAt.Before(head.CreatedAt) {
		e.CreatedAt = head.CreatedAt
	}
	l.events = append(l.events, e)
	l.backfillHead()
	return l.events[len(l.events)-1]
}

// backfillHead fills missing names on the head entry and nowhere else.
func (l *Log) backfillHead() {
	head := &l.events[len(l.events)-1]
	if head.LotName != "" && (head.BidderID == "" || head.BidderName != "") {
		return
	}
	if head.LotName == "" {
		head.LotName = l.resolve(head.LotID, l.lotName, UnknownLot)
	}
	if head.BidderID != "" && head.BidderName == "" {
		head.BidderName = l.resolve(head.BidderID, l.bidderName, UnknownBidder)
	}
}

func (l *Log) resolve(id string, lookup func(string) (string, bool), fallback string) string {
	if l.namer == nil {
		return fallback
	}
	if name, ok := lookup(id); ok && name != "" {
		return name
	}
	return fallback
}

func (l *Log) lotName(id string) (string, bool)    { return l.namer.LotName(id) }
func (l *Log) bidderName(id string) (string, bool) { return l.namer.BidderName(id) }

// Head returns the most recent event.
func (l *Log) Head() (Event, bool) {
	if len(l.events) == 0 {
		return Event{}, false
	}
	return l.events[len(l.events)-1], true
}

// Pop removes and returns the most recent event.
func (l *Log) Pop() (Event, bool) {
	e, ok := l.Head()
	if ok {
		l.events = l.events[:len(l.events)-1]
	}
	return e, ok
}

// Len returns the number of events.
func (l *Log) Len() int { return len(l.events) }

// Clear drops every event.
func (l *Log) Clear() { l.events = nil }

// All yields events newest first. Each range over the sequence starts again
// from the head.
func (l *Log) All() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for i := len(l.events) - 1; i >= 0; i-- {
			if !yield(l.events[i]) {
				return
			}
		}
	}
}

// LastBid returns the newest bid event on lotID that keep accepts. A nil
// keep accepts every bid.
func (l *Log) LastBid(lotID string, keep func(Event) bool) (Event, bool) {
	for e := range l.All() {
		if e.LotID == lotID && e.Action == Bid && (keep == nil || keep(e)) {
			return e, true
		}
	}
	return Event{}, false
}

// Snapshot returns a copy of the events, newest first.
func (l *Log) Snapshot() []Event {
	out := make([]Event, 0, len(l.events))
	for e := range l.All() {
		out = append(out, e)
	}
	return out
}
