// Package auction runs the live auction: one lot at a time is put on the
// block, teams bid in fixed increments, and the lot is sold or left unsold.
// Every accepted bid and resolution is recorded in the history log, and the
// most recent one can be undone.
package auction

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/history"
	"github.com/jensholdgaard/franchise-auction/internal/ledger"
	"github.com/jensholdgaard/franchise-auction/internal/notify"
	"github.com/jensholdgaard/franchise-auction/internal/reject"
)

const instrumentationName = "github.com/jensholdgaard/franchise-auction/internal/auction"

// DefaultIncrement is added to the top bid to get the next legal bid.
const DefaultIncrement = 500

// Errors returned by auction commands. Each is a reject.Error, so
// errors.Is also matches its reject.Kind.
var (
	ErrLotAlreadySold         = reject.New(reject.InvalidState, "player has already been sold")
	ErrNoAuctionInProgress    = reject.New(reject.InvalidState, "no auction in progress")
	ErrAlreadyTopBidder       = reject.New(reject.AlreadyTopBidder, "team is already the highest bidder")
	ErrInsufficientFunds      = reject.New(reject.InsufficientFunds, "insufficient funds for this bid")
	ErrNoActiveBid            = reject.New(reject.InvalidState, "there must be an active bid to sell a player")
	ErrAuctionStillInProgress = reject.New(reject.InvalidState, "the current player auction is still in progress")
	ErrNothingToUndo          = reject.New(reject.EmptyHistory, "there are no recent actions to undo")
)

// Cursor points at the lot on the block and its current top bid.
// TopBidAmount == 0 means no bid yet.
type Cursor struct {
	ActiveLotID  string `json:"active_lot_id,omitempty"`
	TopBidAmount int    `json:"top_bid_amount"`
	TopBidderID  string `json:"top_bidder_id,omitempty"`
	InProgress   bool   `json:"in_progress"`
}

// Settings tune the auction rules.
type Settings struct {
	Increment int
	Rules     ledger.Rules
	Currency  string
}

// DefaultSettings returns a 500-unit increment, the default rules and rupees.
func DefaultSettings() Settings {
	return Settings{
		Increment: DefaultIncrement,
		Rules:     ledger.DefaultRules(),
		Currency:  "₹",
	}
}

// Engine is the auction state machine. It owns the cursor, the catalog and
// the history log, and applies one command at a time. It is safe for
// concurrent use; commands are serialised.
type Engine struct {
	mu      sync.Mutex
	cursor  Cursor
	ledger  *ledger.Store
	history *history.Log

	settings Settings
	sink     notify.Sink
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *metrics
	clock    clock.Clock
}

// New creates an Engine over a copy of baseline. ResetAuction returns the
// catalog to baseline.
func New(baseline ledger.Catalog, settings Settings, sink notify.Sink, logger *slog.Logger, tp trace.TracerProvider, mp metric.MeterProvider, clk clock.Clock) (*Engine, error) {
	if settings.Increment <= 0 {
		settings.Increment = DefaultIncrement
	}
	m, err := newMetrics(mp)
	if err != nil {
		return nil, fmt.Errorf("creating auction metrics: %w", err)
	}
	if sink == nil {
		sink = notify.Discard
	}

	store := ledger.NewStore(baseline, settings.Rules)
	return &Engine{
		ledger:   store,
		history:  history.New(store, clk),
		settings: settings,
		sink:     sink,
		logger:   logger,
		tracer:   tp.Tracer(instrumentationName),
		metrics:  m,
		clock:    clk,
	}, nil
}

// StartAuction puts a lot on the block with no bids. Starting while another
// lot is on the block replaces it.
func (e *Engine) StartAuction(ctx context.Context, lotID string) error {
	return e.run(ctx, "Engine.StartAuction", "start", func(ctx context.Context) (notify.Notice, error) {
		lot, ok := e.ledger.Lot(lotID)
		if !ok {
			err := reject.Newf(reject.NotFound, "player %q not found", lotID)
			return rejected("Cannot Auction Player", err.Error(), err)
		}
		if lot.Sold {
			return rejected("Cannot Auction Player", lot.Name+" has already been sold", ErrLotAlreadySold)
		}

		e.cursor = Cursor{ActiveLotID: lotID, InProgress: true}

		e.logger.InfoContext(ctx, "auction started",
			slog.String("lot_id", lotID),
			slog.String("lot", lot.Name),
			slog.Int("floor_price", lot.FloorPrice),
		)
		return notice("Auction Started", notify.Info,
			"%s is now up for auction at a base price of %s", lot.Name, e.money(lot.FloorPrice)), nil
	}, attribute.String("lot.id", lotID))
}

// PlaceBid bids for the lot on the block on behalf of bidderID and returns
// the amount. The first bid is the lot's floor price; every later bid adds
// the increment to the top bid. No funds move until the lot is sold.
func (e *Engine) PlaceBid(ctx context.Context, bidderID string) (int, error) {
	var amount int
	err := e.run(ctx, "Engine.PlaceBid", "bid", func(ctx context.Context) (notify.Notice, error) {
		if !e.cursor.InProgress {
			return rejected("Cannot Place Bid", "Start an auction before bidding.", ErrNoAuctionInProgress)
		}
		lot, ok := e.ledger.Lot(e.cursor.ActiveLotID)
		if !ok {
			err := reject.Newf(reject.NotFound, "player %q not found", e.cursor.ActiveLotID)
			return rejected("Cannot Place Bid", err.Error(), err)
		}
		bidder, ok := e.ledger.Bidder(bidderID)
		if !ok {
			err := reject.Newf(reject.NotFound, "team %q not found", bidderID)
			return rejected("Cannot Place Bid", err.Error(), err)
		}

		next := e.nextBid(lot)
		if e.cursor.TopBidderID == bidderID {
			return rejected("Already Highest Bidder", bidder.Name+" is already the highest bidder.", ErrAlreadyTopBidder)
		}
		if bidder.RemainingBudget < next {
			return rejected("Insufficient Funds", bidder.Name+" doesn't have enough funds to place this bid.", ErrInsufficientFunds)
		}

		e.cursor.TopBidAmount = next
		e.cursor.TopBidderID = bidderID
		e.history.Append(history.Event{
			LotID:    lot.ID,
			Action:   history.Bid,
			BidderID: bidderID,
			Amount:   next,
		})
		amount = next

		e.metrics.bids.Add(ctx, 1)
		e.logger.InfoContext(ctx, "bid placed",
			slog.String("lot_id", lot.ID),
			slog.String("bidder_id", bidderID),
			slog.Int("amount", next),
		)
		return notice("New Bid", notify.Info,
			"%s bids %s for %s", bidder.Name, e.money(next), lot.Name), nil
	}, attribute.String("bidder.id", bidderID))
	if err != nil {
		return 0, err
	}
	return amount, nil
}

// SellPlayer sells the lot on the block to the top bidder at the top bid and
// returns the recorded sale event.
func (e *Engine) SellPlayer(ctx context.Context) (history.Event, error) {
	var sold history.Event
	err := e.run(ctx, "Engine.SellPlayer", "sell", func(ctx context.Context) (notify.Notice, error) {
		if !e.cursor.InProgress || e.cursor.TopBidderID == "" {
			return rejected("Cannot Sell Player", "There must be an active bid to sell a player.", ErrNoActiveBid)
		}
		c := e.cursor
		if err := e.ledger.SellLot(c.ActiveLotID, c.TopBidderID, c.TopBidAmount); err != nil {
			return rejected("Cannot Sell Player", err.Error(), err)
		}

		e.cursor = Cursor{}
		sold = e.history.Append(history.Event{
			LotID:    c.ActiveLotID,
			Action:   history.Sold,
			BidderID: c.TopBidderID,
			Amount:   c.TopBidAmount,
		})

		e.metrics.sales.Record(ctx, int64(c.TopBidAmount))
		e.logger.InfoContext(ctx, "player sold",
			slog.String("lot_id", c.ActiveLotID),
			slog.String("bidder_id", c.TopBidderID),
			slog.Int("amount", c.TopBidAmount),
		)
		return notice("Player Sold", notify.Success,
			"%s sold to %s for %s", sold.LotName, sold.BidderName, e.money(sold.Amount)), nil
	})
	return sold, err
}

// MarkUnsold closes the lot on the block without a sale.
func (e *Engine) MarkUnsold(ctx context.Context) error {
	return e.run(ctx, "Engine.MarkUnsold", "unsold", func(ctx context.Context) (notify.Notice, error) {
		if !e.cursor.InProgress {
			return rejected("Cannot Mark Unsold", "There is no player on the block.", ErrNoAuctionInProgress)
		}
		lotID := e.cursor.ActiveLotID
		if err := e.ledger.ClearSale(lotID); err != nil {
			return rejected("Cannot Mark Unsold", err.Error(), err)
		}

		e.cursor = Cursor{}
		ev := e.history.Append(history.Event{LotID: lotID, Action: history.Unsold})

		e.logger.InfoContext(ctx, "player unsold", slog.String("lot_id", lotID))
		return notice("Player Unsold", notify.Info, "%s has been marked as unsold", ev.LotName), nil
	})
}

// NextPlayer clears the cursor once the current lot is resolved.
func (e *Engine) NextPlayer(ctx context.Context) error {
	return e.run(ctx, "Engine.NextPlayer", "next", func(context.Context) (notify.Notice, error) {
		if e.cursor.InProgress {
			return rejected("Finish Current Auction",
				"Please complete or cancel the current player auction first.", ErrAuctionStillInProgress)
		}
		e.cursor = Cursor{}
		return notice("Ready for Next Player", notify.Info, "Select the next player to auction"), nil
	})
}

// ResetAuction restores the baseline catalog and clears the cursor and the
// history. It cannot be undone.
func (e *Engine) ResetAuction(ctx context.Context) error {
	return e.run(ctx, "Engine.ResetAuction", "reset", func(ctx context.Context) (notify.Notice, error) {
		e.ledger.Restore()
		e.history.Clear()
		e.cursor = Cursor{}

		e.logger.WarnContext(ctx, "auction reset")
		return notice("Auction Reset", notify.Info, "The auction has been completely reset."), nil
	})
}

// View is a consistent picture of the block: the cursor with the lot and
// top bidder it points at and the next legal bid.
type View struct {
	Cursor     Cursor      `json:"cursor"`
	CurrentLot *ledger.Lot `json:"current_lot,omitempty"`
	TopBidder  string      `json:"top_bidder,omitempty"`
	NextBid    int         `json:"next_bid"`
}

// View returns the block as of a single instant.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := View{Cursor: e.cursor}
	if e.cursor.ActiveLotID != "" {
		if lot, ok := e.ledger.Lot(e.cursor.ActiveLotID); ok {
			v.CurrentLot = &lot
			if e.cursor.InProgress {
				v.NextBid = e.nextBid(lot)
			}
		}
	}
	if e.cursor.TopBidderID != "" {
		if b, ok := e.ledger.Bidder(e.cursor.TopBidderID); ok {
			v.TopBidder = b.Name
		}
	}
	return v
}

// Cursor returns the current cursor.
func (e *Engine) Cursor() Cursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// CurrentLot resolves the cursor's active lot.
func (e *Engine) CurrentLot() (ledger.Lot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cursor.ActiveLotID == "" {
		return ledger.Lot{}, false
	}
	return e.ledger.Lot(e.cursor.ActiveLotID)
}

// NextBid returns the amount the next accepted bid would have, or 0 when no
// lot is on the block.
func (e *Engine) NextBid() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.cursor.InProgress {
		return 0
	}
	lot, ok := e.ledger.Lot(e.cursor.ActiveLotID)
	if !ok {
		return 0
	}
	return e.nextBid(lot)
}

// Lots returns every lot in catalog order.
func (e *Engine) Lots() []ledger.Lot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Lots()
}

// Bidders returns every bidder in catalog order.
func (e *Engine) Bidders() []ledger.Bidder {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Bidders()
}

// History yields the history newest first, as of the call.
func (e *Engine) History() iter.Seq[history.Event] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Values(e.history.Snapshot())
}

// Settings returns the engine's rules.
func (e *Engine) Settings() Settings { return e.settings }

func (e *Engine) nextBid(lot ledger.Lot) int {
	if e.cursor.TopBidAmount == 0 {
		return lot.FloorPrice
	}
	return e.cursor.TopBidAmount + e.settings.Increment
}

func (e *Engine) pin() ledger.Pin {
	return ledger.Pin{
		LotID:      e.cursor.ActiveLotID,
		BidderID:   e.cursor.TopBidderID,
		InProgress: e.cursor.InProgress,
	}
}

func (e *Engine) money(amount int) string {
	return fmt.Sprintf("%s%d", e.settings.Currency, amount)
}

// run applies fn under the engine lock, then records the outcome and emits
// the notice outside the lock.
func (e *Engine) run(ctx context.Context, spanName, intent string, fn func(ctx context.Context) (notify.Notice, error), attrs ...attribute.KeyValue) error {
	ctx, span := e.tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
	defer span.End()

	e.mu.Lock()
	n, err := fn(ctx)
	e.mu.Unlock()

	outcome := "accepted"
	if err != nil {
		kind, _ := reject.KindOf(err)
		outcome = string(kind)
		span.SetAttributes(attribute.String("auction.rejection", outcome))
		e.logger.InfoContext(ctx, "command rejected",
			slog.String("intent", intent),
			slog.String("reason", err.Error()),
		)
	}
	e.metrics.intents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("intent", intent),
		attribute.String("outcome", outcome),
	))

	n.Intent = intent
	n.At = e.clock.Now().UTC()
	e.sink.Notify(ctx, n)
	return err
}

func notice(title string, sev notify.Severity, format string, args ...any) notify.Notice {
	return notify.Notice{Title: title, Description: fmt.Sprintf(format, args...), Severity: sev}
}

func rejected(title, description string, err error) (notify.Notice, error) {
	return notify.Notice{Title: title, Description: description, Severity: notify.Error}, err
}
