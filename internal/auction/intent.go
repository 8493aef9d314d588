package auction

import (
	"context"
	"fmt"
)

// Intent is a request to move the auction. The set of intents is closed:
// Start, Bid, Sell, Unsold, Next, Undo and Reset.
type Intent interface {
	// Name is the intent's label in notices and metrics.
	Name() string
	intent()
}

// Start puts a lot on the block.
type Start struct{ LotID string }

// Bid bids for the lot on the block.
type Bid struct{ BidderID string }

// Sell sells the lot on the block to the top bidder.
type Sell struct{}

// Unsold closes the lot on the block without a sale.
type Unsold struct{}

// Next clears the cursor after a resolution.
type Next struct{}

// Undo reverts the most recent history event.
type Undo struct{}

// Reset restores the baseline catalog.
type Reset struct{}

func (Start) Name() string  { return "start" }
func (Bid) Name() string    { return "bid" }
func (Sell) Name() string   { return "sell" }
func (Unsold) Name() string { return "unsold" }
func (Next) Name() string   { return "next" }
func (Undo) Name() string   { return "undo" }
func (Reset) Name() string  { return "reset" }

func (Start) intent()  {}
func (Bid) intent()    {}
func (Sell) intent()   {}
func (Unsold) intent() {}
func (Next) intent()   {}
func (Undo) intent()   {}
func (Reset) intent()  {}

// ParseIntent builds an intent from its name and optional target id, as
// used by the HTTP and chat front-ends.
func ParseIntent(name, target string) (Intent, error) {
	switch name {
	case "start":
		return Start{LotID: target}, nil
	case "bid":
		return Bid{BidderID: target}, nil
	case "sell":
		return Sell{}, nil
	case "unsold":
		return Unsold{}, nil
	case "next":
		return Next{}, nil
	case "undo":
		return Undo{}, nil
	case "reset":
		return Reset{}, nil
	}
	return nil, fmt.Errorf("unknown intent %q", name)
}

// Dispatch applies a single intent.
func (e *Engine) Dispatch(ctx context.Context, in Intent) error {
	switch in := in.(type) {
	case Start:
		return e.StartAuction(ctx, in.LotID)
	case Bid:
		_, err := e.PlaceBid(ctx, in.BidderID)
		return err
	case Sell:
		_, err := e.SellPlayer(ctx)
		return err
	case Unsold:
		return e.MarkUnsold(ctx)
	case Next:
		return e.NextPlayer(ctx)
	case Undo:
		_, err := e.UndoLastAction(ctx)
		return err
	case Reset:
		return e.ResetAuction(ctx)
	}
	return fmt.Errorf("unhandled intent %T", in)
}
