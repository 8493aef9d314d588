package auction

import (
	"context"
	"log/slog"

	"github.com/jensholdgaard/franchise-auction/internal/history"
	"github.com/jensholdgaard/franchise-auction/internal/notify"
)

// UndoLastAction reverts the head of the history log and returns the
// reverted event. Only the head can be undone and there is no redo.
//
// Reverting a bid restores the previous bid on the same lot by a team that
// still exists, or no bid.
// Reverting a sale refunds the bidder, takes the lot off its roster and
// clears the lot's sale fields. Reverting a sale or an unsold resolution
// puts the lot back on the block with no bid: the auction for that lot
// restarts from its floor price, and undoing further walks back through its
// earlier bids.
func (e *Engine) UndoLastAction(ctx context.Context) (history.Event, error) {
	var reverted history.Event
	err := e.run(ctx, "Engine.UndoLastAction", "undo", func(ctx context.Context) (notify.Notice, error) {
		head, ok := e.history.Head()
		if !ok {
			return rejected("Nothing to Undo", "There are no recent actions to undo.", ErrNothingToUndo)
		}

		// The ledger reversal is the only step that can fail, so it runs
		// before the head is popped.
		if head.Action == history.Sold {
			if err := e.ledger.RevertSale(head.LotID, head.BidderID, head.Amount); err != nil {
				return rejected("Cannot Undo", err.Error(), err)
			}
		}
		e.history.Pop()

		switch head.Action {
		case history.Bid:
			e.cursor.TopBidAmount, e.cursor.TopBidderID = 0, ""
			if prev, ok := e.history.LastBid(head.LotID, e.bidderExists); ok {
				e.cursor.TopBidAmount, e.cursor.TopBidderID = prev.Amount, prev.BidderID
			}
		case history.Sold, history.Unsold:
			e.cursor = Cursor{ActiveLotID: head.LotID, InProgress: true}
		}
		reverted = head

		e.logger.InfoContext(ctx, "action undone",
			slog.String("action", string(head.Action)),
			slog.String("lot_id", head.LotID),
			slog.String("bidder_id", head.BidderID),
			slog.Int("amount", head.Amount),
		)
		return notice("Action Undone", notify.Info, "The last action has been reversed: %s", describe(head)), nil
	})
	return reverted, err
}

func (e *Engine) bidderExists(ev history.Event) bool {
	_, ok := e.ledger.Bidder(ev.BidderID)
	return ok
}

func describe(ev history.Event) string {
	switch ev.Action {
	case history.Bid:
		return ev.BidderName + " bid on " + ev.LotName
	case history.Sold:
		return ev.LotName + " sold to " + ev.BidderName
	default:
		return ev.LotName + " marked unsold"
	}
}
