package auction

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jensholdgaard/franchise-auction/internal/history"
	"github.com/jensholdgaard/franchise-auction/internal/ledger"
	"github.com/jensholdgaard/franchise-auction/internal/notify"
	"github.com/jensholdgaard/franchise-auction/internal/reject"
)

// Catalog management. The ledger store enforces the guards against the
// current cursor. DeleteBidder also checks the history so undo never brings
// back a deleted team as top bidder.

// AddLot adds a player to the catalog.
func (e *Engine) AddLot(ctx context.Context, l ledger.Lot) (ledger.Lot, error) {
	var added ledger.Lot
	err := e.run(ctx, "Engine.AddLot", "add_lot", func(ctx context.Context) (notify.Notice, error) {
		got, err := e.ledger.AddLot(l)
		if err != nil {
			return rejected("Cannot Add Player", err.Error(), err)
		}
		added = got
		e.logger.InfoContext(ctx, "player added", slog.String("lot_id", got.ID), slog.String("lot", got.Name))
		return notice("Player Added", notify.Success, "%s has been added", got.Name), nil
	}, attribute.String("lot.id", l.ID))
	return added, err
}

// UpdateLot edits a player that is not on the block.
func (e *Engine) UpdateLot(ctx context.Context, l ledger.Lot) (ledger.Lot, error) {
	var updated ledger.Lot
	err := e.run(ctx, "Engine.UpdateLot", "update_lot", func(ctx context.Context) (notify.Notice, error) {
		got, err := e.ledger.UpdateLot(l, e.pin())
		if err != nil {
			return rejected("Cannot Update Player", err.Error(), err)
		}
		updated = got
		e.logger.InfoContext(ctx, "player updated", slog.String("lot_id", got.ID))
		return notice("Player Updated", notify.Success, "%s has been updated", got.Name), nil
	}, attribute.String("lot.id", l.ID))
	return updated, err
}

// DeleteLot removes an unsold player that is not on the block.
func (e *Engine) DeleteLot(ctx context.Context, id string) error {
	return e.run(ctx, "Engine.DeleteLot", "delete_lot", func(ctx context.Context) (notify.Notice, error) {
		if err := e.ledger.DeleteLot(id, e.pin()); err != nil {
			return rejected("Cannot Delete Player", err.Error(), err)
		}
		e.logger.InfoContext(ctx, "player deleted", slog.String("lot_id", id))
		return notice("Player Deleted", notify.Success, "Player %s has been removed", id), nil
	}, attribute.String("lot.id", id))
}

// AddBidder adds a team with a full purse.
func (e *Engine) AddBidder(ctx context.Context, b ledger.Bidder) (ledger.Bidder, error) {
	var added ledger.Bidder
	err := e.run(ctx, "Engine.AddBidder", "add_bidder", func(ctx context.Context) (notify.Notice, error) {
		got, err := e.ledger.AddBidder(b)
		if err != nil {
			return rejected("Cannot Add Team", err.Error(), err)
		}
		added = got
		e.logger.InfoContext(ctx, "team added", slog.String("bidder_id", got.ID), slog.Int("budget", got.InitialBudget))
		return notice("Team Added", notify.Success, "%s joins with a purse of %s", got.Name, e.money(got.InitialBudget)), nil
	}, attribute.String("bidder.id", b.ID))
	return added, err
}

// UpdateBidder edits a team that is not the top bidder on the block.
func (e *Engine) UpdateBidder(ctx context.Context, b ledger.Bidder) (ledger.Bidder, error) {
	var updated ledger.Bidder
	err := e.run(ctx, "Engine.UpdateBidder", "update_bidder", func(ctx context.Context) (notify.Notice, error) {
		got, err := e.ledger.UpdateBidder(b, e.pin())
		if err != nil {
			return rejected("Cannot Update Team", err.Error(), err)
		}
		updated = got
		e.logger.InfoContext(ctx, "team updated", slog.String("bidder_id", got.ID))
		return notice("Team Updated", notify.Success, "%s has been updated", got.Name), nil
	}, attribute.String("bidder.id", b.ID))
	return updated, err
}

// DeleteBidder removes a team with an empty roster and no bid on the
// player on the block.
func (e *Engine) DeleteBidder(ctx context.Context, id string) error {
	return e.run(ctx, "Engine.DeleteBidder", "delete_bidder", func(ctx context.Context) (notify.Notice, error) {
		if e.cursor.InProgress {
			bidBy := func(ev history.Event) bool { return ev.BidderID == id }
			if _, ok := e.history.LastBid(e.cursor.ActiveLotID, bidBy); ok {
				err := reject.Newf(reject.ConstraintViolation, "team %q has a bid on the player on the block", id)
				return rejected("Cannot Delete Team", err.Error(), err)
			}
		}
		if err := e.ledger.DeleteBidder(id, e.pin()); err != nil {
			return rejected("Cannot Delete Team", err.Error(), err)
		}
		e.logger.InfoContext(ctx, "team deleted", slog.String("bidder_id", id))
		return notice("Team Deleted", notify.Success, "Team %s has been removed", id), nil
	}, attribute.String("bidder.id", id))
}

// Standing summarises one team for a dashboard.
type Standing struct {
	BidderID   string `json:"bidder_id"`
	Name       string `json:"name"`
	Spent      int    `json:"spent"`
	Remaining  int    `json:"remaining"`
	RosterSize int    `json:"roster_size"`
}

// Standings returns every team's spend and roster size in catalog order.
func (e *Engine) Standings() []Standing {
	e.mu.Lock()
	defer e.mu.Unlock()

	bidders := e.ledger.Bidders()
	out := make([]Standing, len(bidders))
	for i, b := range bidders {
		out[i] = Standing{
			BidderID:   b.ID,
			Name:       b.Name,
			Spent:      b.Spent(),
			Remaining:  b.RemainingBudget,
			RosterSize: len(b.Roster),
		}
	}
	return out
}
