package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/franchise-auction/internal/auction"
	"github.com/jensholdgaard/franchise-auction/internal/history"
)

// historyLimit caps how many events /history prints.
const historyLimit = 10

// Handlers process Discord interactions.
type Handlers struct {
	engine *auction.Engine
	logger *slog.Logger
	tracer trace.Tracer
}

// NewHandlers creates new command handlers.
func NewHandlers(engine *auction.Engine, logger *slog.Logger, tp trace.TracerProvider) *Handlers {
	return &Handlers{
		engine: engine,
		logger: logger,
		tracer: tp.Tracer("github.com/jensholdgaard/franchise-auction/internal/bot/commands"),
	}
}

// SlashCommands returns the slash command definitions.
func SlashCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "auction-start",
			Description: "Put a player on the block",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "player",
					Description: "Player ID (see /lots)",
					Required:    true,
				},
			},
		},
		{
			Name:        "bid",
			Description: "Bid for the player on the block",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "team",
					Description: "Team ID (see /teams)",
					Required:    true,
				},
			},
		},
		{Name: "sell", Description: "Sell the player on the block to the highest bidder"},
		{Name: "unsold", Description: "Close the current player without a sale"},
		{Name: "next", Description: "Clear the block for the next player"},
		{Name: "undo", Description: "Undo the last bid, sale or unsold"},
		{Name: "reset", Description: "Reset the whole auction (cannot be undone)"},
		{Name: "lots", Description: "List players and their status"},
		{Name: "teams", Description: "List teams and their purses"},
		{Name: "history", Description: "Show the latest auction events"},
	}
}

// InteractionCreate handles incoming slash command interactions.
func (h *Handlers) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	ctx, span := h.tracer.Start(context.Background(), "InteractionCreate",
		trace.WithAttributes(attribute.String("command", data.Name)),
	)
	defer span.End()

	respond(s, i, h.Reply(ctx, data))
}

// Reply runs a command and returns the message to show the caller.
// Auction outcomes are also broadcast by the notice sink, so replies to
// commands that change state stay short.
func (h *Handlers) Reply(ctx context.Context, data discordgo.ApplicationCommandInteractionData) string {
	switch data.Name {
	case "auction-start":
		return h.dispatch(ctx, auction.Start{LotID: option(data, "player")})
	case "bid":
		return h.dispatch(ctx, auction.Bid{BidderID: option(data, "team")})
	case "sell":
		return h.dispatch(ctx, auction.Sell{})
	case "unsold":
		return h.dispatch(ctx, auction.Unsold{})
	case "next":
		return h.dispatch(ctx, auction.Next{})
	case "undo":
		return h.dispatch(ctx, auction.Undo{})
	case "reset":
		return h.dispatch(ctx, auction.Reset{})
	case "lots":
		return h.lots()
	case "teams":
		return h.teams()
	case "history":
		return h.history()
	default:
		return "Unknown command"
	}
}

func (h *Handlers) dispatch(ctx context.Context, in auction.Intent) string {
	if err := h.engine.Dispatch(ctx, in); err != nil {
		h.logger.DebugContext(ctx, "command rejected", slog.String("intent", in.Name()), slog.String("error", err.Error()))
		return fmt.Sprintf("Rejected: %s", err)
	}
	v := h.engine.View()
	if !v.Cursor.InProgress || v.CurrentLot == nil {
		return "Done."
	}
	return fmt.Sprintf("Done. **%s** is on the block, next bid %s.", v.CurrentLot.Name, h.money(v.NextBid))
}

func (h *Handlers) lots() string {
	lots := h.engine.Lots()
	if len(lots) == 0 {
		return "No players in the catalog."
	}
	var b strings.Builder
	b.WriteString("**Players:**\n")
	for _, l := range lots {
		status := "available"
		if l.Sold {
			status = fmt.Sprintf("sold for %s", h.money(l.SoldAmount))
		}
		fmt.Fprintf(&b, "`%s` %s (%s, base %s) - %s\n", l.ID, l.Name, l.Category, h.money(l.FloorPrice), status)
	}
	return b.String()
}

func (h *Handlers) teams() string {
	standings := h.engine.Standings()
	if len(standings) == 0 {
		return "No teams registered yet."
	}
	var b strings.Builder
	b.WriteString("**Teams:**\n")
	for _, s := range standings {
		fmt.Fprintf(&b, "`%s` %s - %s left, %d players\n", s.BidderID, s.Name, h.money(s.Remaining), s.RosterSize)
	}
	return b.String()
}

func (h *Handlers) history() string {
	var b strings.Builder
	n := 0
	for ev := range h.engine.History() {
		if n == historyLimit {
			break
		}
		if n == 0 {
			b.WriteString("**Latest events:**\n")
		}
		switch ev.Action {
		case history.Bid:
			fmt.Fprintf(&b, "%s bid %s for %s\n", ev.BidderName, h.money(ev.Amount), ev.LotName)
		case history.Sold:
			fmt.Fprintf(&b, "%s sold to %s for %s\n", ev.LotName, ev.BidderName, h.money(ev.Amount))
		case history.Unsold:
			fmt.Fprintf(&b, "%s went unsold\n", ev.LotName)
		}
		n++
	}
	if n == 0 {
		return "Nothing has happened yet."
	}
	return b.String()
}

func (h *Handlers) money(amount int) string {
	return fmt.Sprintf("%s%d", h.engine.Settings().Currency, amount)
}

func option(data discordgo.ApplicationCommandInteractionData, name string) string {
	for _, o := range data.Options {
		if o.Name == name {
			return o.StringValue()
		}
	}
	return ""
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
		},
	})
}
