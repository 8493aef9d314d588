package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jensholdgaard/franchise-auction/internal/notify"
)

// Embed colours per severity.
const (
	colorInfo    = 0x3498db
	colorSuccess = 0x2ecc71
	colorError   = 0xe74c3c
)

type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// ChannelSink posts auction notices to a Discord channel as embeds.
type ChannelSink struct {
	sender    embedSender
	channelID string
	logger    *slog.Logger
}

// Notify posts n. Delivery failures are logged.
func (s *ChannelSink) Notify(ctx context.Context, n notify.Notice) {
	if s.channelID == "" {
		return
	}
	if _, err := s.sender.ChannelMessageSendEmbed(s.channelID, noticeEmbed(n)); err != nil {
		s.logger.WarnContext(ctx, "posting notice to discord",
			slog.String("title", n.Title),
			slog.String("error", err.Error()),
		)
	}
}

func noticeEmbed(n notify.Notice) *discordgo.MessageEmbed {
	color := colorInfo
	switch n.Severity {
	case notify.Success:
		color = colorSuccess
	case notify.Error:
		color = colorError
	}
	e := &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: n.Description,
		Color:       color,
	}
	if !n.At.IsZero() {
		e.Timestamp = n.At.UTC().Format(time.RFC3339)
	}
	return e
}
