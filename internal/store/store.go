// Package store persists the notice journal, an append-only audit trail of
// every auction command outcome. The journal is never read back to rebuild
// auction state.
package store

import (
	"context"
	"log/slog"

	"github.com/jensholdgaard/franchise-auction/internal/notify"
)

// JournalRepository defines notice journal persistence operations.
type JournalRepository interface {
	Record(ctx context.Context, n notify.Notice) error
	// Recent returns up to limit notices, newest first.
	Recent(ctx context.Context, limit int) ([]notify.Notice, error)
}

// JournalSink records every notice into repo. Failures are logged and
// otherwise ignored so the auction keeps running when the journal is down.
type JournalSink struct {
	Repo   JournalRepository
	Logger *slog.Logger
}

// Notify records n.
func (s JournalSink) Notify(ctx context.Context, n notify.Notice) {
	if err := s.Repo.Record(ctx, n); err != nil {
		s.Logger.ErrorContext(ctx, "recording notice",
			slog.String("intent", n.Intent),
			slog.String("error", err.Error()),
		)
	}
}
