package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/notify"
)

// JournalRepo implements store.JournalRepository with sqlx.
type JournalRepo struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewJournalRepo returns a new JournalRepo.
func NewJournalRepo(db *sqlx.DB, clk clock.Clock) *JournalRepo {
	return &JournalRepo{db: db, clock: clk}
}

func (r *JournalRepo) Record(ctx context.Context, n notify.Notice) error {
	if n.At.IsZero() {
		n.At = r.clock.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO notices (intent, title, description, severity, created_at)
		 VALUES (:intent, :title, :description, :severity, :created_at)`, n)
	if err != nil {
		return fmt.Errorf("recording notice: %w", err)
	}
	return nil
}

func (r *JournalRepo) Recent(ctx context.Context, limit int) ([]notify.Notice, error) {
	query := `SELECT intent, title, description, severity, created_at
	          FROM notices ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	notices := []notify.Notice{}
	if err := r.db.SelectContext(ctx, &notices, query, args...); err != nil {
		return nil, fmt.Errorf("listing notices: %w", err)
	}
	return notices, nil
}
