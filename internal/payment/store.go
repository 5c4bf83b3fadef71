package payment

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flexy-hms/payments-api/internal/common"
)

// Store persists gateway notifications. The merchant_transactions table is
// append-only: every delivery is inserted as received, duplicates included,
// so reconciliation can replay the full notification history.
type Store struct {
	Pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

func (s *Store) AppendWebhookEvent(ctx context.Context, merchantType string, payload []byte) error {
	const q = `
		INSERT INTO merchant_transactions (merchant_type, payload, received_at)
		VALUES ($1, $2, now())`
	if _, err := s.Pool.Exec(ctx, q, merchantType, payload); err != nil {
		return common.NewPersistence("WEBHOOK_APPEND_FAILED", "failed to record webhook event", err)
	}
	return nil
}
