package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leisureprog/dead-ddos/internal/domain/enums"
	"github.com/leisureprog/dead-ddos/internal/domain/model"
)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

type InsertPaymentEventParams struct {
	PaymentID string
	UserID    int64
	Title     string
	Amount    float64
	Currency  string
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// InsertEvent records a purchase intent. The payment provider settles the
// purchase out of band; this table is observability, not a ledger.
func (r *PaymentRepo) InsertEvent(ctx context.Context, params InsertPaymentEventParams) (model.PaymentEvent, error) {
	if r.pool == nil {
		return model.PaymentEvent{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(params.PaymentID) == "" {
		return model.PaymentEvent{}, fmt.Errorf("payment id is required")
	}
	if params.UserID <= 0 {
		return model.PaymentEvent{}, fmt.Errorf("invalid user id")
	}

	var event model.PaymentEvent
	err := r.pool.QueryRow(ctx, `
INSERT INTO payment_events (payment_id, user_id, title, amount, currency, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
RETURNING id, payment_id, user_id, title, amount, currency, status, created_at
`, params.PaymentID, params.UserID, params.Title, params.Amount, strings.ToUpper(strings.TrimSpace(params.Currency)), enums.PaymentStatusPending).Scan(
		&event.ID, &event.PaymentID, &event.UserID, &event.Title, &event.Amount,
		&event.Currency, &event.Status, &event.CreatedAt,
	)
	if err != nil {
		return model.PaymentEvent{}, fmt.Errorf("insert payment event: %w", err)
	}

	return event, nil
}
