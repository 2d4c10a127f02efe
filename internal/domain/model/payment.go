package model

import (
	"time"

	"github.com/leisureprog/dead-ddos/internal/domain/enums"
)

// PaymentEvent records a purchase intent for observability. The provider
// confirms or denies the purchase out of band; this is not a ledger.
type PaymentEvent struct {
	ID        int64               `json:"id"`
	PaymentID string              `json:"paymentId"`
	UserID    int64               `json:"userId"`
	Title     string              `json:"title"`
	Amount    float64             `json:"amount"`
	Currency  string              `json:"currency"`
	Status    enums.PaymentStatus `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
}
