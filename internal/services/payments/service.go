// Package payments records purchase intents and alerts the admin chat.
// The payment provider settles purchases out of band; this service is an
// observability tap, not a ledger.
package payments

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/leisureprog/dead-ddos/internal/domain/model"
	"github.com/leisureprog/dead-ddos/internal/repo/postgres"
)

type PaymentStore interface {
	InsertEvent(ctx context.Context, params postgres.InsertPaymentEventParams) (model.PaymentEvent, error)
}

type UserStore interface {
	FindRefByID(ctx context.Context, userID int64) (model.UserRef, error)
}

type Notifier interface {
	PaymentReceived(ctx context.Context, event model.PaymentEvent, user model.UserRef)
	PaymentFailed(ctx context.Context, paymentID, reason string)
}

type Service struct {
	payments PaymentStore
	users    UserStore
	notifier Notifier
	logger   *zap.Logger
}

func NewService(payments PaymentStore, users UserStore, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{payments: payments, users: users, notifier: notifier, logger: logger}
}

// Create records the purchase intent and alerts the admin chat. An
// unknown payer fails the call and routes a failure notice to the admin
// chat instead of the payment alert.
func (s *Service) Create(ctx context.Context, params postgres.InsertPaymentEventParams) (model.PaymentEvent, error) {
	user, err := s.users.FindRefByID(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			if s.notifier != nil {
				s.notifier.PaymentFailed(ctx, params.PaymentID, fmt.Sprintf("Пользователь с ID %d не найден", params.UserID))
			}
			return model.PaymentEvent{}, err
		}
		return model.PaymentEvent{}, fmt.Errorf("resolve payer: %w", err)
	}

	event, err := s.payments.InsertEvent(ctx, params)
	if err != nil {
		return model.PaymentEvent{}, err
	}

	if s.notifier != nil {
		s.notifier.PaymentReceived(ctx, event, user)
	}

	return event, nil
}
