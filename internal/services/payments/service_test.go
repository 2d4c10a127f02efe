package payments

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/leisureprog/dead-ddos/internal/domain/enums"
	"github.com/leisureprog/dead-ddos/internal/domain/model"
	"github.com/leisureprog/dead-ddos/internal/repo/postgres"
)

type paymentStoreStub struct {
	inserted []postgres.InsertPaymentEventParams
	err      error
}

func (s *paymentStoreStub) InsertEvent(_ context.Context, params postgres.InsertPaymentEventParams) (model.PaymentEvent, error) {
	if s.err != nil {
		return model.PaymentEvent{}, s.err
	}
	s.inserted = append(s.inserted, params)
	return model.PaymentEvent{
		ID:        1,
		PaymentID: params.PaymentID,
		UserID:    params.UserID,
		Title:     params.Title,
		Amount:    params.Amount,
		Currency:  params.Currency,
		Status:    enums.PaymentStatusPending,
	}, nil
}

type userStoreStub struct {
	refs map[int64]model.UserRef
}

func (s *userStoreStub) FindRefByID(_ context.Context, userID int64) (model.UserRef, error) {
	ref, ok := s.refs[userID]
	if !ok {
		return model.UserRef{}, postgres.ErrUserNotFound
	}
	return ref, nil
}

type notifierStub struct {
	received []model.PaymentEvent
	failed   []string
}

func (n *notifierStub) PaymentReceived(_ context.Context, event model.PaymentEvent, _ model.UserRef) {
	n.received = append(n.received, event)
}

func (n *notifierStub) PaymentFailed(_ context.Context, paymentID, _ string) {
	n.failed = append(n.failed, paymentID)
}

func TestCreateRecordsAndAlerts(t *testing.T) {
	store := &paymentStoreStub{}
	notifier := &notifierStub{}
	users := &userStoreStub{refs: map[int64]model.UserRef{5: {ID: 5, TelegramID: 1001, Username: "payer"}}}
	svc := NewService(store, users, notifier, zap.NewNop())

	event, err := svc.Create(context.Background(), postgres.InsertPaymentEventParams{
		PaymentID: "pay-1", UserID: 5, Title: "Pro plan", Amount: 9.99, Currency: "USD",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Status != enums.PaymentStatusPending {
		t.Fatalf("expected pending event, got %s", event.Status)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected one event row, got %d", len(store.inserted))
	}
	if len(notifier.received) != 1 || notifier.received[0].PaymentID != "pay-1" {
		t.Fatalf("expected admin alert for pay-1, got %+v", notifier.received)
	}
}

func TestCreateUnknownPayer(t *testing.T) {
	store := &paymentStoreStub{}
	notifier := &notifierStub{}
	svc := NewService(store, &userStoreStub{}, notifier, zap.NewNop())

	_, err := svc.Create(context.Background(), postgres.InsertPaymentEventParams{
		PaymentID: "pay-2", UserID: 404,
	})
	if !errors.Is(err, postgres.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatal("unknown payer must not produce an event row")
	}
	if len(notifier.failed) != 1 || notifier.failed[0] != "pay-2" {
		t.Fatalf("expected failure notice for pay-2, got %v", notifier.failed)
	}
}
