package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rifalibre/rifa-api/internal/domain"
	"github.com/rifalibre/rifa-api/internal/payment/mercadopago"
	"github.com/rifalibre/rifa-api/internal/realtime"
)

func newSettlementFixture(t *testing.T) (*SettlementService, *fakeOrderRepo, *fakeGateway, *fakePublisher, domain.Order) {
	t.Helper()

	raffleRepo := newFakeRaffleRepo()
	userRepo := &fakeUserRepo{users: map[uint]domain.User{
		1: {ID: 1, Name: "Ana", MPConnected: true},
	}}
	raffleSvc := NewRaffleService(raffleRepo, userRepo)

	raffle, err := raffleSvc.CreateRaffle(context.Background(), domain.Raffle{
		Title:       "Bicicleta",
		TicketPrice: 500,
		TicketCount: 100,
		OrganizerID: 1,
	})
	require.NoError(t, err)

	orderRepo := newFakeOrderRepo()
	order, err := orderRepo.Create(context.Background(), domain.Order{
		RaffleID: raffle.ID,
		BuyerID:  7,
		Tickets:  []string{"001", "002"},
		Total:    1000,
		Status:   domain.OrderStatusPending,
	})
	require.NoError(t, err)

	gateway := &fakeGateway{payments: make(map[string]mercadopago.Payment)}
	publisher := &fakePublisher{}
	svc := NewSettlementService(orderRepo, raffleRepo, gateway, publisher)

	return svc, orderRepo, gateway, publisher, order
}

func TestSettleApprovedPayment(t *testing.T) {
	t.Run("completes the order and publishes its tickets", func(t *testing.T) {
		svc, orderRepo, _, publisher, order := newSettlementFixture(t)

		err := svc.SettleApprovedPayment(context.Background(), order.ID)

		require.NoError(t, err)
		stored, err := orderRepo.GetByID(context.Background(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusCompleted, stored.Status)

		require.Len(t, publisher.topics, 1)
		assert.Equal(t, realtime.TicketTopic(order.RaffleID), publisher.topics[0])
		assert.Len(t, publisher.events[0].Tickets, 2)
	})

	t.Run("second delivery is a no-op", func(t *testing.T) {
		svc, orderRepo, _, publisher, order := newSettlementFixture(t)

		require.NoError(t, svc.SettleApprovedPayment(context.Background(), order.ID))
		require.NoError(t, svc.SettleApprovedPayment(context.Background(), order.ID))

		assert.Equal(t, 1, orderRepo.completions)
		assert.Len(t, publisher.topics, 1)
	})

	t.Run("unknown order is absorbed", func(t *testing.T) {
		svc, orderRepo, _, publisher, _ := newSettlementFixture(t)

		err := svc.SettleApprovedPayment(context.Background(), "2c9a0f6e-0000-0000-0000-000000000000")

		require.NoError(t, err)
		assert.Zero(t, orderRepo.completions)
		assert.Empty(t, publisher.topics)
	})

	t.Run("lost ticket race leaves the order pending", func(t *testing.T) {
		svc, orderRepo, _, publisher, order := newSettlementFixture(t)
		orderRepo.completeErr = ErrTicketConflict

		err := svc.SettleApprovedPayment(context.Background(), order.ID)

		assert.ErrorIs(t, err, ErrTicketConflict)
		assert.Empty(t, publisher.topics)
	})
}

func TestHandleWebhookEvent(t *testing.T) {
	t.Run("approved payment settles the referenced order", func(t *testing.T) {
		svc, orderRepo, gateway, _, order := newSettlementFixture(t)
		gateway.payments["314159"] = mercadopago.Payment{
			ID:                314159,
			Status:            mercadopago.PaymentStatusApproved,
			ExternalReference: order.ID,
		}

		err := svc.HandleWebhookEvent(context.Background(), "payment.created", "314159")

		require.NoError(t, err)
		stored, err := orderRepo.GetByID(context.Background(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusCompleted, stored.Status)
	})

	t.Run("non-approved payment is ignored", func(t *testing.T) {
		svc, orderRepo, gateway, _, order := newSettlementFixture(t)
		gateway.payments["314159"] = mercadopago.Payment{
			ID:                314159,
			Status:            "rejected",
			ExternalReference: order.ID,
		}

		err := svc.HandleWebhookEvent(context.Background(), "payment.updated", "314159")

		require.NoError(t, err)
		stored, err := orderRepo.GetByID(context.Background(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusPending, stored.Status)
	})

	t.Run("payment without external reference is ignored", func(t *testing.T) {
		svc, orderRepo, gateway, _, _ := newSettlementFixture(t)
		gateway.payments["314159"] = mercadopago.Payment{
			ID:     314159,
			Status: mercadopago.PaymentStatusApproved,
		}

		err := svc.HandleWebhookEvent(context.Background(), "payment", "314159")

		require.NoError(t, err)
		assert.Zero(t, orderRepo.completions)
	})

	t.Run("test and merchant_order kinds are absorbed without a gateway call", func(t *testing.T) {
		svc, _, gateway, _, _ := newSettlementFixture(t)
		gateway.paymentErr = mercadopago.ErrGatewayFailure

		for _, kind := range []string{"test", "test.created", "merchant_order"} {
			assert.NoError(t, svc.HandleWebhookEvent(context.Background(), kind, "314159"))
		}
	})

	t.Run("unknown kinds are absorbed", func(t *testing.T) {
		svc, _, _, _, _ := newSettlementFixture(t)

		assert.NoError(t, svc.HandleWebhookEvent(context.Background(), "subscription.updated", "314159"))
	})

	t.Run("gateway failure propagates for retry", func(t *testing.T) {
		svc, _, gateway, _, _ := newSettlementFixture(t)
		gateway.paymentErr = mercadopago.ErrGatewayFailure

		err := svc.HandleWebhookEvent(context.Background(), "payment.created", "314159")

		assert.ErrorIs(t, err, mercadopago.ErrGatewayFailure)
	})
}
