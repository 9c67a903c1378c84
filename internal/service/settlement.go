package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rifalibre/rifa-api/internal/domain"
	"github.com/rifalibre/rifa-api/internal/payment/mercadopago"
	"github.com/rifalibre/rifa-api/internal/realtime"
	"github.com/rifalibre/rifa-api/internal/repository"
)

var (
	ErrTicketConflict = repository.ErrTicketConflict
)

type PaymentLookup interface {
	GetPayment(ctx context.Context, paymentID string) (mercadopago.Payment, error)
}

type TicketPublisher interface {
	Publish(topic string, event realtime.TicketEvent)
}

// SettlementService is the reconciler both confirmation channels feed.
// It is safe against duplicate and out-of-order delivery: a missing or
// already-completed order is a no-op, and the repository performs the
// actual transition as a compare-and-swap transaction.
type SettlementService struct {
	orders     OrderRepository
	raffleRepo RaffleRepository
	gateway    PaymentLookup
	publisher  TicketPublisher
}

func NewSettlementService(orders OrderRepository, raffleRepo RaffleRepository, gateway PaymentLookup, publisher TicketPublisher) *SettlementService {
	return &SettlementService{
		orders:     orders,
		raffleRepo: raffleRepo,
		gateway:    gateway,
		publisher:  publisher,
	}
}

// SettleApprovedPayment drives at most one pending->completed transition
// for the referenced order, selling its tickets in the same transaction.
func (s *SettlementService) SettleApprovedPayment(ctx context.Context, orderID string) error {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			zap.L().Info("payment confirmation references unknown order",
				zap.String("order_id", orderID))
			return nil
		}

		return fmt.Errorf("s.orders.GetByID -> %w", err)
	}

	if order.Status == domain.OrderStatusCompleted {
		return nil
	}

	completed, err := s.orders.Complete(ctx, order.ID)
	if err != nil {
		if errors.Is(err, ErrTicketConflict) {
			zap.L().Error("settlement lost ticket race, order left pending",
				zap.String("order_id", order.ID),
				zap.Uint("raffle_id", order.RaffleID),
				zap.Strings("tickets", order.Tickets))
			return ErrTicketConflict
		}

		return fmt.Errorf("s.orders.Complete -> %w", err)
	}
	if !completed {
		// A concurrent duplicate delivery won the swap.
		return nil
	}

	zap.L().Info("order settled",
		zap.String("order_id", order.ID),
		zap.Uint("raffle_id", order.RaffleID),
		zap.Int("tickets", len(order.Tickets)))

	s.publishTickets(ctx, order)

	return nil
}

// HandleWebhookEvent dispatches a verified gateway notification. Payment
// events are resolved against the gateway before any settlement; every
// recognized-but-irrelevant kind is absorbed without state change.
func (s *SettlementService) HandleWebhookEvent(ctx context.Context, kind, dataID string) error {
	switch kind {
	case "payment.created", "payment.updated", "payment":
		payment, err := s.gateway.GetPayment(ctx, dataID)
		if err != nil {
			return fmt.Errorf("s.gateway.GetPayment -> %w", err)
		}

		if payment.Status != mercadopago.PaymentStatusApproved || payment.ExternalReference == "" {
			zap.L().Info("ignoring non-approved payment event",
				zap.String("payment_id", dataID),
				zap.String("status", payment.Status))
			return nil
		}

		return s.SettleApprovedPayment(ctx, payment.ExternalReference)

	case "test", "test.created", "merchant_order":
		zap.L().Debug("ignoring webhook event", zap.String("kind", kind))
		return nil

	default:
		zap.L().Info("unhandled webhook event kind", zap.String("kind", kind))
		return nil
	}
}

func (s *SettlementService) publishTickets(ctx context.Context, order domain.Order) {
	tickets, err := s.raffleRepo.FindTicketsByNumbers(ctx, order.RaffleID, order.Tickets)
	if err != nil {
		// Settlement is already durable; the feed just misses one update.
		zap.L().Warn("failed to load tickets for feed publish",
			zap.String("order_id", order.ID), zap.Error(err))
		return
	}

	s.publisher.Publish(realtime.TicketTopic(order.RaffleID), realtime.TicketEvent{
		RaffleID: order.RaffleID,
		Tickets:  tickets,
	})
}
