package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rifalibre/rifa-api/internal/config"
	"github.com/rifalibre/rifa-api/internal/domain"
	"github.com/rifalibre/rifa-api/internal/payment/mercadopago"
	"github.com/rifalibre/rifa-api/internal/repository"
)

var (
	ErrOrderNotFound      = repository.ErrOrderNotFound
	ErrEmptySelection     = errors.New("ticket selection is empty")
	ErrDuplicateSelection = errors.New("ticket selection contains duplicate numbers")
	ErrUnknownTicket      = errors.New("ticket selection references numbers outside the raffle")
	ErrTicketNotAvailable = errors.New("ticket selection contains numbers that are already sold")
	ErrNotOrderOwner      = errors.New("order belongs to a different buyer")
	ErrOrderNotPending    = errors.New("order is not pending")
)

type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) (domain.Order, error)
	GetByID(ctx context.Context, id string) (domain.Order, error)
	Complete(ctx context.Context, id string) (bool, error)
	FindByBuyerID(ctx context.Context, buyerID uint) ([]domain.Order, error)
}

type PaymentGateway interface {
	CreatePreference(ctx context.Context, pref mercadopago.Preference) (mercadopago.CreatedPreference, error)
}

type OrderService struct {
	repo       OrderRepository
	raffleRepo RaffleRepository
	gateway    PaymentGateway
	conf       *config.MercadoPagoConfig
}

func NewOrderService(repo OrderRepository, raffleRepo RaffleRepository, gateway PaymentGateway, conf *config.MercadoPagoConfig) *OrderService {
	return &OrderService{
		repo:       repo,
		raffleRepo: raffleRepo,
		gateway:    gateway,
		conf:       conf,
	}
}

// CreateOrder prices a buyer's selection against the current raffle
// snapshot and persists it as a pending order. The selection is advisory:
// tickets are not reserved here, only verified to exist. The returned
// order id is the gateway external_reference.
func (s *OrderService) CreateOrder(ctx context.Context, raffleID, buyerID uint, numbers []string) (domain.Order, error) {
	if len(numbers) == 0 {
		return domain.Order{}, ErrEmptySelection
	}
	seen := make(map[string]struct{}, len(numbers))
	for _, number := range numbers {
		if _, dup := seen[number]; dup {
			return domain.Order{}, ErrDuplicateSelection
		}
		seen[number] = struct{}{}
	}

	raffle, err := s.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("s.raffleRepo.GetByID -> %w", err)
	}

	tickets, err := s.raffleRepo.FindTicketsByNumbers(ctx, raffleID, numbers)
	if err != nil {
		return domain.Order{}, fmt.Errorf("s.raffleRepo.FindTicketsByNumbers -> %w", err)
	}
	if len(tickets) != len(numbers) {
		return domain.Order{}, ErrUnknownTicket
	}
	// Best-effort availability check. The settlement transaction is the
	// real guard; this just keeps buyers from paying for a ticket that is
	// already visibly sold.
	for _, ticket := range tickets {
		if ticket.Status != domain.TicketStatusAvailable {
			return domain.Order{}, ErrTicketNotAvailable
		}
	}

	order := domain.Order{
		RaffleID: raffleID,
		BuyerID:  buyerID,
		Tickets:  numbers,
		Total:    int64(len(numbers)) * raffle.TicketPrice,
		Status:   domain.OrderStatusPending,
	}

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		return domain.Order{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return created, nil
}

// Checkout registers a payment preference for a pending order and returns
// the gateway redirect URL. A gateway failure leaves the order pending;
// the buyer retries by calling Checkout again.
func (s *OrderService) Checkout(ctx context.Context, orderID string, buyerID uint) (string, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("s.repo.GetByID -> %w", err)
	}
	if order.BuyerID != buyerID {
		return "", ErrNotOrderOwner
	}
	if order.Status != domain.OrderStatusPending {
		return "", ErrOrderNotPending
	}

	raffle, err := s.raffleRepo.GetByID(ctx, order.RaffleID)
	if err != nil {
		return "", fmt.Errorf("s.raffleRepo.GetByID -> %w", err)
	}

	returnURL := s.conf.BackURLBase + "/api/v1/payments/return"
	pref := mercadopago.Preference{
		Items: []mercadopago.PreferenceItem{
			{
				Title:      fmt.Sprintf("%v (%v numbers)", raffle.Title, len(order.Tickets)),
				Quantity:   1,
				UnitPrice:  order.Total,
				CurrencyID: s.conf.CurrencyID,
			},
		},
		ExternalReference: order.ID,
		BackURLs: mercadopago.BackURLs{
			Success: returnURL,
			Failure: returnURL,
			Pending: returnURL,
		},
		AutoReturn:      "approved",
		NotificationURL: s.conf.BackURLBase + "/webhooks/mercadopago",
	}

	created, err := s.gateway.CreatePreference(ctx, pref)
	if err != nil {
		return "", fmt.Errorf("s.gateway.CreatePreference -> %w", err)
	}

	return created.InitPoint, nil
}

func (s *OrderService) ListOrders(ctx context.Context, buyerID uint) ([]domain.Order, error) {
	orders, err := s.repo.FindByBuyerID(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindByBuyerID -> %w", err)
	}

	return orders, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string, buyerID uint) (domain.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("s.repo.GetByID -> %w", err)
	}
	if order.BuyerID != buyerID {
		return domain.Order{}, ErrNotOrderOwner
	}

	return order, nil
}
