package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/rifalibre/rifa-api/internal/domain"
	"github.com/rifalibre/rifa-api/internal/payment/mercadopago"
	"github.com/rifalibre/rifa-api/internal/realtime"
)

type fakeUserRepo struct {
	users map[uint]domain.User
}

func (f *fakeUserRepo) FindByID(_ context.Context, id uint) (domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}

	return user, nil
}

func (f *fakeUserRepo) ConnectGateway(_ context.Context, userID uint, accessToken string) error {
	user, ok := f.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.MPConnected = true
	user.MPAccessToken = accessToken
	f.users[userID] = user

	return nil
}

type fakeRaffleRepo struct {
	nextID  uint
	raffles map[uint]domain.Raffle
	tickets map[uint][]domain.Ticket
}

func newFakeRaffleRepo() *fakeRaffleRepo {
	return &fakeRaffleRepo{
		raffles: make(map[uint]domain.Raffle),
		tickets: make(map[uint][]domain.Ticket),
	}
}

func (f *fakeRaffleRepo) Create(_ context.Context, raffle domain.Raffle, numbers []string) (domain.Raffle, error) {
	f.nextID++
	raffle.ID = f.nextID
	f.raffles[raffle.ID] = raffle

	tickets := make([]domain.Ticket, 0, len(numbers))
	for _, number := range numbers {
		tickets = append(tickets, domain.Ticket{
			RaffleID: raffle.ID,
			Number:   number,
			Status:   domain.TicketStatusAvailable,
		})
	}
	f.tickets[raffle.ID] = tickets

	return raffle, nil
}

func (f *fakeRaffleRepo) GetByID(_ context.Context, id uint) (domain.Raffle, error) {
	raffle, ok := f.raffles[id]
	if !ok {
		return domain.Raffle{}, ErrRaffleNotFound
	}

	return raffle, nil
}

func (f *fakeRaffleRepo) FindAll(_ context.Context) ([]domain.Raffle, error) {
	all := make([]domain.Raffle, 0, len(f.raffles))
	for _, raffle := range f.raffles {
		all = append(all, raffle)
	}

	return all, nil
}

func (f *fakeRaffleRepo) FindTickets(_ context.Context, raffleID uint) ([]domain.Ticket, error) {
	return f.tickets[raffleID], nil
}

func (f *fakeRaffleRepo) FindTicketsByNumbers(_ context.Context, raffleID uint, numbers []string) ([]domain.Ticket, error) {
	wanted := make(map[string]struct{}, len(numbers))
	for _, number := range numbers {
		wanted[number] = struct{}{}
	}

	var found []domain.Ticket
	for _, ticket := range f.tickets[raffleID] {
		if _, ok := wanted[ticket.Number]; ok {
			found = append(found, ticket)
		}
	}

	return found, nil
}

type fakeOrderRepo struct {
	orders      map[string]domain.Order
	completeErr error
	completions int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[string]domain.Order),
	}
}

func (f *fakeOrderRepo) Create(_ context.Context, order domain.Order) (domain.Order, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	f.orders[order.ID] = order

	return order, nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id string) (domain.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}

	return order, nil
}

func (f *fakeOrderRepo) Complete(_ context.Context, id string) (bool, error) {
	if f.completeErr != nil {
		return false, f.completeErr
	}

	order, ok := f.orders[id]
	if !ok {
		return false, ErrOrderNotFound
	}
	if order.Status != domain.OrderStatusPending {
		return false, nil
	}

	order.Status = domain.OrderStatusCompleted
	f.orders[id] = order
	f.completions++

	return true, nil
}

func (f *fakeOrderRepo) FindByBuyerID(_ context.Context, buyerID uint) ([]domain.Order, error) {
	var found []domain.Order
	for _, order := range f.orders {
		if order.BuyerID == buyerID {
			found = append(found, order)
		}
	}

	return found, nil
}

type fakeGateway struct {
	lastPref  mercadopago.Preference
	initPoint string
	prefErr   error

	payments   map[string]mercadopago.Payment
	paymentErr error

	exchangedCode string
	accessToken   string
}

func (f *fakeGateway) CreatePreference(_ context.Context, pref mercadopago.Preference) (mercadopago.CreatedPreference, error) {
	if f.prefErr != nil {
		return mercadopago.CreatedPreference{}, f.prefErr
	}
	f.lastPref = pref

	return mercadopago.CreatedPreference{ID: "pref-1", InitPoint: f.initPoint}, nil
}

func (f *fakeGateway) GetPayment(_ context.Context, paymentID string) (mercadopago.Payment, error) {
	if f.paymentErr != nil {
		return mercadopago.Payment{}, f.paymentErr
	}

	return f.payments[paymentID], nil
}

func (f *fakeGateway) ExchangeCode(_ context.Context, code string) (string, error) {
	f.exchangedCode = code

	return f.accessToken, nil
}

type fakePublisher struct {
	topics []string
	events []realtime.TicketEvent
}

func (f *fakePublisher) Publish(topic string, event realtime.TicketEvent) {
	f.topics = append(f.topics, topic)
	f.events = append(f.events, event)
}
