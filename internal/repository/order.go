package repository

import (
	"context"
	"fmt"

	"github.com/rifalibre/rifa-api/internal/domain"
	"github.com/rifalibre/rifa-api/internal/repository/dao"
)

var (
	ErrOrderNotFound  = dao.ErrOrderNotFound
	ErrTicketConflict = dao.ErrTicketConflict
)

type OrderDAO interface {
	Insert(ctx context.Context, order dao.Order) (dao.Order, error)
	GetByID(ctx context.Context, id string) (dao.Order, error)
	Complete(ctx context.Context, id string) (bool, error)
	FindByBuyerID(ctx context.Context, buyerID uint) ([]dao.Order, error)
}

type OrderRepository struct {
	dao OrderDAO
}

func NewOrderRepository(dao OrderDAO) *OrderRepository {
	return &OrderRepository{
		dao: dao,
	}
}

func (r *OrderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	created, err := r.dao.Insert(ctx, r.domainToDao(order))
	if err != nil {
		return domain.Order{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (domain.Order, error) {
	order, err := r.dao.GetByID(ctx, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("r.dao.GetByID -> %w", err)
	}

	return r.daoToDomain(order), nil
}

// Complete applies the settlement transaction. The boolean reports
// whether this call performed the pending->completed transition; false
// with a nil error means another delivery got there first.
func (r *OrderRepository) Complete(ctx context.Context, id string) (bool, error) {
	completed, err := r.dao.Complete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("r.dao.Complete -> %w", err)
	}

	return completed, nil
}

func (r *OrderRepository) FindByBuyerID(ctx context.Context, buyerID uint) ([]domain.Order, error) {
	orders, err := r.dao.FindByBuyerID(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByBuyerID -> %w", err)
	}

	result := make([]domain.Order, len(orders))
	for i, order := range orders {
		result[i] = r.daoToDomain(order)
	}

	return result, nil
}

func (r *OrderRepository) domainToDao(order domain.Order) dao.Order {
	tickets := make([]dao.OrderTicket, len(order.Tickets))
	for i, number := range order.Tickets {
		tickets[i] = dao.OrderTicket{Number: number}
	}

	return dao.Order{
		ID:       order.ID,
		RaffleID: order.RaffleID,
		BuyerID:  order.BuyerID,
		Tickets:  tickets,
		Total:    order.Total,
		Status:   order.Status,
	}
}

func (r *OrderRepository) daoToDomain(order dao.Order) domain.Order {
	tickets := make([]string, len(order.Tickets))
	for i, t := range order.Tickets {
		tickets[i] = t.Number
	}

	return domain.Order{
		ID:        order.ID,
		RaffleID:  order.RaffleID,
		BuyerID:   order.BuyerID,
		Tickets:   tickets,
		Total:     order.Total,
		Status:    order.Status,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
}
