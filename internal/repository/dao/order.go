package dao

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrTicketConflict means a settlement asked to sell a ticket that was
	// no longer available; the whole transaction is rolled back.
	ErrTicketConflict = errors.New("ticket no longer available")
)

const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
)

// Order ids are uuids. The id is handed to the payment gateway as
// external_reference, so it must exist before the buyer is redirected.
type Order struct {
	ID       string        `gorm:"primaryKey"`
	RaffleID uint          `gorm:"not null;index"`
	BuyerID  uint          `gorm:"not null;index"`
	Tickets  []OrderTicket `gorm:"foreignKey:OrderID"`
	Total    int64         `gorm:"not null"`
	Status   string        `gorm:"not null;default:pending"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderTicket struct {
	ID      uint   `gorm:"primaryKey"`
	OrderID string `gorm:"not null;index"`
	Number  string `gorm:"not null"`
}

type OrderDAO struct {
	db *gorm.DB
}

func NewOrderDAO(db *gorm.DB) *OrderDAO {
	return &OrderDAO{
		db: db,
	}
}

func (d *OrderDAO) Insert(ctx context.Context, order Order) (Order, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}

	result := d.db.WithContext(ctx).Create(&order)
	if result.Error != nil {
		return Order{}, result.Error
	}

	return order, nil
}

func (d *OrderDAO) GetByID(ctx context.Context, id string) (Order, error) {
	var order Order

	result := d.db.WithContext(ctx).Preload("Tickets").First(&order, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Order{}, ErrOrderNotFound
		}

		return Order{}, result.Error
	}

	return order, nil
}

// Complete settles an order in a single transaction:
//
//  1. compare-and-swap the order status from pending to completed; zero
//     rows affected means another delivery already settled it, so the
//     call degrades to a no-op (completed = false, err = nil);
//  2. mark every listed ticket sold, guarded on the ticket still being
//     available. A shortfall rolls the whole transaction back with
//     ErrTicketConflict so the order stays pending and nothing is
//     half-sold.
//
// Readers therefore never observe sold tickets alongside a pending order.
func (d *OrderDAO) Complete(ctx context.Context, id string) (bool, error) {
	completed := false

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order Order
		if err := tx.Preload("Tickets").First(&order, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}

			return err
		}

		swap := tx.Model(&Order{}).
			Where("id = ? AND status = ?", id, OrderStatusPending).
			Update("status", OrderStatusCompleted)
		if swap.Error != nil {
			return swap.Error
		}
		if swap.RowsAffected == 0 {
			// Lost the race against a duplicate delivery; nothing to do.
			return nil
		}

		numbers := make([]string, len(order.Tickets))
		for i, t := range order.Tickets {
			numbers[i] = t.Number
		}

		sold := tx.Model(&Ticket{}).
			Where("raffle_id = ? AND number IN ? AND status = ?", order.RaffleID, numbers, TicketStatusAvailable).
			Updates(map[string]interface{}{
				"status":   TicketStatusSold,
				"buyer_id": order.BuyerID,
			})
		if sold.Error != nil {
			return sold.Error
		}
		if sold.RowsAffected != int64(len(numbers)) {
			return ErrTicketConflict
		}

		completed = true

		return nil
	})
	if err != nil {
		return false, err
	}

	return completed, nil
}

func (d *OrderDAO) FindByBuyerID(ctx context.Context, buyerID uint) ([]Order, error) {
	var orders []Order

	result := d.db.WithContext(ctx).
		Preload("Tickets").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&orders)
	if result.Error != nil {
		return nil, result.Error
	}

	return orders, nil
}
