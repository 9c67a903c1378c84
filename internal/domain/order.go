package domain

import "time"

const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
)

// Order captures a buyer's ticket selection priced at creation time.
// The uuid ID doubles as the payment gateway's external_reference, which
// makes it the idempotency key for settlement.
type Order struct {
	ID        string    `json:"id"`
	RaffleID  uint      `json:"raffle_id"`
	BuyerID   uint      `json:"buyer_id"`
	Tickets   []string  `json:"tickets"`
	Total     int64     `json:"total"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
