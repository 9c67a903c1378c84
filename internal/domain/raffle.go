package domain

import "time"

// Money amounts are integer currency units throughout; no floats.
type Raffle struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	TicketPrice   int64     `json:"ticket_price"`
	TicketCount   int       `json:"ticket_count"`
	OrganizerID   uint      `json:"organizer_id"`
	OrganizerName string    `json:"organizer_name"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	TicketStatusAvailable = "available"
	TicketStatusSold      = "sold"
)

// Ticket is a child of its raffle. Number is the identity within the
// raffle: "1".."N" rendered at the zero-padded width of N. BuyerID is set
// iff the ticket is sold.
type Ticket struct {
	RaffleID uint   `json:"raffle_id"`
	Number   string `json:"number"`
	Status   string `json:"status"`
	BuyerID  *uint  `json:"buyer_id,omitempty"`
}
