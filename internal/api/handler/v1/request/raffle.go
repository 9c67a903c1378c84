package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

type CreateRaffleRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	TicketPrice int64  `json:"ticket_price"`
	TicketCount int    `json:"ticket_count"`
}

func (req *CreateRaffleRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.Required, validation.Length(2, 100)),
		validation.Field(&req.Description, validation.Required, validation.Length(2, 500)),
		validation.Field(&req.TicketPrice, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.TicketCount, validation.Required, validation.Min(1), validation.Max(100000)),
	)
}
