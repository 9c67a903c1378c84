package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

type CreateOrderRequest struct {
	RaffleID uint     `json:"raffle_id"`
	Tickets  []string `json:"tickets"`
}

func (req *CreateOrderRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.RaffleID, validation.Required, validation.Min(uint(1))),
		validation.Field(&req.Tickets, validation.Required, validation.Length(1, 1000)),
	)
}
