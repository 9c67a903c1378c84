package response

import "github.com/rifalibre/rifa-api/internal/domain"

type CreateOrderResponse struct {
	Order domain.Order `json:"order"`
	// InitPoint is the gateway URL the buyer is redirected to.
	InitPoint string `json:"init_point"`
}

type CheckoutResponse struct {
	InitPoint string `json:"init_point"`
}
