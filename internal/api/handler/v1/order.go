package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rifalibre/rifa-api/internal/api/handler/v1/request"
	"github.com/rifalibre/rifa-api/internal/api/handler/v1/response"
	"github.com/rifalibre/rifa-api/internal/domain"
	"github.com/rifalibre/rifa-api/internal/payment/mercadopago"
	"github.com/rifalibre/rifa-api/internal/service"
)

type OrderService interface {
	CreateOrder(ctx context.Context, raffleID, buyerID uint, numbers []string) (domain.Order, error)
	Checkout(ctx context.Context, orderID string, buyerID uint) (string, error)
	GetOrder(ctx context.Context, orderID string, buyerID uint) (domain.Order, error)
	ListOrders(ctx context.Context, buyerID uint) ([]domain.Order, error)
}

type SettlementService interface {
	SettleApprovedPayment(ctx context.Context, orderID string) error
}

type OrderHandler struct {
	svc        OrderService
	settlement SettlementService
}

func NewOrderHandler(svc OrderService, settlement SettlementService) *OrderHandler {
	return &OrderHandler{
		svc:        svc,
		settlement: settlement,
	}
}

// HandleCreateOrder godoc
// @Summary      Create a pending order for selected tickets and return the payment redirect
// @Tags         orders
// @Produce      json
// @Param        request   body      request.CreateOrderRequest true "request body"
// @Success      201      {object}   response.CreateOrderResponse
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      502      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Security     BearerToken
// @Router       /orders [post]
func (h *OrderHandler) HandleCreateOrder(ctx *gin.Context) {
	userID, respErr := currentUserID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	order, err := h.svc.CreateOrder(ctx.Request.Context(), req.RaffleID, userID, req.Tickets)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRaffleNotFound):
			response.RenderErr(ctx, response.ErrNotFound("raffle", "ID", req.RaffleID))
		case errors.Is(err, service.ErrEmptySelection),
			errors.Is(err, service.ErrDuplicateSelection),
			errors.Is(err, service.ErrUnknownTicket),
			errors.Is(err, service.ErrTicketNotAvailable):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		default:
			err = fmt.Errorf("v1.HandleCreateOrder -> h.svc.CreateOrder -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	// The preference is registered right away so the client gets a
	// redirect in one round trip. A gateway failure still returns the
	// order; the client retries through the checkout endpoint.
	initPoint, err := h.svc.Checkout(ctx.Request.Context(), order.ID, userID)
	if err != nil {
		if errors.Is(err, mercadopago.ErrGatewayFailure) {
			ctx.JSON(http.StatusCreated, response.CreateOrderResponse{Order: order})
			return
		}

		err = fmt.Errorf("v1.HandleCreateOrder -> h.svc.Checkout -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusCreated, response.CreateOrderResponse{
		Order:     order,
		InitPoint: initPoint,
	})
}

// HandleCheckout godoc
// @Summary      Register a payment preference for a pending order
// @Tags         orders
// @Produce      json
// @Param        orderID   path      string  true "order ID"
// @Success      200      {object}   response.CheckoutResponse
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      502      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Security     BearerToken
// @Router       /orders/{orderID}/checkout [post]
func (h *OrderHandler) HandleCheckout(ctx *gin.Context) {
	userID, respErr := currentUserID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	orderID, respErr := parseOrderID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	initPoint, err := h.svc.Checkout(ctx.Request.Context(), orderID, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			response.RenderErr(ctx, response.ErrNotFound("order", "ID", orderID))
		case errors.Is(err, service.ErrNotOrderOwner):
			response.RenderErr(ctx, response.ErrPermissionDenied(service.ErrNotOrderOwner))
		case errors.Is(err, service.ErrOrderNotPending):
			response.RenderErr(ctx, response.ErrBadRequest(service.ErrOrderNotPending))
		case errors.Is(err, mercadopago.ErrGatewayFailure):
			response.RenderErr(ctx, response.ErrBadGateway(mercadopago.ErrGatewayFailure))
		default:
			err = fmt.Errorf("v1.HandleCheckout -> h.svc.Checkout -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusOK, response.CheckoutResponse{InitPoint: initPoint})
}

// HandleGetOrders godoc
// @Summary      List the authenticated user's orders
// @Tags         orders
// @Produce      json
// @Success      200      {object}   []domain.Order
// @Failure      500      {object}   response.Err
// @Security     BearerToken
// @Router       /orders [get]
func (h *OrderHandler) HandleGetOrders(ctx *gin.Context) {
	userID, respErr := currentUserID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	orders, err := h.svc.ListOrders(ctx.Request.Context(), userID)
	if err != nil {
		err = fmt.Errorf("v1.HandleGetOrders -> h.svc.ListOrders -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, orders)
}

// HandleGetOrder godoc
// @Summary      Get one of the authenticated user's orders
// @Tags         orders
// @Produce      json
// @Param        orderID   path      string  true "order ID"
// @Success      200      {object}   domain.Order
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Security     BearerToken
// @Router       /orders/{orderID} [get]
func (h *OrderHandler) HandleGetOrder(ctx *gin.Context) {
	userID, respErr := currentUserID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	orderID, respErr := parseOrderID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	order, err := h.svc.GetOrder(ctx.Request.Context(), orderID, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			response.RenderErr(ctx, response.ErrNotFound("order", "ID", orderID))
		case errors.Is(err, service.ErrNotOrderOwner):
			response.RenderErr(ctx, response.ErrPermissionDenied(service.ErrNotOrderOwner))
		default:
			err = fmt.Errorf("v1.HandleGetOrder -> h.svc.GetOrder -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusOK, order)
}

// HandlePaymentReturn godoc
// @Summary      Gateway redirect target after checkout
// @Description  Settles the referenced order when the redirect reports an
// @Description  approved payment. The webhook performs the same settlement;
// @Description  whichever channel arrives first wins and the other is a no-op.
// @Tags         payments
// @Produce      json
// @Param        collection_status    query  string false "payment status"
// @Param        status               query  string false "payment status (alias)"
// @Param        external_reference   query  string false "order ID"
// @Success      200 {object} map[string]string
// @Router       /payments/return [get]
func (h *OrderHandler) HandlePaymentReturn(ctx *gin.Context) {
	status := ctx.Query("collection_status")
	if status == "" {
		status = ctx.Query("status")
	}
	orderID := ctx.Query("external_reference")

	if status != mercadopago.PaymentStatusApproved || orderID == "" {
		ctx.JSON(http.StatusOK, gin.H{"result": "ignored", "status": status})
		return
	}

	if err := h.settlement.SettleApprovedPayment(ctx.Request.Context(), orderID); err != nil {
		if errors.Is(err, service.ErrTicketConflict) {
			response.RenderErr(ctx, response.ErrBadRequest(service.ErrTicketConflict))
			return
		}

		err = fmt.Errorf("v1.HandlePaymentReturn -> h.settlement.SettleApprovedPayment -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"result": "settled", "order_id": orderID})
}

func parseOrderID(ctx *gin.Context) (string, *response.Err) {
	orderID := ctx.Param("orderID")
	if _, err := uuid.Parse(orderID); err != nil {
		return "", response.ErrBadRequest(fmt.Errorf("invalid order ID (%v)", orderID))
	}

	return orderID, nil
}
