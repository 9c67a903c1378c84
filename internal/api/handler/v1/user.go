package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rifalibre/rifa-api/internal/api/handler/v1/response"
	"github.com/rifalibre/rifa-api/internal/domain"
	"github.com/rifalibre/rifa-api/internal/service"
)

type UserService interface {
	GetUser(ctx context.Context, id uint) (domain.User, error)
	ConnectMercadoPago(ctx context.Context, userID uint, code, state string) error
}

type UserHandler struct {
	svc UserService
}

func NewUserHandler(svc UserService) *UserHandler {
	return &UserHandler{
		svc: svc,
	}
}

// HandleGetUser godoc
// @Summary      Get the authenticated user's profile
// @Tags         users
// @Produce      json
// @Param        userID   path      int  true "user ID"
// @Success      200      {object}   domain.User
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Security     BearerToken
// @Router       /users/{userID} [get]
func (h *UserHandler) HandleGetUser(ctx *gin.Context) {
	callerID, respErr := currentUserID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	rawUserID := ctx.Param("userID")
	userID, err := strconv.Atoi(rawUserID)
	if err != nil || userID <= 0 {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid user ID (%v)", rawUserID)))
		return
	}

	// Profiles are private, a user can only read their own.
	if uint(userID) != callerID {
		response.RenderErr(ctx, response.ErrPermissionDenied(errors.New("cannot access another user's profile")))
		return
	}

	user, err := h.svc.GetUser(ctx.Request.Context(), uint(userID))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("user", "ID", userID))
			return
		}

		err = fmt.Errorf("v1.HandleGetUser -> h.svc.GetUser -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, user)
}

// HandleMercadoPagoCallback godoc
// @Summary      Complete the MercadoPago account link for the authenticated user
// @Tags         users
// @Produce      json
// @Param        code    query     string true "authorization code"
// @Param        state   query     string true "anti-forgery state, must name the caller"
// @Success      200     {object}   domain.User
// @Failure      400     {object}   response.Err
// @Failure      502     {object}   response.Err
// @Failure      500     {object}   response.Err
// @Security     BearerToken
// @Router       /users/mercadopago/callback [get]
func (h *UserHandler) HandleMercadoPagoCallback(ctx *gin.Context) {
	callerID, respErr := currentUserID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		response.RenderErr(ctx, response.ErrBadRequest(errors.New("code and state are required")))
		return
	}

	err := h.svc.ConnectMercadoPago(ctx.Request.Context(), callerID, code, state)
	if err != nil {
		if errors.Is(err, service.ErrStateMismatch) {
			response.RenderErr(ctx, response.ErrBadRequest(service.ErrStateMismatch))
			return
		}
		if errors.Is(err, service.ErrGatewayFailure) {
			response.RenderErr(ctx, response.ErrBadGateway(service.ErrGatewayFailure))
			return
		}

		err = fmt.Errorf("v1.HandleMercadoPagoCallback -> h.svc.ConnectMercadoPago -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	user, err := h.svc.GetUser(ctx.Request.Context(), callerID)
	if err != nil {
		err = fmt.Errorf("v1.HandleMercadoPagoCallback -> h.svc.GetUser -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, user)
}
