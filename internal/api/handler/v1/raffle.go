package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rifalibre/rifa-api/internal/api/handler/v1/request"
	"github.com/rifalibre/rifa-api/internal/api/handler/v1/response"
	"github.com/rifalibre/rifa-api/internal/domain"
	"github.com/rifalibre/rifa-api/internal/realtime"
	"github.com/rifalibre/rifa-api/internal/service"
)

const feedWriteTimeout = 10 * time.Second

type RaffleService interface {
	CreateRaffle(ctx context.Context, raffle domain.Raffle) (domain.Raffle, error)
	GetRaffle(ctx context.Context, id uint) (domain.Raffle, error)
	GetRaffles(ctx context.Context) ([]domain.Raffle, error)
	GetTickets(ctx context.Context, raffleID uint) ([]domain.Ticket, error)
}

type TicketFeed interface {
	Subscribe(topic string) (<-chan realtime.TicketEvent, func())
}

type RaffleHandler struct {
	svc      RaffleService
	feed     TicketFeed
	upgrader websocket.Upgrader
}

func NewRaffleHandler(svc RaffleService, feed TicketFeed) *RaffleHandler {
	return &RaffleHandler{
		svc:  svc,
		feed: feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The feed is public read-only data, same as GET tickets.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleCreateRaffle godoc
// @Summary      Create a raffle with its full ticket inventory
// @Tags         raffles
// @Produce      json
// @Param        request   body      request.CreateRaffleRequest true "request body"
// @Success      201      {object}   domain.Raffle
// @Failure      400      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Security     BearerToken
// @Router       /raffles [post]
func (h *RaffleHandler) HandleCreateRaffle(ctx *gin.Context) {
	userID, respErr := currentUserID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.CreateRaffleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	raffle, err := h.svc.CreateRaffle(ctx.Request.Context(), domain.Raffle{
		Title:       req.Title,
		Description: req.Description,
		TicketPrice: req.TicketPrice,
		TicketCount: req.TicketCount,
		OrganizerID: userID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrganizerNotConnected):
			response.RenderErr(ctx, response.ErrBadRequest(service.ErrOrganizerNotConnected))
		case errors.Is(err, service.ErrInvalidTicketPrice):
			response.RenderErr(ctx, response.ErrBadRequest(service.ErrInvalidTicketPrice))
		case errors.Is(err, service.ErrInvalidTicketCount):
			response.RenderErr(ctx, response.ErrBadRequest(service.ErrInvalidTicketCount))
		default:
			err = fmt.Errorf("v1.HandleCreateRaffle -> h.svc.CreateRaffle -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusCreated, raffle)
}

// HandleGetRaffles godoc
// @Summary      List all raffles
// @Tags         raffles
// @Produce      json
// @Success      200 {object} []domain.Raffle
// @Failure      500 {object} response.Err
// @Router       /raffles [get]
func (h *RaffleHandler) HandleGetRaffles(ctx *gin.Context) {
	raffles, err := h.svc.GetRaffles(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleGetRaffles -> h.svc.GetRaffles -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, raffles)
}

// HandleGetRaffle godoc
// @Summary      Get a raffle by ID
// @Tags         raffles
// @Produce      json
// @Param        raffleID   path      int  true "raffle ID"
// @Success      200      {object}   domain.Raffle
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /raffles/{raffleID} [get]
func (h *RaffleHandler) HandleGetRaffle(ctx *gin.Context) {
	raffleID, respErr := parseRaffleID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	raffle, err := h.svc.GetRaffle(ctx.Request.Context(), raffleID)
	if err != nil {
		if errors.Is(err, service.ErrRaffleNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("raffle", "ID", raffleID))
			return
		}

		err = fmt.Errorf("v1.HandleGetRaffle -> h.svc.GetRaffle -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, raffle)
}

// HandleGetTickets godoc
// @Summary      List a raffle's tickets with their sale status
// @Tags         raffles
// @Produce      json
// @Param        raffleID   path      int  true "raffle ID"
// @Success      200      {object}   []domain.Ticket
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /raffles/{raffleID}/tickets [get]
func (h *RaffleHandler) HandleGetTickets(ctx *gin.Context) {
	raffleID, respErr := parseRaffleID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	tickets, err := h.svc.GetTickets(ctx.Request.Context(), raffleID)
	if err != nil {
		if errors.Is(err, service.ErrRaffleNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("raffle", "ID", raffleID))
			return
		}

		err = fmt.Errorf("v1.HandleGetTickets -> h.svc.GetTickets -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, tickets)
}

// HandleTicketFeed godoc
// @Summary      Stream ticket status changes for a raffle over a websocket
// @Tags         raffles
// @Param        raffleID   path      int  true "raffle ID"
// @Success      101
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /raffles/{raffleID}/tickets/feed [get]
func (h *RaffleHandler) HandleTicketFeed(ctx *gin.Context) {
	raffleID, respErr := parseRaffleID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	// Snapshot first so the client starts from a consistent state, then
	// deltas arrive through the broker.
	tickets, err := h.svc.GetTickets(ctx.Request.Context(), raffleID)
	if err != nil {
		if errors.Is(err, service.ErrRaffleNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("raffle", "ID", raffleID))
			return
		}

		err = fmt.Errorf("v1.HandleTicketFeed -> h.svc.GetTickets -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := h.feed.Subscribe(realtime.TicketTopic(raffleID))
	defer cancel()

	snapshot := realtime.TicketEvent{RaffleID: raffleID, Tickets: tickets}
	if err := writeFeedEvent(conn, snapshot); err != nil {
		return
	}

	// Reader goroutine only detects the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeFeedEvent(conn, event); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeFeedEvent(conn *websocket.Conn, event realtime.TicketEvent) error {
	if err := conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout)); err != nil {
		return err
	}

	return conn.WriteJSON(event)
}

func parseRaffleID(ctx *gin.Context) (uint, *response.Err) {
	rawRaffleID := ctx.Param("raffleID")
	raffleID, err := strconv.Atoi(rawRaffleID)
	if err != nil || raffleID <= 0 {
		return 0, response.ErrBadRequest(fmt.Errorf("invalid raffle ID (%v)", rawRaffleID))
	}

	return uint(raffleID), nil
}
