package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rifalibre/rifa-api/internal/api/handler/v1/response"
	"github.com/rifalibre/rifa-api/internal/config"
	"github.com/rifalibre/rifa-api/internal/payment/mercadopago"
	"github.com/rifalibre/rifa-api/internal/service"
)

type WebhookSettler interface {
	HandleWebhookEvent(ctx context.Context, kind, dataID string) error
}

type WebhookHandler struct {
	conf    *config.MercadoPagoConfig
	settler WebhookSettler
}

func NewWebhookHandler(conf *config.MercadoPagoConfig, settler WebhookSettler) *WebhookHandler {
	return &WebhookHandler{
		conf:    conf,
		settler: settler,
	}
}

type webhookBody struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// HandleMercadoPagoWebhook godoc
// @Summary      MercadoPago notification endpoint
// @Description  Verifies the x-signature HMAC and settles approved payments.
// @Description  Replies 200 for every verified notification, handled or not,
// @Description  so the gateway stops retrying.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Success      200 {object} map[string]string
// @Failure      400 {object} response.Err
// @Failure      401 {object} response.Err
// @Router       /webhooks/mercadopago [post]
func (h *WebhookHandler) HandleMercadoPagoWebhook(ctx *gin.Context) {
	var body webhookBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid webhook body -> %w", err)))
		return
	}

	// The gateway duplicates the payment id in the query string; the
	// signature manifest is built from the query value.
	dataID := ctx.Query("data.id")
	if dataID == "" {
		dataID = ctx.Query("id")
	}
	if dataID == "" {
		dataID = body.Data.ID
	}

	kind := body.Action
	if kind == "" {
		kind = body.Type
	}
	if kind == "" {
		kind = ctx.Query("topic")
	}

	if h.conf.AllowUnverifiedWebhooks {
		// Local development only. Never the default.
		zap.L().Warn("accepting unverified webhook notification",
			zap.String("kind", kind),
			zap.String("data_id", dataID))
	} else {
		// An empty secret would key the HMAC with "" and let anyone
		// forge notifications. Fail closed instead.
		if h.conf.WebhookSecret == "" {
			response.RenderErr(ctx, response.ErrUnauthorized("webhook secret is not configured"))
			return
		}

		header := ctx.GetHeader("x-signature")
		requestID := ctx.GetHeader("x-request-id")

		err := mercadopago.VerifySignature(header, requestID, dataID, h.conf.WebhookSecret)
		if err != nil {
			if errors.Is(err, mercadopago.ErrInvalidSignature) {
				response.RenderErr(ctx, response.ErrUnauthorized(mercadopago.ErrInvalidSignature.Error()))
				return
			}

			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}
	}

	if dataID == "" || kind == "" {
		response.RenderErr(ctx, response.ErrBadRequest(errors.New("notification carries no event kind or data id")))
		return
	}

	if err := h.settler.HandleWebhookEvent(ctx.Request.Context(), kind, dataID); err != nil {
		// A lost ticket race is not retryable; acknowledge so the
		// gateway stops redelivering. The settlement service already
		// logged the conflict.
		if errors.Is(err, service.ErrTicketConflict) {
			ctx.JSON(http.StatusOK, gin.H{"result": "conflict"})
			return
		}

		err = fmt.Errorf("v1.HandleMercadoPagoWebhook -> h.settler.HandleWebhookEvent -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"result": "ok"})
}
