package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrolink/agrolink-backend/internal/dto"
	"github.com/agrolink/agrolink-backend/internal/http/handlers/common"
	"github.com/agrolink/agrolink-backend/internal/service"
)

// Лимит тела webhook, события шлюза небольшие.
const maxWebhookBodyBytes = 64 * 1024

type WebhookHandler struct {
	escrows *service.EscrowService
}

func NewWebhookHandler(escrows *service.EscrowService) *WebhookHandler {
	return &WebhookHandler{escrows: escrows}
}

// HandlePaymentEvent POST /webhooks/payment
// Эндпоинт без авторизации, подлинность события подтверждает подпись шлюза.
func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать тело запроса")
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if err := h.escrows.HandleGatewayEvent(c.Request.Context(), payload, signature); err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.WebhookAckResponse{Received: true})
}
