package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/scalekarrt/orderdesk/internal/domain/errors"
	"github.com/scalekarrt/orderdesk/internal/server/http/dto"
)

// SignatureHeader carries the gateway's HMAC over the raw webhook body.
const SignatureHeader = "X-Webhook-Signature"

// WebhookHandler receives asynchronous gateway notifications.
type WebhookHandler struct {
	facade WebhookFacade
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(facade WebhookFacade) *WebhookHandler {
	return &WebhookHandler{facade: facade}
}

// Receive handles POST /api/webhooks/payment. Anything past the signature
// check is acknowledged so the gateway does not retry forever.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unreadable body"})
		return
	}

	err = h.facade.HandleWebhook(c.Request.Context(), body, c.GetHeader(SignatureHeader))
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid signature"})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
		return
	}
	c.Status(http.StatusOK)
}
