package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/scalekarrt/orderdesk/internal/server/http/dto"
)

// PaymentHandler manages payment verification, confirmation and refunds.
type PaymentHandler struct {
	facade PaymentFacade
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(facade PaymentFacade) *PaymentHandler {
	return &PaymentHandler{facade: facade}
}

// Verify handles POST /api/payments/verify. A signature mismatch is a normal
// negative result.
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req dto.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed body"})
		return
	}

	verified := h.facade.VerifyPayment(req.ExternalOrderID, req.PaymentID, req.Signature)
	c.JSON(http.StatusOK, dto.VerifyPaymentResponse{Verified: verified})
}

// Confirm handles POST /api/orders/:id/payment.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req dto.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed body"})
		return
	}

	order, err := h.facade.ConfirmPayment(c.Request.Context(), orderID, CurrentPrincipal(c), req.ExternalOrderID, req.PaymentID, req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(*order))
}

// RetryIntent handles POST /api/orders/:id/payment/intent.
func (h *PaymentHandler) RetryIntent(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	intent, err := h.facade.RetryPaymentIntent(c.Request.Context(), orderID, CurrentPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.IntentResponse{
		ExternalOrderID: intent.ID,
		Amount:          intent.Amount.String(),
		Currency:        intent.Currency,
		Receipt:         intent.Receipt,
	})
}

// Refund handles POST /api/orders/:id/refund.
func (h *PaymentHandler) Refund(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed body"})
		return
	}

	var amount *decimal.Decimal
	if req.Amount != "" {
		parsed, err := decimal.NewFromString(req.Amount)
		if err != nil || !parsed.IsPositive() {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "bad refund amount"})
			return
		}
		amount = &parsed
	}

	refund, err := h.facade.RefundOrder(c.Request.Context(), orderID, CurrentPrincipal(c), amount, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RefundResponse{
		ID:        refund.ID,
		PaymentID: refund.PaymentID,
		Amount:    refund.Amount.String(),
		Currency:  refund.Currency,
		Status:    refund.Status,
		CreatedAt: refund.CreatedAt,
	})
}
