package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scalekarrt/orderdesk/internal/adapter/gateway"
	domainErrors "github.com/scalekarrt/orderdesk/internal/domain/errors"
	"github.com/scalekarrt/orderdesk/internal/domain/model"
	"github.com/scalekarrt/orderdesk/internal/server/http/dto"
	"github.com/scalekarrt/orderdesk/internal/server/http/middleware"
)

// CurrentPrincipal extracts the authenticated principal from context. The
// auth middleware guarantees presence on protected routes.
func CurrentPrincipal(c *gin.Context) model.Principal {
	val, ok := c.Get(middleware.PrincipalContextKey)
	if !ok {
		return model.Principal{}
	}
	principal, _ := val.(model.Principal)
	return principal
}

// respondError maps domain errors onto HTTP statuses with a readable reason.
func respondError(c *gin.Context, err error) {
	var stockErr *domainErrors.StockError
	if errors.As(err, &stockErr) {
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: stockErr.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domainErrors.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domainErrors.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domainErrors.ErrInvalidSignature):
		status = http.StatusBadRequest
	case errors.Is(err, domainErrors.ErrOutOfStock),
		errors.Is(err, domainErrors.ErrProductUnavailable),
		errors.Is(err, domainErrors.ErrInvalidTransition),
		errors.Is(err, domainErrors.ErrNotCancellable),
		errors.Is(err, domainErrors.ErrPaymentConflict),
		errors.Is(err, domainErrors.ErrNoPayment):
		status = http.StatusConflict
	case errors.Is(err, domainErrors.ErrPaymentNotCaptured):
		status = http.StatusPaymentRequired
	case errors.Is(err, domainErrors.ErrGatewayFailure), gateway.IsTransient(err):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		c.JSON(status, dto.ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(status, dto.ErrorResponse{Error: err.Error()})
}
