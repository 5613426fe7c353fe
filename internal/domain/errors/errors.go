package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("invalid input")
	ErrOutOfStock         = errors.New("out of stock")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrNotCancellable     = errors.New("order is not cancellable")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrPaymentNotCaptured = errors.New("payment not captured")
	ErrPaymentConflict    = errors.New("payment applied to another order")
	ErrNoPayment          = errors.New("no payment recorded for order")
	ErrGatewayFailure     = errors.New("payment gateway rejected request")
)

// StockError reports which product failed the stock check and how many units
// were actually available. It unwraps to ErrOutOfStock.
type StockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (product %d): requested %d, available %d",
		e.Name, e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrOutOfStock }
