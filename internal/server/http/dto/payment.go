package dto

import "time"

// VerifyPaymentRequest carries the checkout confirmation signature.
type VerifyPaymentRequest struct {
	ExternalOrderID string `json:"external_order_id"`
	PaymentID       string `json:"payment_id"`
	Signature       string `json:"signature"`
}

// VerifyPaymentResponse reports the signature check result.
type VerifyPaymentResponse struct {
	Verified bool `json:"verified"`
}

// ConfirmPaymentRequest applies a signed checkout confirmation to an order.
type ConfirmPaymentRequest struct {
	ExternalOrderID string `json:"external_order_id"`
	PaymentID       string `json:"payment_id"`
	Signature       string `json:"signature"`
}

// IntentResponse is the gateway-side payment intent the client checks out
// against.
type IntentResponse struct {
	ExternalOrderID string `json:"external_order_id"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	Receipt         string `json:"receipt"`
}

// RefundRequest describes a refund. Amount is a decimal string; empty means
// refund in full.
type RefundRequest struct {
	Amount string `json:"amount,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// RefundResponse is the gateway refund record.
type RefundResponse struct {
	ID        string    `json:"id"`
	PaymentID string    `json:"payment_id"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorResponse carries a human-readable failure reason.
type ErrorResponse struct {
	Error string `json:"error"`
}
