package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus mirrors the gateway's payment lifecycle.
type PaymentStatus string

const (
	PaymentStatusCreated    PaymentStatus = "created"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// PaymentInfo records the captured gateway payment applied to an order.
// It is written at most once per order.
type PaymentInfo struct {
	ID       string
	Status   PaymentStatus
	Method   string
	Amount   decimal.Decimal
	Currency string
	PaidAt   time.Time
}

// PaymentIntent is the gateway-side order created before checkout. The intent
// id is what signed confirmations and webhooks refer back to.
type PaymentIntent struct {
	ID       string
	Amount   decimal.Decimal
	Currency string
	Receipt  string
}

// Refund describes a gateway refund of a captured payment.
type Refund struct {
	ID        string
	PaymentID string
	Amount    decimal.Decimal
	Currency  string
	Status    string
	CreatedAt time.Time
}
