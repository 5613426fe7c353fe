package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus describes the order lifecycle.
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// Valid reports whether the status is a known lifecycle state.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from the status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// transitions is the strict successor table. Skipping a state is not allowed.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderLine is an immutable snapshot of one purchased item. Name, unit price
// and image are captured at order time so later catalog edits cannot drift
// what the buyer agreed to pay.
type OrderLine struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	ImageURL  string
	SellerID  int64
}

// Address is the shipping address snapshot stored with the order.
type Address struct {
	Street     string
	City       string
	State      string
	Country    string
	PostalCode string
}

// Order is a durable purchase record. Lines are immutable after creation;
// status moves only along the transition table above.
type Order struct {
	ID              int64
	BuyerID         int64
	Lines           []OrderLine
	ShippingAddress Address
	Payment         *PaymentInfo
	ExternalOrderID string
	Receipt         string
	ItemsPrice      decimal.Decimal
	TaxPrice        decimal.Decimal
	ShippingPrice   decimal.Decimal
	TotalPrice      decimal.Decimal
	Status          OrderStatus
	DeliveredAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasSeller reports whether the seller owns at least one line of the order.
func (o *Order) HasSeller(sellerID int64) bool {
	for _, line := range o.Lines {
		if line.SellerID == sellerID {
			return true
		}
	}
	return false
}

// Paid reports whether the order carries a captured payment.
func (o *Order) Paid() bool {
	return o.Payment != nil && o.Payment.Status == PaymentStatusCaptured
}
