package dto

import (
	"time"

	"github.com/scalekarrt/orderdesk/internal/domain/model"
)

// OrderItemRequest is one cart line in a create-order or quote payload.
type OrderItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// AddressPayload is the shipping address supplied at checkout.
type AddressPayload struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

// CreateOrderRequest describes the create-order payload.
type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items"`
	ShippingAddress AddressPayload     `json:"shipping_address"`
}

// UpdateStatusRequest carries the target lifecycle state.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// QuoteRequest prices a cart without reserving stock.
type QuoteRequest struct {
	Items []OrderItemRequest `json:"items"`
}

// OrderLineResponse is a priced line snapshot.
type OrderLineResponse struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"image_url,omitempty"`
}

// PaymentInfoResponse is the captured payment attached to an order.
type PaymentInfoResponse struct {
	ID       string    `json:"id"`
	Status   string    `json:"status"`
	Method   string    `json:"method,omitempty"`
	Amount   string    `json:"amount"`
	Currency string    `json:"currency"`
	PaidAt   time.Time `json:"paid_at"`
}

// OrderResponse is the canonical order representation.
type OrderResponse struct {
	ID              int64                `json:"id"`
	Status          string               `json:"status"`
	Items           []OrderLineResponse  `json:"items"`
	ShippingAddress AddressPayload       `json:"shipping_address"`
	ItemsPrice      string               `json:"items_price"`
	TaxPrice        string               `json:"tax_price"`
	ShippingPrice   string               `json:"shipping_price"`
	TotalPrice      string               `json:"total_price"`
	Receipt         string               `json:"receipt,omitempty"`
	ExternalOrderID string               `json:"external_order_id,omitempty"`
	Payment         *PaymentInfoResponse `json:"payment,omitempty"`
	DeliveredAt     *time.Time           `json:"delivered_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// OrderListResponse is a paginated order listing.
type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

// QuoteResponse is the priced cart.
type QuoteResponse struct {
	Items         []OrderLineResponse `json:"items"`
	ItemsPrice    string              `json:"items_price"`
	TaxPrice      string              `json:"tax_price"`
	ShippingPrice string              `json:"shipping_price"`
	TotalPrice    string              `json:"total_price"`
}

// CreateOrderResponse pairs the stored order with its payment intent. When
// the gateway call failed after the reservation committed, Intent is absent
// and PaymentError tells the client to retry via the intent endpoint.
type CreateOrderResponse struct {
	Order        OrderResponse   `json:"order"`
	Intent       *IntentResponse `json:"intent,omitempty"`
	PaymentError string          `json:"payment_error,omitempty"`
}

// ToOrderResponse maps a domain order onto the wire shape.
func ToOrderResponse(order model.Order) OrderResponse {
	items := make([]OrderLineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		items = append(items, OrderLineResponse{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice.String(),
			Quantity:  line.Quantity,
			ImageURL:  line.ImageURL,
		})
	}

	resp := OrderResponse{
		ID:     order.ID,
		Status: string(order.Status),
		Items:  items,
		ShippingAddress: AddressPayload{
			Street:     order.ShippingAddress.Street,
			City:       order.ShippingAddress.City,
			State:      order.ShippingAddress.State,
			Country:    order.ShippingAddress.Country,
			PostalCode: order.ShippingAddress.PostalCode,
		},
		ItemsPrice:      order.ItemsPrice.String(),
		TaxPrice:        order.TaxPrice.String(),
		ShippingPrice:   order.ShippingPrice.String(),
		TotalPrice:      order.TotalPrice.String(),
		Receipt:         order.Receipt,
		ExternalOrderID: order.ExternalOrderID,
		DeliveredAt:     order.DeliveredAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}

	if order.Payment != nil {
		resp.Payment = &PaymentInfoResponse{
			ID:       order.Payment.ID,
			Status:   string(order.Payment.Status),
			Method:   order.Payment.Method,
			Amount:   order.Payment.Amount.String(),
			Currency: order.Payment.Currency,
			PaidAt:   order.Payment.PaidAt,
		}
	}
	return resp
}
