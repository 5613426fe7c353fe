package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/scalekarrt/orderdesk/internal/domain/model"
	"github.com/scalekarrt/orderdesk/internal/domain/repository"
	"github.com/scalekarrt/orderdesk/internal/server/http/dto"
)

// OrderHandler manages order lifecycle endpoints.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Create handles POST /api/orders.
func (h *OrderHandler) Create(c *gin.Context) {
	principal := CurrentPrincipal(c)

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed body"})
		return
	}

	order, intent, err := h.facade.CreateOrder(c.Request.Context(), principal.UserID, toLineRequests(req.Items), model.Address{
		Street:     req.ShippingAddress.Street,
		City:       req.ShippingAddress.City,
		State:      req.ShippingAddress.State,
		Country:    req.ShippingAddress.Country,
		PostalCode: req.ShippingAddress.PostalCode,
	})
	if err != nil && order == nil {
		respondError(c, err)
		return
	}

	// A gateway failure after the reservation committed still returns the
	// order. The intent is retried through the intent endpoint.
	resp := dto.CreateOrderResponse{Order: dto.ToOrderResponse(*order)}
	switch {
	case intent != nil:
		resp.Intent = &dto.IntentResponse{
			ExternalOrderID: intent.ID,
			Amount:          intent.Amount.String(),
			Currency:        intent.Currency,
			Receipt:         intent.Receipt,
		}
	case err != nil:
		resp.PaymentError = "payment intent unavailable, retry via the intent endpoint"
	}
	c.JSON(http.StatusCreated, resp)
}

// Get handles GET /api/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := h.facade.Order(c.Request.Context(), orderID, CurrentPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(*order))
}

// List handles GET /api/orders.
func (h *OrderHandler) List(c *gin.Context) {
	page, limit := pagination(c)
	orders, total, err := h.facade.BuyerOrders(c.Request.Context(), CurrentPrincipal(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderListResponse(orders, total, page, limit))
}

// ListForSeller handles GET /api/seller/orders.
func (h *OrderHandler) ListForSeller(c *gin.Context) {
	page, limit := pagination(c)
	status := model.OrderStatus(c.Query("status"))

	orders, total, err := h.facade.SellerOrders(c.Request.Context(), CurrentPrincipal(c), status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderListResponse(orders, total, page, limit))
}

// UpdateStatus handles PUT /api/orders/:id/status.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed body"})
		return
	}

	order, err := h.facade.AdvanceOrder(c.Request.Context(), orderID, CurrentPrincipal(c), model.OrderStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(*order))
}

// Cancel handles POST /api/orders/:id/cancel.
func (h *OrderHandler) Cancel(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := h.facade.CancelOrder(c.Request.Context(), orderID, CurrentPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(*order))
}

// Quote handles POST /api/cart/quote.
func (h *OrderHandler) Quote(c *gin.Context) {
	var req dto.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed body"})
		return
	}

	lines, breakdown, err := h.facade.QuoteCart(c.Request.Context(), toLineRequests(req.Items))
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]dto.OrderLineResponse, 0, len(lines))
	for _, line := range lines {
		items = append(items, dto.OrderLineResponse{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice.String(),
			Quantity:  line.Quantity,
			ImageURL:  line.ImageURL,
		})
	}
	c.JSON(http.StatusOK, dto.QuoteResponse{
		Items:         items,
		ItemsPrice:    breakdown.ItemsPrice.String(),
		TaxPrice:      breakdown.TaxPrice.String(),
		ShippingPrice: breakdown.ShippingPrice.String(),
		TotalPrice:    breakdown.TotalPrice.String(),
	})
}

func toLineRequests(items []dto.OrderItemRequest) []repository.LineRequest {
	lines := make([]repository.LineRequest, 0, len(items))
	for _, item := range items {
		lines = append(lines, repository.LineRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

func toOrderListResponse(orders []model.Order, total, page, limit int) dto.OrderListResponse {
	resp := dto.OrderListResponse{
		Orders: make([]dto.OrderResponse, 0, len(orders)),
		Total:  total,
		Page:   page,
		Limit:  limit,
	}
	for _, order := range orders {
		resp.Orders = append(resp.Orders, dto.ToOrderResponse(order))
	}
	return resp
}

func orderIDParam(c *gin.Context) (int64, bool) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orderID <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "bad order id"})
		return 0, false
	}
	return orderID, true
}

func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	return page, limit
}
