package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	domainErrors "github.com/scalekarrt/orderdesk/internal/domain/errors"
	"github.com/scalekarrt/orderdesk/internal/domain/model"
	"github.com/scalekarrt/orderdesk/internal/domain/repository"
	"github.com/scalekarrt/orderdesk/internal/server/http/dto"
	"github.com/scalekarrt/orderdesk/internal/server/http/middleware"
	testhelpers "github.com/scalekarrt/orderdesk/internal/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(facade *testhelpers.CommerceFacadeStub, principal model.Principal) *gin.Engine {
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set(middleware.PrincipalContextKey, principal)
	})

	orders := NewOrderHandler(facade)
	payments := NewPaymentHandler(facade)
	webhooks := NewWebhookHandler(facade)

	engine.POST("/api/orders", orders.Create)
	engine.GET("/api/orders", orders.List)
	engine.GET("/api/orders/:id", orders.Get)
	engine.PUT("/api/orders/:id/status", orders.UpdateStatus)
	engine.POST("/api/orders/:id/cancel", orders.Cancel)
	engine.POST("/api/orders/:id/payment", payments.Confirm)
	engine.POST("/api/orders/:id/payment/intent", payments.RetryIntent)
	engine.POST("/api/orders/:id/refund", payments.Refund)
	engine.GET("/api/seller/orders", orders.ListForSeller)
	engine.POST("/api/cart/quote", orders.Quote)
	engine.POST("/api/payments/verify", payments.Verify)
	engine.POST("/api/webhooks/payment", webhooks.Receive)
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	return resp
}

func buyer() model.Principal { return model.Principal{UserID: 1, Role: model.RoleBuyer} }

func createPayload() dto.CreateOrderRequest {
	return dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: 7, Quantity: 2}},
		ShippingAddress: dto.AddressPayload{
			Street: "1 Main St", City: "Pune", State: "MH", Country: "IN", PostalCode: "411001",
		},
	}
}

func TestCreateOrder(t *testing.T) {
	facade := testhelpers.NewCommerceFacadeStub()
	engine := newEngine(facade, buyer())

	resp := doJSON(t, engine, http.MethodPost, "/api/orders", createPayload())
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created dto.CreateOrderResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Intent == nil || created.Intent.ExternalOrderID != "ext_1" {
		t.Fatalf("expected intent in response, got %+v", created.Intent)
	}
}

func TestCreateOrderGatewayDownStillCreates(t *testing.T) {
	facade := testhelpers.NewCommerceFacadeStub()
	facade.CreateFn = func(context.Context, int64, []repository.LineRequest, model.Address) (*model.Order, *model.PaymentIntent, error) {
		return &model.Order{ID: 5, Status: model.OrderStatusProcessing}, nil, domainErrors.ErrGatewayFailure
	}
	engine := newEngine(facade, buyer())

	resp := doJSON(t, engine, http.MethodPost, "/api/orders", createPayload())
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 despite gateway failure, got %d", resp.Code)
	}
	var created dto.CreateOrderResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Intent != nil {
		t.Fatalf("expected no intent, got %+v", created.Intent)
	}
	if created.PaymentError == "" {
		t.Fatal("expected payment_error to flag the missing intent")
	}
	if created.Order.ID != 5 {
		t.Fatalf("expected order 5, got %d", created.Order.ID)
	}
}

func TestCreateOrderOutOfStock(t *testing.T) {
	facade := testhelpers.NewCommerceFacadeStub()
	facade.CreateFn = func(context.Context, int64, []repository.LineRequest, model.Address) (*model.Order, *model.PaymentIntent, error) {
		return nil, nil, &domainErrors.StockError{ProductID: 7, Name: "mug", Requested: 2, Available: 1}
	}
	engine := newEngine(facade, buyer())

	resp := doJSON(t, engine, http.MethodPost, "/api/orders", createPayload())
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for stock shortage, got %d", resp.Code)
	}
	var body dto.ErrorResponse
	_ = json.Unmarshal(resp.Body.Bytes(), &body)
	if body.Error == "" {
		t.Fatal("expected stock error message in body")
	}
}

func TestCreateOrderMalformedBody(t *testing.T) {
	engine := newEngine(testhelpers.NewCommerceFacadeStub(), buyer())
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader([]byte("{")))
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGetOrderErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domainErrors.ErrNotFound, http.StatusNotFound},
		{domainErrors.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		facade := testhelpers.NewCommerceFacadeStub()
		err := tc.err
		facade.OrderFn = func(context.Context, int64, model.Principal) (*model.Order, error) {
			return nil, err
		}
		engine := newEngine(facade, buyer())
		resp := doJSON(t, engine, http.MethodGet, "/api/orders/3", nil)
		if resp.Code != tc.code {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.code, resp.Code)
		}
	}
}

func TestGetOrderBadID(t *testing.T) {
	engine := newEngine(testhelpers.NewCommerceFacadeStub(), buyer())
	resp := doJSON(t, engine, http.MethodGet, "/api/orders/abc", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", resp.Code)
	}
}

func TestListOrdersPagination(t *testing.T) {
	facade := testhelpers.NewCommerceFacadeStub()
	var gotPage, gotLimit int
	facade.BuyerFn = func(_ context.Context, _ model.Principal, page, limit int) ([]model.Order, int, error) {
		gotPage, gotLimit = page, limit
		return []model.Order{{ID: 1, Status: model.OrderStatusProcessing}}, 11, nil
	}
	engine := newEngine(facade, buyer())

	resp := doJSON(t, engine, http.MethodGet, "/api/orders?page=2&limit=5", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if gotPage != 2 || gotLimit != 5 {
		t.Fatalf("expected page=2 limit=5, got page=%d limit=%d", gotPage, gotLimit)
	}
	var list dto.OrderListResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if list.Total != 11 || len(list.Orders) != 1 {
		t.Fatalf("unexpected listing %+v", list)
	}
}

func TestSellerOrdersPassesStatusFilter(t *testing.T) {
	facade := testhelpers.NewCommerceFacadeStub()
	var gotStatus model.OrderStatus
	facade.SellerFn = func(_ context.Context, _ model.Principal, status model.OrderStatus, _, _ int) ([]model.Order, int, error) {
		gotStatus = status
		return nil, 0, nil
	}
	engine := newEngine(facade, model.Principal{UserID: 2, Role: model.RoleSeller})

	resp := doJSON(t, engine, http.MethodGet, "/api/seller/orders?status=Shipped", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if gotStatus != model.OrderStatusShipped {
		t.Fatalf("expected Shipped filter, got %q", gotStatus)
	}
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	facade := testhelpers.NewCommerceFacadeStub()
	facade.AdvanceFn = func(context.Context, int64, model.Principal, model.OrderStatus) (*model.Order, error) {
		return nil, domainErrors.ErrInvalidTransition
	}
	engine := newEngine(facade, model.Principal{UserID: 2, Role: model.RoleSeller})

	resp := doJSON(t, engine, http.MethodPut, "/api/orders/3/status", dto.UpdateStatusRequest{Status: "Delivered"})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestCancelOrder(t *testing.T) {
	engine := newEngine(testhelpers.NewCommerceFacadeStub(), buyer())
	resp := doJSON(t, engine, http.MethodPost, "/api/orders/3/cancel", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var order dto.OrderResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if order.Status != string(model.OrderStatusCancelled) {
		t.Fatalf("expected Cancelled, got %q", order.Status)
	}

	facade := testhelpers.NewCommerceFacadeStub()
	facade.OrderFacadeStub.CancelFn = func(context.Context, int64, model.Principal) (*model.Order, error) {
		return nil, domainErrors.ErrNotCancellable
	}
	engine = newEngine(facade, buyer())
	resp = doJSON(t, engine, http.MethodPost, "/api/orders/3/cancel", nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for shipped order, got %d", resp.Code)
	}
}

func TestQuoteCart(t *testing.T) {
	facade := testhelpers.NewCommerceFacadeStub()
	facade.QuoteFn = func(context.Context, []repository.LineRequest) ([]model.OrderLine, model.PriceBreakdown, error) {
		price := decimal.RequireFromString("250.00")
		return []model.OrderLine{{ProductID: 7, Name: "mug", UnitPrice: price, Quantity: 1}},
			model.PriceBreakdown{
				ItemsPrice:    price,
				TaxPrice:      decimal.RequireFromString("25.00"),
				ShippingPrice: decimal.Zero,
				TotalPrice:    decimal.RequireFromString("275.00"),
			}, nil
	}
	engine := newEngine(facade, buyer())

	resp := doJSON(t, engine, http.MethodPost, "/api/cart/quote", dto.QuoteRequest{Items: []dto.OrderItemRequest{{ProductID: 7, Quantity: 1}}})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var quote dto.QuoteResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &quote); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if quote.TotalPrice != "275" && quote.TotalPrice != "275.00" {
		t.Fatalf("expected total 275, got %q", quote.TotalPrice)
	}
}

func TestVerifyPayment(t *testing.T) {
	facade := testhelpers.NewCommerceFacadeStub()
	facade.VerifyFn = func(_, _, signature string) bool { return signature == "good" }
	engine := newEngine(facade, buyer())

	resp := doJSON(t, engine, http.MethodPost, "/api/payments/verify",
		dto.VerifyPaymentRequest{ExternalOrderID: "ext_1", PaymentID: "pay_1", Signature: "good"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var verified dto.VerifyPaymentResponse
	_ = json.Unmarshal(resp.Body.Bytes(), &verified)
	if !verified.Verified {
		t.Fatal("expected verified true")
	}

	resp = doJSON(t, engine, http.MethodPost, "/api/payments/verify",
		dto.VerifyPaymentRequest{ExternalOrderID: "ext_1", PaymentID: "pay_1", Signature: "bad"})
	_ = json.Unmarshal(resp.Body.Bytes(), &verified)
	if resp.Code != http.StatusOK || verified.Verified {
		t.Fatalf("expected negative verification, got %d %+v", resp.Code, verified)
	}
}

func TestConfirmPaymentErrors(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domainErrors.ErrInvalidSignature, http.StatusBadRequest},
		{domainErrors.ErrPaymentNotCaptured, http.StatusPaymentRequired},
		{domainErrors.ErrPaymentConflict, http.StatusConflict},
	}
	for _, tc := range cases {
		facade := testhelpers.NewCommerceFacadeStub()
		err := tc.err
		facade.ConfirmFn = func(context.Context, int64, model.Principal, string, string, string) (*model.Order, error) {
			return nil, err
		}
		engine := newEngine(facade, buyer())
		resp := doJSON(t, engine, http.MethodPost, "/api/orders/3/payment",
			dto.ConfirmPaymentRequest{ExternalOrderID: "ext_1", PaymentID: "pay_1", Signature: "sig"})
		if resp.Code != tc.code {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.code, resp.Code)
		}
	}
}

func TestRetryIntent(t *testing.T) {
	engine := newEngine(testhelpers.NewCommerceFacadeStub(), buyer())
	resp := doJSON(t, engine, http.MethodPost, "/api/orders/3/payment/intent", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var intent dto.IntentResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &intent); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if intent.ExternalOrderID != "ext_1" {
		t.Fatalf("expected ext_1, got %q", intent.ExternalOrderID)
	}
}

func TestRefund(t *testing.T) {
	facade := testhelpers.NewCommerceFacadeStub()
	var gotAmount *decimal.Decimal
	facade.RefundFn = func(_ context.Context, _ int64, _ model.Principal, amount *decimal.Decimal, _ string) (*model.Refund, error) {
		gotAmount = amount
		return &model.Refund{ID: "rfnd_1", PaymentID: "pay_1", Amount: decimal.RequireFromString("50"), Currency: "INR", Status: "processed"}, nil
	}
	engine := newEngine(facade, model.Principal{UserID: 2, Role: model.RoleSeller})

	resp := doJSON(t, engine, http.MethodPost, "/api/orders/3/refund", dto.RefundRequest{Amount: "50"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotAmount == nil || !gotAmount.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("expected amount 50 passed through, got %v", gotAmount)
	}

	resp = doJSON(t, engine, http.MethodPost, "/api/orders/3/refund", dto.RefundRequest{Amount: "-1"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative amount, got %d", resp.Code)
	}

	facade.RefundFn = func(context.Context, int64, model.Principal, *decimal.Decimal, string) (*model.Refund, error) {
		return nil, domainErrors.ErrNoPayment
	}
	resp = doJSON(t, engine, http.MethodPost, "/api/orders/3/refund", dto.RefundRequest{})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for unpaid order, got %d", resp.Code)
	}
}

func TestWebhookReceive(t *testing.T) {
	facade := testhelpers.NewCommerceFacadeStub()
	engine := newEngine(facade, model.Principal{})

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", bytes.NewReader([]byte(`{"event":"payment.captured"}`)))
	req.Header.Set(SignatureHeader, "sig")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 ack, got %d", resp.Code)
	}
	if len(facade.WebhookFacadeStub.Bodies) != 1 {
		t.Fatalf("expected webhook delivered once, got %d", len(facade.WebhookFacadeStub.Bodies))
	}

	facade.HandleFn = func(context.Context, []byte, string) error {
		return domainErrors.ErrInvalidSignature
	}
	req = httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", bytes.NewReader([]byte(`{}`)))
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad signature, got %d", resp.Code)
	}
}
