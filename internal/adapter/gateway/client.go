package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/scalekarrt/orderdesk/internal/domain/errors"
	"github.com/scalekarrt/orderdesk/internal/domain/model"
)

// TransientError marks a gateway failure that is safe to retry: timeouts,
// connection errors and 5xx responses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient gateway error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether the error is a retryable gateway failure.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// Client exposes the payment gateway operations the order subsystem needs.
type Client interface {
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*model.PaymentIntent, error)
	FetchPayment(ctx context.Context, paymentID string) (*model.PaymentInfo, error)
	FetchPaymentsForIntent(ctx context.Context, externalOrderID string) ([]model.PaymentInfo, error)
	CreateRefund(ctx context.Context, paymentID string, amount *decimal.Decimal, reason string) (*model.Refund, error)
}

// HTTPClient implements Client against the gateway's REST API. Amounts go
// over the wire in minor units.
type HTTPClient struct {
	baseURL    *url.URL
	keyID      string
	keySecret  string
	httpClient *http.Client
	logger     *slog.Logger
}

type intentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type intentResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type paymentResponse struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Method    string `json:"method"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	CreatedAt int64  `json:"created_at"`
}

type paymentListResponse struct {
	Count int               `json:"count"`
	Items []paymentResponse `json:"items"`
}

type refundRequest struct {
	Amount *int64            `json:"amount,omitempty"`
	Notes  map[string]string `json:"notes,omitempty"`
}

type refundResponse struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// NewHTTPClient creates the gateway client with a bounded request timeout.
func NewHTTPClient(baseURL, keyID, keySecret string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("gateway url must be absolute")
	}
	return &HTTPClient{
		baseURL:   parsed,
		keyID:     keyID,
		keySecret: keySecret,
		logger:    logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// CreatePaymentIntent creates a gateway-side order for the computed total.
func (c *HTTPClient) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*model.PaymentIntent, error) {
	payload := intentRequest{
		Amount:   toMinorUnits(amount),
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	}

	var resp intentResponse
	if err := c.do(ctx, http.MethodPost, "/v1/orders", payload, &resp); err != nil {
		return nil, err
	}

	return &model.PaymentIntent{
		ID:       resp.ID,
		Amount:   fromMinorUnits(resp.Amount),
		Currency: resp.Currency,
		Receipt:  resp.Receipt,
	}, nil
}

// FetchPayment retrieves the authoritative state of a payment.
func (c *HTTPClient) FetchPayment(ctx context.Context, paymentID string) (*model.PaymentInfo, error) {
	var resp paymentResponse
	if err := c.do(ctx, http.MethodGet, path.Join("/v1/payments", paymentID), nil, &resp); err != nil {
		return nil, err
	}
	payment := toPaymentInfo(resp)
	return &payment, nil
}

// FetchPaymentsForIntent lists payments made against a gateway order.
func (c *HTTPClient) FetchPaymentsForIntent(ctx context.Context, externalOrderID string) ([]model.PaymentInfo, error) {
	var resp paymentListResponse
	if err := c.do(ctx, http.MethodGet, path.Join("/v1/orders", externalOrderID, "payments"), nil, &resp); err != nil {
		return nil, err
	}
	payments := make([]model.PaymentInfo, 0, len(resp.Items))
	for _, item := range resp.Items {
		payments = append(payments, toPaymentInfo(item))
	}
	return payments, nil
}

// CreateRefund refunds a captured payment, fully when amount is nil.
func (c *HTTPClient) CreateRefund(ctx context.Context, paymentID string, amount *decimal.Decimal, reason string) (*model.Refund, error) {
	payload := refundRequest{Notes: map[string]string{"reason": reason}}
	if amount != nil {
		minor := toMinorUnits(*amount)
		payload.Amount = &minor
	}

	var resp refundResponse
	if err := c.do(ctx, http.MethodPost, path.Join("/v1/payments", paymentID, "refund"), payload, &resp); err != nil {
		return nil, err
	}

	return &model.Refund{
		ID:        resp.ID,
		PaymentID: resp.PaymentID,
		Amount:    fromMinorUnits(resp.Amount),
		Currency:  resp.Currency,
		Status:    resp.Status,
		CreatedAt: time.Unix(resp.CreatedAt, 0),
	}, nil
}

func (c *HTTPClient) do(ctx context.Context, method, endpointPath string, payload, out any) error {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, endpointPath)

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, out)
	case resp.StatusCode >= 500:
		c.logger.Warn("gateway server error",
			slog.String("path", endpointPath), slog.Int("status", resp.StatusCode))
		return &TransientError{Err: fmt.Errorf("gateway status %s", resp.Status)}
	default:
		raw, _ := io.ReadAll(resp.Body)
		c.logger.Error("gateway request rejected",
			slog.String("path", endpointPath),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(raw)))
		return fmt.Errorf("gateway status %s: %w", resp.Status, domainErrors.ErrGatewayFailure)
	}
}

func toPaymentInfo(resp paymentResponse) model.PaymentInfo {
	return model.PaymentInfo{
		ID:       resp.ID,
		Status:   model.PaymentStatus(resp.Status),
		Method:   resp.Method,
		Amount:   fromMinorUnits(resp.Amount),
		Currency: resp.Currency,
	}
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func fromMinorUnits(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(100))
}
