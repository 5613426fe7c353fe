package test

import (
	"github.com/scalekarrt/orderdesk/internal/domain/model"
)

// StrategyStub issues and parses principal tokens via function overrides.
type StrategyStub struct {
	IssueFn func(model.Principal) (string, error)
	ParseFn func(string) (model.Principal, error)
	NameVal string
}

// IssueToken returns deterministic tokens for tests.
func (s StrategyStub) IssueToken(p model.Principal) (string, error) {
	if s.IssueFn != nil {
		return s.IssueFn(p)
	}
	return "token", nil
}

// ParseToken parses previously issued token strings.
func (s StrategyStub) ParseToken(token string) (model.Principal, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	return model.Principal{UserID: 1, Role: model.RoleBuyer}, nil
}

// Name returns the strategy identifier used in tests.
func (s StrategyStub) Name() string {
	if s.NameVal != "" {
		return s.NameVal
	}
	return "stub"
}

// TokenParserStub implements the middleware token parsing contract.
type TokenParserStub struct {
	Principal model.Principal
	Err       error
	ParseFn   func(string) (model.Principal, error)
}

// ParseToken either delegates to the override or returns the predefined
// result.
func (s TokenParserStub) ParseToken(token string) (model.Principal, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	if s.Err != nil {
		return model.Principal{}, s.Err
	}
	return s.Principal, nil
}

// VerifierStub controls signature verification outcomes.
type VerifierStub struct {
	PaymentOK bool
	WebhookOK bool
}

func (s VerifierStub) VerifyPayment(externalOrderID, paymentID, signature string) bool {
	return s.PaymentOK
}

func (s VerifierStub) VerifyWebhook(body []byte, signature string) bool {
	return s.WebhookOK
}
