package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verifier checks HMAC-SHA256 signatures the gateway attaches to payment
// confirmations and webhook deliveries. The two flows use distinct secrets.
type Verifier struct {
	paymentSecret []byte
	webhookSecret []byte
}

// NewVerifier builds a Verifier from the configured secrets.
func NewVerifier(paymentSecret, webhookSecret string) *Verifier {
	return &Verifier{
		paymentSecret: []byte(paymentSecret),
		webhookSecret: []byte(webhookSecret),
	}
}

// PaymentSignature computes the expected hex signature for a checkout
// confirmation: HMAC over "externalOrderID|paymentID".
func (v *Verifier) PaymentSignature(externalOrderID, paymentID string) string {
	return sign(v.paymentSecret, []byte(externalOrderID+"|"+paymentID))
}

// VerifyPayment reports whether the supplied signature matches the expected
// one. Mismatch is a normal negative result, never an error.
func (v *Verifier) VerifyPayment(externalOrderID, paymentID, signature string) bool {
	expected := v.PaymentSignature(externalOrderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhook checks the whole-body signature of a webhook delivery. The
// body must be the raw, unmodified request payload.
func (v *Verifier) VerifyWebhook(body []byte, signature string) bool {
	expected := sign(v.webhookSecret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func sign(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
