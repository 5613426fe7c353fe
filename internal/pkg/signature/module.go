package signature

import (
	"github.com/scalekarrt/orderdesk/internal/config"
	"go.uber.org/fx"
)

// Module provides the signature verifier to the fx graph.
var Module = fx.Provide(newVerifier)

type verifierParams struct {
	fx.In

	Config *config.Config
}

func newVerifier(p verifierParams) *Verifier {
	return NewVerifier(p.Config.PaymentSecret, p.Config.WebhookSecret)
}
