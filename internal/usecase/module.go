package usecase

import (
	"go.uber.org/fx"

	"github.com/scalekarrt/orderdesk/internal/adapter/gateway"
	"github.com/scalekarrt/orderdesk/internal/pkg/signature"
)

// Module provides core business use cases to the fx container.
var Module = fx.Options(
	fx.Provide(
		NewOrderUseCase,
		NewPaymentUseCase,
		NewWebhookUseCase,
	),
	fx.Provide(
		func(client gateway.Client) PaymentGateway { return client },
		func(v *signature.Verifier) SignatureVerifier { return v },
		func(u *PaymentUseCase) PaymentRecorder { return u },
	),
)
