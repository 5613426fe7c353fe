package auth

import (
	"github.com/scalekarrt/orderdesk/internal/config"
	"go.uber.org/fx"
)

// Module provides principal token verification via fx.
var Module = fx.Provide(newTokenStrategy)

type strategyParams struct {
	fx.In

	Config *config.Config
}

func newTokenStrategy(p strategyParams) Strategy {
	return NewHMACStrategy(p.Config.PrincipalSecret, Options{})
}
