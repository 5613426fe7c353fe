package di

import (
	"go.uber.org/fx"

	"github.com/scalekarrt/orderdesk/internal/adapter/dedup"
	"github.com/scalekarrt/orderdesk/internal/adapter/gateway"
	"github.com/scalekarrt/orderdesk/internal/adapter/stream"
	"github.com/scalekarrt/orderdesk/internal/app"
	"github.com/scalekarrt/orderdesk/internal/config"
	"github.com/scalekarrt/orderdesk/internal/logger"
	"github.com/scalekarrt/orderdesk/internal/pkg/auth"
	"github.com/scalekarrt/orderdesk/internal/pkg/signature"
	"github.com/scalekarrt/orderdesk/internal/server/http/handlers"
	"github.com/scalekarrt/orderdesk/internal/server/http/router"
	"github.com/scalekarrt/orderdesk/internal/storage/postgres"
	"github.com/scalekarrt/orderdesk/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		signature.Module,
		postgres.Module,
		gateway.Module,
		stream.Module,
		dedup.Module,
		usecase.Module,
		fx.Provide(func(f *app.CommerceFacade) handlers.CommerceFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
