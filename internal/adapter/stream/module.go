package stream

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/scalekarrt/orderdesk/internal/config"
)

// Module wires the Kafka event publisher into the fx graph.
var Module = fx.Options(
	fx.Provide(newPublisher),
	fx.Provide(func(p *KafkaPublisher) Publisher { return p }),
	fx.Invoke(registerLifecycle),
)

type publisherParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newPublisher(p publisherParams) *KafkaPublisher {
	return NewKafkaPublisher(p.Config.KafkaBrokers, p.Config.KafkaTopic, p.Logger)
}

func registerLifecycle(lc fx.Lifecycle, publisher *KafkaPublisher) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return publisher.Close()
		},
	})
}
