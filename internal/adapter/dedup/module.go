package dedup

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/scalekarrt/orderdesk/internal/config"
)

// Module wires the Redis-backed webhook dedup cache.
var Module = fx.Options(
	fx.Provide(newRedisClient),
	fx.Provide(func(client *redis.Client) Deduper { return NewRedisDeduper(client) }),
	fx.Invoke(registerLifecycle),
)

type clientParams struct {
	fx.In

	Config *config.Config
}

func newRedisClient(p clientParams) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: p.Config.RedisAddress})
}

func registerLifecycle(lc fx.Lifecycle, client *redis.Client) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
}
