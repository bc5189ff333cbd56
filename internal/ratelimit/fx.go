package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/rewild/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(
		provideRedis,
		NewTokenBucket,
	),
)

func provideRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}
