package eventbus

import (
	"context"

	"github.com/petroworks/pumpline/internal/config"
	"github.com/redis/go-redis/v9"
)

type redisTransport struct {
	client *redis.Client
}

// NewRedisTransport publishes events over redis pub/sub.
func NewRedisTransport(cfg config.Config) Transport {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &redisTransport{client: client}
}

func (t *redisTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	return t.client.Publish(ctx, channel, payload).Err()
}
