// README: Redis pub/sub implementation of the event emitter.
package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const channel = "dispatch:events"

type RedisEmitter struct {
	redis *redis.Client
}

func NewRedisEmitter(redis *redis.Client) *RedisEmitter {
	return &RedisEmitter{redis: redis}
}

func (e *RedisEmitter) Emit(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return e.redis.Publish(ctx, channel, payload).Err()
}
