package queue

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"zapgoals/internal/domain"
)

// Open builds the publish queue for backend ("redis" or "rabbitmq"). The
// returned close function is never nil.
func Open(backend string, client *redis.Client, rabbitURL, key string) (domain.PublishQueue, func(), error) {
	switch backend {
	case "", "redis":
		if client == nil {
			return nil, func() {}, errors.New("redis queue: REDIS_ADDR is not set")
		}
		return NewRedisPublishQueue(client, key), func() {}, nil
	case "rabbitmq":
		q, err := NewRabbitPublishQueue(rabbitURL, key)
		if err != nil {
			return nil, func() {}, err
		}
		return q, func() { _ = q.Close() }, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown queue backend %q", backend)
	}
}
