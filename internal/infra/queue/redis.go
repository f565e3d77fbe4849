package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"zapgoals/internal/domain"
	"zapgoals/internal/infra/metrics"
)

// RedisPublishQueue implements domain.PublishQueue on top of a Redis list.
type RedisPublishQueue struct {
	client *redis.Client
	key    string
}

var _ domain.PublishQueue = (*RedisPublishQueue)(nil)

// NewRedisPublishQueue creates a queue under key.
func NewRedisPublishQueue(client *redis.Client, key string) *RedisPublishQueue {
	return &RedisPublishQueue{client: client, key: key}
}

// Enqueue pushes a job to the queue.
func (q *RedisPublishQueue) Enqueue(ctx context.Context, job domain.PublishJob) error {
	payload, err := encodeJob(job)
	if err != nil {
		return err
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Receive blocks until a job is available. A negative ack pushes the job back
// to the consuming end of the list so it is delivered next.
func (q *RedisPublishQueue) Receive(ctx context.Context) (domain.PublishJob, domain.AckFunc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.PublishJob{}, nil, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.PublishJob{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.PublishJob{}, nil, err
		}
		if len(res) != 2 {
			return domain.PublishJob{}, nil, errors.New("redis queue: unexpected response")
		}
		payload := []byte(res[1])
		job, err := decodeJob(payload)
		if err != nil {
			return domain.PublishJob{}, nil, err
		}
		ack := func(success bool) error {
			if success {
				return nil
			}
			return q.client.RPush(context.Background(), q.key, payload).Err()
		}
		return job, ack, nil
	}
}
