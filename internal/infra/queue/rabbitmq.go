package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"zapgoals/internal/domain"
	"zapgoals/internal/infra/metrics"
)

// RabbitPublishQueue implements domain.PublishQueue over AMQP 0-9-1 with
// manual acknowledgements and a prefetch of one.
type RabbitPublishQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string

	mu         sync.Mutex
	deliveries <-chan amqp.Delivery
}

var _ domain.PublishQueue = (*RabbitPublishQueue)(nil)

// NewRabbitPublishQueue connects to url and declares a durable queue.
func NewRabbitPublishQueue(url, queue string) (*RabbitPublishQueue, error) {
	if url == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &RabbitPublishQueue{conn: conn, ch: ch, queue: queue}, nil
}

// Enqueue publishes a persistent message to the default exchange.
func (q *RabbitPublishQueue) Enqueue(ctx context.Context, job domain.PublishJob) error {
	payload, err := encodeJob(job)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	}
	start := time.Now()
	q.mu.Lock()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, msg)
	q.mu.Unlock()
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Receive waits for the next delivery. Negative acks requeue the message.
func (q *RabbitPublishQueue) Receive(ctx context.Context) (domain.PublishJob, domain.AckFunc, error) {
	deliveries, err := q.consume()
	if err != nil {
		return domain.PublishJob{}, nil, err
	}
	select {
	case <-ctx.Done():
		return domain.PublishJob{}, nil, ctx.Err()
	case d, ok := <-deliveries:
		if !ok {
			return domain.PublishJob{}, nil, errors.New("rabbitmq: delivery channel closed")
		}
		job, err := decodeJob(d.Body)
		if err != nil {
			// Poison messages are dropped rather than redelivered forever.
			_ = d.Nack(false, false)
			return domain.PublishJob{}, nil, err
		}
		ack := func(success bool) error {
			if success {
				return d.Ack(false)
			}
			return d.Nack(false, true)
		}
		return job, ack, nil
	}
}

func (q *RabbitPublishQueue) consume() (<-chan amqp.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deliveries != nil {
		return q.deliveries, nil
	}
	if err := q.ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", q.queue, err)
	}
	q.deliveries = deliveries
	return deliveries, nil
}

// Close closes the channel and the connection.
func (q *RabbitPublishQueue) Close() error {
	return errors.Join(q.ch.Close(), q.conn.Close())
}
