package publish

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"zapgoals/internal/domain"
	"zapgoals/internal/infra/metrics"
)

const (
	defaultMaxAttempts = 5
	publishTimeout     = 15 * time.Second
)

// Worker drains the publish queue into the relays.
type Worker struct {
	queue       domain.PublishQueue
	publisher   domain.Publisher
	statuses    statusBook
	maxAttempts int
	log         zerolog.Logger
	backoff     time.Duration
}

// NewWorker creates a worker. cache may be nil.
func NewWorker(queue domain.PublishQueue, publisher domain.Publisher, cache domain.Cache, maxAttempts int, logger zerolog.Logger) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Worker{
		queue:       queue,
		publisher:   publisher,
		statuses:    statusBook{cache: cache},
		maxAttempts: maxAttempts,
		log:         logger.With().Str("component", "publisher").Logger(),
		backoff:     time.Second,
	}
}

// Run processes jobs until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, ack, err := w.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("publisher: queue read failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.backoff):
			}
			continue
		}
		w.Handle(ctx, job, ack)
	}
}

// Handle publishes one job. Failed jobs are queued again with a bumped
// attempt counter until maxAttempts is reached.
func (w *Worker) Handle(ctx context.Context, job domain.PublishJob, ack domain.AckFunc) {
	jobLog := w.log.With().
		Str("job_id", job.ID).
		Str("event", job.Event.ID).
		Int("kind", job.Event.Kind).
		Int("attempt", job.Attempt).
		Logger()

	if job.ID == "" {
		jobLog.Error().Msg("publisher: job without id, dropping")
		w.ack(jobLog, ack, true)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	err := w.publisher.Publish(pubCtx, job.Event)
	cancel()
	if err == nil {
		w.finish(jobLog, job, domain.PublishJobPublished)
		jobLog.Info().Msg("publisher: event published")
		w.ack(jobLog, ack, true)
		return
	}

	jobLog.Warn().Err(err).Msg("publisher: publish failed")
	if job.Attempt+1 >= w.maxAttempts {
		jobLog.Error().Msg("publisher: attempts exhausted")
		w.finish(jobLog, job, domain.PublishJobFailed)
		w.ack(jobLog, ack, true)
		return
	}

	retry := job
	retry.Attempt++
	w.finish(jobLog, job, domain.PublishJobRetrying)
	if err := w.queue.Enqueue(ctx, retry); err != nil {
		jobLog.Error().Err(err).Msg("publisher: requeue failed, asking for redelivery")
		w.ack(jobLog, ack, false)
		return
	}
	w.ack(jobLog, ack, true)
}

func (w *Worker) finish(jobLog zerolog.Logger, job domain.PublishJob, status domain.PublishJobStatus) {
	metrics.ObservePublish(string(status))
	if err := w.statuses.set(job.ID, status); err != nil {
		jobLog.Warn().Err(err).Msg("publisher: status not recorded")
	}
}

func (w *Worker) ack(jobLog zerolog.Logger, ack domain.AckFunc, success bool) {
	if ack == nil {
		return
	}
	if err := ack(success); err != nil {
		jobLog.Error().Err(err).Bool("success", success).Msg("publisher: ack failed")
	}
}
