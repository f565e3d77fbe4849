package publish

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"zapgoals/internal/domain"
)

func TestWorkerRetriesThenPublishes(t *testing.T) {
	q := &memQueue{}
	cache := newMemCache()
	pub := &flakyPublisher{failures: 2}
	w := NewWorker(q, pub, cache, 5, zerolog.Nop())

	require.NoError(t, q.Enqueue(context.Background(), domain.PublishJob{ID: "j1", Event: domain.RawEvent{ID: "e1"}}))
	w.Run(context.Background())

	require.Equal(t, []string{"e1"}, pub.published)
	status, err := statusBook{cache: cache}.get("j1")
	require.NoError(t, err)
	require.Equal(t, domain.PublishJobPublished, status)
}

func TestWorkerGivesUp(t *testing.T) {
	q := &memQueue{}
	cache := newMemCache()
	pub := &flakyPublisher{failures: 10}
	w := NewWorker(q, pub, cache, 3, zerolog.Nop())

	require.NoError(t, q.Enqueue(context.Background(), domain.PublishJob{ID: "j1", Event: domain.RawEvent{ID: "e1"}}))
	w.Run(context.Background())

	require.Empty(t, pub.published)
	require.Equal(t, 7, pub.failures)
	status, err := statusBook{cache: cache}.get("j1")
	require.NoError(t, err)
	require.Equal(t, domain.PublishJobFailed, status)
}

func TestWorkerAsksForRedeliveryWhenRequeueFails(t *testing.T) {
	q := &memQueue{}
	w := NewWorker(q, &flakyPublisher{failures: 1}, nil, 3, zerolog.Nop())

	var acked []bool
	q.err = context.DeadlineExceeded
	w.Handle(context.Background(), domain.PublishJob{ID: "j1"}, func(success bool) error {
		acked = append(acked, success)
		return nil
	})
	require.Equal(t, []bool{false}, acked)
}

func TestWorkerRetryStatusDoesNotOverwriteFasterWorker(t *testing.T) {
	cache := newMemCache()
	book := statusBook{cache: cache}
	q := &memQueue{consumed: func(job domain.PublishJob) {
		require.NoError(t, book.set(job.ID, domain.PublishJobPublished))
	}}
	w := NewWorker(q, &flakyPublisher{failures: 1}, cache, 3, zerolog.Nop())

	w.Handle(context.Background(), domain.PublishJob{ID: "j1", Event: domain.RawEvent{ID: "e1"}}, nil)

	status, err := book.get("j1")
	require.NoError(t, err)
	require.Equal(t, domain.PublishJobPublished, status)
}
