package publish

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"zapgoals/internal/domain"
)

type memQueue struct {
	mu   sync.Mutex
	jobs []domain.PublishJob
	err  error
	// consumed runs on every enqueue, standing in for a worker that picks
	// the job up at once.
	consumed func(job domain.PublishJob)
}

func (q *memQueue) Enqueue(_ context.Context, job domain.PublishJob) error {
	if q.consumed != nil {
		q.consumed(job)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memQueue) Receive(ctx context.Context) (domain.PublishJob, domain.AckFunc, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return domain.PublishJob{}, nil, context.Canceled
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, func(bool) error { return nil }, nil
}

func (q *memQueue) snapshot() []domain.PublishJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.PublishJob(nil), q.jobs...)
}

type sigVerifier struct{}

func (sigVerifier) Verify(ev domain.RawEvent) error {
	if ev.Sig == "" || ev.ID == "" {
		return fmt.Errorf("%w: missing signature", domain.ErrInvalidSignature)
	}
	return nil
}

type stubSigner struct {
	pubkey string
	n      int
}

func (s *stubSigner) PublicKey() string { return s.pubkey }

func (s *stubSigner) Sign(ev domain.RawEvent) (domain.RawEvent, error) {
	s.n++
	ev.ID = fmt.Sprintf("ev%d", s.n)
	ev.PubKey = s.pubkey
	ev.Sig = "sig"
	return ev, nil
}

type flakyPublisher struct {
	failures  int
	published []string
}

func (p *flakyPublisher) Publish(_ context.Context, ev domain.RawEvent) error {
	if p.failures > 0 {
		p.failures--
		return errors.New("relay refused")
	}
	p.published = append(p.published, ev.ID)
	return nil
}

type memCache struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newMemCache() *memCache { return &memCache{values: make(map[string][]byte)} }

func (c *memCache) Once(key string, _ time.Duration, fn func() error) error {
	c.mu.Lock()
	if _, ok := c.values[key]; ok {
		c.mu.Unlock()
		return nil
	}
	c.values[key] = []byte("1")
	c.mu.Unlock()
	return fn()
}

func (c *memCache) Set(key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memCache) Get(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

type goalMap map[string]domain.Goal

func (m goalMap) Goal(id string) (domain.Goal, bool) {
	g, ok := m[id]
	return g, ok
}
