package domain

import (
	"context"
	"time"
)

// PublishJob carries a signed event to the publisher worker.
type PublishJob struct {
	ID          string    `json:"job_id,omitempty"`
	Event       RawEvent  `json:"event"`
	Attempt     int       `json:"attempt"`
	RequestedAt time.Time `json:"requested_at"`
}

// PublishJobStatus is the delivery state of a publish job.
type PublishJobStatus string

const (
	PublishJobQueued    PublishJobStatus = "queued"
	PublishJobRetrying  PublishJobStatus = "retrying"
	PublishJobPublished PublishJobStatus = "published"
	PublishJobFailed    PublishJobStatus = "failed"
)

// PublishQueue hands publish jobs from the API to the worker.
type PublishQueue interface {
	Enqueue(ctx context.Context, job PublishJob) error
	Receive(ctx context.Context) (PublishJob, AckFunc, error)
}

// AckFunc confirms processing, or asks for redelivery when success is false.
type AckFunc func(success bool) error
