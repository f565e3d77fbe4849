package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"zapgoals/internal/domain"
	"zapgoals/internal/infra/metrics"
)

// GoalReader looks goals up by goal id.
type GoalReader interface {
	Goal(goalID string) (domain.Goal, bool)
}

// Receipt identifies an accepted publish request.
type Receipt struct {
	JobID   string `json:"job_id"`
	EventID string `json:"event_id"`
}

// Service validates events and queues them for the publisher worker.
type Service struct {
	queue    domain.PublishQueue
	verifier domain.Verifier
	signer   domain.Signer
	goals    GoalReader
	statuses statusBook
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates the publish service. signer and cache may be nil.
func NewService(queue domain.PublishQueue, verifier domain.Verifier, signer domain.Signer, goals GoalReader, cache domain.Cache, logger zerolog.Logger) *Service {
	return &Service{
		queue:    queue,
		verifier: verifier,
		signer:   signer,
		goals:    goals,
		statuses: statusBook{cache: cache},
		log:      logger.With().Str("component", "publish").Logger(),
		now:      time.Now,
	}
}

// Submit verifies a client signed event and queues it.
func (s *Service) Submit(ctx context.Context, ev domain.RawEvent) (Receipt, error) {
	if err := s.verifier.Verify(ev); err != nil {
		return Receipt{}, err
	}
	job := domain.PublishJob{
		ID:          uuid.NewString(),
		Event:       ev,
		RequestedAt: s.now().UTC(),
	}
	// set before Enqueue: a worker may finish the job right away
	if err := s.statuses.set(job.ID, domain.PublishJobQueued); err != nil {
		s.log.Warn().Err(err).Str("job_id", job.ID).Msg("publish: status not recorded")
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		if err := s.statuses.set(job.ID, domain.PublishJobFailed); err != nil {
			s.log.Warn().Err(err).Str("job_id", job.ID).Msg("publish: status not recorded")
		}
		return Receipt{}, fmt.Errorf("enqueue publish job: %w", err)
	}
	metrics.ObservePublish(string(domain.PublishJobQueued))
	s.log.Debug().Str("job_id", job.ID).Str("event", ev.ID).Int("kind", ev.Kind).Msg("publish: job queued")
	return Receipt{JobID: job.ID, EventID: ev.ID}, nil
}

// Status returns the delivery state of a job.
func (s *Service) Status(jobID string) (domain.PublishJobStatus, error) {
	return s.statuses.get(jobID)
}

// CanSign reports whether server side signing is configured.
func (s *Service) CanSign() bool {
	return s.signer != nil
}

// CreateGoal signs and queues a new goal.
func (s *Service) CreateGoal(ctx context.Context, d GoalDraft) (Receipt, error) {
	if s.signer == nil {
		return Receipt{}, domain.ErrSignerUnavailable
	}
	ev, err := NewGoalEvent(d, uuid.NewString(), s.now())
	if err != nil {
		return Receipt{}, err
	}
	return s.signAndSubmit(ctx, ev)
}

// EditGoal replaces an own goal and posts a changelog update under it.
func (s *Service) EditGoal(ctx context.Context, goalID string, d GoalDraft) ([]Receipt, error) {
	goal, err := s.ownGoal(goalID)
	if err != nil {
		return nil, err
	}
	ev, err := EditGoalEvent(goal, d, s.now())
	if err != nil {
		return nil, err
	}
	signed, err := s.signer.Sign(ev)
	if err != nil {
		return nil, fmt.Errorf("sign goal: %w", err)
	}
	goalReceipt, err := s.Submit(ctx, signed)
	if err != nil {
		return nil, err
	}

	edited := goal
	edited.EventID = signed.ID
	note, err := NewUpdateEvent(edited, Changelog(goal, d), s.now())
	if err != nil {
		return nil, err
	}
	noteReceipt, err := s.signAndSubmit(ctx, note)
	if err != nil {
		return []Receipt{goalReceipt}, fmt.Errorf("changelog: %w", err)
	}
	return []Receipt{goalReceipt, noteReceipt}, nil
}

// PostUpdate signs and queues a progress note on an own goal.
func (s *Service) PostUpdate(ctx context.Context, goalID, content string) (Receipt, error) {
	goal, err := s.ownGoal(goalID)
	if err != nil {
		return Receipt{}, err
	}
	ev, err := NewUpdateEvent(goal, content, s.now())
	if err != nil {
		return Receipt{}, err
	}
	return s.signAndSubmit(ctx, ev)
}

// Comment signs and queues a comment on any goal.
func (s *Service) Comment(ctx context.Context, goalID, content string) (Receipt, error) {
	goal, err := s.anyGoal(goalID)
	if err != nil {
		return Receipt{}, err
	}
	ev, err := NewCommentEvent(goal, content, s.now())
	if err != nil {
		return Receipt{}, err
	}
	return s.signAndSubmit(ctx, ev)
}

// React signs and queues a reaction on any goal.
func (s *Service) React(ctx context.Context, goalID, content string) (Receipt, error) {
	goal, err := s.anyGoal(goalID)
	if err != nil {
		return Receipt{}, err
	}
	return s.signAndSubmit(ctx, NewReactionEvent(goal, content, s.now()))
}

func (s *Service) anyGoal(goalID string) (domain.Goal, error) {
	if s.signer == nil {
		return domain.Goal{}, domain.ErrSignerUnavailable
	}
	goal, ok := s.goals.Goal(goalID)
	if !ok {
		return domain.Goal{}, fmt.Errorf("goal %s: %w", goalID, domain.ErrGoalNotFound)
	}
	return goal, nil
}

func (s *Service) ownGoal(goalID string) (domain.Goal, error) {
	goal, err := s.anyGoal(goalID)
	if err != nil {
		return domain.Goal{}, err
	}
	if goal.AuthorPubkey != s.signer.PublicKey() {
		return domain.Goal{}, fmt.Errorf("%w: goal %s belongs to another author", domain.ErrInvalidDraft, goalID)
	}
	return goal, nil
}

func (s *Service) signAndSubmit(ctx context.Context, ev domain.RawEvent) (Receipt, error) {
	signed, err := s.signer.Sign(ev)
	if err != nil {
		return Receipt{}, fmt.Errorf("sign event: %w", err)
	}
	return s.Submit(ctx, signed)
}
