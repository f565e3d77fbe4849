package publish

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"zapgoals/internal/domain"
)

func TestSubmitVerifiesAndQueues(t *testing.T) {
	q := &memQueue{}
	cache := newMemCache()
	svc := NewService(q, sigVerifier{}, nil, goalMap{}, cache, zerolog.Nop())

	_, err := svc.Submit(context.Background(), domain.RawEvent{ID: "x", Kind: 1})
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
	require.Empty(t, q.snapshot())

	receipt, err := svc.Submit(context.Background(), domain.RawEvent{ID: "x", Kind: 1, Sig: "s"})
	require.NoError(t, err)
	require.NotEmpty(t, receipt.JobID)
	require.Equal(t, "x", receipt.EventID)

	jobs := q.snapshot()
	require.Len(t, jobs, 1)
	require.Equal(t, receipt.JobID, jobs[0].ID)
	require.Zero(t, jobs[0].Attempt)

	status, err := svc.Status(receipt.JobID)
	require.NoError(t, err)
	require.Equal(t, domain.PublishJobQueued, status)

	_, err = svc.Status("unknown")
	require.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestSubmitKeepsStatusOfFastWorker(t *testing.T) {
	cache := newMemCache()
	q := &memQueue{consumed: func(job domain.PublishJob) {
		require.NoError(t, statusBook{cache: cache}.set(job.ID, domain.PublishJobPublished))
	}}
	svc := NewService(q, sigVerifier{}, nil, goalMap{}, cache, zerolog.Nop())

	receipt, err := svc.Submit(context.Background(), domain.RawEvent{ID: "x", Kind: 1, Sig: "s"})
	require.NoError(t, err)

	status, err := svc.Status(receipt.JobID)
	require.NoError(t, err)
	require.Equal(t, domain.PublishJobPublished, status)
}

func TestDraftsNeedSigner(t *testing.T) {
	svc := NewService(&memQueue{}, sigVerifier{}, nil, goalMap{}, nil, zerolog.Nop())
	require.False(t, svc.CanSign())
	_, err := svc.CreateGoal(context.Background(), GoalDraft{Title: "t", TargetSats: 1})
	require.ErrorIs(t, err, domain.ErrSignerUnavailable)
	_, err = svc.Comment(context.Background(), "g", "hi")
	require.ErrorIs(t, err, domain.ErrSignerUnavailable)
}

func TestEditGoalPostsChangelog(t *testing.T) {
	q := &memQueue{}
	signer := &stubSigner{pubkey: "me"}
	goals := goalMap{"roof": {EventID: "old", GoalID: "roof", AuthorPubkey: "me", Title: "Roof", TargetSats: 1000, Status: domain.GoalStatusActive, CreatedAt: 10}}
	svc := NewService(q, sigVerifier{}, signer, goals, nil, zerolog.Nop())

	receipts, err := svc.EditGoal(context.Background(), "roof", GoalDraft{Title: "New roof", TargetSats: 250000})
	require.NoError(t, err)
	require.Len(t, receipts, 2)

	jobs := q.snapshot()
	require.Len(t, jobs, 2)
	goalEv, note := jobs[0].Event, jobs[1].Event
	require.Equal(t, domain.KindGoal, goalEv.Kind)
	require.Contains(t, goalEv.Tags, []string{"d", "roof"})
	require.Contains(t, goalEv.Tags, []string{"updated_from", "old"})
	require.Contains(t, goalEv.Tags, []string{"amount", "250000000"})

	require.Equal(t, domain.KindTextNote, note.Kind)
	require.Contains(t, note.Tags, []string{"e", goalEv.ID, "", "root"})
	require.Equal(t, `Goal updated: Title changed from "Roof" to "New roof", Target changed from 1,000 to 250,000 sats`, note.Content)
}

func TestOwnGoalRequired(t *testing.T) {
	goals := goalMap{"roof": {EventID: "old", GoalID: "roof", AuthorPubkey: "someone"}}
	svc := NewService(&memQueue{}, sigVerifier{}, &stubSigner{pubkey: "me"}, goals, nil, zerolog.Nop())

	_, err := svc.PostUpdate(context.Background(), "roof", "progress")
	require.ErrorIs(t, err, domain.ErrInvalidDraft)
	_, err = svc.EditGoal(context.Background(), "missing", GoalDraft{Title: "x", TargetSats: 1})
	require.ErrorIs(t, err, domain.ErrGoalNotFound)

	receipt, err := svc.React(context.Background(), "roof", "🔥")
	require.NoError(t, err)
	require.NotEmpty(t, receipt.EventID)
}

func TestGoalDraftValidation(t *testing.T) {
	now := time.Unix(100, 0)
	_, err := NewGoalEvent(GoalDraft{Title: " ", TargetSats: 5}, "id", now)
	require.ErrorIs(t, err, domain.ErrInvalidDraft)
	_, err = NewGoalEvent(GoalDraft{Title: "x", TargetSats: 0}, "id", now)
	require.ErrorIs(t, err, domain.ErrInvalidDraft)
	_, err = NewGoalEvent(GoalDraft{Title: "x", TargetSats: 5, Status: "weird"}, "id", now)
	require.ErrorIs(t, err, domain.ErrInvalidDraft)
	_, err = NewGoalEvent(GoalDraft{Title: "x", TargetSats: domain.MaxSupplySats + 1}, "id", now)
	require.ErrorIs(t, err, domain.ErrInvalidDraft)
	_, err = NewGoalEvent(GoalDraft{Title: "x", TargetSats: math.MaxInt64}, "id", now)
	require.ErrorIs(t, err, domain.ErrInvalidDraft)

	full, err := NewGoalEvent(GoalDraft{Title: "x", TargetSats: domain.MaxSupplySats}, "id", now)
	require.NoError(t, err)
	require.Contains(t, full.Tags, []string{"amount", "2100000000000000000"})

	ev, err := NewGoalEvent(GoalDraft{Title: "x", TargetSats: 5, Status: domain.GoalStatusClosed, Summary: "s", ImageURL: "https://i"}, "id", now)
	require.NoError(t, err)
	require.Contains(t, ev.Tags, []string{"closed_at", "100"})
	require.Contains(t, ev.Tags, []string{"goal", "sats", "5"})
	require.Contains(t, ev.Tags, []string{"description", "s"})
	require.JSONEq(t, `{"title":"x","summary":"s","image":"https://i","status":"closed"}`, ev.Content)

	_, err = NewCommentEvent(domain.Goal{EventID: "g"}, strings.Repeat("a", 501), now)
	require.ErrorIs(t, err, domain.ErrInvalidDraft)
	_, err = NewUpdateEvent(domain.Goal{EventID: "g"}, "  ", now)
	require.ErrorIs(t, err, domain.ErrInvalidDraft)
}

func TestChangelogWithoutChanges(t *testing.T) {
	old := domain.Goal{Title: "Roof", TargetSats: 10, Status: domain.GoalStatusActive}
	require.Equal(t, "Goal updated", Changelog(old, GoalDraft{Title: "Roof", TargetSats: 10}))
	require.Equal(t, "Goal updated: Status changed from active to done", Changelog(old, GoalDraft{Title: "Roof", TargetSats: 10, Status: domain.GoalStatusDone}))
}

func TestFormatSats(t *testing.T) {
	require.Equal(t, "0", FormatSats(0))
	require.Equal(t, "999", FormatSats(999))
	require.Equal(t, "1,000", FormatSats(1000))
	require.Equal(t, "21,000,000", FormatSats(21_000_000))
	require.Equal(t, "-1,500", FormatSats(-1500))
}
