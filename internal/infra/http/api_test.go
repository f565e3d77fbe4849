package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"zapgoals/internal/adapters/memstore"
	"zapgoals/internal/domain"
	"zapgoals/internal/usecase/ingest"
	"zapgoals/internal/usecase/listing"
	"zapgoals/internal/usecase/publish"
	"zapgoals/internal/usecase/stats"
)

type fixedPhase ingest.Phase

func (p fixedPhase) Phase() ingest.Phase { return ingest.Phase(p) }

type staticRelays []domain.RelayStatus

func (r staticRelays) Statuses() []domain.RelayStatus { return r }

type recordingPublishing struct {
	canSign   bool
	submitted []domain.RawEvent
	comments  []string
}

func (p *recordingPublishing) Submit(_ context.Context, ev domain.RawEvent) (publish.Receipt, error) {
	if ev.Sig == "" {
		return publish.Receipt{}, domain.ErrInvalidSignature
	}
	p.submitted = append(p.submitted, ev)
	return publish.Receipt{JobID: "job-1", EventID: ev.ID}, nil
}

func (p *recordingPublishing) Status(jobID string) (domain.PublishJobStatus, error) {
	if jobID != "job-1" {
		return "", domain.ErrJobNotFound
	}
	return domain.PublishJobPublished, nil
}

func (p *recordingPublishing) CanSign() bool { return p.canSign }

func (p *recordingPublishing) CreateGoal(context.Context, publish.GoalDraft) (publish.Receipt, error) {
	return publish.Receipt{JobID: "job-goal"}, nil
}

func (p *recordingPublishing) EditGoal(context.Context, string, publish.GoalDraft) ([]publish.Receipt, error) {
	return []publish.Receipt{{JobID: "a"}, {JobID: "b"}}, nil
}

func (p *recordingPublishing) PostUpdate(context.Context, string, string) (publish.Receipt, error) {
	return publish.Receipt{}, domain.ErrInvalidDraft
}

func (p *recordingPublishing) Comment(_ context.Context, goalID, content string) (publish.Receipt, error) {
	if goalID == "missing" {
		return publish.Receipt{}, domain.ErrGoalNotFound
	}
	p.comments = append(p.comments, content)
	return publish.Receipt{JobID: "job-c"}, nil
}

func (p *recordingPublishing) React(context.Context, string, string) (publish.Receipt, error) {
	return publish.Receipt{JobID: "job-r"}, nil
}

func newTestRouter(t *testing.T, pub Publishing, token string) http.Handler {
	t.Helper()
	store := memstore.New()
	store.UpsertProfile(domain.Profile{Pubkey: "alice", Name: "Alice"})
	store.UpsertGoal(domain.Goal{EventID: "e1", GoalID: "roof", AuthorPubkey: "alice", Title: "New roof", TargetSats: 1000, Status: domain.GoalStatusActive, CreatedAt: 10})
	store.UpsertGoal(domain.Goal{EventID: "e2", GoalID: "bike", AuthorPubkey: "bob", Title: "Bike", TargetSats: 500, Status: domain.GoalStatusActive, CreatedAt: 20})
	store.AddZap(domain.ValueTransfer{EventID: "z1", TargetEventID: "e1", RecipientPubkey: "alice", ZapperPubkey: "carol", AmountMsat: 400_000, CreatedAt: 30})
	store.SetFollowing("carol", []string{"alice"}, 1)

	srv := NewServer(zerolog.Nop())
	api := &API{
		Stats:      stats.NewService(store),
		Store:      store,
		Phase:      fixedPhase(ingest.PhaseReady),
		Relays:     staticRelays{{URL: "wss://relay.example", Connected: true}},
		Paginator:  listing.NewPaginator(1, 5),
		Follower:   "carol",
		WriteToken: token,
		Log:        zerolog.Nop(),
	}
	if pub != nil {
		api.Publish = pub
	}
	api.Mount(srv.Router)
	return srv.Router
}

func doRequest(h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListGoals(t *testing.T) {
	h := newTestRouter(t, nil, "")

	rec := doRequest(h, http.MethodGet, "/api/v1/goals?sort=highest", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page domain.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 2, page.TotalCount)
	require.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	require.Equal(t, "roof", page.Items[0].Goal.GoalID)
	require.EqualValues(t, 400, page.Items[0].RaisedSats)
	require.NotNil(t, page.Items[0].Author)

	rec = doRequest(h, http.MethodGet, "/api/v1/goals?filter=following", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 1, page.FilteredCount)

	rec = doRequest(h, http.MethodGet, "/api/v1/goals?q=bike", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 1, page.FilteredCount)
	require.Equal(t, "bike", page.Items[0].Goal.GoalID)
}

func TestGoalDetailAndLookups(t *testing.T) {
	h := newTestRouter(t, nil, "")

	rec := doRequest(h, http.MethodGet, "/api/v1/goals/roof", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail stats.Detail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Len(t, detail.Supporters, 1)
	require.Equal(t, "carol", detail.Supporters[0].Pubkey)

	require.Equal(t, http.StatusNotFound, doRequest(h, http.MethodGet, "/api/v1/goals/nope", "", nil).Code)
	require.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/api/v1/profiles/alice", "", nil).Code)
	require.Equal(t, http.StatusNotFound, doRequest(h, http.MethodGet, "/api/v1/profiles/zed", "", nil).Code)

	rec = doRequest(h, http.MethodGet, "/api/v1/creators/alice/raised", "", nil)
	require.JSONEq(t, `{"pubkey":"alice","raised_sats":400}`, rec.Body.String())

	rec = doRequest(h, http.MethodGet, "/api/v1/status", "", nil)
	var st statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Equal(t, ingest.PhaseReady, st.Phase)
	require.Equal(t, 2, st.Counts.Goals)
	require.Len(t, st.Relays, 1)
}

func TestPublishDisabled(t *testing.T) {
	h := newTestRouter(t, nil, "")
	rec := doRequest(h, http.MethodPost, "/api/v1/events", `{"id":"x"}`, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSubmitEvent(t *testing.T) {
	pub := &recordingPublishing{}
	h := newTestRouter(t, pub, "secret")

	body := `{"id":"x","pubkey":"p","created_at":1,"kind":1,"tags":[],"content":"hi","sig":"s"}`
	require.Equal(t, http.StatusUnauthorized, doRequest(h, http.MethodPost, "/api/v1/events", body, nil).Code)
	require.Equal(t, http.StatusUnauthorized, doRequest(h, http.MethodPost, "/api/v1/events", body,
		map[string]string{"Authorization": "Bearer wrong"}).Code)

	auth := map[string]string{"Authorization": "Bearer secret"}
	rec := doRequest(h, http.MethodPost, "/api/v1/events", body, auth)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.JSONEq(t, `{"job_id":"job-1","event_id":"x"}`, rec.Body.String())
	require.Len(t, pub.submitted, 1)

	rec = doRequest(h, http.MethodPost, "/api/v1/events", `{"id":"y","kind":1}`, auth)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(h, http.MethodPost, "/api/v1/events", `{not json`, auth)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(h, http.MethodGet, "/api/v1/jobs/job-1", "", nil)
	require.JSONEq(t, `{"job_id":"job-1","status":"published"}`, rec.Body.String())
	require.Equal(t, http.StatusNotFound, doRequest(h, http.MethodGet, "/api/v1/jobs/other", "", nil).Code)
}

func TestSubmitDraft(t *testing.T) {
	pub := &recordingPublishing{}
	h := newTestRouter(t, pub, "")

	rec := doRequest(h, http.MethodPost, "/api/v1/drafts/comment", `{"goal_id":"roof","content":"go"}`, nil)
	require.Equal(t, http.StatusNotImplemented, rec.Code)

	pub.canSign = true
	rec = doRequest(h, http.MethodPost, "/api/v1/drafts/comment", `{"goal_id":"roof","content":"go"}`, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, []string{"go"}, pub.comments)

	rec = doRequest(h, http.MethodPost, "/api/v1/drafts/comment", `{"goal_id":"missing","content":"go"}`, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(h, http.MethodPost, "/api/v1/drafts/goal", `{"goal_id":"roof","title":"x","target_sats":5}`, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.JSONEq(t, `{"receipts":[{"job_id":"a","event_id":""},{"job_id":"b","event_id":""}]}`, rec.Body.String())

	require.Equal(t, http.StatusBadRequest, doRequest(h, http.MethodPost, "/api/v1/drafts/update", `{"goal_id":"roof"}`, nil).Code)
	require.Equal(t, http.StatusNotFound, doRequest(h, http.MethodPost, "/api/v1/drafts/poll", `{}`, nil).Code)
}
