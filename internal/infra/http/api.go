package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"zapgoals/internal/domain"
	"zapgoals/internal/usecase/ingest"
	"zapgoals/internal/usecase/listing"
	"zapgoals/internal/usecase/publish"
	"zapgoals/internal/usecase/stats"
)

const maxBodyBytes = 64 << 10

// GoalStats is the read side of the aggregation layer.
type GoalStats interface {
	Views(excludeSelf bool) []domain.GoalView
	Detail(goalID string, excludeSelf bool) (stats.Detail, error)
	RaisedForCreator(pubkey string, excludeSelf bool) int64
}

// StoreReader exposes the store lookups the API needs.
type StoreReader interface {
	Profile(pubkey string) (domain.Profile, bool)
	Following(pubkey string) []string
	Counts() domain.StoreCounts
}

// PhaseSource reports the loading phase.
type PhaseSource interface {
	Phase() ingest.Phase
}

// Publishing accepts signed events and server signed drafts.
type Publishing interface {
	Submit(ctx context.Context, ev domain.RawEvent) (publish.Receipt, error)
	Status(jobID string) (domain.PublishJobStatus, error)
	CanSign() bool
	CreateGoal(ctx context.Context, d publish.GoalDraft) (publish.Receipt, error)
	EditGoal(ctx context.Context, goalID string, d publish.GoalDraft) ([]publish.Receipt, error)
	PostUpdate(ctx context.Context, goalID, content string) (publish.Receipt, error)
	Comment(ctx context.Context, goalID, content string) (publish.Receipt, error)
	React(ctx context.Context, goalID, content string) (publish.Receipt, error)
}

// API serves the goal listing and the publish endpoints.
type API struct {
	Stats     GoalStats
	Store     StoreReader
	Phase     PhaseSource
	Relays    domain.RelayStatusSource
	Publish   Publishing
	Paginator listing.Paginator
	// Follower is used for the following filter when the request names none.
	Follower   string
	WriteToken string
	Log        zerolog.Logger
}

// Mount registers the API routes on r.
func (a *API) Mount(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/goals", a.listGoals)
		r.Get("/goals/{goalID}", a.goalDetail)
		r.Get("/profiles/{pubkey}", a.profile)
		r.Get("/creators/{pubkey}/raised", a.creatorRaised)
		r.Get("/status", a.status)
		r.Get("/jobs/{jobID}", a.jobStatus)

		r.Group(func(protected chi.Router) {
			protected.Use(WriteAuthMiddleware(a.WriteToken))
			protected.Post("/events", a.submitEvent)
			protected.Post("/drafts/{type}", a.submitDraft)
		})
	})
}

func (a *API) listGoals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key, dir := listing.ParseSort(q.Get("sort"), q.Get("dir"))
	page, _ := strconv.Atoi(q.Get("page"))
	query := domain.ListQuery{
		Filter:    listing.ParseFilter(q.Get("filter")),
		Search:    q.Get("q"),
		Sort:      key,
		Direction: dir,
		Page:      page,
	}
	if query.Filter == domain.FilterFollowing {
		follower := q.Get("follower")
		if follower == "" {
			follower = a.Follower
		}
		query.Following = a.Store.Following(follower)
	}
	views := a.Stats.Views(parseBool(q.Get("exclude_self")))
	writeJSON(w, http.StatusOK, a.Paginator.Apply(views, query))
}

func (a *API) goalDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := a.Stats.Detail(chi.URLParam(r, "goalID"), parseBool(r.URL.Query().Get("exclude_self")))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (a *API) profile(w http.ResponseWriter, r *http.Request) {
	pubkey := chi.URLParam(r, "pubkey")
	p, ok := a.Store.Profile(pubkey)
	if !ok {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) creatorRaised(w http.ResponseWriter, r *http.Request) {
	pubkey := chi.URLParam(r, "pubkey")
	raised := a.Stats.RaisedForCreator(pubkey, parseBool(r.URL.Query().Get("exclude_self")))
	writeJSON(w, http.StatusOK, map[string]any{"pubkey": pubkey, "raised_sats": raised})
}

type statusResponse struct {
	Phase  ingest.Phase         `json:"phase"`
	Counts domain.StoreCounts   `json:"counts"`
	Relays []domain.RelayStatus `json:"relays"`
}

func (a *API) status(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Phase:  a.Phase.Phase(),
		Counts: a.Store.Counts(),
		Relays: []domain.RelayStatus{},
	}
	if a.Relays != nil {
		resp.Relays = a.Relays.Statuses()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) jobStatus(w http.ResponseWriter, r *http.Request) {
	if a.Publish == nil {
		writeError(w, http.StatusServiceUnavailable, "publishing is disabled")
		return
	}
	jobID := chi.URLParam(r, "jobID")
	st, err := a.Publish.Status(jobID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "status": st})
}

func (a *API) submitEvent(w http.ResponseWriter, r *http.Request) {
	if a.Publish == nil {
		writeError(w, http.StatusServiceUnavailable, "publishing is disabled")
		return
	}
	var ev domain.RawEvent
	if err := decodeBody(w, r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	receipt, err := a.Publish.Submit(r.Context(), ev)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, receipt)
}

type draftRequest struct {
	GoalID string `json:"goal_id"`
	publish.GoalDraft
	Content string `json:"content"`
}

func (a *API) submitDraft(w http.ResponseWriter, r *http.Request) {
	if a.Publish == nil {
		writeError(w, http.StatusServiceUnavailable, "publishing is disabled")
		return
	}
	if !a.Publish.CanSign() {
		writeError(w, http.StatusNotImplemented, domain.ErrSignerUnavailable.Error())
		return
	}
	var req draftRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		receipts []publish.Receipt
		err      error
	)
	ctx := r.Context()
	single := func(rc publish.Receipt, e error) {
		if e == nil {
			receipts = []publish.Receipt{rc}
		}
		err = e
	}
	switch chi.URLParam(r, "type") {
	case "goal":
		if req.GoalID == "" {
			single(a.Publish.CreateGoal(ctx, req.GoalDraft))
		} else {
			receipts, err = a.Publish.EditGoal(ctx, req.GoalID, req.GoalDraft)
		}
	case "update":
		single(a.Publish.PostUpdate(ctx, req.GoalID, req.Content))
	case "comment":
		single(a.Publish.Comment(ctx, req.GoalID, req.Content))
	case "reaction":
		single(a.Publish.React(ctx, req.GoalID, req.Content))
	default:
		writeError(w, http.StatusNotFound, "unknown draft type")
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"receipts": receipts})
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrGoalNotFound), errors.Is(err, domain.ErrJobNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrMalformedEvent),
		errors.Is(err, domain.ErrInvalidDraft):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSignerUnavailable):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		a.Log.Error().Err(err).Str("request_id", RequestID(r)).Str("path", r.URL.Path).Msg("api: request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(s))
	return b
}

// ErrorResponse describes an error.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
