package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"zapgoals/internal/domain"
	"zapgoals/internal/infra/metrics"
	"zapgoals/internal/usecase/parse"
)

// Outcome is the result of ingesting one event.
type Outcome string

const (
	OutcomeStored    Outcome = "stored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeStale     Outcome = "stale"
	OutcomeRejected  Outcome = "rejected"
)

// Options tune subscription sizes and the loading state machine.
type Options struct {
	MinLoading      time.Duration
	MinGoals        int
	GoalLimit       int
	ZapLimit        int
	ReactionLimit   int
	NoteLimit       int
	RefreshInterval time.Duration
	TickInterval    time.Duration
	// Resubscribe is the minimum pause between attempts to reopen
	// subscriptions whose stream ended.
	Resubscribe time.Duration
	// Follower is the pubkey whose contact list drives the following filter.
	Follower string
}

func (o Options) withDefaults() Options {
	if o.MinLoading <= 0 {
		o.MinLoading = time.Second
	}
	if o.MinGoals <= 0 {
		o.MinGoals = 100
	}
	if o.ZapLimit <= 0 {
		o.ZapLimit = 500
	}
	if o.ReactionLimit <= 0 {
		o.ReactionLimit = 1000
	}
	if o.NoteLimit <= 0 {
		o.NoteLimit = 500
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = time.Minute
	}
	if o.TickInterval <= 0 {
		o.TickInterval = 250 * time.Millisecond
	}
	if o.Resubscribe <= 0 {
		o.Resubscribe = 2 * time.Second
	}
	return o
}

// Service feeds relay events through the parsers into the store.
type Service struct {
	transport domain.Transport
	store     domain.Store
	parser    *parse.Parser
	opts      Options
	log       zerolog.Logger
	now       func() time.Time

	state    *LoadState
	archiver *Archiver
	watcher  *FundingWatcher
}

// NewService creates the ingestion service. archiver and watcher may be nil.
func NewService(transport domain.Transport, store domain.Store, parser *parse.Parser, opts Options, archiver *Archiver, watcher *FundingWatcher, logger zerolog.Logger) *Service {
	opts = opts.withDefaults()
	return &Service{
		transport: transport,
		store:     store,
		parser:    parser,
		opts:      opts,
		log:       logger.With().Str("component", "ingest").Logger(),
		now:       time.Now,
		state:     NewLoadState(time.Now(), opts.MinLoading, opts.MinGoals),
		archiver:  archiver,
		watcher:   watcher,
	}
}

// Phase reports the loading phase.
func (s *Service) Phase() Phase {
	return s.state.Phase()
}

// Ready is closed once the initial load is over.
func (s *Service) Ready() <-chan struct{} {
	return s.state.Ready()
}

// Ingest parses ev as category and applies it to the store. Safe to call
// repeatedly with the same event.
func (s *Service) Ingest(ctx context.Context, category domain.Category, ev domain.RawEvent) Outcome {
	outcome := s.apply(ctx, category, ev)
	metrics.ObserveIngest(string(category), string(outcome))
	if outcome == OutcomeStored && s.archiver != nil {
		s.archiver.Submit(category, ev)
	}
	return outcome
}

func (s *Service) apply(ctx context.Context, category domain.Category, ev domain.RawEvent) Outcome {
	rec, err := s.parser.Parse(category, ev)
	if err != nil {
		s.log.Debug().Err(err).Str("category", string(category)).Str("event", ev.ID).Msg("ingest: event skipped")
		return OutcomeRejected
	}

	switch {
	case rec.Profile != nil:
		s.store.UpsertProfile(*rec.Profile)
		return OutcomeStored
	case rec.Goal != nil:
		if !s.store.UpsertGoal(*rec.Goal) {
			return OutcomeStale
		}
		return OutcomeStored
	case rec.Zap != nil:
		if !s.store.AddZap(*rec.Zap) {
			return OutcomeDuplicate
		}
		if s.watcher != nil && s.state.Phase() == PhaseReady {
			s.watcher.Check(ctx, rec.Zap.TargetEventID)
		}
		return OutcomeStored
	case rec.Reaction != nil:
		if !s.store.AddReaction(*rec.Reaction) {
			return OutcomeDuplicate
		}
		return OutcomeStored
	case rec.Comment != nil:
		if !s.store.AddComment(*rec.Comment) {
			return OutcomeDuplicate
		}
		return OutcomeStored
	case rec.Update != nil:
		if !s.store.AddUpdate(*rec.Update) {
			return OutcomeDuplicate
		}
		return OutcomeStored
	case category == domain.CategoryContacts:
		if !s.store.SetFollowing(ev.PubKey, rec.Following, ev.CreatedAt) {
			return OutcomeStale
		}
		return OutcomeStored
	}
	return OutcomeRejected
}

type envelope struct {
	category domain.Category
	event    domain.RawEvent
	// eose marks the end of stored events; it follows every event of the
	// subscription that was buffered before the signal.
	eose bool
	// ended reports that the stream of src stopped while nobody closed it.
	ended bool
	src   *feed
}

// stream groups subscriptions that are reopened together.
type stream string

const (
	streamGoals    stream = "goals"
	streamContacts stream = "contacts"
	streamRelated  stream = "related"
)

func streamOf(category domain.Category) stream {
	switch category {
	case domain.CategoryGoals:
		return streamGoals
	case domain.CategoryContacts:
		return streamContacts
	default:
		return streamRelated
	}
}

// Run subscribes to goals, then to everything attached to them once the
// relays delivered their stored goals. Subscriptions whose stream ends are
// reopened. It blocks until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	incoming := make(chan envelope, 256)

	goalFilter := domain.Filter{Kinds: []int{domain.KindGoal}, Limit: s.opts.GoalLimit}
	goals, err := s.open(ctx, &wg, domain.CategoryGoals, goalFilter, incoming, true)
	if err != nil {
		return fmt.Errorf("subscribe goals: %w", err)
	}
	defer func() { goals.close() }()

	down := make(map[stream]bool)

	var (
		contacts      *feed
		contactFilter domain.Filter
	)
	if s.opts.Follower != "" {
		contactFilter = domain.Filter{
			Kinds:   []int{domain.KindContactList},
			Authors: []string{s.opts.Follower},
			Limit:   1,
		}
		if contacts, err = s.open(ctx, &wg, domain.CategoryContacts, contactFilter, incoming, false); err != nil {
			s.log.Error().Err(err).Msg("ingest: contacts subscription failed")
			down[streamContacts] = true
		}
	}
	defer func() { contacts.close() }()

	related := &relatedFeeds{}
	defer related.close()

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	var (
		eoseSeen        bool
		lastRefresh     time.Time
		lastResubscribe time.Time
	)

	resubscribe := func() {
		lastResubscribe = s.now()
		if down[streamGoals] {
			goals.close()
			var err error
			if goals, err = s.open(ctx, &wg, domain.CategoryGoals, goalFilter, incoming, !eoseSeen); err != nil {
				s.log.Warn().Err(err).Msg("ingest: goals resubscribe failed")
			} else {
				delete(down, streamGoals)
				metrics.ResubscribesTotal.WithLabelValues(string(streamGoals)).Inc()
			}
		}
		if down[streamContacts] {
			contacts.close()
			var err error
			if contacts, err = s.open(ctx, &wg, domain.CategoryContacts, contactFilter, incoming, false); err != nil {
				s.log.Warn().Err(err).Msg("ingest: contacts resubscribe failed")
			} else {
				delete(down, streamContacts)
				metrics.ResubscribesTotal.WithLabelValues(string(streamContacts)).Inc()
			}
		}
		if down[streamRelated] && eoseSeen {
			if s.openRelated(ctx, &wg, related, incoming) {
				delete(down, streamRelated)
				metrics.ResubscribesTotal.WithLabelValues(string(streamRelated)).Inc()
			}
			lastRefresh = s.now()
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("ingest: stopped")
			return nil
		case env := <-incoming:
			switch {
			case env.ended:
				if env.src.closed() {
					// already replaced
					continue
				}
				st := streamOf(env.category)
				s.log.Warn().Str("category", string(env.category)).Msg("ingest: subscription ended, resubscribing")
				down[st] = true
				if s.now().Sub(lastResubscribe) >= s.opts.Resubscribe {
					resubscribe()
				}
			case env.eose:
				if eoseSeen {
					continue
				}
				eoseSeen = true
				if s.state.MarkEOSE() {
					s.onReady()
				}
				if !s.openRelated(ctx, &wg, related, incoming) {
					down[streamRelated] = true
				}
				lastRefresh = s.now()
			default:
				s.Ingest(ctx, env.category, env.event)
				s.observe()
			}
		case <-ticker.C:
			s.observe()
			s.publishSizes()
			if len(down) > 0 && s.now().Sub(lastResubscribe) >= s.opts.Resubscribe {
				resubscribe()
			}
			if !eoseSeen || s.now().Sub(lastRefresh) < s.opts.RefreshInterval {
				continue
			}
			lastRefresh = s.now()
			switch {
			case s.hasUncoveredGoals(related.goals):
				if !s.openRelated(ctx, &wg, related, incoming) {
					down[streamRelated] = true
				}
			case s.hasUncoveredProfiles(related.pubkeys):
				if !s.openProfiles(ctx, &wg, related, incoming) {
					down[streamRelated] = true
				}
			}
		}
	}
}

// hasUncoveredGoals reports whether a goal version appeared that the related
// subscriptions do not filter for yet.
func (s *Service) hasUncoveredGoals(covered map[string]struct{}) bool {
	for _, g := range s.store.Goals() {
		if _, ok := covered[g.EventID]; !ok {
			return true
		}
	}
	return false
}

func (s *Service) hasUncoveredProfiles(covered map[string]struct{}) bool {
	for _, pk := range s.profileTargets(s.store.Goals()) {
		if _, ok := covered[pk]; !ok {
			return true
		}
	}
	return false
}

// profileTargets lists everyone whose profile is shown next to the goals:
// authors, zappers, reactors, commenters and the follower.
func (s *Service) profileTargets(goals []domain.Goal) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(pk string) {
		if pk == "" {
			return
		}
		if _, ok := seen[pk]; ok {
			return
		}
		seen[pk] = struct{}{}
		out = append(out, pk)
	}
	for _, g := range goals {
		add(g.AuthorPubkey)
	}
	for _, g := range goals {
		for _, z := range s.store.Zaps(g.EventID) {
			add(z.ZapperPubkey)
		}
		for _, r := range s.store.Reactions(g.EventID) {
			add(r.ReactorPubkey)
		}
		for _, c := range s.store.Comments(g.EventID) {
			add(c.AuthorPubkey)
		}
	}
	add(s.opts.Follower)
	return out
}

func (s *Service) observe() {
	if s.state.Observe(s.store.Counts().Goals, s.now()) {
		s.onReady()
	}
}

func (s *Service) onReady() {
	metrics.SetReady(true)
	counts := s.store.Counts()
	s.log.Info().Int("goals", counts.Goals).Int("zaps", counts.Zaps).Msg("ingest: initial load finished")
}

func (s *Service) publishSizes() {
	c := s.store.Counts()
	metrics.SetStoreSize("profiles", c.Profiles)
	metrics.SetStoreSize("goals", c.Goals)
	metrics.SetStoreSize("zaps", c.Zaps)
	metrics.SetStoreSize("reactions", c.Reactions)
	metrics.SetStoreSize("comments", c.Comments)
	metrics.SetStoreSize("updates", c.Updates)
}

// openRelated replaces the subscriptions attached to the known goals. It
// reports false when one of them could not be opened.
func (s *Service) openRelated(ctx context.Context, wg *sync.WaitGroup, related *relatedFeeds, out chan<- envelope) bool {
	related.close()
	goals := s.store.Goals()
	related.goals = make(map[string]struct{}, len(goals))
	if len(goals) == 0 {
		return true
	}
	ids := make([]string, 0, len(goals))
	seenAuthor := make(map[string]struct{})
	var authors []string
	for _, g := range goals {
		related.goals[g.EventID] = struct{}{}
		ids = append(ids, g.EventID)
		if _, ok := seenAuthor[g.AuthorPubkey]; !ok {
			seenAuthor[g.AuthorPubkey] = struct{}{}
			authors = append(authors, g.AuthorPubkey)
		}
	}

	filters := []struct {
		category domain.Category
		filter   domain.Filter
	}{
		{domain.CategoryZaps, domain.Filter{Kinds: []int{domain.KindZapReceipt}, References: ids, Limit: s.opts.ZapLimit}},
		{domain.CategoryReactions, domain.Filter{Kinds: []int{domain.KindReaction}, References: ids, Limit: s.opts.ReactionLimit}},
		{domain.CategoryComments, domain.Filter{Kinds: []int{domain.KindTextNote}, References: ids, Limit: s.opts.NoteLimit}},
		{domain.CategoryUpdates, domain.Filter{Kinds: []int{domain.KindTextNote}, Authors: authors, References: ids, Limit: s.opts.NoteLimit}},
	}
	ok := true
	for _, f := range filters {
		fd, err := s.open(ctx, wg, f.category, f.filter, out, false)
		if err != nil {
			s.log.Error().Err(err).Str("category", string(f.category)).Msg("ingest: subscription failed")
			ok = false
			continue
		}
		related.feeds = append(related.feeds, fd)
	}
	if !s.openProfiles(ctx, wg, related, out) {
		ok = false
	}
	s.log.Debug().Int("goals", len(ids)).Int("authors", len(authors)).Msg("ingest: related subscriptions opened")
	return ok
}

// openProfiles replaces the profile subscription with one covering every
// current profile target.
func (s *Service) openProfiles(ctx context.Context, wg *sync.WaitGroup, related *relatedFeeds, out chan<- envelope) bool {
	related.profiles.close()
	related.profiles = nil
	targets := s.profileTargets(s.store.Goals())
	related.pubkeys = make(map[string]struct{}, len(targets))
	if len(targets) == 0 {
		return true
	}
	fd, err := s.open(ctx, wg, domain.CategoryProfiles, domain.Filter{Kinds: []int{domain.KindProfile}, Authors: targets}, out, false)
	if err != nil {
		s.log.Error().Err(err).Str("category", string(domain.CategoryProfiles)).Msg("ingest: subscription failed")
		return false
	}
	related.profiles = fd
	for _, pk := range targets {
		related.pubkeys[pk] = struct{}{}
	}
	return true
}

// open subscribes to filter and starts the pump feeding out. Closing the
// returned feed stops the pump before the subscription.
func (s *Service) open(ctx context.Context, wg *sync.WaitGroup, category domain.Category, filter domain.Filter, out chan<- envelope, withEOSE bool) (*feed, error) {
	fctx, cancel := context.WithCancel(ctx)
	sub, err := s.transport.Subscribe(fctx, filter)
	if err != nil {
		cancel()
		return nil, err
	}
	fd := &feed{sub: sub, ctx: fctx, cancel: cancel}
	s.pump(fd, wg, category, out, withEOSE)
	return fd, nil
}

// pump forwards events of one subscription into the single ingest loop. With
// withEOSE the end-of-stored-events signal is forwarded too, after the events
// already buffered. A stream that ends while ctx is live is reported once.
func (s *Service) pump(fd *feed, wg *sync.WaitGroup, category domain.Category, out chan<- envelope, withEOSE bool) {
	ctx, sub := fd.ctx, fd.sub
	wg.Add(1)
	go func() {
		defer wg.Done()
		events := sub.Events()
		var eose <-chan struct{}
		if withEOSE {
			eose = sub.EOSE()
		}
		send := func(env envelope) bool {
			select {
			case out <- env:
				return true
			case <-ctx.Done():
				return false
			}
		}
		ended := func() {
			if ctx.Err() != nil {
				return
			}
			send(envelope{category: category, ended: true, src: fd})
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					ended()
					return
				}
				if !send(envelope{category: category, event: ev}) {
					return
				}
			case <-eose:
				eose = nil
				for drained := false; !drained; {
					select {
					case ev, ok := <-events:
						if !ok {
							drained = true
							events = nil
							break
						}
						if !send(envelope{category: category, event: ev}) {
							return
						}
					default:
						drained = true
					}
				}
				if !send(envelope{category: category, eose: true}) {
					return
				}
				if events == nil {
					ended()
					return
				}
			}
		}
	}()
}

// Replay re-ingests archived events through the regular pipeline.
func (s *Service) Replay(ctx context.Context, archive domain.EventArchive, limit uint64) (int, error) {
	if archive == nil {
		return 0, errors.New("replay: archive is not configured")
	}
	events, err := archive.ListEvents(ctx, domain.ArchiveQuery{Categories: domain.Categories, Limit: limit})
	if err != nil {
		return 0, fmt.Errorf("replay: %w", err)
	}
	stored := 0
	for _, ae := range events {
		if s.apply(ctx, ae.Category, ae.Event) == OutcomeStored {
			stored++
		}
	}
	s.log.Info().Int("archived", len(events)).Int("stored", stored).Msg("ingest: archive replayed")
	return stored, nil
}

// feed is an open subscription together with the pump reading it.
type feed struct {
	sub    domain.Subscription
	ctx    context.Context
	cancel context.CancelFunc
}

func (f *feed) closed() bool {
	return f.ctx.Err() != nil
}

func (f *feed) close() {
	if f == nil {
		return
	}
	f.cancel()
	f.sub.Close()
}

// relatedFeeds are the subscriptions attached to known goals, with what
// their filters cover.
type relatedFeeds struct {
	feeds    []*feed
	profiles *feed
	goals    map[string]struct{}
	pubkeys  map[string]struct{}
}

func (r *relatedFeeds) close() {
	for _, f := range r.feeds {
		f.close()
	}
	r.feeds = nil
	r.profiles.close()
	r.profiles = nil
}
