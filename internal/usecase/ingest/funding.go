package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"zapgoals/internal/domain"
	"zapgoals/internal/infra/metrics"
	"zapgoals/internal/usecase/stats"
)

const fundedKeyTTL = 90 * 24 * time.Hour

// GoalLookup resolves goal versions.
type GoalLookup interface {
	GoalByEventID(eventID string) (domain.Goal, bool)
}

// FundingWatcher announces a goal once when it reaches its target.
type FundingWatcher struct {
	goals       GoalLookup
	stats       *stats.Service
	cache       domain.Cache
	notifier    domain.Notifier
	excludeSelf bool
	log         zerolog.Logger

	mu       sync.Mutex
	notified map[string]struct{}
	wg       sync.WaitGroup
}

// NewFundingWatcher creates a watcher. Without a cache, notifications are
// deduplicated in memory only.
func NewFundingWatcher(goals GoalLookup, statsService *stats.Service, cache domain.Cache, notifier domain.Notifier, excludeSelf bool, logger zerolog.Logger) *FundingWatcher {
	return &FundingWatcher{
		goals:       goals,
		stats:       statsService,
		cache:       cache,
		notifier:    notifier,
		excludeSelf: excludeSelf,
		log:         logger.With().Str("component", "funding").Logger(),
		notified:    make(map[string]struct{}),
	}
}

// Check inspects the goal a new zap targets and notifies in the background
// when it just became funded.
func (w *FundingWatcher) Check(ctx context.Context, goalEventID string) {
	if goalEventID == "" {
		return
	}
	g, ok := w.goals.GoalByEventID(goalEventID)
	if !ok || g.EventID != goalEventID {
		return
	}
	view := w.stats.View(g, w.excludeSelf)
	if view.Progress < 100 {
		return
	}
	if !w.markLocal(g.GoalID) {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.notify(ctx, view)
	}()
}

// Wait blocks until pending notifications finished.
func (w *FundingWatcher) Wait() {
	w.wg.Wait()
}

func (w *FundingWatcher) markLocal(goalID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.notified[goalID]; ok {
		return false
	}
	w.notified[goalID] = struct{}{}
	return true
}

func (w *FundingWatcher) notify(ctx context.Context, view domain.GoalView) {
	send := func() error {
		if err := w.notifier.GoalFunded(ctx, view); err != nil {
			return err
		}
		metrics.FundedNotifications.Inc()
		w.log.Info().Str("goal", view.Goal.GoalID).Int64("raised", view.RaisedSats).Msg("funding: goal reached its target")
		return nil
	}

	var err error
	if w.cache != nil {
		err = w.cache.Once("zapgoals:funded:"+view.Goal.GoalID, fundedKeyTTL, send)
	} else {
		err = send()
	}
	if err != nil {
		w.log.Error().Err(err).Str("goal", view.Goal.GoalID).Msg("funding: notification failed")
		w.mu.Lock()
		delete(w.notified, view.Goal.GoalID)
		w.mu.Unlock()
	}
}
