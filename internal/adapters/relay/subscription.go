package relay

import (
	"context"
	"sync"

	"github.com/nbd-wtf/go-nostr"

	"zapgoals/internal/domain"
	"zapgoals/internal/infra/metrics"
)

type subscription struct {
	events chan domain.RawEvent
	eose   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
	unsubs []func()

	mu       sync.Mutex
	seen     map[string]struct{}
	eoseOnce sync.Once
	closed   sync.Once
}

func (s *subscription) Events() <-chan domain.RawEvent { return s.events }

func (s *subscription) EOSE() <-chan struct{} { return s.eose }

func (s *subscription) Close() {
	s.closed.Do(func() {
		metrics.SubscriptionsOpen.Dec()
		s.cancel()
		for _, unsub := range s.unsubs {
			unsub()
		}
	})
}

func (s *subscription) markEOSE() {
	s.eoseOnce.Do(func() { close(s.eose) })
}

func (s *subscription) firstSighting(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

// forward copies one relay stream. pending is released on that relay's end
// of stored events, or when its stream ends first.
func (s *subscription) forward(ctx context.Context, events <-chan *nostr.Event, eose <-chan struct{}, pending *sync.WaitGroup) {
	defer s.wg.Done()
	var release sync.Once
	defer release.Do(pending.Done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-eose:
			if !s.drain(ctx, events) {
				return
			}
			release.Do(pending.Done)
			eose = nil
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !s.emit(ctx, ev) {
				return
			}
		}
	}
}

// drain forwards what the relay already buffered so stored events are not
// overtaken by the end of stored events signal.
func (s *subscription) drain(ctx context.Context, events <-chan *nostr.Event) bool {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return true
			}
			if !s.emit(ctx, ev) {
				return false
			}
		default:
			return true
		}
	}
}

func (s *subscription) emit(ctx context.Context, ev *nostr.Event) bool {
	if ev == nil || !s.firstSighting(ev.ID) {
		return true
	}
	select {
	case s.events <- fromNostr(ev):
		return true
	case <-ctx.Done():
		return false
	}
}
