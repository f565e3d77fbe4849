package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"zapgoals/internal/domain"
	"zapgoals/internal/infra/metrics"
)

const (
	dialTimeout        = 10 * time.Second
	defaultEOSETimeout = 10 * time.Second
	subscriptionBuffer = 256
)

// Pool keeps one connection per configured relay and fans subscriptions out
// over all of them.
type Pool struct {
	urls        []string
	eoseTimeout time.Duration
	dial        dialFunc
	log         zerolog.Logger

	mu      sync.Mutex
	conns   map[string]conn
	lastErr map[string]string

	readyOnce sync.Once
	ready     chan struct{}
}

var (
	_ domain.Transport         = (*Pool)(nil)
	_ domain.Publisher         = (*Pool)(nil)
	_ domain.RelayStatusSource = (*Pool)(nil)
)

// NewPool creates a pool for urls. Nothing is dialed until Connect.
func NewPool(urls []string, eoseTimeout time.Duration, logger zerolog.Logger) *Pool {
	return newPool(urls, eoseTimeout, dialNostr, logger)
}

func newPool(urls []string, eoseTimeout time.Duration, dial dialFunc, logger zerolog.Logger) *Pool {
	if eoseTimeout <= 0 {
		eoseTimeout = defaultEOSETimeout
	}
	return &Pool{
		urls:        urls,
		eoseTimeout: eoseTimeout,
		dial:        dial,
		log:         logger.With().Str("component", "relay_pool").Logger(),
		conns:       make(map[string]conn),
		lastErr:     make(map[string]string),
		ready:       make(chan struct{}),
	}
}

// Connect dials every relay concurrently. It fails only when no relay could
// be reached.
func (p *Pool) Connect(ctx context.Context) error {
	defer p.readyOnce.Do(func() { close(p.ready) })
	if len(p.urls) == 0 {
		return errors.New("relay pool: no relays configured")
	}
	var wg sync.WaitGroup
	for _, url := range p.urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			p.ensure(ctx, url)
		}(url)
	}
	wg.Wait()
	if len(p.connected()) == 0 {
		return errors.New("relay pool: no relay reachable")
	}
	return nil
}

// Ready is closed once the first Connect attempt finished.
func (p *Pool) Ready() <-chan struct{} {
	return p.ready
}

// ensure returns a live connection to url, dialing when needed.
func (p *Pool) ensure(ctx context.Context, url string) conn {
	p.mu.Lock()
	c := p.conns[url]
	p.mu.Unlock()
	if c != nil && c.connected() {
		return c
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	start := time.Now()
	nc, err := p.dial(dialCtx, url)
	metrics.ObserveNetworkRequest("relay", "connect", url, start, err)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.lastErr[url] = err.Error()
		delete(p.conns, url)
		metrics.SetRelayConnected(url, false)
		p.log.Warn().Err(err).Str("relay", url).Msg("relay: connect failed")
		return nil
	}
	if old := p.conns[url]; old != nil && old != nc {
		old.close()
	}
	p.conns[url] = nc
	delete(p.lastErr, url)
	metrics.SetRelayConnected(url, true)
	p.log.Info().Str("relay", url).Msg("relay: connected")
	return nc
}

func (p *Pool) connected() map[string]conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]conn, len(p.conns))
	for url, c := range p.conns {
		if c.connected() {
			out[url] = c
		}
	}
	return out
}

// reconnect redials relays that dropped since the last call.
func (p *Pool) reconnect(ctx context.Context) map[string]conn {
	live := p.connected()
	for _, url := range p.urls {
		if _, ok := live[url]; ok {
			continue
		}
		if c := p.ensure(ctx, url); c != nil {
			live[url] = c
		}
	}
	return live
}

// Statuses reports every configured relay in configuration order.
func (p *Pool) Statuses() []domain.RelayStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.RelayStatus, 0, len(p.urls))
	for _, url := range p.urls {
		st := domain.RelayStatus{URL: url, LastError: p.lastErr[url]}
		if c := p.conns[url]; c != nil {
			st.Connected = c.connected()
		}
		metrics.SetRelayConnected(url, st.Connected)
		out = append(out, st)
	}
	return out
}

// Subscribe opens filter on every reachable relay and merges the streams.
// Duplicates across relays are dropped.
func (p *Pool) Subscribe(ctx context.Context, filter domain.Filter) (domain.Subscription, error) {
	live := p.reconnect(ctx)
	if len(live) == 0 {
		return nil, errors.New("relay pool: no relay reachable")
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		events: make(chan domain.RawEvent, subscriptionBuffer),
		eose:   make(chan struct{}),
		cancel: cancel,
		seen:   make(map[string]struct{}),
	}
	nf := toFilter(filter)

	var opened int
	var pending sync.WaitGroup
	for url, c := range live {
		events, eose, unsub, err := c.subscribe(subCtx, nf)
		if err != nil {
			p.log.Warn().Err(err).Str("relay", url).Msg("relay: subscribe failed")
			p.mu.Lock()
			p.lastErr[url] = err.Error()
			p.mu.Unlock()
			continue
		}
		opened++
		sub.unsubs = append(sub.unsubs, unsub)
		pending.Add(1)
		sub.wg.Add(1)
		go sub.forward(subCtx, events, eose, &pending)
	}
	if opened == 0 {
		cancel()
		return nil, errors.New("relay pool: subscription refused by every relay")
	}

	go func() {
		done := make(chan struct{})
		go func() {
			pending.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(p.eoseTimeout):
			p.log.Debug().Ints("kinds", filter.Kinds).Msg("relay: end of stored events timed out")
		case <-subCtx.Done():
			return
		}
		sub.markEOSE()
	}()
	go func() {
		sub.wg.Wait()
		close(sub.events)
	}()
	metrics.SubscriptionsOpen.Inc()
	return sub, nil
}

// Publish sends ev to every reachable relay. It succeeds when at least one
// relay accepted the event.
func (p *Pool) Publish(ctx context.Context, ev domain.RawEvent) error {
	live := p.reconnect(ctx)
	if len(live) == 0 {
		return errors.New("relay pool: no relay reachable")
	}
	nev := toNostr(ev)

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		accepted int
		errs     []error
	)
	for url, c := range live {
		wg.Add(1)
		go func(url string, c conn) {
			defer wg.Done()
			start := time.Now()
			err := c.publish(ctx, nev)
			metrics.ObserveNetworkRequest("relay", "publish", url, start, err)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", url, err))
				return
			}
			accepted++
		}(url, c)
	}
	wg.Wait()
	if accepted == 0 {
		return fmt.Errorf("relay pool: publish %s: %w", ev.ID, errors.Join(errs...))
	}
	if len(errs) > 0 {
		p.log.Debug().Err(errors.Join(errs...)).Str("event", ev.ID).Int("accepted", accepted).Msg("relay: partially published")
	}
	return nil
}

// Close drops every connection.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for url, c := range p.conns {
		c.close()
		delete(p.conns, url)
		metrics.SetRelayConnected(url, false)
	}
}
