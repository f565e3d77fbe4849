package relay

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
)

// conn is the part of a relay connection the pool uses.
type conn interface {
	subscribe(ctx context.Context, f nostr.Filter) (events <-chan *nostr.Event, eose <-chan struct{}, unsub func(), err error)
	publish(ctx context.Context, ev nostr.Event) error
	connected() bool
	close()
}

type dialFunc func(ctx context.Context, url string) (conn, error)

type nostrConn struct {
	relay *nostr.Relay
}

func dialNostr(ctx context.Context, url string) (conn, error) {
	r, err := nostr.RelayConnect(ctx, url)
	if err != nil {
		return nil, err
	}
	return &nostrConn{relay: r}, nil
}

func (c *nostrConn) subscribe(ctx context.Context, f nostr.Filter) (<-chan *nostr.Event, <-chan struct{}, func(), error) {
	sub, err := c.relay.Subscribe(ctx, nostr.Filters{f})
	if err != nil {
		return nil, nil, nil, err
	}
	return sub.Events, sub.EndOfStoredEvents, sub.Unsub, nil
}

func (c *nostrConn) publish(ctx context.Context, ev nostr.Event) error {
	return c.relay.Publish(ctx, ev)
}

func (c *nostrConn) connected() bool {
	return c.relay.IsConnected()
}

func (c *nostrConn) close() {
	_ = c.relay.Close()
}
