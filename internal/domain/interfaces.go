package domain

import (
	"context"
	"time"
)

// Filter narrows a subscription.
type Filter struct {
	Kinds   []int
	Authors []string
	// References matches events carrying one of these ids in an "e" tag.
	References []string
	// PubkeyRefs matches events carrying one of these pubkeys in a "p" tag.
	PubkeyRefs []string
	Since      int64
	Limit      int
}

// Subscription streams events until closed. EOSE fires once, when every
// source has delivered its stored events.
type Subscription interface {
	Events() <-chan RawEvent
	EOSE() <-chan struct{}
	Close()
}

// Transport opens subscriptions against the relay network.
type Transport interface {
	Subscribe(ctx context.Context, filter Filter) (Subscription, error)
}

// Publisher sends a signed event to relays.
type Publisher interface {
	Publish(ctx context.Context, ev RawEvent) error
}

// RelayStatusSource reports per relay connection state.
type RelayStatusSource interface {
	Statuses() []RelayStatus
}

// Signer signs drafts with a server held key.
type Signer interface {
	PublicKey() string
	Sign(ev RawEvent) (RawEvent, error)
}

// Verifier checks event id and signature.
type Verifier interface {
	Verify(ev RawEvent) error
}

// Store is the normalized in-memory model fed by ingestion.
type Store interface {
	UpsertProfile(p Profile)
	Profile(pubkey string) (Profile, bool)

	UpsertGoal(g Goal) bool
	Goal(goalID string) (Goal, bool)
	GoalByEventID(eventID string) (Goal, bool)
	Goals() []Goal

	AddZap(z ValueTransfer) bool
	Zaps(goalEventID string) []ValueTransfer
	ZapsForRecipient(pubkey string) []ValueTransfer

	AddReaction(r Reaction) bool
	Reactions(goalEventID string) []Reaction

	AddComment(c Comment) bool
	Comments(goalEventID string) []Comment

	AddUpdate(u GoalUpdate) bool
	Updates(goalEventID string) []GoalUpdate

	SetFollowing(pubkey string, follows []string, createdAt int64) bool
	Following(pubkey string) []string

	Counts() StoreCounts
}

// ArchivedEvent is a raw event together with the category it was accepted as.
type ArchivedEvent struct {
	Category Category
	Event    RawEvent
}

// ArchiveQuery selects archived events for replay.
type ArchiveQuery struct {
	Categories []Category
	Since      int64
	Limit      uint64
}

// EventArchive persists accepted raw events so the store can be rebuilt on start.
type EventArchive interface {
	SaveEvent(ctx context.Context, category Category, ev RawEvent) error
	ListEvents(ctx context.Context, q ArchiveQuery) ([]ArchivedEvent, error)
}

// Cache stores short lived keys.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}

// Notifier announces goal milestones.
type Notifier interface {
	GoalFunded(ctx context.Context, view GoalView) error
}
