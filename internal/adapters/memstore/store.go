package memstore

import (
	"sync"

	"zapgoals/internal/domain"
)

// bucket is an append-only list with an event id index.
type bucket[T any] struct {
	items []T
	index map[string]struct{}
}

func (b *bucket[T]) add(id string, item T) bool {
	if b.index == nil {
		b.index = make(map[string]struct{})
	}
	if _, ok := b.index[id]; ok {
		return false
	}
	b.index[id] = struct{}{}
	b.items = append(b.items, item)
	return true
}

func (b *bucket[T]) snapshot() []T {
	if b == nil || len(b.items) == 0 {
		return nil
	}
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// buckets groups records by the goal event id (or recipient) they reference.
type buckets[T any] map[string]*bucket[T]

func (bs buckets[T]) add(key, id string, item T) bool {
	b, ok := bs[key]
	if !ok {
		b = &bucket[T]{}
		bs[key] = b
	}
	return b.add(id, item)
}

func (bs buckets[T]) size() int {
	n := 0
	for _, b := range bs {
		n += len(b.items)
	}
	return n
}

// Store is the in-memory normalized model. All writes are serialized by mu.
type Store struct {
	mu sync.RWMutex

	profiles map[string]domain.Profile

	goals       map[string]domain.Goal
	goalOrder   []string
	goalByEvent map[string]string

	zaps            buckets[domain.ValueTransfer]
	zapsByRecipient buckets[domain.ValueTransfer]
	reactions       buckets[domain.Reaction]
	comments        buckets[domain.Comment]
	updates         buckets[domain.GoalUpdate]

	following map[string]followList
}

type followList struct {
	follows   []string
	createdAt int64
}

var _ domain.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		profiles:        make(map[string]domain.Profile),
		goals:           make(map[string]domain.Goal),
		goalByEvent:     make(map[string]string),
		zaps:            make(buckets[domain.ValueTransfer]),
		zapsByRecipient: make(buckets[domain.ValueTransfer]),
		reactions:       make(buckets[domain.Reaction]),
		comments:        make(buckets[domain.Comment]),
		updates:         make(buckets[domain.GoalUpdate]),
		following:       make(map[string]followList),
	}
}

// UpsertProfile stores p, replacing any previous profile of the same pubkey.
func (s *Store) UpsertProfile(p domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.Pubkey] = p
}

// Profile returns the profile of pubkey.
func (s *Store) Profile(pubkey string) (domain.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[pubkey]
	return p, ok
}

// UpsertGoal stores g unless a strictly newer version of the same goal is
// already present. Equal timestamps let the incoming version win.
func (s *Store) UpsertGoal(g domain.Goal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.goals[g.GoalID]
	if ok && g.CreatedAt < existing.CreatedAt {
		return false
	}
	if !ok {
		s.goalOrder = append(s.goalOrder, g.GoalID)
	}
	s.goals[g.GoalID] = g
	s.goalByEvent[g.EventID] = g.GoalID
	return true
}

// Goal returns the current version of a goal.
func (s *Store) Goal(goalID string) (domain.Goal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goals[goalID]
	return g, ok
}

// GoalByEventID resolves any seen version id to the current goal version.
func (s *Store) GoalByEventID(eventID string) (domain.Goal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	goalID, ok := s.goalByEvent[eventID]
	if !ok {
		return domain.Goal{}, false
	}
	g, ok := s.goals[goalID]
	return g, ok
}

// Goals returns current goal versions in first-seen order.
func (s *Store) Goals() []domain.Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Goal, 0, len(s.goalOrder))
	for _, id := range s.goalOrder {
		out = append(out, s.goals[id])
	}
	return out
}

// AddZap appends z to its goal and recipient buckets unless already present.
func (s *Store) AddZap(z domain.ValueTransfer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := false
	if z.TargetEventID != "" {
		added = s.zaps.add(z.TargetEventID, z.EventID, z)
	}
	if z.RecipientPubkey != "" {
		if s.zapsByRecipient.add(z.RecipientPubkey, z.EventID, z) {
			added = true
		}
	}
	return added
}

// Zaps returns the value transfers targeting a goal event.
func (s *Store) Zaps(goalEventID string) []domain.ValueTransfer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zaps[goalEventID].snapshot()
}

// ZapsForRecipient returns every value transfer paid to pubkey.
func (s *Store) ZapsForRecipient(pubkey string) []domain.ValueTransfer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zapsByRecipient[pubkey].snapshot()
}

// AddReaction appends r unless already present.
func (s *Store) AddReaction(r domain.Reaction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reactions.add(r.TargetEventID, r.EventID, r)
}

// Reactions returns reactions to a goal event.
func (s *Store) Reactions(goalEventID string) []domain.Reaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reactions[goalEventID].snapshot()
}

// AddComment appends c unless already present.
func (s *Store) AddComment(c domain.Comment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comments.add(c.TargetEventID, c.EventID, c)
}

// Comments returns comments on a goal event.
func (s *Store) Comments(goalEventID string) []domain.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.comments[goalEventID].snapshot()
}

// AddUpdate appends u unless already present.
func (s *Store) AddUpdate(u domain.GoalUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates.add(u.GoalEventID, u.EventID, u)
}

// Updates returns candidate updates of a goal event regardless of author.
func (s *Store) Updates(goalEventID string) []domain.GoalUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates[goalEventID].snapshot()
}

// SetFollowing replaces the follow list of pubkey unless a strictly newer
// list is already present.
func (s *Store) SetFollowing(pubkey string, follows []string, createdAt int64) bool {
	cp := make([]string, len(follows))
	copy(cp, follows)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.following[pubkey]; ok && createdAt < existing.createdAt {
		return false
	}
	s.following[pubkey] = followList{follows: cp, createdAt: createdAt}
	return true
}

// Following returns the follow list of pubkey.
func (s *Store) Following(pubkey string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.following[pubkey].follows
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// Counts reports collection sizes.
func (s *Store) Counts() domain.StoreCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.StoreCounts{
		Profiles:  len(s.profiles),
		Goals:     len(s.goals),
		Zaps:      s.zaps.size(),
		Reactions: s.reactions.size(),
		Comments:  s.comments.size(),
		Updates:   s.updates.size(),
	}
}
