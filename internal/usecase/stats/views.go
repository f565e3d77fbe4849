package stats

import (
	"fmt"
	"sort"

	"zapgoals/internal/domain"
)

// View enriches a goal with its author profile and aggregates.
func (s *Service) View(g domain.Goal, excludeSelf bool) domain.GoalView {
	zaps := s.src.Zaps(g.EventID)
	raised := SumSats(zaps, excludeSelf, g.AuthorPubkey)
	view := domain.GoalView{
		Goal:       g,
		RaisedSats: raised,
		Progress:   Progress(raised, g.TargetSats),
		ZapCount:   len(counted(zaps, excludeSelf, g.AuthorPubkey)),
		Votes:      s.VoteTally(g.EventID),
	}
	if p, ok := s.src.Profile(g.AuthorPubkey); ok {
		view.Author = &p
	}
	return view
}

// Views enriches every stored goal, keeping first-seen order in Position.
func (s *Service) Views(excludeSelf bool) []domain.GoalView {
	goals := s.src.Goals()
	out := make([]domain.GoalView, 0, len(goals))
	for i, g := range goals {
		v := s.View(g, excludeSelf)
		v.Position = i
		out = append(out, v)
	}
	return out
}

// Detail is everything known about one goal.
type Detail struct {
	domain.GoalView
	Supporters []domain.Supporter  `json:"supporters"`
	Anonymous  domain.Supporter    `json:"anonymous"`
	Emoji      []domain.EmojiCount `json:"emoji"`
	Comments   []domain.Comment    `json:"comments"`
	Updates    []domain.GoalUpdate `json:"updates"`
	// Profiles holds the known profiles of supporters and commenters.
	Profiles map[string]domain.Profile `json:"profiles,omitempty"`
}

// Detail collects the aggregates of a goal by its goal id.
func (s *Service) Detail(goalID string, excludeSelf bool) (Detail, error) {
	g, ok := s.src.Goal(goalID)
	if !ok {
		return Detail{}, fmt.Errorf("goal %s: %w", goalID, domain.ErrGoalNotFound)
	}
	comments := s.src.Comments(g.EventID)
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt > comments[j].CreatedAt
	})
	d := Detail{
		GoalView:   s.View(g, excludeSelf),
		Supporters: s.TopSupporters(g.EventID, excludeSelf, g.AuthorPubkey),
		Anonymous:  s.AnonymousSupport(g.EventID),
		Emoji:      s.EmojiCounts(g.EventID),
		Comments:   comments,
		Updates:    s.GoalUpdates(g),
	}
	pubkeys := make([]string, 0, len(d.Supporters)+len(comments))
	for _, sp := range d.Supporters {
		pubkeys = append(pubkeys, sp.Pubkey)
	}
	for _, c := range comments {
		pubkeys = append(pubkeys, c.AuthorPubkey)
	}
	d.Profiles = s.profiles(pubkeys)
	return d, nil
}

func (s *Service) profiles(pubkeys []string) map[string]domain.Profile {
	var out map[string]domain.Profile
	for _, pk := range pubkeys {
		if pk == "" {
			continue
		}
		if _, ok := out[pk]; ok {
			continue
		}
		p, ok := s.src.Profile(pk)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]domain.Profile)
		}
		out[pk] = p
	}
	return out
}

// GoalUpdates returns notes on the goal written by its author, newest first.
func (s *Service) GoalUpdates(g domain.Goal) []domain.GoalUpdate {
	var out []domain.GoalUpdate
	for _, u := range s.src.Updates(g.EventID) {
		if u.AuthorPubkey == g.AuthorPubkey {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out
}
