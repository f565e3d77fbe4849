package stats

import (
	"math"
	"sort"

	"zapgoals/internal/domain"
)

// Source is the read side of the store used for aggregation.
type Source interface {
	Profile(pubkey string) (domain.Profile, bool)
	Goal(goalID string) (domain.Goal, bool)
	Goals() []domain.Goal
	Zaps(goalEventID string) []domain.ValueTransfer
	ZapsForRecipient(pubkey string) []domain.ValueTransfer
	Reactions(goalEventID string) []domain.Reaction
	Comments(goalEventID string) []domain.Comment
	Updates(goalEventID string) []domain.GoalUpdate
}

// Service derives aggregates from the store. Nothing is cached; every call
// reflects the store at call time.
type Service struct {
	src Source
}

// NewService creates the aggregation service.
func NewService(src Source) *Service {
	return &Service{src: src}
}

// Raised sums whole sats sent to a goal event. With excludeSelf, transfers
// paid by the author are ignored.
func (s *Service) Raised(goalEventID string, excludeSelf bool, author string) int64 {
	return SumSats(s.src.Zaps(goalEventID), excludeSelf, author)
}

// RaisedForCreator sums whole sats paid to pubkey across all goals.
func (s *Service) RaisedForCreator(pubkey string, excludeSelf bool) int64 {
	return SumSats(s.src.ZapsForRecipient(pubkey), excludeSelf, pubkey)
}

// SumSats sums floor(msat/1000) per transfer.
func SumSats(zaps []domain.ValueTransfer, excludeSelf bool, author string) int64 {
	var total int64
	for _, z := range counted(zaps, excludeSelf, author) {
		total = addSat(total, z.Sats())
	}
	return total
}

// Progress is raised/target as a percentage capped at 100. A non-positive
// target yields 0.
func Progress(raised, target int64) float64 {
	if target <= 0 || raised <= 0 {
		return 0
	}
	return math.Min(float64(raised)/float64(target)*100, 100)
}

// TopSupporters ranks named payers by total sats. Anonymous transfers are
// left out; ties keep first-seen order.
func (s *Service) TopSupporters(goalEventID string, excludeSelf bool, author string) []domain.Supporter {
	return RankSupporters(s.src.Zaps(goalEventID), excludeSelf, author)
}

// AnonymousSupport totals the transfers without a known payer.
func (s *Service) AnonymousSupport(goalEventID string) domain.Supporter {
	var anon domain.Supporter
	for _, z := range s.src.Zaps(goalEventID) {
		if z.ZapperPubkey != "" {
			continue
		}
		anon.TotalSats = addSat(anon.TotalSats, z.Sats())
		anon.Count++
	}
	return anon
}

// RankSupporters groups transfers by payer and sorts by total, descending.
func RankSupporters(zaps []domain.ValueTransfer, excludeSelf bool, author string) []domain.Supporter {
	index := make(map[string]int)
	var out []domain.Supporter
	for _, z := range counted(zaps, excludeSelf, author) {
		if z.ZapperPubkey == "" {
			continue
		}
		i, ok := index[z.ZapperPubkey]
		if !ok {
			i = len(out)
			index[z.ZapperPubkey] = i
			out = append(out, domain.Supporter{Pubkey: z.ZapperPubkey})
		}
		out[i].TotalSats = addSat(out[i].TotalSats, z.Sats())
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalSats > out[j].TotalSats
	})
	return out
}

// VoteTally counts reactions to a goal event by class.
func (s *Service) VoteTally(goalEventID string) domain.VoteTally {
	return TallyReactions(s.src.Reactions(goalEventID))
}

// TallyReactions counts reactions by class.
func TallyReactions(reactions []domain.Reaction) domain.VoteTally {
	var tally domain.VoteTally
	for _, r := range reactions {
		switch domain.ClassifyReaction(r.Content) {
		case domain.ReactionUpvote:
			tally.Up++
		case domain.ReactionDownvote:
			tally.Down++
		default:
			tally.Emoji++
		}
	}
	return tally
}

// EmojiCounts groups emoji reactions to a goal event, most frequent first.
func (s *Service) EmojiCounts(goalEventID string) []domain.EmojiCount {
	return GroupEmoji(s.src.Reactions(goalEventID))
}

// GroupEmoji groups emoji reactions by content; ties keep first-seen order.
func GroupEmoji(reactions []domain.Reaction) []domain.EmojiCount {
	index := make(map[string]int)
	var out []domain.EmojiCount
	for _, r := range reactions {
		if domain.ClassifyReaction(r.Content) != domain.ReactionEmoji {
			continue
		}
		i, ok := index[r.Content]
		if !ok {
			i = len(out)
			index[r.Content] = i
			out = append(out, domain.EmojiCount{Emoji: r.Content})
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

func counted(zaps []domain.ValueTransfer, excludeSelf bool, author string) []domain.ValueTransfer {
	if !excludeSelf || author == "" {
		return zaps
	}
	out := make([]domain.ValueTransfer, 0, len(zaps))
	for _, z := range zaps {
		if z.ZapperPubkey == author {
			continue
		}
		out = append(out, z)
	}
	return out
}

func addSat(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
