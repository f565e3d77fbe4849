package relay

import (
	"github.com/nbd-wtf/go-nostr"

	"zapgoals/internal/domain"
)

func fromNostr(ev *nostr.Event) domain.RawEvent {
	tags := make([][]string, 0, len(ev.Tags))
	for _, t := range ev.Tags {
		tags = append(tags, append([]string(nil), t...))
	}
	return domain.RawEvent{
		ID:        ev.ID,
		PubKey:    ev.PubKey,
		CreatedAt: int64(ev.CreatedAt),
		Kind:      ev.Kind,
		Tags:      tags,
		Content:   ev.Content,
		Sig:       ev.Sig,
	}
}

func toNostr(ev domain.RawEvent) nostr.Event {
	tags := make(nostr.Tags, 0, len(ev.Tags))
	for _, t := range ev.Tags {
		tags = append(tags, nostr.Tag(append([]string(nil), t...)))
	}
	return nostr.Event{
		ID:        ev.ID,
		PubKey:    ev.PubKey,
		CreatedAt: nostr.Timestamp(ev.CreatedAt),
		Kind:      ev.Kind,
		Tags:      tags,
		Content:   ev.Content,
		Sig:       ev.Sig,
	}
}

func toFilter(f domain.Filter) nostr.Filter {
	out := nostr.Filter{
		Kinds:   f.Kinds,
		Authors: f.Authors,
		Limit:   f.Limit,
	}
	if len(f.References) > 0 || len(f.PubkeyRefs) > 0 {
		out.Tags = nostr.TagMap{}
		if len(f.References) > 0 {
			out.Tags["e"] = f.References
		}
		if len(f.PubkeyRefs) > 0 {
			out.Tags["p"] = f.PubkeyRefs
		}
	}
	if f.Since > 0 {
		since := nostr.Timestamp(f.Since)
		out.Since = &since
	}
	return out
}
