package parse

import (
	"strings"

	"zapgoals/internal/domain"
)

// Reaction parses a kind 7 reaction. The last "e" tag is the reacted event.
func (p *Parser) Reaction(ev domain.RawEvent) (domain.Reaction, error) {
	if err := expectKind(ev, domain.KindReaction); err != nil {
		return domain.Reaction{}, err
	}
	tag, ok := lastTag(ev.Tags, "e")
	if !ok || tag[1] == "" {
		return domain.Reaction{}, malformed("reaction without target")
	}
	return domain.Reaction{
		EventID:       ev.ID,
		TargetEventID: tag[1],
		ReactorPubkey: ev.PubKey,
		Content:       ev.Content,
		CreatedAt:     p.createdAt(ev),
	}, nil
}

// Comment parses a kind 1 note that references a goal.
func (p *Parser) Comment(ev domain.RawEvent) (domain.Comment, error) {
	if err := expectKind(ev, domain.KindTextNote); err != nil {
		return domain.Comment{}, err
	}
	target := rootReference(ev.Tags)
	if target == "" {
		return domain.Comment{}, malformed("comment without target")
	}
	return domain.Comment{
		EventID:       ev.ID,
		TargetEventID: target,
		AuthorPubkey:  ev.PubKey,
		Content:       strings.TrimSpace(ev.Content),
		CreatedAt:     p.createdAt(ev),
	}, nil
}

// GoalUpdate parses a kind 1 note as a goal update. Whether the author owns
// the goal is decided on read.
func (p *Parser) GoalUpdate(ev domain.RawEvent) (domain.GoalUpdate, error) {
	c, err := p.Comment(ev)
	if err != nil {
		return domain.GoalUpdate{}, err
	}
	return domain.GoalUpdate{
		EventID:      c.EventID,
		GoalEventID:  c.TargetEventID,
		AuthorPubkey: c.AuthorPubkey,
		Content:      c.Content,
		CreatedAt:    c.CreatedAt,
	}, nil
}

// Following parses a kind 3 contact list into followed pubkeys, first
// occurrence order, without duplicates.
func (p *Parser) Following(ev domain.RawEvent) ([]string, error) {
	if err := expectKind(ev, domain.KindContactList); err != nil {
		return nil, err
	}
	if ev.PubKey == "" {
		return nil, malformed("contact list without owner")
	}
	seen := make(map[string]struct{})
	follows := make([]string, 0, len(ev.Tags))
	for _, tag := range ev.Tags {
		if len(tag) < 2 || tag[0] != "p" {
			continue
		}
		pk := strings.TrimSpace(tag[1])
		if pk == "" {
			continue
		}
		if _, ok := seen[pk]; ok {
			continue
		}
		seen[pk] = struct{}{}
		follows = append(follows, pk)
	}
	return follows, nil
}
