package parse

import (
	"strings"
	"unicode/utf8"

	"zapgoals/internal/domain"
)

const (
	maxTitleRunes   = 200
	maxSummaryRunes = 500

	// Amount tags above this value are read as millisatoshis.
	msatThreshold = 1_000_000
)

// Goal parses a kind 9041 fundraising goal.
func (p *Parser) Goal(ev domain.RawEvent) (domain.Goal, error) {
	if err := expectKind(ev, domain.KindGoal); err != nil {
		return domain.Goal{}, err
	}
	if ev.PubKey == "" {
		return domain.Goal{}, malformed("goal without author")
	}

	dTag := tagValue(ev.Tags, "d")
	goalID := dTag
	if goalID == "" {
		goalID = ev.ID
	}

	fields, isJSON := jsonObject(ev.Content)

	g := domain.Goal{
		EventID:      ev.ID,
		GoalID:       goalID,
		AuthorPubkey: ev.PubKey,
		Title:        truncate(p.goalTitle(ev, fields, isJSON, dTag), maxTitleRunes),
		Summary:      truncate(goalSummary(ev, fields), maxSummaryRunes),
		ImageURL:     firstNonEmpty(stringField(fields, "image", "imageUrl", "picture"), tagValue(ev.Tags, "image")),
		TargetSats:   p.goalTarget(ev.Tags),
		Status:       goalStatus(ev.Tags, fields),
		CreatedAt:    p.createdAt(ev),
	}
	return g, nil
}

// goalTarget resolves the target in sats: an explicit ["goal","sats",N] tag,
// then an amount tag (millisatoshis when large), then the default.
func (p *Parser) goalTarget(tags [][]string) int64 {
	for _, tag := range tags {
		if len(tag) >= 3 && tag[0] == "goal" && tag[1] == "sats" {
			if n, ok := positiveInt(tag[2]); ok {
				return n
			}
		}
	}
	for _, tag := range tags {
		if len(tag) >= 2 && tag[0] == "amount" {
			n, ok := positiveInt(tag[1])
			if !ok {
				continue
			}
			if n > msatThreshold {
				n /= 1000
			}
			if n > 0 {
				return n
			}
		}
	}
	return p.defaultTarget
}

func (p *Parser) goalTitle(ev domain.RawEvent, fields map[string]any, isJSON bool, dTag string) string {
	if title := stringField(fields, "title", "name", "description"); title != "" {
		return title
	}
	if title := tagValue(ev.Tags, "title"); title != "" {
		return title
	}
	if !isJSON {
		if text := strings.TrimSpace(ev.Content); text != "" {
			return text
		}
	}
	if dTag != "" {
		if utf8.RuneCountInString(dTag) > 20 {
			return "Goal: " + truncate(dTag, 20) + "..."
		}
		return "Goal: " + dTag
	}
	id := ev.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return "Goal " + id
}

func goalSummary(ev domain.RawEvent, fields map[string]any) string {
	return firstNonEmpty(
		stringField(fields, "summary"),
		tagValue(ev.Tags, "summary"),
		tagValue(ev.Tags, "description"),
	)
}

func goalStatus(tags [][]string, fields map[string]any) domain.GoalStatus {
	status := domain.GoalStatusActive
	if hasTag(tags, "closed_at") {
		status = domain.GoalStatusClosed
	}
	switch s := domain.GoalStatus(strings.ToLower(stringField(fields, "status"))); s {
	case domain.GoalStatusActive, domain.GoalStatusPaused, domain.GoalStatusClosed, domain.GoalStatusDone:
		status = s
	}
	return status
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
