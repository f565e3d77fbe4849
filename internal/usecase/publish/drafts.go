package publish

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"zapgoals/internal/domain"
)

const maxCommentRunes = 500

// GoalDraft holds the editable fields of a goal.
type GoalDraft struct {
	Title      string            `json:"title"`
	Summary    string            `json:"summary,omitempty"`
	ImageURL   string            `json:"image_url,omitempty"`
	TargetSats int64             `json:"target_sats"`
	Status     domain.GoalStatus `json:"status,omitempty"`
}

func (d GoalDraft) normalized() (GoalDraft, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Summary = strings.TrimSpace(d.Summary)
	d.ImageURL = strings.TrimSpace(d.ImageURL)
	if d.Title == "" {
		return d, fmt.Errorf("%w: title is required", domain.ErrInvalidDraft)
	}
	if d.TargetSats <= 0 {
		return d, fmt.Errorf("%w: target must be a positive number of sats", domain.ErrInvalidDraft)
	}
	if d.TargetSats > domain.MaxSupplySats {
		return d, fmt.Errorf("%w: target exceeds the bitcoin supply", domain.ErrInvalidDraft)
	}
	switch d.Status {
	case "":
		d.Status = domain.GoalStatusActive
	case domain.GoalStatusActive, domain.GoalStatusPaused, domain.GoalStatusClosed, domain.GoalStatusDone:
	default:
		return d, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidDraft, d.Status)
	}
	return d, nil
}

type goalContent struct {
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	Image   string `json:"image,omitempty"`
	Status  string `json:"status"`
}

// NewGoalEvent builds an unsigned goal with a fresh goal id.
func NewGoalEvent(d GoalDraft, goalID string, now time.Time) (domain.RawEvent, error) {
	d, err := d.normalized()
	if err != nil {
		return domain.RawEvent{}, err
	}
	if goalID == "" {
		return domain.RawEvent{}, fmt.Errorf("%w: empty goal id", domain.ErrInvalidDraft)
	}
	content, err := json.Marshal(goalContent{Title: d.Title, Summary: d.Summary, Image: d.ImageURL, Status: string(d.Status)})
	if err != nil {
		return domain.RawEvent{}, fmt.Errorf("marshal goal: %w", err)
	}
	tags := [][]string{
		{"d", goalID},
		{"goal", "sats", strconv.FormatInt(d.TargetSats, 10)},
		{"amount", strconv.FormatInt(d.TargetSats*1000, 10)},
		{"unit", "sat"},
	}
	tags = appendGoalExtras(tags, d, now)
	return domain.RawEvent{Kind: domain.KindGoal, CreatedAt: now.Unix(), Tags: tags, Content: string(content)}, nil
}

// EditGoalEvent builds a replacement for old under the same goal id.
func EditGoalEvent(old domain.Goal, d GoalDraft, now time.Time) (domain.RawEvent, error) {
	ev, err := NewGoalEvent(d, old.GoalID, now)
	if err != nil {
		return domain.RawEvent{}, err
	}
	ev.Tags = append(ev.Tags, []string{"updated_from", old.EventID})
	// Replacements must not lose the last write wins race against the old version.
	if ev.CreatedAt < old.CreatedAt {
		ev.CreatedAt = old.CreatedAt
	}
	return ev, nil
}

func appendGoalExtras(tags [][]string, d GoalDraft, now time.Time) [][]string {
	if d.ImageURL != "" {
		tags = append(tags, []string{"image", d.ImageURL})
	}
	if d.Summary != "" {
		tags = append(tags, []string{"description", d.Summary})
	}
	if d.Status == domain.GoalStatusClosed {
		tags = append(tags, []string{"closed_at", strconv.FormatInt(now.Unix(), 10)})
	}
	return tags
}

// Changelog describes what an edit changed.
func Changelog(old domain.Goal, d GoalDraft) string {
	d, _ = d.normalized()
	var changes []string
	if d.Title != old.Title {
		changes = append(changes, fmt.Sprintf("Title changed from %q to %q", old.Title, d.Title))
	}
	if d.TargetSats != old.TargetSats {
		changes = append(changes, fmt.Sprintf("Target changed from %s to %s sats", FormatSats(old.TargetSats), FormatSats(d.TargetSats)))
	}
	if d.Summary != old.Summary {
		changes = append(changes, "Description updated")
	}
	if d.ImageURL != old.ImageURL {
		changes = append(changes, "Image updated")
	}
	if d.Status != old.Status {
		changes = append(changes, fmt.Sprintf("Status changed from %s to %s", old.Status, d.Status))
	}
	if len(changes) == 0 {
		return "Goal updated"
	}
	return "Goal updated: " + strings.Join(changes, ", ")
}

// NewUpdateEvent builds a progress note on a goal.
func NewUpdateEvent(goal domain.Goal, content string, now time.Time) (domain.RawEvent, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.RawEvent{}, fmt.Errorf("%w: update is empty", domain.ErrInvalidDraft)
	}
	return noteOn(goal.EventID, goal.AuthorPubkey, content, now), nil
}

// NewCommentEvent builds a top level comment on a goal.
func NewCommentEvent(goal domain.Goal, content string, now time.Time) (domain.RawEvent, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.RawEvent{}, fmt.Errorf("%w: comment is empty", domain.ErrInvalidDraft)
	}
	if len([]rune(content)) > maxCommentRunes {
		return domain.RawEvent{}, fmt.Errorf("%w: comment longer than %d characters", domain.ErrInvalidDraft, maxCommentRunes)
	}
	return noteOn(goal.EventID, goal.AuthorPubkey, content, now), nil
}

// NewReactionEvent builds a reaction to a goal.
func NewReactionEvent(goal domain.Goal, content string, now time.Time) domain.RawEvent {
	return domain.RawEvent{
		Kind:      domain.KindReaction,
		CreatedAt: now.Unix(),
		Tags:      [][]string{{"e", goal.EventID}, {"p", goal.AuthorPubkey}},
		Content:   content,
	}
}

func noteOn(goalEventID, author, content string, now time.Time) domain.RawEvent {
	return domain.RawEvent{
		Kind:      domain.KindTextNote,
		CreatedAt: now.Unix(),
		Tags:      [][]string{{"e", goalEventID, "", "root"}, {"p", author}},
		Content:   content,
	}
}

// FormatSats renders n with thousands separators.
func FormatSats(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
