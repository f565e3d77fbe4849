package parse

import (
	"fmt"
	"time"

	"zapgoals/internal/domain"
)

// DefaultTargetSats is used when a goal carries no usable target.
const DefaultTargetSats = 10_000

// Parser turns raw events into store records. All methods are total: bad
// input yields an error wrapping domain.ErrMalformedEvent, never a panic.
type Parser struct {
	defaultTarget int64
	now           func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithDefaultTarget overrides the target used for goals without one.
func WithDefaultTarget(sats int64) Option {
	return func(p *Parser) {
		if sats > 0 {
			p.defaultTarget = sats
		}
	}
}

// WithClock sets the clock used for events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a parser.
func New(opts ...Option) *Parser {
	p := &Parser{defaultTarget: DefaultTargetSats, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Record is the result of Parse. Exactly one field matching the category is set.
type Record struct {
	Category  domain.Category
	Profile   *domain.Profile
	Goal      *domain.Goal
	Zap       *domain.ValueTransfer
	Reaction  *domain.Reaction
	Comment   *domain.Comment
	Update    *domain.GoalUpdate
	Following []string
}

// Parse dispatches an event to the parser of its category.
func (p *Parser) Parse(category domain.Category, ev domain.RawEvent) (rec Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = Record{}
			err = fmt.Errorf("%w: parser panic: %v", domain.ErrMalformedEvent, r)
		}
	}()

	rec.Category = category
	switch category {
	case domain.CategoryProfiles:
		v, err := p.Profile(ev)
		if err != nil {
			return Record{}, err
		}
		rec.Profile = &v
	case domain.CategoryGoals:
		v, err := p.Goal(ev)
		if err != nil {
			return Record{}, err
		}
		rec.Goal = &v
	case domain.CategoryZaps:
		v, err := p.ValueTransfer(ev)
		if err != nil {
			return Record{}, err
		}
		rec.Zap = &v
	case domain.CategoryReactions:
		v, err := p.Reaction(ev)
		if err != nil {
			return Record{}, err
		}
		rec.Reaction = &v
	case domain.CategoryComments:
		v, err := p.Comment(ev)
		if err != nil {
			return Record{}, err
		}
		rec.Comment = &v
	case domain.CategoryUpdates:
		v, err := p.GoalUpdate(ev)
		if err != nil {
			return Record{}, err
		}
		rec.Update = &v
	case domain.CategoryContacts:
		v, err := p.Following(ev)
		if err != nil {
			return Record{}, err
		}
		rec.Following = v
	default:
		return Record{}, malformed("unknown category %q", category)
	}
	return rec, nil
}

func (p *Parser) createdAt(ev domain.RawEvent) int64 {
	if ev.CreatedAt > 0 {
		return ev.CreatedAt
	}
	return p.now().Unix()
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrMalformedEvent, fmt.Sprintf(format, args...))
}

func expectKind(ev domain.RawEvent, kind int) error {
	if ev.Kind != kind {
		return malformed("kind %d, want %d", ev.Kind, kind)
	}
	if ev.ID == "" {
		return malformed("event without id")
	}
	return nil
}
