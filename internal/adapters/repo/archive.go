package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"zapgoals/internal/domain"
	"zapgoals/internal/infra/metrics"
)

const queryTimeout = 5 * time.Second

// querier is satisfied by *pgxpool.Pool.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Archive keeps accepted raw events in Postgres so the in-memory store can
// be rebuilt after a restart.
type Archive struct {
	db querier
	sb sq.StatementBuilderType
}

var _ domain.EventArchive = (*Archive)(nil)

// NewArchive creates the archive adapter.
func NewArchive(db querier) *Archive {
	return &Archive{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

func (a *Archive) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, queryTimeout)
}

// SaveEvent stores ev under category. Saving the same pair twice is a no-op.
func (a *Archive) SaveEvent(ctx context.Context, category domain.Category, ev domain.RawEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.ID, err)
	}
	query, args, err := a.sb.
		Insert("archived_events").
		Columns("id", "category", "kind", "pubkey", "created_at", "payload").
		Values(ev.ID, string(category), ev.Kind, ev.PubKey, ev.CreatedAt, payload).
		Suffix("ON CONFLICT (id, category) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	_, err = a.db.Exec(ctx, query, args...)
	metrics.ObserveNetworkRequest("postgres", "insert", "archived_events", start, err)
	if err != nil {
		return fmt.Errorf("archive event %s: %w", ev.ID, err)
	}
	return nil
}

// ListEvents returns the newest q.Limit archived events, ordered oldest first.
func (a *Archive) ListEvents(ctx context.Context, q domain.ArchiveQuery) ([]domain.ArchivedEvent, error) {
	builder := a.sb.
		Select("category", "payload").
		From("archived_events").
		OrderBy("created_at DESC", "id DESC")
	if len(q.Categories) > 0 {
		cats := make([]string, 0, len(q.Categories))
		for _, c := range q.Categories {
			cats = append(cats, string(c))
		}
		builder = builder.Where(sq.Eq{"category": cats})
	}
	if q.Since > 0 {
		builder = builder.Where(sq.GtOrEq{"created_at": q.Since})
	}
	if q.Limit > 0 {
		builder = builder.Limit(q.Limit)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	rows, err := a.db.Query(ctx, query, args...)
	metrics.ObserveNetworkRequest("postgres", "select", "archived_events", start, err)
	if err != nil {
		return nil, fmt.Errorf("list archived events: %w", err)
	}
	defer rows.Close()

	var out []domain.ArchivedEvent
	for rows.Next() {
		var (
			category string
			payload  []byte
		)
		if err := rows.Scan(&category, &payload); err != nil {
			return nil, fmt.Errorf("scan archived event: %w", err)
		}
		var ev domain.RawEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode archived event: %w", err)
		}
		out = append(out, domain.ArchivedEvent{Category: domain.Category(category), Event: ev})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived events: %w", err)
	}
	slices.Reverse(out)
	return out, nil
}
