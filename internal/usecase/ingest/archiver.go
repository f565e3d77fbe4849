package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"zapgoals/internal/domain"
)

// Archiver persists accepted events in the background so ingestion never
// waits for the database.
type Archiver struct {
	archive domain.EventArchive
	queue   chan domain.ArchivedEvent
	log     zerolog.Logger
}

// NewArchiver creates an archiver with a bounded buffer.
func NewArchiver(archive domain.EventArchive, buffer int, logger zerolog.Logger) *Archiver {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Archiver{
		archive: archive,
		queue:   make(chan domain.ArchivedEvent, buffer),
		log:     logger.With().Str("component", "archiver").Logger(),
	}
}

// Submit queues an event. When the buffer is full the event is dropped; it
// will be fetched from the relays again on the next start.
func (a *Archiver) Submit(category domain.Category, ev domain.RawEvent) {
	select {
	case a.queue <- domain.ArchivedEvent{Category: category, Event: ev}:
	default:
		a.log.Warn().Str("event", ev.ID).Msg("archiver: buffer full, event dropped")
	}
}

// Run writes queued events until ctx is done.
func (a *Archiver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ae := <-a.queue:
			saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := a.archive.SaveEvent(saveCtx, ae.Category, ae.Event)
			cancel()
			if err != nil {
				a.log.Error().Err(err).Str("event", ae.Event.ID).Msg("archiver: save failed")
			}
		}
	}
}
