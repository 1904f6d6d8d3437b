package sinks

import (
	"context"
	"fmt"

	"github.com/JakeFAU/keywatch/internal/progress"
	"github.com/JakeFAU/keywatch/internal/store"
)

// StoreSink records run lifecycle and hits in a HitRepository.
type StoreSink struct {
	repo store.HitRepository
}

// NewStoreSink wraps repo. If repo also has a Close() method it is closed
// together with the sink.
func NewStoreSink(repo store.HitRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

// Consume writes the events it understands and skips the rest.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		if err := s.consumeEvent(ctx, evt); err != nil {
			return fmt.Errorf("store %s event for run %s: %w", evt.Stage, evt.RunID, err)
		}
	}
	return nil
}

func (s *StoreSink) consumeEvent(ctx context.Context, evt progress.Event) error {
	switch evt.Stage {
	case progress.StageRunStart:
		return s.repo.RecordRunStart(ctx, store.Run{
			ID:        evt.RunID,
			Mode:      evt.Mode,
			TargetURL: evt.URL,
			StartedAt: evt.TS,
		})
	case progress.StageRunStop:
		return s.repo.RecordRunStop(ctx, evt.RunID, evt.TS)
	case progress.StageHit:
		return s.repo.RecordHit(ctx, store.HitRecord{
			RunID:   evt.RunID,
			Keyword: evt.Keyword,
			Title:   evt.Title,
			Link:    evt.Link,
			FoundAt: evt.TS,
		})
	case progress.StageNotifySent:
		return s.repo.MarkNotified(ctx, evt.RunID, evt.Title, evt.TS)
	default:
		return nil
	}
}

// Close closes the repository when it supports it.
func (s *StoreSink) Close(context.Context) error {
	if c, ok := s.repo.(interface{ Close() }); ok {
		c.Close()
	}
	return nil
}
