package sinks

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/keywatch/internal/hash/sha256"
	"github.com/JakeFAU/keywatch/internal/progress"
)

// Publisher delivers a payload to a downstream broker.
type Publisher interface {
	Publish(ctx context.Context, kind string, payload any) (string, error)
}

// HitMessage is the payload published for every HIT event.
type HitMessage struct {
	// ID is stable for a (run, title) pair so consumers can drop redeliveries.
	ID      string `json:"id"`
	RunID   string `json:"run_id"`
	TS      string `json:"ts"`
	Mode    string `json:"mode,omitempty"`
	URL     string `json:"url,omitempty"`
	Keyword string `json:"keyword"`
	Title   string `json:"title"`
	Link    string `json:"link,omitempty"`
}

// PublisherSink forwards HIT events to a Publisher and ignores the rest.
type PublisherSink struct {
	pub    Publisher
	closer func() error
}

// NewPublisherSink wraps pub. If pub also implements Close() error it is
// closed together with the sink.
func NewPublisherSink(pub Publisher) *PublisherSink {
	s := &PublisherSink{pub: pub}
	if c, ok := pub.(interface{ Close() error }); ok {
		s.closer = c.Close
	}
	return s
}

// Consume publishes every HIT event in the batch. The first error aborts
// the batch.
func (s *PublisherSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s.pub == nil {
		return nil
	}
	for _, evt := range batch {
		if evt.Stage != progress.StageHit {
			continue
		}
		msg := HitMessage{
			ID:      sha256.Key(evt.RunID, evt.Title),
			RunID:   evt.RunID,
			TS:      evt.TS.UTC().Format(time.RFC3339),
			Mode:    evt.Mode,
			URL:     evt.URL,
			Keyword: evt.Keyword,
			Title:   evt.Title,
			Link:    evt.Link,
		}
		if _, err := s.pub.Publish(ctx, string(progress.StageHit), msg); err != nil {
			return fmt.Errorf("publish hit %q: %w", evt.Title, err)
		}
	}
	return nil
}

// Close closes the underlying publisher when it supports it.
func (s *PublisherSink) Close(context.Context) error {
	if s.closer == nil {
		return nil
	}
	if err := s.closer(); err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}
	return nil
}
