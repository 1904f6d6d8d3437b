package watch

import (
	"context"
	"time"
)

// KeywordProvider resolves the keyword list for a mode. It never fails: source
// outages are replaced by a fallback list.
type KeywordProvider interface {
	Keywords(ctx context.Context, mode Mode, manual []string) []string
}

// PageFetcher retrieves a target page and extracts candidates from it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]Candidate, error)
}

// Notifier delivers a text message for a run. Delivery is best-effort; the
// returned error is for logging only.
type Notifier interface {
	Send(ctx context.Context, cfg Config, text string) error
}

// LogSink receives one human-readable line per status event.
type LogSink interface {
	Write(line string)
}

// LogSinkFunc adapts a function to LogSink.
type LogSinkFunc func(line string)

// Write calls f(line).
func (f LogSinkFunc) Write(line string) {
	f(line)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
