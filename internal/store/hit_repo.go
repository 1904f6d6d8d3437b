package store

import (
	"context"
	"time"
)

// RunStatus mirrors the keywatch_runs status column.
type RunStatus string

// Run statuses persisted in keywatch_runs.status.
const (
	RunRunning RunStatus = "running"
	RunStopped RunStatus = "stopped"
)

// Run models one monitor run.
type Run struct {
	ID        string
	Mode      string
	TargetURL string
	StartedAt time.Time
	// StoppedAt is nil while the run is still going.
	StoppedAt *time.Time
	Status    RunStatus
}

// HitRecord is one reported title.
type HitRecord struct {
	RunID   string
	Keyword string
	Title   string
	Link    string
	FoundAt time.Time
	// NotifiedAt is nil until the notifier accepted the message.
	NotifiedAt *time.Time
}

// HitReader lists recorded hits.
type HitReader interface {
	// ListHits returns hits newest first. An empty runID lists every run.
	ListHits(ctx context.Context, runID string, limit, offset int) ([]HitRecord, error)
}

// HitRepository persists run lifecycle and hits. It is a history for
// operators; the monitor never reads it back to seed deduplication.
type HitRepository interface {
	HitReader
	// RecordRunStart inserts the run row.
	RecordRunStart(ctx context.Context, run Run) error
	// RecordRunStop marks the run stopped.
	RecordRunStop(ctx context.Context, runID string, stoppedAt time.Time) error
	// RecordHit inserts one hit.
	RecordHit(ctx context.Context, hit HitRecord) error
	// MarkNotified stamps notified_at on a previously recorded hit.
	MarkNotified(ctx context.Context, runID, title string, at time.Time) error
}
