package sinks

import (
	"context"
	"sync"

	"github.com/JakeFAU/keywatch/internal/progress"
)

const defaultRingSize = 500

// RingSink keeps the most recent status lines in memory for the API.
type RingSink struct {
	mu    sync.RWMutex
	lines []string
	next  int
	full  bool
}

// NewRingSink returns a RingSink holding at most size lines.
func NewRingSink(size int) *RingSink {
	if size <= 0 {
		size = defaultRingSize
	}
	return &RingSink{lines: make([]string, size)}
}

// Write stores a line, overwriting the oldest one once the ring is full. It
// lets the ring double as a watch.LogSink.
func (s *RingSink) Write(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[s.next] = line
	s.next = (s.next + 1) % len(s.lines)
	if s.next == 0 {
		s.full = true
	}
}

// Consume records evt.Line() for every event in the batch.
func (s *RingSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.Write(evt.Line())
	}
	return nil
}

// Recent returns up to limit lines, oldest first. A non-positive limit
// returns everything retained.
func (s *RingSink) Recent(limit int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ordered []string
	if s.full {
		ordered = append(ordered, s.lines[s.next:]...)
		ordered = append(ordered, s.lines[:s.next]...)
	} else {
		ordered = append(ordered, s.lines[:s.next]...)
	}
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	return ordered
}

// Close implements the Sink interface; it performs no action.
func (s *RingSink) Close(context.Context) error {
	return nil
}
