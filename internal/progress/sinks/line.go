package sinks

import (
	"context"

	"github.com/JakeFAU/keywatch/internal/progress"
	"github.com/JakeFAU/keywatch/internal/watch"
)

// LineSink forwards one rendered status line per event to a watch.LogSink.
type LineSink struct {
	out watch.LogSink
}

// NewLineSink adapts out to the progress.Sink interface.
func NewLineSink(out watch.LogSink) *LineSink {
	return &LineSink{out: out}
}

// Consume writes evt.Line() for every event in order.
func (s *LineSink) Consume(_ context.Context, batch []progress.Event) error {
	if s.out == nil {
		return nil
	}
	for _, evt := range batch {
		s.out.Write(evt.Line())
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LineSink) Close(context.Context) error {
	return nil
}
