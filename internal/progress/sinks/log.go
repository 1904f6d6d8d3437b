package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/keywatch/internal/progress"
)

// LogSink emits structured logs for every progress event.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields. Failures are
// logged at warn level.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunID),
			zap.String("stage", string(evt.Stage)),
		}
		if evt.URL != "" {
			fields = append(fields, zap.String("url", evt.URL))
		}
		if len(evt.Keywords) > 0 {
			fields = append(fields, zap.Strings("keywords", evt.Keywords), zap.Bool("fallback", evt.Fallback))
		}
		if evt.Title != "" {
			fields = append(fields, zap.String("keyword", evt.Keyword), zap.String("title", evt.Title))
		}
		if evt.Count > 0 {
			fields = append(fields, zap.Int("count", evt.Count))
		}
		if evt.StatusCode != 0 {
			fields = append(fields, zap.Int("status_code", evt.StatusCode))
		}
		if evt.Dur > 0 {
			fields = append(fields, zap.Duration("dur", evt.Dur))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}

		switch evt.Stage {
		case progress.StageFetchError, progress.StageNotifyError:
			s.logger.Warn("monitor event", fields...)
		default:
			s.logger.Info("monitor event", fields...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
