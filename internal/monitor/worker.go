package monitor

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/keywatch/internal/dedup"
	"github.com/JakeFAU/keywatch/internal/keywords"
	"github.com/JakeFAU/keywatch/internal/notify"
	"github.com/JakeFAU/keywatch/internal/progress"
	"github.com/JakeFAU/keywatch/internal/watch"
)

// resolver is implemented by providers that can report how a list was built.
type resolver interface {
	Resolve(ctx context.Context, mode watch.Mode, manual []string) keywords.Result
}

func (c *Controller) work(r *run) {
	defer c.finish(r)
	c.emit(r, progress.Event{Stage: progress.StageRunStart})

	for !r.stopRequested() {
		delay := c.pass(r)
		if !r.sleep(delay) {
			break
		}
	}

	c.emit(r, progress.Event{Stage: progress.StageRunStop, Count: r.seen.Len()})
	c.logger.Info("monitor stopped",
		zap.String("run_id", r.id),
		zap.Int64("passes", r.passes.Load()),
		zap.Int("seen", r.seen.Len()),
	)
}

// pass runs one poll cycle and returns how long to sleep before the next.
func (c *Controller) pass(r *run) time.Duration {
	n := r.passes.Add(1)
	ctx, span := c.tracer.Start(c.baseCtx, "monitor.pass", trace.WithAttributes(
		attribute.String("run.id", r.id),
		attribute.String("run.mode", string(r.cfg.Mode)),
		attribute.String("url.full", r.cfg.TargetURL),
		attribute.Int64("pass", n),
	))
	defer span.End()

	list, fallback := c.resolveKeywords(ctx, r)
	c.emit(r, progress.Event{Stage: progress.StageKeywords, Keywords: list, Fallback: fallback})
	span.SetAttributes(attribute.Int("keywords", len(list)), attribute.Bool("keywords.fallback", fallback))

	start := time.Now()
	fetchCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	candidates, err := c.fetcher.Fetch(fetchCtx, r.cfg.TargetURL)
	cancel()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		delay := c.pacer.Recovery()
		evt := progress.Event{Stage: progress.StageFetchError, Dur: delay, Note: err.Error()}
		var fetchErr *watch.FetchError
		if errors.As(err, &fetchErr) {
			evt.StatusCode = fetchErr.StatusCode
		}
		c.emit(r, evt)
		return delay
	}
	c.emit(r, progress.Event{Stage: progress.StageFetchDone, Count: len(candidates), Dur: time.Since(start)})

	hits := dedup.Match(candidates, list, r.seen)
	span.SetAttributes(attribute.Int("candidates", len(candidates)), attribute.Int("hits", len(hits)))
	for _, hit := range hits {
		c.emit(r, progress.Event{
			Stage:   progress.StageHit,
			Keyword: hit.Keyword,
			Title:   hit.Candidate.Title,
			Link:    hit.Candidate.Link,
			Count:   r.seen.Len(),
		})
		c.deliver(ctx, r, hit)
	}
	return c.pacer.Interval()
}

func (c *Controller) resolveKeywords(parent context.Context, r *run) ([]string, bool) {
	ctx, cancel := context.WithTimeout(parent, c.callTimeout)
	defer cancel()
	if res, ok := c.keywords.(resolver); ok {
		result := res.Resolve(ctx, r.cfg.Mode, r.cfg.ManualKeywords)
		return result.Keywords, result.Fallback
	}
	return c.keywords.Keywords(ctx, r.cfg.Mode, r.cfg.ManualKeywords), false
}

// deliver sends one hit. Failures are reported and the title stays seen.
func (c *Controller) deliver(parent context.Context, r *run, hit watch.Hit) {
	ctx, cancel := context.WithTimeout(parent, c.callTimeout)
	defer cancel()

	if err := c.notifier.Send(ctx, r.cfg, notify.FormatHit(hit)); err != nil {
		evt := progress.Event{Stage: progress.StageNotifyError, Title: hit.Candidate.Title, Note: err.Error()}
		var notifyErr *watch.NotifyError
		if errors.As(err, &notifyErr) {
			evt.StatusCode = notifyErr.StatusCode
		}
		c.emit(r, evt)
		return
	}
	c.emit(r, progress.Event{Stage: progress.StageNotifySent, Keyword: hit.Keyword, Title: hit.Candidate.Title})
}

func (c *Controller) emit(r *run, evt progress.Event) {
	evt.RunID = r.id
	evt.TS = c.clock.Now()
	evt.Mode = string(r.cfg.Mode)
	if evt.URL == "" {
		evt.URL = r.cfg.TargetURL
	}
	c.emitter.Emit(evt)
}
