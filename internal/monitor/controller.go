// Package monitor runs the keyword watch loop. A Controller owns at most one
// worker goroutine at a time; each worker repeatedly resolves keywords,
// fetches the target page, matches new titles and notifies them until it is
// stopped.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/keywatch/internal/clock/system"
	"github.com/JakeFAU/keywatch/internal/dedup"
	"github.com/JakeFAU/keywatch/internal/id/uuid"
	"github.com/JakeFAU/keywatch/internal/progress"
	"github.com/JakeFAU/keywatch/internal/watch"
)

// ErrStopping is returned by Start while the previous worker is still
// finishing its current pass.
var ErrStopping = errors.New("monitor is stopping")

const (
	defaultCallTimeout = 30 * time.Second
	tracerName         = "github.com/JakeFAU/keywatch/internal/monitor"
)

// Status is a point-in-time view of the controller.
type Status struct {
	Running   bool       `json:"running"`
	Stopping  bool       `json:"stopping"`
	RunID     string     `json:"run_id,omitempty"`
	Mode      watch.Mode `json:"mode,omitempty"`
	TargetURL string     `json:"target_url,omitempty"`
	ChatID    string     `json:"chat_id,omitempty"`
	Seen      int        `json:"seen"`
	Passes    int64      `json:"passes"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// Controller starts and stops the monitor worker.
type Controller struct {
	keywords watch.KeywordProvider
	fetcher  watch.PageFetcher
	notifier watch.Notifier

	pacer       Pacer
	emitter     progress.Emitter
	clock       watch.Clock
	ids         watch.IDGenerator
	logger      *zap.Logger
	tracer      trace.Tracer
	baseCtx     context.Context
	callTimeout time.Duration
	seenLimit   int

	mu      sync.Mutex
	running atomic.Bool
	current *run
}

// Option customizes a Controller.
type Option func(*Controller)

// WithPacer overrides the sleep schedule.
func WithPacer(p Pacer) Option {
	return func(c *Controller) {
		if p != nil {
			c.pacer = p
		}
	}
}

// WithEmitter sends progress events to e.
func WithEmitter(e progress.Emitter) Option {
	return func(c *Controller) {
		if e != nil {
			c.emitter = e
		}
	}
}

// WithClock overrides the event clock.
func WithClock(clock watch.Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(ids watch.IDGenerator) Option {
	return func(c *Controller) {
		if ids != nil {
			c.ids = ids
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracerProvider traces each pass with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Controller) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithBaseContext sets the parent context for network calls. Stop does not
// cancel it; cancelling it aborts in-flight calls.
func WithBaseContext(ctx context.Context) Option {
	return func(c *Controller) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}

// WithCallTimeout bounds each keyword, fetch and notify call.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithSeenLimit caps each run's seen set; 0 keeps every title.
func WithSeenLimit(limit int) Option {
	return func(c *Controller) {
		c.seenLimit = limit
	}
}

// New constructs a Controller in the idle state.
func New(keywords watch.KeywordProvider, fetcher watch.PageFetcher, notifier watch.Notifier, opts ...Option) *Controller {
	c := &Controller{
		keywords:    keywords,
		fetcher:     fetcher,
		notifier:    notifier,
		pacer:       DefaultPacer(),
		emitter:     progress.EmitterFunc(func(progress.Event) {}),
		clock:       system.New(),
		ids:         uuid.New(),
		logger:      zap.NewNop(),
		tracer:      otel.Tracer(tracerName),
		baseCtx:     context.Background(),
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches a worker for cfg. It is a no-op while a worker is running
// and returns ErrStopping while a stopped worker has not exited yet. An
// invalid cfg yields a *watch.ConfigError.
func (c *Controller) Start(cfg watch.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.TargetURL == "" {
		return &watch.ConfigError{Field: "target_url", Reason: "target url is required"}
	}
	if cfg.Mode == "" {
		cfg.Mode = watch.ModeManual
	}
	cfg.ManualKeywords = watch.CleanKeywords(cfg.ManualKeywords)

	c.mu.Lock()
	defer c.mu.Unlock()

	if r := c.current; r != nil && !r.finished() {
		if r.stopRequested() {
			return ErrStopping
		}
		return nil
	}

	id, err := c.ids.NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	r := newRun(id, cfg, dedup.NewSeenSet(c.seenLimit), c.clock.Now())
	c.current = r
	c.running.Store(true)

	c.logger.Info("monitor starting",
		zap.String("run_id", id),
		zap.String("mode", string(cfg.Mode)),
		zap.String("target", cfg.TargetURL),
	)
	go c.work(r)
	return nil
}

// Stop asks the current worker to exit. It never blocks; the worker notices
// at the top of its next pass or while sleeping.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return
	}
	c.current.requestStop()
	c.running.Store(false)
}

// Wait blocks until the current worker has exited or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for monitor: %w", ctx.Err())
	}
}

// Shutdown stops the worker and waits for it to exit.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.Stop()
	return c.Wait(ctx)
}

// Running reports whether a worker is active and has not been asked to stop.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// Status returns a snapshot of the current or most recent run.
func (c *Controller) Status() Status {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()

	st := Status{Running: c.running.Load()}
	if r == nil {
		return st
	}
	started := r.startedAt
	st.Stopping = r.stopRequested() && !r.finished()
	st.RunID = r.id
	st.Mode = r.cfg.Mode
	st.TargetURL = r.cfg.TargetURL
	st.ChatID = r.cfg.ChatID
	st.Seen = r.seen.Len()
	st.Passes = r.passes.Load()
	st.StartedAt = &started
	return st
}

// Seen returns the titles recorded by the current or most recent run.
func (c *Controller) Seen() []string {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r == nil {
		return []string{}
	}
	return r.seen.Snapshot()
}

// finish marks r as exited. The running flag is only cleared while r is still
// the current run, which holds because Start refuses to replace an unfinished
// run.
func (c *Controller) finish(r *run) {
	c.mu.Lock()
	if c.current == r {
		c.running.Store(false)
	}
	c.mu.Unlock()
	close(r.done)
}

// run is the state owned by one worker goroutine.
type run struct {
	id        string
	cfg       watch.Config
	seen      *dedup.SeenSet
	startedAt time.Time
	passes    atomic.Int64

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func newRun(id string, cfg watch.Config, seen *dedup.SeenSet, startedAt time.Time) *run {
	return &run{
		id:        id,
		cfg:       cfg,
		seen:      seen,
		startedAt: startedAt,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (r *run) requestStop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *run) stopRequested() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

func (r *run) finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// sleep waits for d and reports false if a stop arrived first.
func (r *run) sleep(d time.Duration) bool {
	if d <= 0 {
		return !r.stopRequested()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-r.stop:
		return false
	case <-timer.C:
		return true
	}
}
