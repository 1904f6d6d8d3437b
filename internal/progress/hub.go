package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Delivery selects what a route does when its sink falls behind.
type Delivery int

const (
	// BestEffort caps the route's backlog at Config.BufferSize and drops
	// events beyond it. Metrics and hit publishing use it.
	BestEffort Delivery = iota
	// Lossless spills into an unbounded backlog so every event emitted
	// before Close reaches the sink exactly once, in order. Status-line
	// and history sinks use it.
	Lossless
)

func (d Delivery) String() string {
	if d == Lossless {
		return "lossless"
	}
	return "best_effort"
}

// Route binds a sink to a delivery policy. Name labels the route in logs.
type Route struct {
	Name     string
	Sink     Sink
	Delivery Delivery
}

// Config controls buffering and batching for the Hub.
//   - BufferSize: backlog cap for BestEffort routes (default 256).
//   - MaxBatchEvents: largest batch handed to a sink (default 32).
//   - MaxBatchWait: how long a route lingers for a fuller batch (default 50ms).
//   - SinkTimeout: per-call deadline for Consume (default 5s).
//   - BaseContext: parent of the per-call contexts (default context.Background()).
//   - Logger: receives drop and sink-failure warnings.
type Config struct {
	BufferSize     int
	MaxBatchEvents int
	MaxBatchWait   time.Duration
	SinkTimeout    time.Duration
	BaseContext    context.Context
	Logger         *zap.Logger
}

const (
	defaultBufferSize     = 256
	defaultMaxBatchEvents = 32
	defaultMaxBatchWait   = 50 * time.Millisecond
	defaultSinkTimeout    = 5 * time.Second
	dropLogInterval       = 5 * time.Second
)

// Hub fans monitor events out to routes. Each route owns its backlog and
// goroutine, so a slow sink only delays itself. Emit never blocks the
// monitor pass.
type Hub struct {
	cfg    Config
	logger *zap.Logger
	routes []*route

	mu     sync.RWMutex
	closed bool

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
	closeCtx  context.Context
}

type route struct {
	Route
	limit int

	mu      sync.Mutex
	pending []Event
	wake    chan struct{}

	delivered atomic.Int64
	dropped   atomic.Int64
	dropLog   rate.Sometimes
}

// NewHub starts one delivery goroutine per route. Routes with a nil Sink are
// skipped.
func NewHub(cfg Config, routes ...Route) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.MaxBatchEvents <= 0 {
		cfg.MaxBatchEvents = defaultMaxBatchEvents
	}
	if cfg.MaxBatchWait <= 0 {
		cfg.MaxBatchWait = defaultMaxBatchWait
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	for _, r := range routes {
		if r.Sink == nil {
			continue
		}
		rt := &route{
			Route:   r,
			wake:    make(chan struct{}, 1),
			dropLog: rate.Sometimes{First: 1, Interval: dropLogInterval},
		}
		if r.Delivery == BestEffort {
			rt.limit = cfg.BufferSize
		}
		h.routes = append(h.routes, rt)
	}

	var wg sync.WaitGroup
	for _, rt := range h.routes {
		wg.Add(1)
		go func(rt *route) {
			defer wg.Done()
			h.serve(rt)
		}(rt)
	}
	go func() {
		wg.Wait()
		close(h.doneCh)
	}()
	return h
}

// Emit queues evt on every route. Invalid events and events emitted after
// Close are discarded.
func (h *Hub) Emit(evt Event) {
	if h == nil {
		return
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid monitor event", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for _, rt := range h.routes {
		if rt.push(evt) {
			continue
		}
		rt.dropLog.Do(func() {
			h.logger.Warn("monitor events dropped",
				zap.String("route", rt.Name),
				zap.Int64("dropped_total", rt.dropped.Load()))
		})
	}
}

// Close stops accepting events, delivers every queued event, closes the
// sinks and waits for the route goroutines to exit or ctx to expire. Repeat
// calls wait on the same shutdown.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.closeCtx = ctx
		h.mu.Unlock()
		close(h.stopCh)
	})
	select {
	case <-h.doneCh:
		for _, rt := range h.routes {
			if n := rt.dropped.Load(); n > 0 {
				h.logger.Warn("monitor route lost events",
					zap.String("route", rt.Name),
					zap.Stringer("delivery", rt.Delivery),
					zap.Int64("dropped", n),
					zap.Int64("delivered", rt.delivered.Load()))
			}
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("progress hub close wait: %w", ctx.Err())
	}
}

func (h *Hub) serve(rt *route) {
	for {
		select {
		case <-rt.wake:
			stopping := h.linger(rt)
			h.drain(rt)
			if stopping {
				h.finish(rt)
				return
			}
		case <-h.stopCh:
			h.finish(rt)
			return
		}
	}
}

// linger waits until a full batch is queued, MaxBatchWait elapses or the hub
// stops. It reports whether the hub stopped.
func (h *Hub) linger(rt *route) bool {
	timer := time.NewTimer(h.cfg.MaxBatchWait)
	defer timer.Stop()
	for rt.size() < h.cfg.MaxBatchEvents {
		select {
		case <-rt.wake:
		case <-timer.C:
			return false
		case <-h.stopCh:
			return true
		}
	}
	return false
}

func (h *Hub) drain(rt *route) {
	for {
		batch := rt.take(h.cfg.MaxBatchEvents)
		if len(batch) == 0 {
			return
		}
		h.deliver(rt, batch)
	}
}

func (h *Hub) finish(rt *route) {
	h.drain(rt)
	h.mu.RLock()
	ctx := h.closeCtx
	h.mu.RUnlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := rt.Sink.Close(ctx); err != nil {
		h.logger.Warn("monitor sink close failed", zap.String("route", rt.Name), zap.Error(err))
	}
}

func (h *Hub) deliver(rt *route, batch []Event) {
	ctx, cancel := context.WithTimeout(h.cfg.BaseContext, h.cfg.SinkTimeout)
	defer cancel()
	if err := rt.Sink.Consume(ctx, batch); err != nil {
		h.logger.Warn("monitor sink consume failed",
			zap.String("route", rt.Name),
			zap.Int("events", len(batch)),
			zap.Error(err))
	}
	rt.delivered.Add(int64(len(batch)))
}

// push appends evt to the backlog, reporting false when a capped backlog is
// full.
func (r *route) push(evt Event) bool {
	r.mu.Lock()
	if r.limit > 0 && len(r.pending) >= r.limit {
		r.mu.Unlock()
		r.dropped.Add(1)
		return false
	}
	r.pending = append(r.pending, evt)
	r.mu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
	return true
}

func (r *route) take(limit int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.pending)
	if n == 0 {
		return nil
	}
	if limit > 0 && n > limit {
		n = limit
	}
	batch := append([]Event(nil), r.pending[:n]...)
	if n == len(r.pending) {
		r.pending = nil
	} else {
		r.pending = r.pending[n:]
	}
	return batch
}

func (r *route) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
