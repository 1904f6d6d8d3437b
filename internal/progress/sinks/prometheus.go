package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/keywatch/internal/progress"
)

// PrometheusSink exports monitor progress metrics via Prometheus. It owns all
// collectors for runs, passes, fetches, hits and notifications.
type PrometheusSink struct {
	runsStarted      prometheus.Counter
	runsRunning      prometheus.Gauge
	passes           prometheus.Counter
	keywordFallbacks prometheus.Counter
	fetches          *prometheus.CounterVec
	fetchDuration    prometheus.Histogram
	candidates       prometheus.Gauge
	hits             prometheus.Counter
	notifications    *prometheus.CounterVec
	seenSize         prometheus.Gauge

	tracker *runTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keywatch_runs_started_total",
			Help: "Total monitor runs that have started.",
		}),
		runsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "keywatch_runs_running",
			Help: "Current number of running monitor runs.",
		}),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keywatch_passes_total",
			Help: "Total monitor passes that resolved a keyword list.",
		}),
		keywordFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keywatch_keyword_fallbacks_total",
			Help: "Passes that used the fallback keyword list.",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keywatch_target_fetches_total",
			Help: "Target page fetches partitioned by result.",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "keywatch_target_fetch_duration_seconds",
			Help:    "Target page fetch duration.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		candidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "keywatch_candidates",
			Help: "Candidates extracted by the most recent fetch.",
		}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keywatch_hits_total",
			Help: "Newly matched titles.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keywatch_notifications_total",
			Help: "Notification attempts partitioned by result.",
		}, []string{"result"}),
		seenSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "keywatch_seen_titles",
			Help: "Titles recorded in the current run's seen set.",
		}),
		tracker: newRunTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsRunning,
		s.passes,
		s.keywordFallbacks,
		s.fetches,
		s.fetchDuration,
		s.candidates,
		s.hits,
		s.notifications,
		s.seenSize,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
		if s.tracker.start(evt.RunID) {
			s.runsRunning.Inc()
		}
		s.seenSize.Set(0)
	case progress.StageRunStop:
		if s.tracker.complete(evt.RunID) {
			s.runsRunning.Dec()
		}
	case progress.StageKeywords:
		s.passes.Inc()
		if evt.Fallback {
			s.keywordFallbacks.Inc()
		}
	case progress.StageFetchDone:
		s.fetches.WithLabelValues("success").Inc()
		s.candidates.Set(float64(evt.Count))
		if evt.Dur > 0 {
			s.fetchDuration.Observe(evt.Dur.Seconds())
		}
	case progress.StageFetchError:
		s.fetches.WithLabelValues("error").Inc()
	case progress.StageHit:
		s.hits.Inc()
		s.seenSize.Set(float64(evt.Count))
	case progress.StageNotifySent:
		s.notifications.WithLabelValues("sent").Inc()
	case progress.StageNotifyError:
		s.notifications.WithLabelValues("error").Inc()
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type runTracker struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func newRunTracker() *runTracker {
	return &runTracker{running: make(map[string]struct{})}
}

func (t *runTracker) start(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *runTracker) complete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
