// Package metrics provides Prometheus metrics for sched-timeline.
//
// Metrics cover three areas:
//   - Rendering: sessions rendered, superseded, timeline shape
//   - Animation: fills scheduled, fired and dropped, plus firing lag
//   - Service: requests made to the scheduling service
package metrics

import (
	"sync"
	"time"

	"github.com/influxdata/tdigest"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-sched-timeline/internal/session"
)

const namespace = "sched_timeline"

// Collector manages all Prometheus metrics for one process. It implements
// progress.Observer.
type Collector struct {
	// --- Panel 1: Rendering ---
	info              *prometheus.GaugeVec
	rendersTotal      prometheus.Counter
	generation        prometheus.Gauge
	supersededTotal   prometheus.Counter
	timelineBlocks    prometheus.Gauge
	timelineSpan      prometheus.Gauge
	skippedEvents     prometheus.Counter
	degenerateSpans   prometheus.Counter
	processesRendered prometheus.Gauge

	// --- Panel 2: Animation ---
	fillsScheduled prometheus.Counter
	fillsFired     prometheus.Counter
	fillsDropped   prometheus.Counter
	fillLag        prometheus.Histogram
	fillLagP50     prometheus.Gauge
	fillLagP95     prometheus.Gauge
	fillLagP99     prometheus.Gauge

	// --- Panel 3: Service ---
	serviceRequests *prometheus.CounterVec

	startTime time.Time

	mu         sync.Mutex
	lagDigest  *tdigest.TDigest
	lagCount   int64
	renders    int64
	superseded int64
	fired      int64
	dropped    int64
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Version string
	Source  string // "service" or "file"
}

// NewCollector creates a collector registered with the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "info",
			Help:      "Information about the renderer (value always 1)",
		}, []string{"version", "source"}),
		rendersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Render sessions started",
		}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation",
			Help:      "Current render generation token",
		}),
		supersededTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "superseded_generations_total",
			Help:      "Generations invalidated by a re-render or clear",
		}),
		timelineBlocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "timeline_blocks",
			Help:      "Blocks in the most recent timeline",
		}),
		timelineSpan: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "timeline_span_units",
			Help:      "Time units covered by the most recent timeline",
		}),
		skippedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_events_total",
			Help:      "Dispatch events skipped for non-positive duration",
		}),
		degenerateSpans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degenerate_spans_total",
			Help:      "Timelines whose total span was not positive",
		}),
		processesRendered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "processes",
			Help:      "Processes in the most recent snapshot",
		}),
		fillsScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fills_scheduled_total",
			Help:      "Progress fills scheduled",
		}),
		fillsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fills_fired_total",
			Help:      "Progress fills applied",
		}),
		fillsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_fills_dropped_total",
			Help:      "Fills discarded because their generation was superseded",
		}),
		fillLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fill_lag_seconds",
			Help:      "Delay between a fill's scheduled and actual firing time",
			Buckets: []float64{
				0.0005, 0.001, 0.0025, 0.005, 0.01,
				0.025, 0.05, 0.1, 0.25, 0.5,
			},
		}),
		fillLagP50: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fill_lag_p50_seconds",
			Help:      "Fill lag 50th percentile (median)",
		}),
		fillLagP95: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fill_lag_p95_seconds",
			Help:      "Fill lag 95th percentile",
		}),
		fillLagP99: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fill_lag_p99_seconds",
			Help:      "Fill lag 99th percentile",
		}),
		serviceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_requests_total",
			Help:      "Requests to the scheduling service by route and outcome",
		}, []string{"route", "outcome"}),
		startTime: time.Now(),
		lagDigest: tdigest.NewWithCompression(100),
	}

	registry.MustRegister(
		// Panel 1: Rendering
		c.info,
		c.rendersTotal,
		c.generation,
		c.supersededTotal,
		c.timelineBlocks,
		c.timelineSpan,
		c.skippedEvents,
		c.degenerateSpans,
		c.processesRendered,

		// Panel 2: Animation
		c.fillsScheduled,
		c.fillsFired,
		c.fillsDropped,
		c.fillLag,
		c.fillLagP50,
		c.fillLagP95,
		c.fillLagP99,

		// Panel 3: Service
		c.serviceRequests,
	)

	c.info.WithLabelValues(cfg.Version, cfg.Source).Set(1)

	return c
}

// =============================================================================
// Recording Methods
// =============================================================================

// RecordRender records a freshly begun session.
func (c *Collector) RecordRender(s *session.Session) {
	if s == nil {
		return
	}
	c.rendersTotal.Inc()
	c.generation.Set(float64(s.Generation))
	c.timelineBlocks.Set(float64(len(s.Timeline.Blocks)))
	c.timelineSpan.Set(s.Timeline.TotalTime)
	c.processesRendered.Set(float64(len(s.Snapshot.Stats)))
	c.fillsScheduled.Add(float64(s.FillCount()))

	if s.Timeline.Skipped > 0 {
		c.skippedEvents.Add(float64(s.Timeline.Skipped))
	}
	if s.Timeline.Degenerate {
		c.degenerateSpans.Inc()
	}

	c.mu.Lock()
	c.renders++
	c.mu.Unlock()
}

// RecordSuperseded records that generation gen replaced an earlier one.
func (c *Collector) RecordSuperseded(gen uint64) {
	c.supersededTotal.Inc()
	c.generation.Set(float64(gen))

	c.mu.Lock()
	c.superseded++
	c.mu.Unlock()
}

// FillFired records a fill that reached its process bar.
func (c *Collector) FillFired(lag time.Duration) {
	if lag < 0 {
		lag = 0
	}
	secs := lag.Seconds()
	c.fillsFired.Inc()
	c.fillLag.Observe(secs)

	c.mu.Lock()
	c.fired++
	c.lagCount++
	c.lagDigest.Add(secs, 1)
	p50 := c.lagDigest.Quantile(0.50)
	p95 := c.lagDigest.Quantile(0.95)
	p99 := c.lagDigest.Quantile(0.99)
	c.mu.Unlock()

	c.fillLagP50.Set(p50)
	c.fillLagP95.Set(p95)
	c.fillLagP99.Set(p99)
}

// FillsDropped records fills discarded for a stale generation.
func (c *Collector) FillsDropped(n int) {
	if n <= 0 {
		return
	}
	c.fillsDropped.Add(float64(n))

	c.mu.Lock()
	c.dropped += int64(n)
	c.mu.Unlock()
}

// RecordServiceRequest records one call to the scheduling service.
func (c *Collector) RecordServiceRequest(route string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.serviceRequests.WithLabelValues(route, outcome).Inc()
}

// =============================================================================
// Summary Generation
// =============================================================================

// Summary contains totals for the exit line.
type Summary struct {
	Duration   time.Duration
	Renders    int64
	Superseded int64
	FillsFired int64
	Dropped    int64
	LagP50     time.Duration
	LagP95     time.Duration
	LagP99     time.Duration
}

// GenerateSummary creates a summary of the run.
func (c *Collector) GenerateSummary() *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &Summary{
		Duration:   time.Since(c.startTime),
		Renders:    c.renders,
		Superseded: c.superseded,
		FillsFired: c.fired,
		Dropped:    c.dropped,
	}

	if c.lagCount > 0 {
		s.LagP50 = seconds(c.lagDigest.Quantile(0.50))
		s.LagP95 = seconds(c.lagDigest.Quantile(0.95))
		s.LagP99 = seconds(c.lagDigest.Quantile(0.99))
	}

	return s
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
