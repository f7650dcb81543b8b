package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/randomizedcoder/go-sched-timeline/internal/schedule"
	"github.com/randomizedcoder/go-sched-timeline/internal/session"
)

// =============================================================================
// Test Helpers
// =============================================================================

// newTestCollector creates a collector with a test registry.
func newTestCollector(cfg CollectorConfig) (*Collector, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(cfg, registry)
	return c, registry
}

// gatherValue returns the value of the first sample of the named family
// whose labels match. Counters, gauges and histogram sample counts are
// supported.
func gatherValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !labelsMatch(m, labels) {
				continue
			}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				return m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				return m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func f64(v float64) *float64 { return &v }

func testSession(events []schedule.DispatchEvent) *session.Session {
	snap := &schedule.Snapshot{
		Events: events,
		Stats: []schedule.ProcessResult{
			{
				PID:     "1",
				Arrival: 0,
				Burst:   4,
				Executions: []schedule.ExecutionSegment{
					{Start: 0, Duration: 2},
					{Start: 3, Duration: 2},
				},
				CompleteTime: f64(5),
			},
		},
	}
	return session.NewManager(session.DefaultOptions()).Begin(snap, time.Unix(1700000000, 0))
}

// =============================================================================
// Tests: NewCollector
// =============================================================================

func TestNewCollector(t *testing.T) {
	tests := []struct {
		name string
		cfg  CollectorConfig
	}{
		{name: "service source", cfg: CollectorConfig{Version: "1.0.0", Source: "service"}},
		{name: "file source", cfg: CollectorConfig{Version: "dev", Source: "file"}},
		{name: "empty config", cfg: CollectorConfig{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, reg := newTestCollector(tt.cfg)
			if c == nil {
				t.Fatal("NewCollector returned nil")
			}

			got := gatherValue(t, reg, "sched_timeline_info", map[string]string{
				"version": tt.cfg.Version,
				"source":  tt.cfg.Source,
			})
			if got != 1 {
				t.Errorf("info = %v, want 1", got)
			}
		})
	}
}

// =============================================================================
// Tests: RecordRender
// =============================================================================

func TestCollector_RecordRender(t *testing.T) {
	c, reg := newTestCollector(CollectorConfig{})

	s := testSession([]schedule.DispatchEvent{
		{PID: "1", Start: 0, End: 2},
		{PID: "idle", Start: 2, End: 3},
		{PID: "2", Start: 3, End: 3},
		{PID: "1", Start: 3, End: 5},
	})
	c.RecordRender(s)

	checks := []struct {
		name string
		want float64
	}{
		{"sched_timeline_renders_total", 1},
		{"sched_timeline_generation", 1},
		{"sched_timeline_timeline_blocks", 3},
		{"sched_timeline_timeline_span_units", 5},
		{"sched_timeline_skipped_events_total", 1},
		{"sched_timeline_degenerate_spans_total", 0},
		{"sched_timeline_processes", 1},
		{"sched_timeline_fills_scheduled_total", 2},
	}
	for _, ck := range checks {
		t.Run(ck.name, func(t *testing.T) {
			if got := gatherValue(t, reg, ck.name, nil); got != ck.want {
				t.Errorf("%s = %v, want %v", ck.name, got, ck.want)
			}
		})
	}
}

func TestCollector_RecordRender_Degenerate(t *testing.T) {
	c, reg := newTestCollector(CollectorConfig{})

	c.RecordRender(testSession([]schedule.DispatchEvent{
		{PID: "1", Start: 4, End: 4},
	}))

	if got := gatherValue(t, reg, "sched_timeline_degenerate_spans_total", nil); got != 1 {
		t.Errorf("degenerate_spans_total = %v, want 1", got)
	}
}

func TestCollector_RecordRender_Nil(t *testing.T) {
	c, reg := newTestCollector(CollectorConfig{})

	// Should not panic
	c.RecordRender(nil)

	if got := gatherValue(t, reg, "sched_timeline_renders_total", nil); got != 0 {
		t.Errorf("renders_total = %v, want 0", got)
	}
}

// =============================================================================
// Tests: Animation
// =============================================================================

func TestCollector_FillFired(t *testing.T) {
	c, reg := newTestCollector(CollectorConfig{})

	lags := []time.Duration{
		1 * time.Millisecond,
		2 * time.Millisecond,
		3 * time.Millisecond,
		-5 * time.Millisecond, // clock skew, clamped to zero
	}
	for _, lag := range lags {
		c.FillFired(lag)
	}

	if got := gatherValue(t, reg, "sched_timeline_fills_fired_total", nil); got != 4 {
		t.Errorf("fills_fired_total = %v, want 4", got)
	}
	if got := gatherValue(t, reg, "sched_timeline_fill_lag_seconds", nil); got != 4 {
		t.Errorf("fill_lag_seconds count = %v, want 4", got)
	}

	p99 := gatherValue(t, reg, "sched_timeline_fill_lag_p99_seconds", nil)
	if p99 < 0 || p99 > 0.003 {
		t.Errorf("fill_lag_p99_seconds = %v, want within [0, 0.003]", p99)
	}
}

func TestCollector_FillsDropped(t *testing.T) {
	tests := []struct {
		name  string
		drops []int
		want  float64
	}{
		{name: "single batch", drops: []int{3}, want: 3},
		{name: "several batches", drops: []int{1, 2, 4}, want: 7},
		{name: "zero and negative ignored", drops: []int{0, -2, 5}, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, reg := newTestCollector(CollectorConfig{})
			for _, n := range tt.drops {
				c.FillsDropped(n)
			}
			if got := gatherValue(t, reg, "sched_timeline_stale_fills_dropped_total", nil); got != tt.want {
				t.Errorf("stale_fills_dropped_total = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCollector_RecordSuperseded(t *testing.T) {
	c, reg := newTestCollector(CollectorConfig{})

	c.RecordSuperseded(2)
	c.RecordSuperseded(3)

	if got := gatherValue(t, reg, "sched_timeline_superseded_generations_total", nil); got != 2 {
		t.Errorf("superseded_generations_total = %v, want 2", got)
	}
	if got := gatherValue(t, reg, "sched_timeline_generation", nil); got != 3 {
		t.Errorf("generation = %v, want 3", got)
	}
}

// =============================================================================
// Tests: Service
// =============================================================================

func TestCollector_RecordServiceRequest(t *testing.T) {
	c, reg := newTestCollector(CollectorConfig{})

	c.RecordServiceRequest("run_scheduler", nil)
	c.RecordServiceRequest("run_scheduler", nil)
	c.RecordServiceRequest("run_scheduler", errors.New("boom"))
	c.RecordServiceRequest("clear", nil)

	tests := []struct {
		route   string
		outcome string
		want    float64
	}{
		{"run_scheduler", "success", 2},
		{"run_scheduler", "error", 1},
		{"clear", "success", 1},
	}
	for _, tt := range tests {
		t.Run(tt.route+"_"+tt.outcome, func(t *testing.T) {
			got := gatherValue(t, reg, "sched_timeline_service_requests_total", map[string]string{
				"route":   tt.route,
				"outcome": tt.outcome,
			})
			if got != tt.want {
				t.Errorf("service_requests_total = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Tests: GenerateSummary
// =============================================================================

func TestCollector_GenerateSummary(t *testing.T) {
	c, _ := newTestCollector(CollectorConfig{})

	c.RecordRender(testSession([]schedule.DispatchEvent{{PID: "1", Start: 0, End: 5}}))
	c.RecordSuperseded(2)
	for i := 0; i < 100; i++ {
		c.FillFired(10 * time.Millisecond)
	}
	c.FillsDropped(4)

	s := c.GenerateSummary()

	if s.Renders != 1 {
		t.Errorf("Renders = %d, want 1", s.Renders)
	}
	if s.Superseded != 1 {
		t.Errorf("Superseded = %d, want 1", s.Superseded)
	}
	if s.FillsFired != 100 {
		t.Errorf("FillsFired = %d, want 100", s.FillsFired)
	}
	if s.Dropped != 4 {
		t.Errorf("Dropped = %d, want 4", s.Dropped)
	}

	// Every sample is identical, so every percentile is that sample.
	for name, got := range map[string]time.Duration{"LagP50": s.LagP50, "LagP95": s.LagP95, "LagP99": s.LagP99} {
		if diff := got - 10*time.Millisecond; diff < -time.Microsecond || diff > time.Microsecond {
			t.Errorf("%s = %v, want 10ms", name, got)
		}
	}
}

func TestCollector_GenerateSummary_NoFills(t *testing.T) {
	c, _ := newTestCollector(CollectorConfig{})

	s := c.GenerateSummary()
	if s.LagP50 != 0 || s.LagP99 != 0 {
		t.Errorf("lag percentiles = %v/%v, want 0 with no samples", s.LagP50, s.LagP99)
	}
}
