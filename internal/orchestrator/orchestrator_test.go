package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-sched-timeline/internal/client"
	"github.com/randomizedcoder/go-sched-timeline/internal/config"
)

const snapshotJSON = `{
	"events": [{"pid": 1, "start": 0, "end": 2}, {"pid": 2, "start": 2, "end": 4}],
	"stats": [
		{"pid": 1, "arrival": 0, "burst": 2, "completeTime": 2, "turnaround": 2, "waiting": 0, "response": 0,
		 "executions": [{"start": 0, "duration": 2}]},
		{"pid": 2, "arrival": 1, "burst": 2, "completeTime": 4, "turnaround": 3, "waiting": 1, "response": 1,
		 "executions": [{"start": 2, "duration": 1}, {"start": 3, "duration": 1}]}
	],
	"averageMetrics": {"averageTurnaroundTime": 2.5, "averageWaitingTime": 0.5, "averageResponseTime": 0.5}
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(snapshotJSON), 0o600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.TUIEnabled = false
	cfg.TimeUnit = time.Millisecond
	cfg.Timeout = 2 * time.Second
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config) (*Orchestrator, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	o, err := New(cfg, testLogger(), Options{
		Version:  "test",
		Out:      &out,
		Registry: prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return o, &out
}

// fakeService records the routes it is asked for, in order.
type fakeService struct {
	mu     sync.Mutex
	calls  []string
	failOn string
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.mu.Unlock()

	if r.URL.Path == f.failOn {
		http.Error(w, `{"error": "boom"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/clear":
		_, _ = io.WriteString(w, `{"status": "cleared"}`)
	case "/add_process":
		_, _ = io.WriteString(w, `{"status": "success", "processes": [{"pid": 1}]}`)
	case "/run_scheduler":
		_, _ = io.WriteString(w, snapshotJSON)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// =============================================================================
// Construction
// =============================================================================

func TestNew_FileSource(t *testing.T) {
	cfg := testConfig()
	cfg.InputPath = writeSnapshot(t)

	o, _ := newTestOrchestrator(t, cfg)
	if o.metricsServer != nil {
		t.Error("metrics server created without -metrics")
	}
	if o.client != nil {
		t.Error("service client created in file mode")
	}
	if _, ok := o.source.(client.FileSource); !ok {
		t.Errorf("source = %T, want client.FileSource", o.source)
	}
	if got := o.RunURL(); got != "" {
		t.Errorf("RunURL() = %q, want empty in file mode", got)
	}
}

func TestNew_ServiceRunURL(t *testing.T) {
	cfg := testConfig()
	cfg.ServiceURL = "http://localhost:5000"
	cfg.Algorithm = "rr"
	cfg.Quantum = "3"

	o, _ := newTestOrchestrator(t, cfg)
	want := "http://localhost:5000/run_scheduler?algorithm=RR&quantum=3"
	if got := o.RunURL(); got != want {
		t.Errorf("RunURL() = %q, want %q", got, want)
	}
}

func TestNew_InvalidService(t *testing.T) {
	cfg := testConfig()
	cfg.ServiceURL = "ftp://localhost"

	_, err := New(cfg, testLogger(), Options{Out: io.Discard, Registry: prometheus.NewRegistry()})
	if err == nil {
		t.Fatal("New() succeeded with an ftp service URL")
	}
}

// =============================================================================
// Run
// =============================================================================

func TestRun_ReportFromFile(t *testing.T) {
	cfg := testConfig()
	cfg.InputPath = writeSnapshot(t)
	cfg.Report = true

	o, out := newTestOrchestrator(t, cfg)
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Process Stats:",
		"P2 | Arrival: 1, Burst: 2, Complete: 4, TAT: 3, WT: 1, RT: 1",
		"Gantt Chart Events:",
		"Average Turnaround Time: 2.50",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q\n%s", want, got)
		}
	}
	if strings.Contains(got, "Exit Summary") {
		t.Error("report mode printed the exit summary")
	}
}

func TestRun_HeadlessFromService(t *testing.T) {
	svc := &fakeService{}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	cfg := testConfig()
	cfg.ServiceURL = srv.URL
	cfg.Processes = []string{"0:2", "1:2"}

	o, out := newTestOrchestrator(t, cfg)
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	wantCalls := []string{
		"POST /clear",
		"POST /add_process",
		"POST /add_process",
		"GET /run_scheduler",
	}
	calls := svc.Calls()
	if strings.Join(calls, ",") != strings.Join(wantCalls, ",") {
		t.Errorf("calls = %v, want %v", calls, wantCalls)
	}

	got := out.String()
	for _, want := range []string{
		"Preflight checks:",
		"Gantt Chart",
		"P1     100.00%",
		"P2      50.00%",
		"P2     100.00%",
		"Average Waiting Time",
		"0.50",
		"Exit Summary",
		"Fired:                3",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}

	// P2's fills fire in segment order.
	if strings.Index(got, "P2      50.00%") > strings.Index(got, "P2     100.00%") {
		t.Error("P2 fills printed out of order")
	}

	s := o.Metrics().GenerateSummary()
	if s.Renders != 1 {
		t.Errorf("Renders = %d, want 1", s.Renders)
	}
	if s.FillsFired != 3 {
		t.Errorf("FillsFired = %d, want 3", s.FillsFired)
	}
	if cur := o.Sessions().Current(); cur == nil || len(cur.Timeline.Blocks) != 2 {
		t.Errorf("current session = %+v, want two timeline blocks", cur)
	}
}

func TestRun_NoClearWhenDisabled(t *testing.T) {
	svc := &fakeService{}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	cfg := testConfig()
	cfg.ServiceURL = srv.URL
	cfg.Processes = []string{"0:2"}
	cfg.ClearFirst = false
	cfg.Report = true

	o, _ := newTestOrchestrator(t, cfg)
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	for _, c := range svc.Calls() {
		if c == "POST /clear" {
			t.Error("service cleared with ClearFirst=false")
		}
	}
}

func TestRun_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		failOn string
		procs  []string
	}{
		{"clear", "/clear", []string{"0:1"}},
		{"add process", "/add_process", []string{"0:1"}},
		{"run scheduler", "/run_scheduler", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(&fakeService{failOn: tt.failOn})
			defer srv.Close()

			cfg := testConfig()
			cfg.ServiceURL = srv.URL
			cfg.Processes = tt.procs

			o, out := newTestOrchestrator(t, cfg)
			err := o.Run(context.Background())
			if err == nil {
				t.Fatal("Run() succeeded, want error")
			}
			var se *client.StatusError
			if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
				t.Errorf("error = %v, want StatusError 500", err)
			}
			if strings.Contains(out.String(), "Exit Summary") {
				t.Error("exit summary printed after a failed run")
			}
		})
	}
}

func TestRun_MissingFile(t *testing.T) {
	tests := []struct {
		name          string
		skipPreflight bool
		wantErr       string
	}{
		{"preflight", false, "preflight checks failed"},
		{"skip preflight", true, "open snapshot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.InputPath = filepath.Join(t.TempDir(), "missing.json")
			cfg.SkipPreflight = tt.skipPreflight

			o, _ := newTestOrchestrator(t, cfg)
			err := o.Run(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Run() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestRun_MetricsServer(t *testing.T) {
	cfg := testConfig()
	cfg.InputPath = writeSnapshot(t)
	cfg.MetricsAddr = "127.0.0.1:0"

	o, out := newTestOrchestrator(t, cfg)
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(out.String(), "Metrics endpoint was: http://127.0.0.1:") {
		t.Errorf("exit summary missing metrics endpoint\n%s", out.String())
	}
}

func TestRun_HeadlessCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.InputPath = writeSnapshot(t)
	cfg.TimeUnit = time.Hour

	o, _ := newTestOrchestrator(t, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
	// Only fills due at offset zero can fire before the deadline.
	if s := o.Metrics().GenerateSummary(); s.FillsFired >= 3 {
		t.Errorf("FillsFired = %d, want fewer than 3", s.FillsFired)
	}
}

// =============================================================================
// Helpers
// =============================================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{61 * time.Minute, "01:01:00"},
		{25*time.Hour + 2*time.Second, "25:00:02"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
