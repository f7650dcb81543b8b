// Package orchestrator wires a configured source, the render session
// manager, metrics and one of the three output modes (dashboard, headless
// progress, plain report) into a single run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-sched-timeline/internal/client"
	"github.com/randomizedcoder/go-sched-timeline/internal/config"
	"github.com/randomizedcoder/go-sched-timeline/internal/metrics"
	"github.com/randomizedcoder/go-sched-timeline/internal/preflight"
	"github.com/randomizedcoder/go-sched-timeline/internal/schedule"
	"github.com/randomizedcoder/go-sched-timeline/internal/session"
	"github.com/randomizedcoder/go-sched-timeline/internal/summary"
	"github.com/randomizedcoder/go-sched-timeline/internal/tui"
)

// Orchestrator coordinates all components for one rendering run.
type Orchestrator struct {
	config  *config.Config
	logger  *slog.Logger
	out     io.Writer
	version string

	client        *client.Client // nil in file mode
	request       schedule.Request
	source        client.Source
	sessions      *session.Manager
	metrics       *metrics.Collector
	metricsServer *metrics.Server // nil when disabled

	startTime time.Time
}

// Options carries the collaborators that differ between the binary and tests.
type Options struct {
	Version string
	Out     io.Writer // defaults to os.Stdout

	// Registry receives the collector and backs /metrics. Nil uses the
	// process-wide default registry.
	Registry *prometheus.Registry
}

// New creates a new Orchestrator with the given configuration. The
// configuration must already have passed config.Validate.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Orchestrator, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer
	)
	if opts.Registry != nil {
		registerer = opts.Registry
		gatherer = opts.Registry
	}

	o := &Orchestrator{
		config:   cfg,
		logger:   logger,
		out:      out,
		version:  opts.Version,
		sessions: session.NewManager(cfg.SessionOptions()),
		metrics: metrics.NewCollectorWithRegistry(metrics.CollectorConfig{
			Version: opts.Version,
			Source:  cfg.SourceName(),
		}, registerer),
	}

	if cfg.MetricsAddr != "" {
		o.metricsServer = metrics.NewServer(cfg.MetricsAddr, gatherer, logger)
	}

	if cfg.ServiceURL != "" {
		c, err := client.New(cfg.ServiceURL, cfg.Timeout, logger)
		if err != nil {
			return nil, err
		}
		req, err := cfg.Request()
		if err != nil {
			return nil, err
		}
		o.client = c
		o.request = req
		o.source = instrumentedSource{
			Source:  client.ServiceSource{Client: c, Request: req},
			metrics: o.metrics,
			route:   "run_scheduler",
		}
	} else {
		o.source = client.FileSource{Path: cfg.InputPath}
	}

	return o, nil
}

// RunURL is the service request a run would make, or "" in file mode.
func (o *Orchestrator) RunURL() string {
	if o.client == nil {
		return ""
	}
	return o.client.RunURL(o.request)
}

// Run executes one rendering run. It blocks until the output mode finishes,
// the user quits, or a signal arrives.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.startTime = time.Now()

	// Run preflight checks
	if !o.config.SkipPreflight {
		if err := o.runPreflight(ctx); err != nil {
			return err
		}
	}

	// Start metrics server
	if o.metricsServer != nil {
		if err := o.metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer o.shutdownMetrics()
	}

	// Setup signal handling
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := o.registerProcesses(ctx); err != nil {
		return err
	}

	var err error
	switch {
	case o.config.Report:
		err = o.runReport(ctx)
	case o.config.TUIEnabled:
		err = o.runTUI(ctx)
	default:
		err = o.runHeadless(ctx)
	}
	if err != nil {
		return err
	}
	o.logger.Info("run_complete", "elapsed", time.Since(o.startTime))

	if !o.config.Report {
		o.printExitSummary()
	}
	return nil
}

// runPreflight runs the startup checks. Results are printed in headless mode
// and logged otherwise.
func (o *Orchestrator) runPreflight(ctx context.Context) error {
	result := preflight.RunAll(ctx, preflight.Options{
		ServiceURL:  o.config.ServiceURL,
		InputPath:   o.config.InputPath,
		MetricsAddr: o.config.MetricsAddr,
		Dashboard:   o.config.TUIEnabled && !o.config.Report,
	})

	if !o.config.TUIEnabled && !o.config.Report {
		preflight.PrintResults(o.out, result)
	}
	for _, c := range result.Checks {
		switch {
		case !c.Passed:
			o.logger.Error("preflight_failed", "check", c.Name, "message", c.Message)
		case c.Warning:
			o.logger.Warn("preflight_warning", "check", c.Name, "message", c.Message)
		}
	}

	if !result.Passed {
		return errors.New("preflight checks failed (use -skip-preflight to override)")
	}
	return nil
}

func (o *Orchestrator) shutdownMetrics() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.metricsServer.Shutdown(shutdownCtx); err != nil {
		o.logger.Warn("metrics_server_shutdown_error", "error", err)
	}
}

// registerProcesses sends every -process entry to the service, clearing
// the service's list first when configured to.
func (o *Orchestrator) registerProcesses(ctx context.Context) error {
	if o.client == nil {
		return nil
	}
	procs, err := o.config.ProcessList()
	if err != nil {
		return err
	}
	if len(procs) == 0 {
		return nil
	}

	if o.config.ClearFirst {
		err := o.client.Clear(ctx)
		o.metrics.RecordServiceRequest("clear", err)
		if err != nil {
			return err
		}
	}

	for _, p := range procs {
		n, err := o.client.AddProcess(ctx, p)
		o.metrics.RecordServiceRequest("add_process", err)
		if err != nil {
			return err
		}
		o.logger.Debug("process_added", "arrival", p.Arrival, "burst", p.Burst, "total", n)
	}
	o.logger.Info("processes_registered", "count", len(procs))
	return nil
}

// runReport prints the plain-text result report.
func (o *Orchestrator) runReport(ctx context.Context) error {
	snap, err := o.fetch(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(o.out, summary.Report(snap))
	return nil
}

// runTUI runs the interactive dashboard until the user quits.
func (o *Orchestrator) runTUI(ctx context.Context) error {
	cfg := tui.Config{
		Title:        "sched-timeline " + o.version,
		Source:       o.source,
		Sessions:     o.sessions,
		FetchTimeout: o.config.Timeout,
		Observer:     o.metrics,
	}
	if o.client != nil {
		c := o.client
		m := o.metrics
		cfg.Clear = func(ctx context.Context) error {
			err := c.Clear(ctx)
			m.RecordServiceRequest("clear", err)
			return err
		}
	}

	p := tea.NewProgram(tui.New(cfg), tea.WithAltScreen())

	// Quit cleanly on SIGINT/SIGTERM
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			tui.SendQuit(p)
		case <-done:
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

func (o *Orchestrator) fetch(ctx context.Context) (*schedule.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()
	return o.source.Fetch(ctx)
}

// Metrics returns the metrics collector.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}

// Sessions returns the session manager.
func (o *Orchestrator) Sessions() *session.Manager {
	return o.sessions
}

// instrumentedSource records each fetch against the service.
type instrumentedSource struct {
	client.Source
	metrics *metrics.Collector
	route   string
}

func (s instrumentedSource) Fetch(ctx context.Context) (*schedule.Snapshot, error) {
	snap, err := s.Source.Fetch(ctx)
	s.metrics.RecordServiceRequest(s.route, err)
	return snap, err
}

// printExitSummary prints a summary of the run.
func (o *Orchestrator) printExitSummary() {
	s := o.metrics.GenerateSummary()
	w := o.out

	fmt.Fprintln(w)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════════════")
	fmt.Fprintln(w, "                      sched-timeline Exit Summary")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "Run Duration:           %s\n", formatDuration(s.Duration))
	fmt.Fprintf(w, "Source:                 %s\n", o.config.SourceName())
	fmt.Fprintf(w, "Renders:                %d\n", s.Renders)
	fmt.Fprintf(w, "Superseded:             %d\n", s.Superseded)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Fills:")
	fmt.Fprintf(w, "  Fired:                %d\n", s.FillsFired)
	fmt.Fprintf(w, "  Dropped (stale):      %d\n", s.Dropped)
	if s.FillsFired > 0 {
		fmt.Fprintf(w, "  Lag P50:              %s\n", s.LagP50)
		fmt.Fprintf(w, "  Lag P95:              %s\n", s.LagP95)
		fmt.Fprintf(w, "  Lag P99:              %s\n", s.LagP99)
	}
	fmt.Fprintln(w)

	if o.metricsServer != nil {
		fmt.Fprintf(w, "Metrics endpoint was: http://%s/metrics\n", o.metricsServer.Addr())
	}
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════════════")
}

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
