// Package config provides configuration management for sched-timeline.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/randomizedcoder/go-sched-timeline/internal/progress"
	"github.com/randomizedcoder/go-sched-timeline/internal/schedule"
	"github.com/randomizedcoder/go-sched-timeline/internal/session"
	"github.com/randomizedcoder/go-sched-timeline/internal/timeline"
)

// Config holds all configuration options for the renderer.
type Config struct {
	// Source: exactly one of these is set
	ServiceURL string `json:"service_url"`
	InputPath  string `json:"input_path"` // "-" = stdin

	// Scheduler request (service only)
	Algorithm  string        `json:"algorithm"`
	Quantum    string        `json:"quantum"`   // comma list; one value for RR
	Allotment  string        `json:"allotment"` // comma list, MLFQ only
	Processes  []string      `json:"processes"` // "arrival:burst"
	ClearFirst bool          `json:"clear_first"`
	Timeout    time.Duration `json:"timeout"`

	// Rendering
	ViewportWidth float64       `json:"viewport_width"`
	TimeUnit      time.Duration `json:"time_unit"`

	// Output
	TUIEnabled bool `json:"tui_enabled"`
	Report     bool `json:"report"`

	// Observability
	MetricsAddr string `json:"metrics_addr"` // empty = disabled
	Verbose     bool   `json:"verbose"`
	LogFormat   string `json:"log_format"` // json, text

	// Diagnostic modes
	PrintRequest  bool `json:"print_request"`
	SkipPreflight bool `json:"skip_preflight"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Scheduler request
		Algorithm:  string(schedule.AlgorithmFCFS),
		ClearFirst: true,
		Timeout:    10 * time.Second,

		// Rendering
		ViewportWidth: timeline.DefaultViewportWidth,
		TimeUnit:      progress.DefaultTimeUnit,

		// Output
		TUIEnabled: true,

		// Observability
		MetricsAddr: "",
		Verbose:     false,
		LogFormat:   "json",
	}
}

// Request builds the scheduler request from the algorithm flags.
func (c *Config) Request() (schedule.Request, error) {
	algo, err := schedule.ParseAlgorithm(c.Algorithm)
	if err != nil {
		return schedule.Request{}, err
	}
	quantum, err := schedule.ParseIntList(c.Quantum)
	if err != nil {
		return schedule.Request{}, fmt.Errorf("quantum: %w", err)
	}
	allotment, err := schedule.ParseIntList(c.Allotment)
	if err != nil {
		return schedule.Request{}, fmt.Errorf("allotment: %w", err)
	}

	req := schedule.Request{Algorithm: algo, Quantum: quantum, Allotment: allotment}
	if err := req.Validate(); err != nil {
		return schedule.Request{}, err
	}
	return req, nil
}

// ProcessList parses every -process flag.
func (c *Config) ProcessList() ([]schedule.Process, error) {
	var (
		out  = make([]schedule.Process, 0, len(c.Processes))
		errs []error
	)
	for _, s := range c.Processes {
		p, err := schedule.ParseProcess(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, p)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// SessionOptions returns the rendering options for session.NewManager.
func (c *Config) SessionOptions() session.Options {
	opts := session.DefaultOptions()
	opts.Timeline.ViewportWidth = c.ViewportWidth
	opts.TimeUnit = c.TimeUnit
	return opts
}

// SourceName is "service" or "file".
func (c *Config) SourceName() string {
	if c.ServiceURL != "" {
		return "service"
	}
	return "file"
}
