// Package preflight provides startup validation checks.
package preflight

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"time"
)

// DefaultDialTimeout bounds the service reachability check.
const DefaultDialTimeout = 2 * time.Second

// Check represents the result of a single preflight check.
type Check struct {
	Name    string // Name of the check
	Passed  bool   // Whether the check passed
	Warning bool   // True if it's a warning (non-fatal)
	Message string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// Options selects which checks run. Empty fields skip their check.
type Options struct {
	ServiceURL  string
	InputPath   string
	MetricsAddr string
	Dashboard   bool // check that stdout is a terminal
	DialTimeout time.Duration
}

// RunAll executes all applicable preflight checks.
func RunAll(ctx context.Context, opts Options) *Result {
	result := &Result{
		Checks: make([]Check, 0, 4),
		Passed: true,
	}
	add := func(c Check) {
		result.Checks = append(result.Checks, c)
		if !c.Passed {
			result.Passed = false
		}
	}

	if opts.ServiceURL != "" {
		timeout := opts.DialTimeout
		if timeout <= 0 {
			timeout = DefaultDialTimeout
		}
		add(checkService(ctx, opts.ServiceURL, timeout))
	}
	if opts.InputPath != "" && opts.InputPath != "-" {
		add(checkInput(opts.InputPath))
	}
	if opts.MetricsAddr != "" {
		add(checkMetricsAddr(opts.MetricsAddr))
	}
	if opts.Dashboard {
		// Warning only
		add(checkTerminal(os.Stdout))
	}

	return result
}

// checkService verifies the service host accepts TCP connections.
func checkService(ctx context.Context, rawURL string, timeout time.Duration) Check {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Check{Name: "service", Passed: false, Message: fmt.Sprintf("invalid URL: %v", err)}
	}
	host := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return Check{Name: "service", Passed: false, Message: fmt.Sprintf("%s unreachable: %v", host, err)}
	}
	conn.Close()

	return Check{Name: "service", Passed: true, Message: fmt.Sprintf("%s reachable", host)}
}

// checkInput verifies the snapshot file exists and is a regular file.
func checkInput(path string) Check {
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: "input", Passed: false, Message: err.Error()}
	}
	if !info.Mode().IsRegular() {
		return Check{Name: "input", Passed: false, Message: fmt.Sprintf("%s is not a regular file", path)}
	}
	return Check{Name: "input", Passed: true, Message: fmt.Sprintf("%s (%d bytes)", path, info.Size())}
}

// checkMetricsAddr verifies the metrics address can be bound.
func checkMetricsAddr(addr string) Check {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return Check{Name: "metrics_addr", Passed: false, Message: err.Error()}
	}
	ln.Close()
	return Check{Name: "metrics_addr", Passed: true, Message: fmt.Sprintf("%s available", addr)}
}

// checkTerminal warns when the dashboard would draw into a pipe or file.
func checkTerminal(f *os.File) Check {
	info, err := f.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return Check{
			Name:    "terminal",
			Passed:  true,
			Warning: true,
			Message: "stdout is not a terminal (use -tui=false for plain output)",
		}
	}
	return Check{Name: "terminal", Passed: true, Message: "stdout is a terminal"}
}

// PrintResults prints the preflight check results to w.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed {
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "service":
		return "start the scheduling service or correct -service"
	case "input":
		return "check the -input path"
	case "metrics_addr":
		return "choose a free -metrics address"
	default:
		return "see sched-timeline -h"
	}
}
