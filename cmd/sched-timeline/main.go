// Package main provides the sched-timeline CLI entry point.
//
// sched-timeline renders the result of an external CPU-scheduling service as
// a proportional Gantt timeline with animated per-process completion bars.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/randomizedcoder/go-sched-timeline/internal/config"
	"github.com/randomizedcoder/go-sched-timeline/internal/logging"
	"github.com/randomizedcoder/go-sched-timeline/internal/orchestrator"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/sched-timeline
var version = "dev"

// recentWarnings is how many buffered warnings are printed after the
// dashboard exits.
const recentWarnings = 10

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("sched-timeline %s\n", version)
			return 0
		}
	}

	// Parse command-line flags
	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// Initialize logger
	// When the dashboard owns the terminal, records are kept in a ring and
	// warnings are replayed on exit.
	var (
		logger *slog.Logger
		ring   *logging.RingHandler
	)
	if cfg.TUIEnabled && !cfg.Report {
		ring = logging.NewRingHandler(nil, slog.LevelWarn)
		logger = slog.New(ring)
	} else {
		logger = logging.NewLogger(cfg.LogFormat, "info", cfg.Verbose)
	}
	logging.SetDefault(logger)

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	orch, err := orchestrator.New(cfg, logger, orchestrator.Options{Version: version})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	// Handle -print-request mode
	if cfg.PrintRequest {
		fmt.Println(orch.RunURL())
		return 0
	}

	logger.Info("starting",
		"version", version,
		"source", cfg.SourceName(),
		"service_url", cfg.ServiceURL,
		"input", cfg.InputPath,
		"algorithm", cfg.Algorithm,
		"metrics_addr", cfg.MetricsAddr,
	)

	if !cfg.TUIEnabled && !cfg.Report {
		printBanner(cfg)
	}

	err = orch.Run(context.Background())
	if ring != nil {
		printMissedWarnings(ring)
	}
	if err != nil {
		logger.Error("orchestrator_failed", "error", err)
		if ring != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}

	return 0
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                         sched-timeline                            ║")
	fmt.Println("║        CPU Scheduling Timeline and Progress Rendering             ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	if cfg.ServiceURL != "" {
		fmt.Printf("  Service:     %s\n", cfg.ServiceURL)
		fmt.Printf("  Algorithm:   %s\n", cfg.Algorithm)
		if cfg.Quantum != "" {
			fmt.Printf("  Quantum:     %s\n", cfg.Quantum)
		}
		if cfg.Allotment != "" {
			fmt.Printf("  Allotment:   %s\n", cfg.Allotment)
		}
		if n := len(cfg.Processes); n > 0 {
			fmt.Printf("  Processes:   %d\n", n)
		}
	} else {
		fmt.Printf("  Input:       %s\n", cfg.InputPath)
	}
	fmt.Printf("  Time unit:   %s\n", cfg.TimeUnit)
	if cfg.MetricsAddr != "" {
		fmt.Printf("  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()
}

// printMissedWarnings replays the warnings logged while the dashboard was up.
func printMissedWarnings(ring *logging.RingHandler) {
	n := ring.Count(slog.LevelWarn) + ring.Count(slog.LevelError)
	if n == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "%d warning(s) while the dashboard was running:\n", n)
	for _, line := range ring.RecentLines(recentWarnings) {
		fmt.Fprintf(os.Stderr, "  %s\n", line)
	}
}
