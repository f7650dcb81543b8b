package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// processList is a custom flag type for repeatable -process flags.
type processList []string

func (p *processList) String() string {
	return strings.Join(*p, ", ")
}

func (p *processList) Set(value string) error {
	*p = append(*p, value)
	return nil
}

// ParseFlags parses command-line flags and returns a Config.
func ParseFlags() (*Config, error) {
	return ParseArgs(flag.CommandLine, os.Args[1:])
}

// ParseArgs parses args into a Config using fs. An optional positional
// argument is taken as the input file when -input is not given.
func ParseArgs(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := DefaultConfig()
	var processes processList

	// Custom usage message
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, `sched-timeline - render CPU scheduling results as a timeline with paced progress bars

Usage:
  sched-timeline -service <URL> [flags]
  sched-timeline [flags] <result.json | ->

Source Flags:
`)
		// Print flags by category
		printFlagCategory(fs, []string{"service", "input", "timeout"})

		fmt.Fprintf(out, "\nScheduler Request:\n")
		printFlagCategory(fs, []string{"algorithm", "quantum", "allotment", "process", "clear"})

		fmt.Fprintf(out, "\nRendering:\n")
		printFlagCategory(fs, []string{"viewport-width", "time-unit"})

		fmt.Fprintf(out, "\nOutput:\n")
		printFlagCategory(fs, []string{"tui", "report", "print-request", "skip-preflight"})

		fmt.Fprintf(out, "\nObservability:\n")
		printFlagCategory(fs, []string{"metrics", "v", "log-format"})

		fmt.Fprintf(out, `
Examples:
  # Round robin with quantum 2 against a local service
  sched-timeline -service http://localhost:5000 -algorithm RR -quantum 2 -process 0:5 -process 1:3

  # MLFQ with three levels
  sched-timeline -service http://localhost:5000 -algorithm MLFQ -quantum 2,4,8 -allotment 4,8,16 -process 0:9

  # Replay a saved result without the dashboard
  sched-timeline -tui=false result.json

`)
	}

	// Source
	fs.StringVar(&cfg.ServiceURL, "service", cfg.ServiceURL, "Scheduling service base URL")
	fs.StringVar(&cfg.InputPath, "input", cfg.InputPath, `Saved result JSON ("-" for stdin)`)
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Service request timeout")

	// Scheduler request
	fs.StringVar(&cfg.Algorithm, "algorithm", cfg.Algorithm, `Algorithm: "FCFS", "SJF", "SRTF", "RR", "MLFQ"`)
	fs.StringVar(&cfg.Quantum, "quantum", cfg.Quantum, "Time quantum (RR) or comma list per level (MLFQ)")
	fs.StringVar(&cfg.Allotment, "allotment", cfg.Allotment, "Comma list of allotments per level (MLFQ)")
	fs.Var(&processes, "process", "Add a process as arrival:burst (can repeat)")
	fs.BoolVar(&cfg.ClearFirst, "clear", cfg.ClearFirst, "Clear the service's process list before adding -process entries")

	// Rendering
	fs.Float64Var(&cfg.ViewportWidth, "viewport-width", cfg.ViewportWidth, "Pixel width the timeline is scaled to")
	fs.DurationVar(&cfg.TimeUnit, "time-unit", cfg.TimeUnit, "Wall-clock time per simulation time unit")

	// Output
	fs.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Interactive dashboard (use -tui=false for plain output)")
	fs.BoolVar(&cfg.Report, "report", cfg.Report, "Print the plain-text result report and exit")
	fs.BoolVar(&cfg.PrintRequest, "print-request", cfg.PrintRequest, "Print the run_scheduler URL and exit")
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")

	// Observability
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address (empty = disabled)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)

	// Parse
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Processes = processes

	// Positional argument: input file
	if rest := fs.Args(); len(rest) >= 1 && cfg.InputPath == "" {
		cfg.InputPath = rest[0]
	}

	return cfg, nil
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(fs *flag.FlagSet, names []string) {
	out := fs.Output()
	fs.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				printFlag(out, f)
				return
			}
		}
	})
}

func printFlag(out io.Writer, f *flag.Flag) {
	fmt.Fprintf(out, "  -%s %s\n    \t%s", f.Name, flagType(f), f.Usage)
	if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" && f.DefValue != "[]" {
		fmt.Fprintf(out, " (default %s)", f.DefValue)
	}
	fmt.Fprintln(out)
}

// flagType returns a type hint for the flag value.
func flagType(f *flag.Flag) string {
	// Infer type from default value format
	switch f.DefValue {
	case "true", "false":
		return ""
	}

	// Check if it looks like a duration
	if strings.HasSuffix(f.DefValue, "s") || strings.HasSuffix(f.DefValue, "m") || strings.HasSuffix(f.DefValue, "h") {
		return "duration"
	}

	// Check if numeric
	if _, err := fmt.Sscanf(f.DefValue, "%d", new(int)); err == nil {
		return "int"
	}

	return "string"
}
