// Package summary formats the service-computed averages and the plain-text
// result report.
package summary

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/randomizedcoder/go-sched-timeline/internal/schedule"
)

// DisplayRecord is the formatted form of AverageMetrics.
// An Empty record renders nothing.
type DisplayRecord struct {
	Empty bool

	AverageTurnaround string
	AverageWaiting    string
	AverageResponse   string
}

// Format renders each average with exactly two decimals.
// A nil input yields an Empty record.
func Format(m *schedule.AverageMetrics) DisplayRecord {
	if m == nil {
		return DisplayRecord{Empty: true}
	}
	return DisplayRecord{
		AverageTurnaround: fmt.Sprintf("%.2f", m.AverageTurnaroundTime),
		AverageWaiting:    fmt.Sprintf("%.2f", m.AverageWaitingTime),
		AverageResponse:   fmt.Sprintf("%.2f", m.AverageResponseTime),
	}
}

// Row is one label/value pair of a DisplayRecord.
type Row struct {
	Label string
	Value string
}

// Rows returns the record as ordered rows, or nil when Empty.
func (r DisplayRecord) Rows() []Row {
	if r.Empty {
		return nil
	}
	return []Row{
		{"Average Turnaround Time", r.AverageTurnaround},
		{"Average Waiting Time", r.AverageWaiting},
		{"Average Response Time", r.AverageResponse},
	}
}

// FormatValue formats a nullable numeric output, "-" when nil.
func FormatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return FormatNumber(*v)
}

// FormatNumber formats a time value without trailing zeros ("4", "2.5").
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Report builds the plain-text export of a run: process stats, the dispatch
// events and the averages. Sections with no data are omitted.
func Report(snap *schedule.Snapshot) string {
	if snap.Empty() {
		return ""
	}

	var b strings.Builder

	if len(snap.Stats) > 0 {
		b.WriteString("Process Stats:\n")
		for _, p := range snap.Stats {
			fmt.Fprintf(&b, "P%s | Arrival: %s, Burst: %s, Complete: %s, TAT: %s, WT: %s, RT: %s\n",
				p.PID,
				FormatNumber(p.Arrival),
				FormatNumber(p.Burst),
				FormatValue(p.CompleteTime),
				FormatValue(p.Turnaround),
				FormatValue(p.Waiting),
				FormatValue(p.Response),
			)
		}
	}

	if len(snap.Events) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Gantt Chart Events:\n")
		for _, e := range snap.Events {
			line := fmt.Sprintf("%s to %s: %s", FormatNumber(e.Start), FormatNumber(e.End), eventName(e))
			b.WriteString(line + "\n")
		}
	}

	if rec := Format(snap.AverageMetrics); !rec.Empty {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Average Metrics:\n")
		for _, row := range rec.Rows() {
			fmt.Fprintf(&b, "%s: %s\n", row.Label, row.Value)
		}
	}

	return b.String()
}

func eventName(e schedule.DispatchEvent) string {
	if e.PID.IsIdle() {
		return "Idle"
	}
	name := "P" + string(e.PID)
	if e.QueueLevel != nil {
		name += " Q" + strconv.Itoa(*e.QueueLevel)
	}
	return name
}
