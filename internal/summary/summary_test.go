package summary

import (
	"strings"
	"testing"

	"github.com/randomizedcoder/go-sched-timeline/internal/schedule"
)

func f(v float64) *float64 { return &v }

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		in   *schedule.AverageMetrics
		want DisplayRecord
	}{
		{"nil", nil, DisplayRecord{Empty: true}},
		{
			"rounds to two decimals",
			&schedule.AverageMetrics{AverageTurnaroundTime: 12.346, AverageWaitingTime: 3, AverageResponseTime: 0.005},
			DisplayRecord{AverageTurnaround: "12.35", AverageWaiting: "3.00", AverageResponse: "0.01"},
		},
		{
			"zeros",
			&schedule.AverageMetrics{},
			DisplayRecord{AverageTurnaround: "0.00", AverageWaiting: "0.00", AverageResponse: "0.00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.in); got != tt.want {
				t.Errorf("Format() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDisplayRecord_Rows(t *testing.T) {
	if rows := (DisplayRecord{Empty: true}).Rows(); rows != nil {
		t.Errorf("Empty.Rows() = %v, want nil", rows)
	}

	rows := Format(&schedule.AverageMetrics{AverageTurnaroundTime: 1, AverageWaitingTime: 2, AverageResponseTime: 3}).Rows()
	want := []Row{
		{"Average Turnaround Time", "1.00"},
		{"Average Waiting Time", "2.00"},
		{"Average Response Time", "3.00"},
	}
	if len(rows) != len(want) {
		t.Fatalf("len(Rows()) = %d, want %d", len(rows), len(want))
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("Rows()[%d] = %+v, want %+v", i, rows[i], want[i])
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   *float64
		want string
	}{
		{"nil", nil, "-"},
		{"integer", f(16), "16"},
		{"fraction", f(2.5), "2.5"},
		{"zero", f(0), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.in); got != tt.want {
				t.Errorf("FormatValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReport(t *testing.T) {
	q := 1
	snap := &schedule.Snapshot{
		Stats: []schedule.ProcessResult{
			{PID: "1", Arrival: 0, Burst: 4, CompleteTime: f(4), Turnaround: f(4), Response: f(0)},
		},
		Events: []schedule.DispatchEvent{
			{PID: "1", Start: 0, End: 4, QueueLevel: &q},
			{PID: schedule.IdlePID, Start: 4, End: 6},
		},
		AverageMetrics: &schedule.AverageMetrics{AverageTurnaroundTime: 4, AverageWaitingTime: 0, AverageResponseTime: 0},
	}

	got := Report(snap)

	wantLines := []string{
		"Process Stats:",
		"P1 | Arrival: 0, Burst: 4, Complete: 4, TAT: 4, WT: -, RT: 0",
		"Gantt Chart Events:",
		"0 to 4: P1 Q1",
		"4 to 6: Idle",
		"Average Metrics:",
		"Average Turnaround Time: 4.00",
		"Average Response Time: 0.00",
	}
	for _, line := range wantLines {
		if !strings.Contains(got, line+"\n") {
			t.Errorf("Report() missing line %q\n%s", line, got)
		}
	}
}

func TestReport_OmitsMissingSections(t *testing.T) {
	got := Report(&schedule.Snapshot{Events: []schedule.DispatchEvent{{PID: "2", Start: 0, End: 1}}})

	if strings.Contains(got, "Process Stats") {
		t.Error("Report() rendered empty stats section")
	}
	if strings.Contains(got, "Average Metrics") {
		t.Error("Report() rendered absent averages")
	}
	if !strings.HasPrefix(got, "Gantt Chart Events:\n") {
		t.Errorf("Report() = %q", got)
	}
}

func TestReport_Empty(t *testing.T) {
	if got := Report(nil); got != "" {
		t.Errorf("Report(nil) = %q, want empty", got)
	}
	if got := Report(&schedule.Snapshot{}); got != "" {
		t.Errorf("Report(empty) = %q, want empty", got)
	}
}
