// Package schedule defines the snapshot returned by the external CPU-scheduling
// service: per-process results, the dispatch event list and the aggregate averages.
//
// A Snapshot is immutable once decoded. Renderers read it and never write back.
package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// IdlePID is the sentinel process identifier for CPU idle time.
const IdlePID PID = "idle"

// PID identifies a process within a single run. The service may send it as a
// JSON string or a JSON number; both decode to the same textual form.
type PID string

// IsIdle reports whether the PID is the idle sentinel.
func (p PID) IsIdle() bool {
	return p == IdlePID
}

// UnmarshalJSON accepts both `"3"` and `3`.
func (p *PID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("pid: %w", err)
		}
		*p = PID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("pid: %w", err)
	}
	// Normalize integral floats ("3.0") so they match "3".
	if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
		*p = PID(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*p = PID(n.String())
	return nil
}

// ExecutionSegment is one interval during which a process accrued burst time.
// Times are simulation units relative to simulation start.
type ExecutionSegment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// ProcessResult is the per-process outcome of a scheduling run.
type ProcessResult struct {
	PID     PID     `json:"pid"`
	Arrival float64 `json:"arrival"`
	Burst   float64 `json:"burst"`

	// Outputs are nil until the service supplies them.
	CompleteTime *float64 `json:"completeTime,omitempty"`
	Turnaround   *float64 `json:"turnaround,omitempty"`
	Response     *float64 `json:"response,omitempty"`
	Waiting      *float64 `json:"waiting,omitempty"`

	Executions []ExecutionSegment `json:"executions"`
}

// DispatchEvent is one contiguous CPU allocation.
type DispatchEvent struct {
	PID   PID     `json:"pid"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`

	// QueueLevel is set only by multi-queue algorithms (MLFQ).
	QueueLevel *int `json:"queueLevel,omitempty"`
}

// Duration returns End - Start. Non-positive durations are not rendered.
func (e DispatchEvent) Duration() float64 {
	return e.End - e.Start
}

// UnmarshalJSON accepts the queue level under either "queueLevel" or "queue".
func (e *DispatchEvent) UnmarshalJSON(data []byte) error {
	var raw struct {
		PID        PID     `json:"pid"`
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		QueueLevel *int    `json:"queueLevel"`
		Queue      *int    `json:"queue"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.PID = raw.PID
	e.Start = raw.Start
	e.End = raw.End
	e.QueueLevel = raw.QueueLevel
	if e.QueueLevel == nil {
		e.QueueLevel = raw.Queue
	}
	return nil
}

// AverageMetrics holds the service-computed averages over the full process set.
type AverageMetrics struct {
	AverageTurnaroundTime float64 `json:"averageTurnaroundTime"`
	AverageWaitingTime    float64 `json:"averageWaitingTime"`
	AverageResponseTime   float64 `json:"averageResponseTime"`
}

// Snapshot is a complete service response for one rendering request.
type Snapshot struct {
	Stats          []ProcessResult `json:"stats"`
	Events         []DispatchEvent `json:"events"`
	AverageMetrics *AverageMetrics `json:"averageMetrics,omitempty"`
}

// Empty reports whether the snapshot carries nothing to render.
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.Stats) == 0 && len(s.Events) == 0 && s.AverageMetrics == nil)
}
