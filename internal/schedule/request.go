package schedule

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Algorithm identifies a scheduling policy understood by the service.
type Algorithm string

const (
	AlgorithmFCFS Algorithm = "FCFS"
	AlgorithmSJF  Algorithm = "SJF"
	AlgorithmSRTF Algorithm = "SRTF"
	AlgorithmRR   Algorithm = "RR"
	AlgorithmMLFQ Algorithm = "MLFQ"
)

// Algorithms lists every supported algorithm in display order.
var Algorithms = []Algorithm{AlgorithmFCFS, AlgorithmSJF, AlgorithmSRTF, AlgorithmRR, AlgorithmMLFQ}

// ParseAlgorithm normalizes a user-supplied algorithm name.
// "FIFO" is accepted as an alias for FCFS.
func ParseAlgorithm(s string) (Algorithm, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	if upper == "FIFO" {
		return AlgorithmFCFS, nil
	}
	for _, a := range Algorithms {
		if string(a) == upper {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown algorithm %q", s)
}

// Process is one input process for the service.
type Process struct {
	Arrival int `json:"arrival"`
	Burst   int `json:"burst"`
}

// Request holds the algorithm selection and its parameters.
type Request struct {
	Algorithm Algorithm

	// Quantum is a single value for RR and one value per queue level for MLFQ.
	Quantum []int

	// Allotment is one value per queue level, MLFQ only.
	Allotment []int
}

// Validate checks that the parameters required by the algorithm are present.
func (r Request) Validate() error {
	var errs []error
	switch r.Algorithm {
	case AlgorithmFCFS, AlgorithmSJF, AlgorithmSRTF:
	case AlgorithmRR:
		if len(r.Quantum) != 1 {
			errs = append(errs, errors.New("RR requires exactly one quantum"))
		}
	case AlgorithmMLFQ:
		if len(r.Quantum) == 0 {
			errs = append(errs, errors.New("MLFQ requires a quantum list"))
		}
		if len(r.Allotment) == 0 {
			errs = append(errs, errors.New("MLFQ requires an allotment list"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown algorithm %q", r.Algorithm))
	}
	for _, q := range r.Quantum {
		if q <= 0 {
			errs = append(errs, fmt.Errorf("quantum must be positive (got %d)", q))
		}
	}
	for _, a := range r.Allotment {
		if a <= 0 {
			errs = append(errs, fmt.Errorf("allotment must be positive (got %d)", a))
		}
	}
	return errors.Join(errs...)
}

// Query encodes the request as run_scheduler query parameters.
// Non-preemptive algorithms send quantum=0.
func (r Request) Query() url.Values {
	v := url.Values{}
	v.Set("algorithm", string(r.Algorithm))
	switch r.Algorithm {
	case AlgorithmRR:
		if len(r.Quantum) > 0 {
			v.Set("quantum", strconv.Itoa(r.Quantum[0]))
		}
	case AlgorithmMLFQ:
		for _, q := range r.Quantum {
			v.Add("quantum", strconv.Itoa(q))
		}
		for _, a := range r.Allotment {
			v.Add("allotment", strconv.Itoa(a))
		}
	default:
		v.Set("quantum", "0")
	}
	return v
}

// ParseIntList parses a comma-separated list such as "2, 4, 8".
// An empty string yields a nil slice.
func ParseIntList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q in list", strings.TrimSpace(p))
		}
		out = append(out, n)
	}
	return out, nil
}

// ParseProcess parses "arrival:burst", e.g. "0:5".
func ParseProcess(s string) (Process, error) {
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return Process{}, fmt.Errorf("process %q: want arrival:burst", s)
	}
	arrival, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return Process{}, fmt.Errorf("process %q: invalid arrival", s)
	}
	burst, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return Process{}, fmt.Errorf("process %q: invalid burst", s)
	}
	if arrival < 0 || burst < 1 {
		return Process{}, fmt.Errorf("process %q: arrival must be >= 0 and burst >= 1", s)
	}
	return Process{Arrival: arrival, Burst: burst}, nil
}
