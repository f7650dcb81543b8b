package schedule

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// DecodeSnapshot reads one JSON snapshot from r.
// Missing or null sections decode to nil, never to an error.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// LoadSnapshot reads a snapshot from a file, or from stdin when path is "-".
func LoadSnapshot(path string) (*Snapshot, error) {
	if path == "-" {
		return DecodeSnapshot(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return DecodeSnapshot(f)
}
