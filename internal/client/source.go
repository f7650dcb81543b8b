package client

import (
	"context"

	"github.com/randomizedcoder/go-sched-timeline/internal/schedule"
)

// Source produces a snapshot for one rendering request.
type Source interface {
	Fetch(ctx context.Context) (*schedule.Snapshot, error)
}

// ServiceSource runs a fixed request against the scheduling service.
type ServiceSource struct {
	Client  *Client
	Request schedule.Request
}

// Fetch runs the request.
func (s ServiceSource) Fetch(ctx context.Context) (*schedule.Snapshot, error) {
	return s.Client.Run(ctx, s.Request)
}

// FileSource reads a previously saved snapshot; "-" reads stdin once.
type FileSource struct {
	Path string
}

// Fetch loads the snapshot file.
func (s FileSource) Fetch(ctx context.Context) (*schedule.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return schedule.LoadSnapshot(s.Path)
}

// StaticSource always returns the same snapshot.
type StaticSource struct {
	Snapshot *schedule.Snapshot
}

// Fetch returns the snapshot.
func (s StaticSource) Fetch(context.Context) (*schedule.Snapshot, error) {
	return s.Snapshot, nil
}
