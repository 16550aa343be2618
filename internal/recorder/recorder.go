package recorder

import (
	"context"
	"time"

	"EGXTicker/internal/model"
)

// Entry is one journaled fetch cycle.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Outcome   model.Outcome  `json:"outcome"`
	Count     int            `json:"count"`
	Reason    string         `json:"reason,omitempty"`
	Snapshot  model.Snapshot `json:"stocks,omitempty"`
}

// Recorder journals delivered snapshots for later inspection. It doubles as
// a feed sink.
type Recorder interface {
	Name() string
	Publish(ctx context.Context, res model.Result) error
	Recent(ctx context.Context, n int) ([]Entry, error)
	Close() error
}
