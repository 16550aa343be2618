package recorder

import (
	"context"

	"EGXTicker/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) Name() string                                     { return "noop" }
func (n *NoopRecorder) Publish(_ context.Context, _ model.Result) error  { return nil }
func (n *NoopRecorder) Recent(_ context.Context, _ int) ([]Entry, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                     { return nil }
