package recorder

import (
	"context"

	"SMCSentinel/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordBias(context.Context, model.BiasRecord) error { return nil }
func (n *NoopRecorder) RecordFailure(context.Context, FailureEvent) error  { return nil }
func (n *NoopRecorder) Close() error                                      { return nil }

func (n *NoopRecorder) RecentBias(context.Context, string, int) ([]model.BiasRecord, error) {
	return nil, nil
}
