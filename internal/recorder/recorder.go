package recorder

import (
	"context"
	"time"

	"SMCSentinel/internal/model"
)

// FailureEvent is one timeframe that produced no analysis during a run.
type FailureEvent struct {
	RunID   string
	Symbol  string
	At      time.Time
	Failure model.TimeframeFailure
}

// Recorder persists bias history for later review.
type Recorder interface {
	RecordBias(ctx context.Context, rec model.BiasRecord) error
	RecordFailure(ctx context.Context, evt FailureEvent) error
	// RecentBias returns up to limit records for symbol, newest first.
	RecentBias(ctx context.Context, symbol string, limit int) ([]model.BiasRecord, error)
	Close() error
}

// RecordAnalysis writes the bias row and every timeframe failure of a.
func RecordAnalysis(ctx context.Context, r Recorder, a *model.Analysis) error {
	if err := r.RecordBias(ctx, a.Record()); err != nil {
		return err
	}
	for _, f := range a.Failures {
		evt := FailureEvent{RunID: a.RunID, Symbol: a.Symbol, At: a.AnalyzedAt, Failure: f}
		if err := r.RecordFailure(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}
