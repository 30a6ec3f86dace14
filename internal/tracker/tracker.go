// Package tracker remembers the last bias of each symbol between runs so
// reports can call out direction changes.
package tracker

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SMCSentinel/internal/model"
)

// recentLimit caps the stored confidence history per symbol.
const recentLimit = 12

// Change describes how a new analysis relates to the previous one.
type Change struct {
	Symbol   string
	Previous model.Direction // empty on the first observation
	Current  model.Direction
	Flipped  bool
	Streak   int
}

// Tracker holds per-symbol bias state with concurrency safety. An empty
// file path keeps the state in memory only.
type Tracker struct {
	mu       sync.Mutex
	state    *State
	filePath string
	logger   zerolog.Logger
}

// New creates a Tracker, loading state from disk when filePath is set.
func New(filePath string) (*Tracker, error) {
	state := &State{Symbols: map[string]*SymbolState{}}
	if filePath != "" {
		var err error
		if state, err = LoadState(filePath); err != nil {
			return nil, fmt.Errorf("load tracker state: %w", err)
		}
	}
	return &Tracker{
		state:    state,
		filePath: filePath,
		logger:   log.With().Str("component", "tracker").Logger(),
	}, nil
}

// Observe records a and reports whether its direction differs from the
// previous analysis of the same symbol. Analyses older than the stored one
// are ignored.
func (t *Tracker) Observe(a *model.Analysis) Change {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := a.Bias.Direction
	st, ok := t.state.Symbols[a.Symbol]
	if ok && a.AnalyzedAt.Before(st.AnalyzedAt) {
		return Change{Symbol: a.Symbol, Previous: st.Direction, Current: st.Direction, Streak: st.Streak}
	}

	change := Change{Symbol: a.Symbol, Current: cur, Streak: 1}
	if !ok {
		st = &SymbolState{}
		t.state.Symbols[a.Symbol] = st
	} else {
		change.Previous = st.Direction
		if st.Direction == cur {
			change.Streak = st.Streak + 1
		} else {
			change.Flipped = true
		}
	}

	st.Direction = cur
	st.Level = a.Bias.ConfidenceLevel
	st.Confidence = a.Bias.Confidence
	st.Streak = change.Streak
	st.AnalyzedAt = a.AnalyzedAt
	st.RecentConfidences = append(st.RecentConfidences, a.Bias.Confidence)
	if len(st.RecentConfidences) > recentLimit {
		st.RecentConfidences = st.RecentConfidences[len(st.RecentConfidences)-recentLimit:]
	}

	if err := t.save(); err != nil {
		t.logger.Error().Err(err).Msg("failed to save tracker state")
	}
	return change
}

// Get returns a copy of the stored state for symbol.
func (t *Tracker) Get(symbol string) (SymbolState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.state.Symbols[symbol]
	if !ok {
		return SymbolState{}, false
	}
	out := *st
	out.RecentConfidences = append([]float64(nil), st.RecentConfidences...)
	return out, true
}

func (t *Tracker) save() error {
	if t.filePath == "" {
		return nil
	}
	return SaveState(t.filePath, t.state)
}
