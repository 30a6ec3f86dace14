package tracker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"SMCSentinel/internal/model"
)

// SymbolState is the last known bias of one symbol.
type SymbolState struct {
	Direction         model.Direction       `json:"direction"`
	Level             model.ConfidenceLevel `json:"level"`
	Confidence        float64               `json:"confidence"`
	Streak            int                   `json:"streak"`
	RecentConfidences []float64             `json:"recent_confidences"`
	AnalyzedAt        time.Time             `json:"analyzed_at"`
}

// State is the persisted tracker file.
type State struct {
	Symbols   map[string]*SymbolState `json:"symbols"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// LoadState reads the state from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*State, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{Symbols: map[string]*SymbolState{}}, nil
		}
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.Symbols == nil {
		state.Symbols = map[string]*SymbolState{}
	}
	return &state, nil
}

// SaveState writes the state to a JSON file.
func SaveState(filePath string, state *State) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0644)
}
