package matching

import (
	"encoding/json"
	"fmt"
	"os"
)

// Weights defines coefficients for each similarity factor.
type Weights struct {
	SharedStyle    float64 `json:"shared_style"`
	SameArchitect  float64 `json:"same_architect"`
	SameCity       float64 `json:"same_city"`
	SameState      float64 `json:"same_state"`
	YearProximity  float64 `json:"year_proximity"`
	ValueProximity float64 `json:"value_proximity"`
}

// DefaultWeights favours design lineage over geography and price.
func DefaultWeights() Weights {
	return Weights{
		SharedStyle:    1.0,
		SameArchitect:  0.9,
		SameCity:       0.6,
		SameState:      0.3,
		YearProximity:  0.7,
		ValueProximity: 0.5,
	}
}

// LoadWeightsFromFile loads weights from JSON file, falling back to defaults on file read errors.
// Keys missing from the file keep their default value.
func LoadWeightsFromFile(path string) (Weights, error) {
	w := DefaultWeights()
	b, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("read weights file: %w", err)
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return DefaultWeights(), fmt.Errorf("unmarshal weights: %w", err)
	}
	return w, nil
}
