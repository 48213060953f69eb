// Package matching ranks catalog houses by how closely they resemble a
// given house.
package matching

import (
	"math"
	"sort"

	"github.com/denisok6893-rgb/midmod-radar/internal/domain"
)

const defaultLimit = 4

type Engine struct {
	weights Weights
}

func NewEngine(w Weights) *Engine {
	return &Engine{weights: w}
}

// ScoreSimilar scores candidates against target (0..100) and returns the top
// results. The target itself, invalid houses and houses with nothing in
// common are left out.
func (e *Engine) ScoreSimilar(target domain.House, candidates []domain.House, limit int) []domain.ScoreResult {
	out := []domain.ScoreResult{}
	for _, c := range candidates {
		if c.ID == target.ID || !c.IsValid {
			continue
		}
		score, reasons := e.scoreOne(target, c)
		if score <= 0 {
			continue
		}
		out = append(out, domain.ScoreResult{
			House:   c,
			Score:   score,
			Reasons: reasons,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].House.CreatedAt.After(out[j].House.CreatedAt)
	})
	if limit <= 0 {
		limit = defaultLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (e *Engine) scoreOne(target, c domain.House) (float64, []domain.ScoreReason) {
	// Each factor yields a value in 0..1. A factor only counts when the target
	// carries the attribute; unknown values on the candidate score 0.
	type factor struct {
		key    string
		label  string
		weight float64
		active bool
		value  float64
	}

	factors := []factor{
		{"shared_style", "shared style", e.weights.SharedStyle, len(target.Styles) > 0, styleOverlap01(target.StyleIDs(), c.StyleIDs())},
		{"same_architect", "same architect", e.weights.SameArchitect, target.ArchitectID != nil, sameString01(target.ArchitectID, c.ArchitectID)},
		{"same_city", "same city", e.weights.SameCity, target.CityStd != "", boolTo01(target.CityStd == c.CityStd && target.State == c.State)},
		{"same_state", "same state", e.weights.SameState, target.State != "", boolTo01(target.State == c.State)},
		{"year_proximity", "built around the same time", e.weights.YearProximity, target.YearBuilt != nil, yearProximity01(target.YearBuilt, c.YearBuilt)},
		{"value_proximity", "similar value", e.weights.ValueProximity, positive(target.EstimatedValue), valueProximity01(target.EstimatedValue, c.EstimatedValue)},
	}

	var sumW, sum float64
	var contributions []domain.ScoreReason

	for _, f := range factors {
		if !f.active || f.weight <= 0 {
			continue
		}
		sumW += f.weight
		contrib := f.weight * f.value
		sum += contrib
		if contrib <= 0 {
			continue
		}
		contributions = append(contributions, domain.ScoreReason{
			Type:    f.key,
			Message: reasonMessage(f.label, f.value),
			Impact:  contrib,
		})
	}

	if sumW <= 0 {
		return 0, nil
	}

	score01 := sum / sumW
	score := math.Round(score01*1000) / 10 // 0.1 precision

	return clamp(score, 0, 100), topReasons(contributions, 4)
}

func topReasons(reasons []domain.ScoreReason, max int) []domain.ScoreReason {
	sort.SliceStable(reasons, func(i, j int) bool { return reasons[i].Impact > reasons[j].Impact })
	if len(reasons) > max {
		reasons = reasons[:max]
	}
	if len(reasons) == 0 {
		return reasons
	}
	// Impact as a share of the best reason.
	best := reasons[0].Impact
	for i := range reasons {
		reasons[i].Impact = math.Round((reasons[i].Impact/best)*100) / 100
	}
	return reasons
}

func reasonMessage(label string, v float64) string {
	switch {
	case v >= 0.8:
		return label + ": strong match"
	case v >= 0.6:
		return label + ": good"
	case v >= 0.4:
		return label + ": mixed"
	default:
		return label + ": weak"
	}
}

// styleOverlap01 is the Jaccard index of two style sets.
func styleOverlap01(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	inter := 0
	union := len(set)
	seen := make(map[string]struct{}, len(b))
	for _, id := range b {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := set[id]; ok {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

func sameString01(a, b *string) float64 {
	if a == nil || b == nil {
		return 0
	}
	return boolTo01(*a == *b)
}

func boolTo01(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

func yearProximity01(a, b *int) float64 {
	if a == nil || b == nil {
		return 0
	}
	// Same year => 1.0, a decade apart => 0.5.
	d := math.Abs(float64(*a - *b))
	return clamp01(1 / (1 + d/10))
}

func valueProximity01(a, b *float64) float64 {
	if !positive(a) || !positive(b) {
		return 0
	}
	return clamp01(math.Min(*a, *b) / math.Max(*a, *b))
}

func positive(v *float64) bool { return v != nil && *v > 0 }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
