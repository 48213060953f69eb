// Package filter holds the browse filter state and the pure reducer that
// moves it from one snapshot to the next.
package filter

// Facet is a multi-select filter dimension.
type Facet string

const (
	FacetArchitect Facet = "architect"
	FacetStyle     Facet = "style"
	FacetState     Facet = "state"
	FacetCity      Facet = "city"
)

// Facets lists every facet in display order.
var Facets = []Facet{FacetStyle, FacetArchitect, FacetState, FacetCity}

// Range is an optional numeric interval; a nil bound is open.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// IsSet reports whether at least one bound is present.
func (r Range) IsSet() bool { return r.Min != nil || r.Max != nil }

func (r Range) merge(p RangePatch) Range {
	out := r
	switch {
	case p.ClearMin:
		out.Min = nil
	case p.Min != nil:
		v := *p.Min
		out.Min = &v
	}
	switch {
	case p.ClearMax:
		out.Max = nil
	case p.Max != nil:
		v := *p.Max
		out.Max = &v
	}
	return out
}

// State is an immutable filter snapshot. Reduce never modifies the slices of
// the state it is given.
type State struct {
	Architects []string `json:"architects"`
	Styles     []string `json:"styles"`
	States     []string `json:"states"`
	Cities     []string `json:"cities"`
	YearBuilt  Range    `json:"yearBuiltRange"`
	Valuation  Range    `json:"valuationRange"`
}

// Empty returns the canonical empty snapshot.
func Empty() State {
	return State{
		Architects: []string{},
		Styles:     []string{},
		States:     []string{},
		Cities:     []string{},
	}
}

// Selected returns the ids chosen for facet f.
func (s State) Selected(f Facet) []string {
	switch f {
	case FacetArchitect:
		return s.Architects
	case FacetStyle:
		return s.Styles
	case FacetState:
		return s.States
	case FacetCity:
		return s.Cities
	}
	return nil
}

func (s State) withSelected(f Facet, ids []string) State {
	switch f {
	case FacetArchitect:
		s.Architects = ids
	case FacetStyle:
		s.Styles = ids
	case FacetState:
		s.States = ids
	case FacetCity:
		s.Cities = ids
	}
	return s
}

// ActiveCount is the number of active filters shown on the filter badge:
// one per selected facet value plus one per range with any bound.
func (s State) ActiveCount() int {
	n := len(s.Architects) + len(s.Styles) + len(s.States) + len(s.Cities)
	if s.YearBuilt.IsSet() {
		n++
	}
	if s.Valuation.IsSet() {
		n++
	}
	return n
}

// IsEmpty reports whether no filter is active.
func (s State) IsEmpty() bool { return s.ActiveCount() == 0 }
