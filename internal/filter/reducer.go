package filter

import "slices"

type ActionType string

const (
	AddStyle          ActionType = "ADD_STYLE"
	RemoveStyle       ActionType = "REMOVE_STYLE"
	AddArchitect      ActionType = "ADD_ARCHITECT"
	RemoveArchitect   ActionType = "REMOVE_ARCHITECT"
	AddState          ActionType = "ADD_STATE"
	RemoveState       ActionType = "REMOVE_STATE"
	AddCity           ActionType = "ADD_CITY"
	RemoveCity        ActionType = "REMOVE_CITY"
	SetYearRange      ActionType = "SET_YEAR_RANGE"
	SetValuationRange ActionType = "SET_VALUATION_RANGE"
	ClearFilters      ActionType = "CLEAR_FILTERS"
)

// RangePatch is merged into a Range. Nil fields leave the bound untouched;
// ClearMin/ClearMax remove it.
type RangePatch struct {
	Min      *float64
	Max      *float64
	ClearMin bool
	ClearMax bool
}

// Action is a discrete user intent. ID is used by the facet actions, Range by
// the range actions.
type Action struct {
	Type  ActionType
	ID    string
	Range RangePatch
}

type facetOp struct {
	facet Facet
	add   bool
}

var facetActions = map[ActionType]facetOp{
	AddStyle:        {FacetStyle, true},
	RemoveStyle:     {FacetStyle, false},
	AddArchitect:    {FacetArchitect, true},
	RemoveArchitect: {FacetArchitect, false},
	AddState:        {FacetState, true},
	RemoveState:     {FacetState, false},
	AddCity:         {FacetCity, true},
	RemoveCity:      {FacetCity, false},
}

// Add builds the ADD_* action for facet f.
func Add(f Facet, id string) Action {
	for t, op := range facetActions {
		if op.facet == f && op.add {
			return Action{Type: t, ID: id}
		}
	}
	return Action{}
}

// Remove builds the REMOVE_* action for facet f.
func Remove(f Facet, id string) Action {
	for t, op := range facetActions {
		if op.facet == f && !op.add {
			return Action{Type: t, ID: id}
		}
	}
	return Action{}
}

// YearRange builds a SET_YEAR_RANGE action.
func YearRange(p RangePatch) Action { return Action{Type: SetYearRange, Range: p} }

// ValuationRange builds a SET_VALUATION_RANGE action.
func ValuationRange(p RangePatch) Action { return Action{Type: SetValuationRange, Range: p} }

// Clear builds a CLEAR_FILTERS action.
func Clear() Action { return Action{Type: ClearFilters} }

// Known reports whether the reducer handles t.
func (t ActionType) Known() bool {
	if _, ok := facetActions[t]; ok {
		return true
	}
	switch t {
	case SetYearRange, SetValuationRange, ClearFilters:
		return true
	}
	return false
}

// Reduce returns the state that follows s after a. Unknown actions return s
// unchanged.
func Reduce(s State, a Action) State {
	if op, ok := facetActions[a.Type]; ok {
		cur := s.Selected(op.facet)
		if op.add {
			return s.withSelected(op.facet, appendUnique(cur, a.ID))
		}
		return s.withSelected(op.facet, without(cur, a.ID))
	}

	switch a.Type {
	case SetYearRange:
		s.YearBuilt = s.YearBuilt.merge(a.Range)
	case SetValuationRange:
		s.Valuation = s.Valuation.merge(a.Range)
	case ClearFilters:
		return Empty()
	}
	return s
}

// ReduceAll folds actions over s in order.
func ReduceAll(s State, actions ...Action) State {
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

func appendUnique(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	out := make([]string, len(ids), len(ids)+1)
	copy(out, ids)
	return append(out, id)
}

func without(ids []string, id string) []string {
	if !slices.Contains(ids, id) {
		return ids
	}
	out := make([]string, 0, len(ids)-1)
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
