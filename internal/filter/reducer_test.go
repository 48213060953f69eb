package filter

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func num(v float64) *float64 { return &v }

func TestReduce_AddIsIdempotent(t *testing.T) {
	s := ReduceAll(Empty(),
		Add(FacetStyle, "a"),
		Add(FacetStyle, "b"),
		Add(FacetStyle, "a"),
		Add(FacetStyle, "b"),
	)
	assert.Equal(t, []string{"a", "b"}, s.Styles)
}

func TestReduce_AddRemoveSequencesKeepIDsUnique(t *testing.T) {
	for _, f := range Facets {
		t.Run(string(f), func(t *testing.T) {
			s := Empty()
			ops := []Action{
				Add(f, "x"), Add(f, "y"), Remove(f, "x"), Add(f, "x"),
				Add(f, "y"), Remove(f, "z"), Add(f, "x"), Remove(f, "y"),
			}
			for _, op := range ops {
				s = Reduce(s, op)
				seen := map[string]bool{}
				for _, id := range s.Selected(f) {
					require.False(t, seen[id], "duplicate id %q after %s", id, op.Type)
					seen[id] = true
				}
			}
			assert.Equal(t, []string{"x"}, s.Selected(f))
		})
	}
}

func TestReduce_RemoveAbsentIsNoop(t *testing.T) {
	s := Reduce(Empty(), Add(FacetCity, "palm-springs"))
	next := Reduce(s, Remove(FacetCity, "los-angeles"))
	if diff := cmp.Diff(s, next); diff != "" {
		t.Fatalf("remove of absent id changed state (-before +after):\n%s", diff)
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	base := ReduceAll(Empty(), Add(FacetArchitect, "neutra"), Add(FacetArchitect, "schindler"))
	snapshot := append([]string(nil), base.Architects...)

	_ = Reduce(base, Remove(FacetArchitect, "neutra"))
	_ = Reduce(base, Add(FacetArchitect, "lautner"))

	assert.Equal(t, snapshot, base.Architects)
}

func TestReduce_RangeMergeIsOrderIndependent(t *testing.T) {
	minFirst := ReduceAll(Empty(),
		YearRange(RangePatch{Min: num(5)}),
		YearRange(RangePatch{Max: num(10)}),
	)
	maxFirst := ReduceAll(Empty(),
		YearRange(RangePatch{Max: num(10)}),
		YearRange(RangePatch{Min: num(5)}),
	)

	want := Range{Min: num(5), Max: num(10)}
	if diff := cmp.Diff(want, minFirst.YearBuilt); diff != "" {
		t.Fatalf("min then max (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(minFirst, maxFirst); diff != "" {
		t.Fatalf("order changed the result (-minFirst +maxFirst):\n%s", diff)
	}
}

func TestReduce_RangePatchLeavesOtherBound(t *testing.T) {
	s := ReduceAll(Empty(),
		ValuationRange(RangePatch{Min: num(100_000), Max: num(900_000)}),
		ValuationRange(RangePatch{Max: num(500_000)}),
	)
	require.NotNil(t, s.Valuation.Min)
	assert.Equal(t, 100_000.0, *s.Valuation.Min)
	assert.Equal(t, 500_000.0, *s.Valuation.Max)

	s = Reduce(s, ValuationRange(RangePatch{ClearMin: true}))
	assert.Nil(t, s.Valuation.Min)
	assert.Equal(t, 500_000.0, *s.Valuation.Max)
	assert.Nil(t, s.YearBuilt.Min)
}

func TestReduce_ClearFromAnyStateYieldsEmpty(t *testing.T) {
	states := []State{
		Empty(),
		ReduceAll(Empty(), Add(FacetStyle, "s1"), Add(FacetStyle, "s2")),
		ReduceAll(Empty(),
			Add(FacetArchitect, "a"), Add(FacetState, "CA"), Add(FacetCity, "palm_springs"),
			YearRange(RangePatch{Min: num(1945)}),
			ValuationRange(RangePatch{Max: num(2_000_000)}),
		),
	}
	for i, s := range states {
		got := Reduce(s, Clear())
		if diff := cmp.Diff(Empty(), got); diff != "" {
			t.Fatalf("state %d: clear (-want +got):\n%s", i, diff)
		}
		assert.Equal(t, 0, got.ActiveCount())
	}
}

func TestReduce_UnknownActionReturnsStateUnchanged(t *testing.T) {
	s := Reduce(Empty(), Add(FacetStyle, "s1"))
	got := Reduce(s, Action{Type: "SET_SORT", ID: "price"})
	if diff := cmp.Diff(s, got); diff != "" {
		t.Fatalf("unknown action changed state:\n%s", diff)
	}
	assert.False(t, ActionType("SET_SORT").Known())
	assert.True(t, ClearFilters.Known())
}

func TestActiveCount(t *testing.T) {
	s := ReduceAll(Empty(),
		Add(FacetStyle, "s1"),
		Add(FacetStyle, "s2"),
		Add(FacetCity, "c1"),
		YearRange(RangePatch{Max: num(1970)}),
	)
	assert.Equal(t, 4, s.ActiveCount())

	s = Reduce(s, ValuationRange(RangePatch{Min: num(1)}))
	assert.Equal(t, 5, s.ActiveCount())

	s = Reduce(s, YearRange(RangePatch{ClearMax: true}))
	assert.Equal(t, 4, s.ActiveCount())
}

func TestParseAction(t *testing.T) {
	t.Run("facet", func(t *testing.T) {
		a, err := ParseAction([]byte(`{"type":"ADD_STYLE","payload":" post-and-beam "}`))
		require.NoError(t, err)
		assert.Equal(t, Action{Type: AddStyle, ID: "post-and-beam"}, a)
	})

	t.Run("range with explicit null clears", func(t *testing.T) {
		a, err := ParseAction([]byte(`{"type":"SET_YEAR_RANGE","payload":{"min":null,"max":1965}}`))
		require.NoError(t, err)
		assert.True(t, a.Range.ClearMin)
		require.NotNil(t, a.Range.Max)
		assert.Equal(t, 1965.0, *a.Range.Max)

		s := ReduceAll(Empty(), YearRange(RangePatch{Min: num(1950)}), a)
		assert.Nil(t, s.YearBuilt.Min)
		assert.Equal(t, 1965.0, *s.YearBuilt.Max)
	})

	t.Run("clear", func(t *testing.T) {
		a, err := ParseAction([]byte(`{"type":"CLEAR_FILTERS"}`))
		require.NoError(t, err)
		assert.Equal(t, ClearFilters, a.Type)
	})

	t.Run("unknown type is not an error", func(t *testing.T) {
		a, err := ParseAction([]byte(`{"type":"TOGGLE_MAP","payload":true}`))
		require.NoError(t, err)
		assert.False(t, a.Type.Known())
	})

	t.Run("errors", func(t *testing.T) {
		for _, body := range []string{
			`not json`,
			`{"type":"ADD_CITY","payload":42}`,
			`{"type":"ADD_CITY","payload":""}`,
			`{"type":"SET_VALUATION_RANGE","payload":{"min":"cheap"}}`,
		} {
			_, err := ParseAction([]byte(body))
			assert.ErrorIs(t, err, ErrBadAction, body)
		}
	})
}

func TestValuesRoundTrip(t *testing.T) {
	s := ReduceAll(Empty(),
		Add(FacetStyle, "s1"),
		Add(FacetArchitect, "a1"),
		Add(FacetState, "CA"),
		YearRange(RangePatch{Min: num(1950), Max: num(1969)}),
		ValuationRange(RangePatch{Max: num(1_500_000)}),
	)
	got, err := FromValues(s.Values())
	require.NoError(t, err)
	if diff := cmp.Diff(s, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
}

func TestFromValuesRejectsBadNumbers(t *testing.T) {
	_, err := FromValues(url.Values{"year_min": {"nineteen-fifty"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "year_min")
}
