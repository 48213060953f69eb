package filter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrBadAction is returned when an action payload cannot be decoded.
var ErrBadAction = errors.New("bad filter action")

type wireAction struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ParseAction decodes {"type": "...", "payload": ...}. Facet actions carry a
// string payload; range actions carry {"min": n|null, "max": n|null} where an
// explicit null clears the bound and an absent key leaves it untouched.
// Unknown types decode without error and are ignored by Reduce.
func ParseAction(data []byte) (Action, error) {
	var w wireAction
	if err := json.Unmarshal(data, &w); err != nil {
		return Action{}, fmt.Errorf("%w: %v", ErrBadAction, err)
	}
	a := Action{Type: w.Type}

	if _, ok := facetActions[w.Type]; ok {
		if err := json.Unmarshal(w.Payload, &a.ID); err != nil {
			return Action{}, fmt.Errorf("%w: %s expects a string payload", ErrBadAction, w.Type)
		}
		a.ID = strings.TrimSpace(a.ID)
		if a.ID == "" {
			return Action{}, fmt.Errorf("%w: %s expects a non-empty id", ErrBadAction, w.Type)
		}
		return a, nil
	}

	if w.Type == SetYearRange || w.Type == SetValuationRange {
		p, err := parseRangePatch(w.Payload)
		if err != nil {
			return Action{}, fmt.Errorf("%w: %s: %v", ErrBadAction, w.Type, err)
		}
		a.Range = p
	}
	return a, nil
}

func parseRangePatch(raw json.RawMessage) (RangePatch, error) {
	var fields map[string]json.RawMessage
	if len(raw) == 0 {
		return RangePatch{}, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return RangePatch{}, err
	}
	var p RangePatch
	var err error
	if p.Min, p.ClearMin, err = patchBound(fields, "min"); err != nil {
		return RangePatch{}, err
	}
	if p.Max, p.ClearMax, err = patchBound(fields, "max"); err != nil {
		return RangePatch{}, err
	}
	return p, nil
}

func patchBound(fields map[string]json.RawMessage, key string) (*float64, bool, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, false, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, true, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, fmt.Errorf("%s must be a number or null", key)
	}
	return &v, false, nil
}

const (
	paramYearMin  = "year_min"
	paramYearMax  = "year_max"
	paramValueMin = "value_min"
	paramValueMax = "value_max"
)

// FromValues builds a state from URL query parameters. Facets are repeated
// parameters named after the facet (style=a&style=b).
func FromValues(v url.Values) (State, error) {
	s := Empty()
	for _, f := range Facets {
		for _, id := range v[string(f)] {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			s = Reduce(s, Add(f, id))
		}
	}

	bounds := []struct {
		key string
		dst **float64
	}{
		{paramYearMin, &s.YearBuilt.Min},
		{paramYearMax, &s.YearBuilt.Max},
		{paramValueMin, &s.Valuation.Min},
		{paramValueMax, &s.Valuation.Max},
	}
	for _, b := range bounds {
		raw := strings.TrimSpace(v.Get(b.key))
		if raw == "" {
			continue
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return State{}, fmt.Errorf("%s: %q is not a number", b.key, raw)
		}
		*b.dst = &n
	}
	return s, nil
}

// Values is the inverse of FromValues.
func (s State) Values() url.Values {
	v := url.Values{}
	for _, f := range Facets {
		for _, id := range s.Selected(f) {
			v.Add(string(f), id)
		}
	}
	setBound := func(key string, b *float64) {
		if b != nil {
			v.Set(key, strconv.FormatFloat(*b, 'f', -1, 64))
		}
	}
	setBound(paramYearMin, s.YearBuilt.Min)
	setBound(paramYearMax, s.YearBuilt.Max)
	setBound(paramValueMin, s.Valuation.Min)
	setBound(paramValueMax, s.Valuation.Max)
	return v
}
