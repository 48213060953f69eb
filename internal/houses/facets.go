package houses

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/denisok6893-rgb/midmod-radar/internal/domain"
	"github.com/denisok6893-rgb/midmod-radar/internal/filter"
)

// Facets returns the options of one filter dimension.
func (s *Service) Facets(ctx context.Context, f filter.Facet) ([]domain.FacetOption, error) {
	switch f {
	case filter.FacetArchitect:
		return s.Architects(ctx)
	case filter.FacetStyle:
		return s.Styles(ctx)
	case filter.FacetState:
		return s.States(ctx)
	case filter.FacetCity:
		return s.Cities(ctx)
	}
	return nil, invalidf("unknown facet %q", f)
}

// Architects lists the architect catalog with the number of valid houses
// attributed to each. Architects without houses are included.
func (s *Service) Architects(ctx context.Context) ([]domain.FacetOption, error) {
	architects, err := s.store.Architects(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ValidHouseFacets(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, r := range rows {
		if r.ArchitectID != nil {
			counts[*r.ArchitectID]++
		}
	}

	out := make([]domain.FacetOption, 0, len(architects))
	for _, a := range architects {
		out = append(out, domain.FacetOption{ID: a.ID, Name: a.Name, Count: counts[a.ID]})
	}
	sortByName(out)
	return out, nil
}

// Styles lists the style catalog with the number of house associations of
// each, valid or not.
func (s *Service) Styles(ctx context.Context) ([]domain.FacetOption, error) {
	styles, err := s.store.Styles(ctx)
	if err != nil {
		return nil, err
	}
	links, err := s.store.HouseStyles(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, l := range links {
		counts[l.StyleID]++
	}

	out := make([]domain.FacetOption, 0, len(styles))
	for _, st := range styles {
		out = append(out, domain.FacetOption{ID: st.ID, Name: st.Name, Count: counts[st.ID]})
	}
	sortByName(out)
	return out, nil
}

// States lists the distinct states of valid houses.
func (s *Service) States(ctx context.Context) ([]domain.FacetOption, error) {
	rows, err := s.store.ValidHouseFacets(ctx)
	if err != nil {
		return nil, err
	}
	t := newTally()
	for _, r := range rows {
		if r.State != "" {
			t.add(r.State, r.State)
		}
	}
	return t.options(), nil
}

// Cities lists the distinct cities of valid houses keyed by their
// standardized name. The display name is the first one seen.
func (s *Service) Cities(ctx context.Context) ([]domain.FacetOption, error) {
	rows, err := s.store.ValidHouseFacets(ctx)
	if err != nil {
		return nil, err
	}
	t := newTally()
	for _, r := range rows {
		if r.CityStd != "" {
			t.add(r.CityStd, r.City)
		}
	}
	return t.options(), nil
}

// FacetCounts fetches every dimension concurrently; a failure names the
// dimension.
func (s *Service) FacetCounts(ctx context.Context) (map[filter.Facet][]domain.FacetOption, error) {
	results := make([][]domain.FacetOption, len(filter.Facets))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, f := range filter.Facets {
		eg.Go(func() error {
			opts, err := s.Facets(egCtx, f)
			if err != nil {
				return fmt.Errorf("%s facet: %w", f, err)
			}
			results[i] = opts
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make(map[filter.Facet][]domain.FacetOption, len(filter.Facets))
	for i, f := range filter.Facets {
		out[f] = results[i]
	}
	return out, nil
}

type tally struct {
	order []string
	opts  map[string]*domain.FacetOption
}

func newTally() *tally {
	return &tally{opts: make(map[string]*domain.FacetOption)}
}

func (t *tally) add(key, name string) {
	if o, ok := t.opts[key]; ok {
		o.Count++
		return
	}
	t.order = append(t.order, key)
	t.opts[key] = &domain.FacetOption{ID: key, Name: name, Count: 1}
}

func (t *tally) options() []domain.FacetOption {
	out := make([]domain.FacetOption, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, *t.opts[k])
	}
	sortByName(out)
	return out
}

// sortByName orders options the way a US English reader expects: case and
// accents are secondary.
func sortByName(opts []domain.FacetOption) {
	c := collate.New(language.AmericanEnglish)
	sort.SliceStable(opts, func(i, j int) bool {
		return c.CompareString(opts[i].Name, opts[j].Name) < 0
	})
}
