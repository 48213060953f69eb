package httpapi

import (
	"net/http"

	"github.com/denisok6893-rgb/midmod-radar/internal/domain"
	"github.com/denisok6893-rgb/midmod-radar/internal/filter"
	"github.com/denisok6893-rgb/midmod-radar/internal/storage"
)

// HouseSummary is the card shape of a listed house.
type HouseSummary struct {
	ID               string   `json:"id"`
	Slug             string   `json:"slug"`
	Street           string   `json:"street"`
	City             string   `json:"city"`
	State            string   `json:"state"`
	YearBuilt        *int     `json:"year_built"`
	EstimatedValue   *float64 `json:"estimated_value"`
	ValuationLabel   string   `json:"valuation_label"`
	Beds             *int     `json:"beds"`
	Baths            *float64 `json:"baths"`
	Sqft             *int     `json:"sqft"`
	FeaturedPhotoURL string   `json:"featured_photo_url"`
	Architect        string   `json:"architect,omitempty"`
	Styles           []string `json:"styles"`
}

func summarize(h domain.House) HouseSummary {
	sum := HouseSummary{
		ID:               h.ID,
		Slug:             h.Slug,
		Street:           h.Street,
		City:             h.City,
		State:            h.State,
		YearBuilt:        h.YearBuilt,
		EstimatedValue:   h.EstimatedValue,
		ValuationLabel:   domain.FormatValuation(h.EstimatedValue),
		Beds:             h.Beds,
		Baths:            h.Baths,
		Sqft:             h.Sqft,
		FeaturedPhotoURL: h.FeaturedPhotoURL,
		Styles:           make([]string, 0, len(h.Styles)),
	}
	if h.Architect != nil {
		sum.Architect = h.Architect.Name
	}
	for _, st := range h.Styles {
		if st.Style != nil {
			sum.Styles = append(sum.Styles, st.Style.Name)
		}
	}
	return sum
}

func summarizeAll(hs []domain.House) []HouseSummary {
	out := make([]HouseSummary, 0, len(hs))
	for _, h := range hs {
		out = append(out, summarize(h))
	}
	return out
}

// HouseDetail is the full aggregate plus display labels.
type HouseDetail struct {
	domain.House
	ValuationLabel string `json:"valuation_label"`
}

type HousesListResponse struct {
	Limit       int            `json:"limit"`
	Offset      int            `json:"offset"`
	Total       int            `json:"total"`
	Sort        storage.Sort   `json:"sort"`
	Filter      filter.State   `json:"filter"`
	ActiveCount int            `json:"activeCount"`
	Items       []HouseSummary `json:"items"`
}

func parseSort(r *http.Request) (storage.Sort, bool) {
	return storage.ParseSort(r.URL.Query().Get("sort"))
}

func (s *Server) handleHousesList(w http.ResponseWriter, r *http.Request) {
	f, err := filter.FromValues(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sort, ok := parseSort(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown sort"})
		return
	}
	limit, offset := parseLimitOffset(r, 20, 0)

	hs, err := s.Houses.List(r.Context(), f, sort)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	from, to := page(len(hs), limit, offset)

	writeJSON(w, http.StatusOK, HousesListResponse{
		Limit:       limit,
		Offset:      from,
		Total:       len(hs),
		Sort:        sort,
		Filter:      f,
		ActiveCount: f.ActiveCount(),
		Items:       summarizeAll(hs[from:to]),
	})
}

func (s *Server) writeHouse(w http.ResponseWriter, r *http.Request, h *domain.House, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if h == nil {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, HouseDetail{House: *h, ValuationLabel: domain.FormatValuation(h.EstimatedValue)})
}

func (s *Server) handleHouseBySlug(w http.ResponseWriter, r *http.Request) {
	h, err := s.Houses.GetBySlug(r.Context(), r.PathValue("slug"))
	s.writeHouse(w, r, h, err)
}

func (s *Server) handleHouseByID(w http.ResponseWriter, r *http.Request) {
	h, err := s.Houses.GetByID(r.Context(), r.PathValue("id"))
	s.writeHouse(w, r, h, err)
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	h, err := s.Houses.Featured(r.Context())
	s.writeHouse(w, r, h, err)
}

type SimilarResponse struct {
	Results []domain.ScoreResult `json:"results"`
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	limit, _ := parseLimitOffset(r, 4, 0)
	results, err := s.Houses.Similar(r.Context(), r.PathValue("slug"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SimilarResponse{Results: results})
}

var facetPaths = map[string]filter.Facet{
	"architects": filter.FacetArchitect,
	"styles":     filter.FacetStyle,
	"states":     filter.FacetState,
	"cities":     filter.FacetCity,
}

type FacetResponse struct {
	Facet   filter.Facet         `json:"facet"`
	Options []domain.FacetOption `json:"options"`
}

func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	f, ok := facetPaths[r.PathValue("facet")]
	if !ok {
		writeNotFound(w)
		return
	}
	opts, err := s.Houses.Facets(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FacetResponse{Facet: f, Options: opts})
}

func (s *Server) handleFacetsAll(w http.ResponseWriter, r *http.Request) {
	all, err := s.Houses.FacetCounts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

type SubscribeRequest struct {
	Email   string `json:"email"`
	Consent bool   `json:"consent"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := s.Houses.Subscribe(r.Context(), req.Email, req.Consent); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "subscribed"})
}
