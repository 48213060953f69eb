package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/denisok6893-rgb/midmod-radar/internal/domain"
	"github.com/denisok6893-rgb/midmod-radar/internal/filter"
	"github.com/denisok6893-rgb/midmod-radar/internal/session"
)

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := s.Sessions.Get(r.PathValue("id"))
	if !ok {
		writeNotFound(w)
	}
	return sess, ok
}

// handleSessionCreate starts a session. Filter query parameters, when given,
// seed its state.
func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	f, err := filter.FromValues(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sess := s.Sessions.Create()
	snap := sess.Snapshot()
	if !f.IsEmpty() {
		snap = sess.Dispatch(seedActions(f)...)
	}
	writeJSON(w, http.StatusCreated, snap)
}

func seedActions(f filter.State) []filter.Action {
	var actions []filter.Action
	for _, facet := range filter.Facets {
		for _, id := range f.Selected(facet) {
			actions = append(actions, filter.Add(facet, id))
		}
	}
	if f.YearBuilt.IsSet() {
		actions = append(actions, filter.YearRange(filter.RangePatch{Min: f.YearBuilt.Min, Max: f.YearBuilt.Max}))
	}
	if f.Valuation.IsSet() {
		actions = append(actions, filter.ValuationRange(filter.RangePatch{Min: f.Valuation.Min, Max: f.Valuation.Max}))
	}
	return actions
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.lookupSession(w, r); !ok {
		return
	}
	s.Sessions.Delete(r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleSessionActions accepts one action object or an array of them.
func (s *Server) handleSessionActions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	var raws []json.RawMessage
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
	} else {
		raws = []json.RawMessage{body}
	}

	actions := make([]filter.Action, 0, len(raws))
	for _, raw := range raws {
		a, err := filter.ParseAction(raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if !a.Type.Known() {
			s.Log.Debug("ignoring unknown filter action", zap.String("type", string(a.Type)))
		}
		actions = append(actions, a)
	}
	writeJSON(w, http.StatusOK, sess.Dispatch(actions...))
}

type SessionHousesResponse struct {
	Generation  uint64         `json:"generation"`
	Stale       bool           `json:"stale"`
	Filter      filter.State   `json:"filter"`
	ActiveCount int            `json:"activeCount"`
	Total       int            `json:"total"`
	Items       []HouseSummary `json:"items"`
}

// handleSessionHouses lists houses for the session's current filter. A
// response marked stale was superseded by a newer dispatch or listing.
func (s *Server) handleSessionHouses(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	sort, ok := parseSort(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown sort"})
		return
	}

	res, err := sess.Fetch(r.Context(), func(ctx context.Context, f filter.State) ([]domain.House, error) {
		return s.Houses.List(ctx, f, sort)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionHousesResponse{
		Generation:  res.Generation,
		Stale:       res.Stale,
		Filter:      res.Filter,
		ActiveCount: res.Filter.ActiveCount(),
		Total:       len(res.Houses),
		Items:       summarizeAll(res.Houses),
	})
}
