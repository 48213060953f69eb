// Package httpapi exposes the catalog, browse sessions and the admin
// workflow as a JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/denisok6893-rgb/midmod-radar/internal/filter"
	"github.com/denisok6893-rgb/midmod-radar/internal/houses"
	"github.com/denisok6893-rgb/midmod-radar/internal/session"
)

const genericErrorMessage = "Something went wrong. Please try again."

type Server struct {
	Houses   *houses.Service
	Sessions *session.Manager
	Log      *zap.Logger

	// PhotoDir is served under /photos/ when set.
	PhotoDir string
	// Ping reports database health for /health.
	Ping func(context.Context) error
}

func NewServer(svc *houses.Service, sessions *session.Manager, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Houses: svc, Sessions: sessions, Log: log}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /demo", s.handleDemo)

	mux.HandleFunc("GET /houses", s.handleHousesList)
	mux.HandleFunc("GET /houses/{slug}", s.handleHouseBySlug)
	mux.HandleFunc("GET /houses/id/{id}", s.handleHouseByID)
	mux.HandleFunc("GET /similar/{slug}", s.handleSimilar)
	mux.HandleFunc("GET /featured", s.handleFeatured)
	mux.HandleFunc("GET /facets", s.handleFacetsAll)
	mux.HandleFunc("GET /facets/{facet}", s.handleFacets)
	mux.HandleFunc("POST /subscribe", s.handleSubscribe)

	mux.HandleFunc("POST /sessions", s.handleSessionCreate)
	mux.HandleFunc("GET /sessions/{id}", s.handleSessionGet)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleSessionDelete)
	mux.HandleFunc("POST /sessions/{id}/actions", s.handleSessionActions)
	mux.HandleFunc("GET /sessions/{id}/houses", s.handleSessionHouses)

	mux.HandleFunc("GET /admin/houses", s.handleAdminHousesList)
	mux.HandleFunc("POST /admin/houses", s.handleAdminHouseCreate)
	mux.HandleFunc("GET /admin/houses/{id}", s.handleAdminHouseGet)
	mux.HandleFunc("PATCH /admin/houses/{id}", s.handleAdminHouseUpdate)
	mux.HandleFunc("DELETE /admin/houses/{id}", s.handleAdminHouseDelete)
	mux.HandleFunc("POST /admin/houses/{id}/photos", s.handleAdminPhotoUpload)
	mux.HandleFunc("POST /admin/houses/{id}/photos/{photoID}/featured", s.handleAdminPhotoFeature)
	mux.HandleFunc("DELETE /admin/houses/{id}/photos/{photoID}", s.handleAdminPhotoDelete)
	mux.HandleFunc("POST /admin/houses/{id}/styles", s.handleAdminAttachStyle)
	mux.HandleFunc("POST /admin/architects", s.handleAdminArchitectCreate)
	mux.HandleFunc("POST /admin/styles", s.handleAdminStyleCreate)

	if s.PhotoDir != "" {
		mux.Handle("GET /photos/", http.StripPrefix("/photos/", http.FileServer(http.Dir(s.PhotoDir))))
	}
	return s.logRequests(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.Ping != nil {
		if err := s.Ping(r.Context()); err != nil {
			s.Log.Error("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.Log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// writeError maps service errors onto status codes. Unexpected errors are
// logged and answered with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, houses.ErrNotFound):
		writeNotFound(w)
	case errors.Is(err, houses.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": strings.TrimPrefix(err.Error(), houses.ErrInvalid.Error()+": "),
		})
	case errors.Is(err, filter.ErrBadAction):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		s.Log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": genericErrorMessage})
	}
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
}

func parseLimitOffset(r *http.Request, defLimit, defOffset int) (int, int) {
	q := r.URL.Query()

	limit := defLimit
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 {
		limit = defLimit
	}
	// safety cap
	if limit > 200 {
		limit = 200
	}

	offset := defOffset
	if v := q.Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = defOffset
	}

	return limit, offset
}

// page returns the [offset, offset+limit) window of n items.
func page(n, limit, offset int) (int, int) {
	if offset > n {
		offset = n
	}
	end := offset + limit
	if end > n {
		end = n
	}
	return offset, end
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
