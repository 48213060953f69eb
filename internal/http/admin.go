package httpapi

import (
	"io"
	"net/http"

	"github.com/denisok6893-rgb/midmod-radar/internal/domain"
	"github.com/denisok6893-rgb/midmod-radar/internal/houses"
)

const maxPhotoBytes = 32 << 20

type AdminHousesResponse struct {
	Total int            `json:"total"`
	Items []domain.House `json:"items"`
}

func (s *Server) handleAdminHousesList(w http.ResponseWriter, r *http.Request) {
	hs, err := s.Houses.AdminList(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AdminHousesResponse{Total: len(hs), Items: hs})
}

func (s *Server) handleAdminHouseCreate(w http.ResponseWriter, r *http.Request) {
	var req houses.HouseInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	h, err := s.Houses.CreateHouse(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (s *Server) handleAdminHouseGet(w http.ResponseWriter, r *http.Request) {
	h, err := s.Houses.GetByID(r.Context(), r.PathValue("id"))
	s.writeHouse(w, r, h, err)
}

func (s *Server) handleAdminHouseUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	u, err := houses.ParseHouseUpdate(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	h, err := s.Houses.UpdateHouse(r.Context(), r.PathValue("id"), u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleAdminHouseDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.Houses.DeleteHouse(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleAdminPhotoUpload expects a multipart form with the file in "photo".
func (s *Server) handleAdminPhotoUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "photo file is required"})
		return
	}
	defer file.Close()

	p, err := s.Houses.UploadPhoto(r.Context(), r.PathValue("id"), header.Filename, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleAdminPhotoFeature(w http.ResponseWriter, r *http.Request) {
	if err := s.Houses.SetFeaturedPhoto(r.Context(), r.PathValue("id"), r.PathValue("photoID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "featured"})
}

func (s *Server) handleAdminPhotoDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.Houses.DeletePhoto(r.Context(), r.PathValue("id"), r.PathValue("photoID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type AttachStyleRequest struct {
	StyleID    string   `json:"style_id"`
	Confidence *float64 `json:"confidence"`
}

func (s *Server) handleAdminAttachStyle(w http.ResponseWriter, r *http.Request) {
	var req AttachStyleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := s.Houses.AttachStyle(r.Context(), r.PathValue("id"), req.StyleID, req.Confidence); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "attached"})
}

func (s *Server) handleAdminArchitectCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.Architect
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	a, err := s.Houses.CreateArchitect(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleAdminStyleCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.Style
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	st, err := s.Houses.CreateStyle(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}
