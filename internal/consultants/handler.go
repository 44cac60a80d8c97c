package consultants

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/momentworks/consultbook/pkg/logging"
)

// Handler serves the public consultant directory.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a consultants handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// ListConsultantsResponse is the response for GET /api/consultants.
type ListConsultantsResponse struct {
	Consultants []*Consultant `json:"consultants"`
	Count       int           `json:"count"`
}

// List handles GET /api/consultants.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list consultants", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list consultants"})
		return
	}
	if list == nil {
		list = []*Consultant{}
	}
	writeJSON(w, http.StatusOK, ListConsultantsResponse{Consultants: list, Count: len(list)})
}

// Get handles GET /api/consultants/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid consultant id"})
		return
	}

	c, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, ErrConsultantNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "consultant not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to load consultant", "error", err, "consultant_id", id)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load consultant"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
