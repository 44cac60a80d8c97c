package cms

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/momentworks/consultbook/pkg/logging"
)

// Handler serves blog content to the site.
type Handler struct {
	reader *Reader
	logger *logging.Logger
}

func NewHandler(reader *Reader, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{reader: reader, logger: logger}
}

// ListBlogs handles GET /api/blogs.
func (h *Handler) ListBlogs(w http.ResponseWriter, r *http.Request) {
	resp, err := h.reader.GetBlogs(r.Context(), QueryFromValues(r.URL.Query()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RecentBlogs handles GET /api/blogs/recent.
func (h *Handler) RecentBlogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit > 20 {
		limit = 20
	}
	blogs, err := h.reader.GetRecentBlogs(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contents": blogs})
}

// GetBlog handles GET /api/blogs/{id}; the path value may be an id or slug.
func (h *Handler) GetBlog(w http.ResponseWriter, r *http.Request) {
	blog, err := h.reader.GetBlogBySlug(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if blog == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "blog not found"})
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

// ListCategories handles GET /api/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	resp, err := h.reader.GetCategories(r.Context(), QueryFromValues(r.URL.Query()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CategoryBlogs handles GET /api/categories/{id}/blogs.
func (h *Handler) CategoryBlogs(w http.ResponseWriter, r *http.Request) {
	resp, err := h.reader.GetBlogsByCategory(r.Context(), chi.URLParam(r, "id"), QueryFromValues(r.URL.Query()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if IsNotFound(err) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	h.logger.Error("cms request failed", "error", err)
	writeJSON(w, http.StatusBadGateway, map[string]string{"error": "content unavailable"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
