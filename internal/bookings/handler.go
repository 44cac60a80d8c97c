package bookings

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/momentworks/consultbook/pkg/logging"
)

const maxBookingBodyBytes = 64 << 10

// Handler exposes booking intake and admin endpoints over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a bookings handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// CreateResponse is returned with 201 when a booking is accepted.
type CreateResponse struct {
	Success   bool   `json:"success"`
	BookingID string `json:"bookingId"`
	Message   string `json:"message"`
}

type errorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

// Create handles POST /api/bookings.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBookingBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode booking request", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Details: []FieldError{}})
		return
	}

	booking, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateResponse{
		Success:   true,
		BookingID: booking.ID,
		Message:   "Your request has been received",
	})
}

// ListBookingsResponse is the response for GET /admin/bookings.
type ListBookingsResponse struct {
	Bookings []*Booking `json:"bookings"`
	Count    int        `json:"count"`
	Offset   int        `json:"offset"`
	Limit    int        `json:"limit"`
}

// List handles GET /admin/bookings.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: 50}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	switch status := Status(r.URL.Query().Get("status")); status {
	case "", StatusPending, StatusConfirmed:
		filter.Status = status
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown status filter"})
		return
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListBookingsResponse{
		Bookings: list,
		Count:    len(list),
		Offset:   filter.Offset,
		Limit:    filter.Limit,
	})
}

// Get handles GET /admin/bookings/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ResendConfirmation handles POST /admin/bookings/{id}/resend-confirmation.
func (h *Handler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.ResendConfirmation(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotConfirmed) {
			writeJSON(w, http.StatusConflict, errorResponse{Error: "booking is not confirmed"})
			return
		}
		var nf *NotFoundError
		var pe *PersistenceError
		if errors.As(err, &nf) || errors.As(err, &pe) {
			h.writeError(w, err)
			return
		}
		h.logger.Error("resend confirmation failed", "error", err, "booking_id", id)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to send confirmation email"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"sent": true})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	var nf *NotFoundError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Details: ve.Fields})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: nf.Resource + " not found"})
	default:
		h.logger.Error("booking request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to process booking"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
