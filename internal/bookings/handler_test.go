package bookings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(f *serviceFixture) http.Handler {
	h := NewHandler(f.service, nil)
	r := chi.NewRouter()
	r.Post("/api/bookings", h.Create)
	r.Get("/admin/bookings", h.List)
	r.Get("/admin/bookings/{id}", h.Get)
	r.Post("/admin/bookings/{id}/resend-confirmation", h.ResendConfirmation)
	return r
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload string
	switch v := body.(type) {
	case string:
		payload = v
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		payload = string(raw)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateAccepted(t *testing.T) {
	f := newServiceFixture(t)
	rec := postJSON(t, newTestRouter(f), "/api/bookings", f.request())

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp CreateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.BookingID)

	b, err := f.store.GetByID(context.Background(), resp.BookingID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, b.Status)
}

func TestHandlerCreateRejections(t *testing.T) {
	f := newServiceFixture(t)
	router := newTestRouter(f)

	unknown := f.request()
	unknown.ConsultantID = testConsultantID
	tooMany := f.request()
	tooMany.PreferredDates = []string{"a", "b", "c", "d"}

	tests := []struct {
		name   string
		body   any
		status int
		field  string
	}{
		{name: "malformed json", body: "{", status: http.StatusBadRequest},
		{name: "too many dates", body: tooMany, status: http.StatusBadRequest, field: "preferredDates"},
		{name: "unknown consultant", body: unknown, status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, router, "/api/bookings", tt.body)
			require.Equal(t, tt.status, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			if tt.field != "" {
				require.NotEmpty(t, resp.Details)
				assert.Equal(t, tt.field, resp.Details[0].Field)
			}
		})
	}

	list, err := f.store.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list, "rejected requests must not persist a booking")
}

func TestHandlerCreateBodyTooLarge(t *testing.T) {
	f := newServiceFixture(t)
	req := f.request()
	req.Message = strings.Repeat("x", maxBookingBodyBytes+1)

	rec := postJSON(t, newTestRouter(f), "/api/bookings", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerAdminEndpoints(t *testing.T) {
	f := newServiceFixture(t)
	router := newTestRouter(f)

	b, err := f.service.Create(context.Background(), f.request())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/bookings?status=pending&limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list ListBookingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, 10, list.Limit)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/bookings?status=cancelled", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/bookings/"+b.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, b.ID, got.ID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/bookings/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = postJSON(t, router, "/admin/bookings/"+b.ID+"/resend-confirmation", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	_, err = f.store.ConfirmPayment(context.Background(), b.ID, "cs_test_1")
	require.NoError(t, err)
	rec = postJSON(t, router, "/admin/bookings/"+b.ID+"/resend-confirmation", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
