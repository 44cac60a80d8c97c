package consultants

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/momentworks/consultbook/pkg/logging"
)

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/consultants", h.List)
	r.Get("/api/consultants/{id}", h.Get)
	return r
}

func TestListConsultantsHidesPrivateFields(t *testing.T) {
	repo := NewInMemoryRepository(DemoConsultants()...)
	router := newTestRouter(NewHandler(repo, logging.New("error")))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/consultants", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, private := range []string{"paymentLink", "buy.stripe.com", "@example.com", "meet.google.com"} {
		if strings.Contains(body, private) {
			t.Fatalf("response leaked %q: %s", private, body)
		}
	}
	var resp ListConsultantsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 3 || len(resp.Consultants) != 3 {
		t.Fatalf("expected 3 consultants, got %+v", resp)
	}
}

func TestGetConsultant(t *testing.T) {
	repo := NewInMemoryRepository()
	stored := repo.Put(&Consultant{Name: "Taro", Price30Min: 10000})
	router := newTestRouter(NewHandler(repo, logging.New("error")))

	tests := []struct {
		name string
		id   string
		want int
	}{
		{"found", stored.ID, http.StatusOK},
		{"unknown", uuid.NewString(), http.StatusNotFound},
		{"malformed", "not-a-uuid", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/consultants/"+tt.id, nil))
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
		})
	}
}

type failingRepository struct{}

func (failingRepository) List(context.Context) ([]*Consultant, error) {
	return nil, errors.New("db down")
}

func (failingRepository) GetByID(context.Context, string) (*Consultant, error) {
	return nil, errors.New("db down")
}

func TestConsultantHandlerRepositoryErrors(t *testing.T) {
	router := newTestRouter(NewHandler(failingRepository{}, logging.New("error")))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/consultants", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for list, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/consultants/"+uuid.NewString(), nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for get, got %d", rr.Code)
	}
}
