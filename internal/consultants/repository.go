package consultants

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines read access to consultants.
type Repository interface {
	List(ctx context.Context) ([]*Consultant, error)
	GetByID(ctx context.Context, id string) (*Consultant, error)
}

// InMemoryRepository keeps consultants in a map; used by tests and local runs.
type InMemoryRepository struct {
	mu          sync.RWMutex
	consultants map[string]*Consultant
}

// NewInMemoryRepository creates a repository preloaded with the given consultants.
func NewInMemoryRepository(seed ...*Consultant) *InMemoryRepository {
	r := &InMemoryRepository{consultants: make(map[string]*Consultant)}
	for _, c := range seed {
		r.Put(c)
	}
	return r
}

// Put stores a copy of c, assigning an id and timestamp when missing.
func (r *InMemoryRepository) Put(c *Consultant) *Consultant {
	cp := *c
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	r.consultants[cp.ID] = &cp
	r.mu.Unlock()
	return &cp
}

// List returns consultants ordered by name.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Consultant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Consultant, 0, len(r.consultants))
	for _, c := range r.consultants {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetByID returns the consultant or ErrConsultantNotFound.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Consultant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.consultants[id]
	if !ok {
		return nil, ErrConsultantNotFound
	}
	cp := *c
	return &cp, nil
}
