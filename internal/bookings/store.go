package bookings

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists bookings. ConfirmPayment must only apply when no payment
// session has been recorded yet; its affected-row count is the final word on
// whether this caller performed the transition.
type Store interface {
	Insert(ctx context.Context, b *Booking) (*Booking, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	ConfirmPayment(ctx context.Context, id, sessionRef string) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]*Booking, error)
}

// ListFilter narrows admin listings.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

func (f ListFilter) normalized() ListFilter {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// MemoryStore is an in-process Store used by tests and local runs.
type MemoryStore struct {
	mu       sync.Mutex
	bookings map[string]*Booking
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookings: make(map[string]*Booking),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Insert(ctx context.Context, b *Booking) (*Booking, error) {
	now := s.now()
	row := cloneBooking(b)
	row.ID = uuid.NewString()
	row.Status = StatusPending
	row.PaymentSessionRef = nil
	row.ConfirmedAt = nil
	row.CreatedAt = now
	row.UpdatedAt = now

	s.mu.Lock()
	s.bookings[row.ID] = row
	s.mu.Unlock()
	return cloneBooking(row), nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, &NotFoundError{Resource: "booking", ID: id}
	}
	return cloneBooking(b), nil
}

func (s *MemoryStore) ConfirmPayment(ctx context.Context, id, sessionRef string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok || b.PaymentSessionRef != nil {
		return 0, nil
	}
	now := s.now()
	ref := sessionRef
	b.Status = StatusConfirmed
	b.PaymentSessionRef = &ref
	b.ConfirmedAt = &now
	b.UpdatedAt = now
	return 1, nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]*Booking, error) {
	filter = filter.normalized()

	s.mu.Lock()
	all := make([]*Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		all = append(all, cloneBooking(b))
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if filter.Offset >= len(all) {
		return []*Booking{}, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[filter.Offset:end], nil
}

func cloneBooking(b *Booking) *Booking {
	cp := *b
	cp.PreferredDates = append([]string(nil), b.PreferredDates...)
	if b.PaymentSessionRef != nil {
		ref := *b.PaymentSessionRef
		cp.PaymentSessionRef = &ref
	}
	if b.ConfirmedAt != nil {
		at := *b.ConfirmedAt
		cp.ConfirmedAt = &at
	}
	return &cp
}
