package consultants

import (
	"errors"
	"time"
)

// ErrConsultantNotFound is returned when no consultant matches the id.
var ErrConsultantNotFound = errors.New("consultant not found")

// Consultant is a bookable service provider with a pre-provisioned payment link.
type Consultant struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	Bio         string    `json:"bio"`
	Expertise   []string  `json:"expertise"`
	Price30Min  int       `json:"price30min"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	PaymentLink string    `json:"-"`
	MeetURL     string    `json:"-"`
	Email       string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CanTakeBookings reports whether a tagged payment URL can be composed.
func (c *Consultant) CanTakeBookings() bool {
	return c != nil && c.PaymentLink != ""
}
