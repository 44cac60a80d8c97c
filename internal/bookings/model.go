package bookings

import (
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the booking lifecycle state. It only ever moves pending -> confirmed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

// MaxPreferredDates bounds the candidate dates a client may propose.
const MaxPreferredDates = 3

// Booking is a client's request to consult with a consultant.
type Booking struct {
	ID                string     `json:"id"`
	ConsultantID      string     `json:"consultantId"`
	ClientName        string     `json:"clientName"`
	ClientEmail       string     `json:"clientEmail"`
	PreferredDates    []string   `json:"preferredDates"`
	Message           string     `json:"message"`
	Status            Status     `json:"status"`
	PaymentSessionRef *string    `json:"paymentSessionRef"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	ConfirmedAt       *time.Time `json:"confirmedAt,omitempty"`
}

// HasPaymentSession reports whether a payment has already been recorded.
func (b *Booking) HasPaymentSession() bool {
	return b.PaymentSessionRef != nil && *b.PaymentSessionRef != ""
}

// IsConfirmed reports whether the booking reached its terminal state.
func (b *Booking) IsConfirmed() bool {
	return b.Status == StatusConfirmed
}

// CreateRequest is the booking intake payload.
type CreateRequest struct {
	ConsultantID   string   `json:"consultantId"`
	ClientName     string   `json:"clientName"`
	ClientEmail    string   `json:"clientEmail"`
	PreferredDates []string `json:"preferredDates"`
	Message        string   `json:"message"`
}

// Normalize trims surrounding whitespace from every field.
func (r *CreateRequest) Normalize() {
	r.ConsultantID = strings.TrimSpace(r.ConsultantID)
	r.ClientName = strings.TrimSpace(r.ClientName)
	r.ClientEmail = strings.TrimSpace(r.ClientEmail)
	r.Message = strings.TrimSpace(r.Message)
	for i, d := range r.PreferredDates {
		r.PreferredDates[i] = strings.TrimSpace(d)
	}
}

// Validate checks every field and reports all violations at once.
func (r *CreateRequest) Validate() error {
	var fields []FieldError
	add := func(field, msg string) {
		fields = append(fields, FieldError{Field: field, Message: msg})
	}

	if _, err := uuid.Parse(r.ConsultantID); err != nil {
		add("consultantId", "must be a valid consultant id")
	}
	if strings.TrimSpace(r.ClientName) == "" {
		add("clientName", "name is required")
	}
	if !isEmail(r.ClientEmail) {
		add("clientEmail", "must be a valid email address")
	}
	switch n := len(r.PreferredDates); {
	case n == 0:
		add("preferredDates", "at least one preferred date is required")
	case n > MaxPreferredDates:
		add("preferredDates", "no more than 3 preferred dates are allowed")
	default:
		for i, d := range r.PreferredDates {
			if strings.TrimSpace(d) == "" {
				add("preferredDates."+strconv.Itoa(i), "preferred date must not be empty")
			}
		}
	}
	if strings.TrimSpace(r.Message) == "" {
		add("message", "consultation details are required")
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// isEmail accepts a bare addr-spec with a dotted domain, e.g. a@b.co.
func isEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 {
		return false
	}
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

