package bookings

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/momentworks/consultbook/internal/consultants"
	"github.com/momentworks/consultbook/internal/observability/metrics"
	"github.com/momentworks/consultbook/pkg/logging"
)

var bookingsTracer = otel.Tracer("consultbook.internal.bookings")

// NotifyTimeout bounds the best-effort email step so a slow provider cannot
// hold the intake response open. It must stay below the server write timeout.
const NotifyTimeout = 8 * time.Second

// ConsultantReader resolves consultants referenced by bookings.
type ConsultantReader interface {
	GetByID(ctx context.Context, id string) (*consultants.Consultant, error)
}

// Notifier sends the transactional emails of the booking lifecycle.
type Notifier interface {
	NotifyBookingRequested(ctx context.Context, c *consultants.Consultant, b *Booking, paymentURL string) error
	NotifyBookingConfirmed(ctx context.Context, c *consultants.Consultant, b *Booking) error
}

// Service accepts booking requests.
type Service struct {
	store         Store
	consultants   ConsultantReader
	notifier      Notifier
	notifyTimeout time.Duration
	metrics       *metrics.BookingMetrics
	logger        *logging.Logger
}

// NewService constructs a bookings service.
func NewService(store Store, consultantsRepo ConsultantReader, notifier Notifier, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if store == nil {
		panic("bookings: store required")
	}
	if consultantsRepo == nil {
		panic("bookings: consultant reader required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:         store,
		consultants:   consultantsRepo,
		notifier:      notifier,
		notifyTimeout: NotifyTimeout,
		metrics:       m,
		logger:        logger,
	}
}

// Create validates req, persists a pending booking and then notifies the
// consultant and client. Once the row is written the call succeeds no matter
// what happens to the emails.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.create")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		s.metrics.ObserveIntake("invalid")
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("consultbook.consultant_id", req.ConsultantID))

	consultant, err := s.consultants.GetByID(ctx, req.ConsultantID)
	if errors.Is(err, consultants.ErrConsultantNotFound) {
		s.metrics.ObserveIntake("not_found")
		return nil, &NotFoundError{Resource: "consultant", ID: req.ConsultantID}
	}
	if err != nil {
		s.metrics.ObserveIntake("error")
		span.RecordError(err)
		return nil, &PersistenceError{Op: "load consultant", Err: err}
	}
	if !consultant.CanTakeBookings() {
		s.metrics.ObserveIntake("invalid")
		return nil, &ValidationError{Fields: []FieldError{{Field: "consultantId", Message: "consultant is not accepting bookings"}}}
	}

	booking, err := s.store.Insert(ctx, &Booking{
		ConsultantID:   req.ConsultantID,
		ClientName:     req.ClientName,
		ClientEmail:    req.ClientEmail,
		PreferredDates: req.PreferredDates,
		Message:        req.Message,
	})
	if err != nil {
		s.metrics.ObserveIntake("error")
		span.RecordError(err)
		return nil, &PersistenceError{Op: "insert booking", Err: err}
	}
	span.SetAttributes(attribute.String("consultbook.booking_id", booking.ID))
	s.metrics.ObserveIntake("created")
	s.logger.Info("booking created", "booking_id", booking.ID, "consultant_id", booking.ConsultantID)

	s.notifyRequested(ctx, consultant, booking)
	return booking, nil
}

func (s *Service) notifyRequested(ctx context.Context, c *consultants.Consultant, b *Booking) {
	if s.notifier == nil {
		return
	}
	// The row is committed; a client disconnect must not cancel the sends.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	if err := s.notifier.NotifyBookingRequested(ctx, c, b, PaymentURL(c.PaymentLink, b.ID)); err != nil {
		s.logger.Error("failed to send booking request notifications", "error", err, "booking_id", b.ID)
		return
	}
	s.logger.Info("booking request notifications sent", "booking_id", b.ID)
}

// Get loads a booking by id.
func (s *Service) Get(ctx context.Context, id string) (*Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "load booking", Err: err}
	}
	return b, nil
}

// List returns bookings for the admin surface.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Booking, error) {
	list, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, &PersistenceError{Op: "list bookings", Err: err}
	}
	return list, nil
}

// ErrNotConfirmed is returned when a confirmation is re-sent for a pending booking.
var ErrNotConfirmed = errors.New("bookings: booking is not confirmed")

// ResendConfirmation re-sends the confirmation emails from stored state.
func (s *Service) ResendConfirmation(ctx context.Context, id string) error {
	ctx, span := bookingsTracer.Start(ctx, "bookings.resend_confirmation")
	defer span.End()
	span.SetAttributes(attribute.String("consultbook.booking_id", id))

	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !b.IsConfirmed() {
		return ErrNotConfirmed
	}
	c, err := s.consultants.GetByID(ctx, b.ConsultantID)
	if errors.Is(err, consultants.ErrConsultantNotFound) {
		return &NotFoundError{Resource: "consultant", ID: b.ConsultantID}
	}
	if err != nil {
		return &PersistenceError{Op: "load consultant", Err: err}
	}
	if s.notifier == nil {
		return errors.New("bookings: notifier not configured")
	}
	if err := s.notifier.NotifyBookingConfirmed(ctx, c, b); err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.Info("booking confirmation re-sent", "booking_id", id)
	return nil
}

// PaymentURL tags a consultant's payment link with the booking id so the
// payment webhook can be correlated back to the booking.
func PaymentURL(paymentLink, bookingID string) string {
	sep := "?"
	if strings.Contains(paymentLink, "?") {
		sep = "&"
	}
	return paymentLink + sep + "client_reference_id=" + url.QueryEscape(bookingID)
}
