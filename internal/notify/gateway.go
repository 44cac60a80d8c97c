package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/momentworks/consultbook/internal/bookings"
	"github.com/momentworks/consultbook/internal/consultants"
	"github.com/momentworks/consultbook/internal/observability/metrics"
	"github.com/momentworks/consultbook/pkg/logging"
)

// ErrNoRecipient is returned when an email has no address to go to.
var ErrNoRecipient = errors.New("notify: recipient address missing")

// NotificationError describes one failed email.
type NotificationError struct {
	Kind string
	To   string
	Err  error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify: %s to %s: %v", e.Kind, e.To, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// GatewayConfig configures the booking email gateway.
type GatewayConfig struct {
	Brand        string
	SupportEmail string
}

// Gateway composes and sends the booking lifecycle emails.
type Gateway struct {
	sender  EmailSender
	brand   string
	support string
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

// NewGateway creates a notification gateway.
func NewGateway(sender EmailSender, cfg GatewayConfig, m *metrics.BookingMetrics, logger *logging.Logger) *Gateway {
	if sender == nil {
		panic("notify: email sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Brand == "" {
		cfg.Brand = defaultFromName
	}
	return &Gateway{
		sender:  sender,
		brand:   cfg.Brand,
		support: cfg.SupportEmail,
		metrics: m,
		logger:  logger,
	}
}

// NotifyBookingRequested sends the consultant notice (with the tagged payment
// URL) and the client acknowledgment concurrently. Either failure is reported
// in the joined error; neither send cancels the other.
func (g *Gateway) NotifyBookingRequested(ctx context.Context, c *consultants.Consultant, b *bookings.Booking, paymentURL string) error {
	data := newEmailData(g.brand, g.support, c, b)
	data.PaymentURL = paymentURL

	var errConsultant, errClient error
	var eg errgroup.Group
	eg.Go(func() error {
		errConsultant = g.send(ctx, KindRequestedConsultant, requestedConsultantTemplate, c.Email, c.Name, data, b.ID)
		return nil
	})
	eg.Go(func() error {
		errClient = g.send(ctx, KindRequestedClient, requestedClientTemplate, b.ClientEmail, b.ClientName, data, b.ID)
		return nil
	})
	_ = eg.Wait()
	return errors.Join(errConsultant, errClient)
}

// NotifyBookingConfirmed sends the post-payment confirmations. Only a failed
// client email is returned; the consultant notice is logged and swallowed.
func (g *Gateway) NotifyBookingConfirmed(ctx context.Context, c *consultants.Consultant, b *bookings.Booking) error {
	var errClient error
	var eg errgroup.Group
	eg.Go(func() error {
		errClient = g.SendClientConfirmation(ctx, c, b)
		return nil
	})
	eg.Go(func() error {
		data := newEmailData(g.brand, g.support, c, b)
		if err := g.send(ctx, KindConfirmedConsultant, confirmedConsultantTemplate, c.Email, c.Name, data, b.ID); err != nil {
			g.logger.Warn("consultant confirmation not delivered", "error", err, "booking_id", b.ID)
		}
		return nil
	})
	_ = eg.Wait()
	return errClient
}

// SendClientConfirmation sends only the client's confirmation with the meeting
// URL. Used directly by the retry deliverer.
func (g *Gateway) SendClientConfirmation(ctx context.Context, c *consultants.Consultant, b *bookings.Booking) error {
	data := newEmailData(g.brand, g.support, c, b)
	return g.send(ctx, KindConfirmedClient, confirmedClientTemplate, b.ClientEmail, b.ClientName, data, b.ID)
}

func (g *Gateway) send(ctx context.Context, kind string, tmpl emailTemplate, to, toName string, data emailData, bookingID string) error {
	if strings.TrimSpace(to) == "" {
		g.metrics.ObserveEmail(kind, false)
		return &NotificationError{Kind: kind, To: to, Err: ErrNoRecipient}
	}
	msg, err := tmpl.render(to, toName, data)
	if err != nil {
		g.metrics.ObserveEmail(kind, false)
		return &NotificationError{Kind: kind, To: to, Err: err}
	}
	messageID, err := g.sender.Send(ctx, msg)
	if err != nil {
		g.metrics.ObserveEmail(kind, false)
		g.logger.Error("email send failed", "error", err, "kind", kind, "booking_id", bookingID)
		return &NotificationError{Kind: kind, To: to, Err: err}
	}
	g.metrics.ObserveEmail(kind, true)
	g.logger.Info("email sent", "kind", kind, "booking_id", bookingID, "message_id", messageID)
	return nil
}

var _ bookings.Notifier = (*Gateway)(nil)
