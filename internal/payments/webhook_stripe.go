package payments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/momentworks/consultbook/internal/bookings"
	"github.com/momentworks/consultbook/internal/consultants"
	"github.com/momentworks/consultbook/internal/notify"
	"github.com/momentworks/consultbook/internal/observability/metrics"
	"github.com/momentworks/consultbook/pkg/logging"
)

var paymentsTracer = otel.Tracer("consultbook.internal.payments")

const (
	eventCheckoutCompleted = "checkout.session.completed"
	maxWebhookBodyBytes    = 64 << 10
)

// NotifyTimeout bounds the confirmation emails sent before the webhook is
// acknowledged. NotifyTimeout plus RetryEnqueueTimeout must stay below the
// server write timeout.
const (
	NotifyTimeout       = 8 * time.Second
	RetryEnqueueTimeout = 3 * time.Second
)

type bookingStore interface {
	GetByID(ctx context.Context, id string) (*bookings.Booking, error)
	ConfirmPayment(ctx context.Context, id, sessionRef string) (int64, error)
}

type consultantReader interface {
	GetByID(ctx context.Context, id string) (*consultants.Consultant, error)
}

type confirmationNotifier interface {
	NotifyBookingConfirmed(ctx context.Context, c *consultants.Consultant, b *bookings.Booking) error
}

type retryEnqueuer interface {
	Enqueue(ctx context.Context, kind, bookingID string) (uuid.UUID, error)
}

type eventLedger interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

// WebhookConfig configures signature verification.
type WebhookConfig struct {
	Secret    string
	Tolerance time.Duration
}

// StripeWebhookHandler confirms bookings when Stripe reports a completed
// checkout session.
type StripeWebhookHandler struct {
	secret        string
	tolerance     time.Duration
	store         bookingStore
	consultants   consultantReader
	notifier      confirmationNotifier
	retries       retryEnqueuer
	notifyTimeout time.Duration
	ledger        eventLedger
	metrics       *metrics.BookingMetrics
	logger        *logging.Logger
	now           func() time.Time
}

// NewStripeWebhookHandler creates a new handler for Stripe webhooks.
// retries may be nil, in which case failed confirmations are only logged.
func NewStripeWebhookHandler(
	cfg WebhookConfig,
	store bookingStore,
	consultantsRepo consultantReader,
	notifier confirmationNotifier,
	retries retryEnqueuer,
	m *metrics.BookingMetrics,
	logger *logging.Logger,
) *StripeWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultSignatureTolerance
	}
	return &StripeWebhookHandler{
		secret:        cfg.Secret,
		tolerance:     cfg.Tolerance,
		store:         store,
		consultants:   consultantsRepo,
		notifier:      notifier,
		retries:       retries,
		notifyTimeout: NotifyTimeout,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}
}

// WithEventLedger short-circuits redelivered event ids before touching
// bookings. The conditional confirm still guards every transition.
func (h *StripeWebhookHandler) WithEventLedger(l eventLedger) *StripeWebhookHandler {
	h.ledger = l
	return h
}

type stripeWebhookEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type stripeSessionObject struct {
	ID                string `json:"id"`
	ClientReferenceID string `json:"client_reference_id"`
	PaymentStatus     string `json:"payment_status"`
	AmountTotal       int64  `json:"amount_total"`
	Currency          string `json:"currency"`
}

// Handle processes incoming Stripe webhook events.
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	ctx, span := paymentsTracer.Start(r.Context(), "payments.stripe_webhook")
	defer span.End()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.metrics.ObserveWebhook("unknown", "bad_request")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	if err := VerifySignature(h.secret, payload, r.Header.Get("Stripe-Signature"), h.tolerance, h.now()); err != nil {
		h.logger.Warn("stripe webhook rejected", "error", err)
		h.metrics.ObserveWebhook("unknown", "invalid_signature")
		span.SetStatus(codes.Error, "invalid signature")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Webhook signature verification failed"})
		return
	}

	var evt stripeWebhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.logger.Error("failed to decode stripe event", "error", err)
		h.metrics.ObserveWebhook("unknown", "bad_request")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event payload"})
		return
	}
	span.SetAttributes(attribute.String("stripe.event_id", evt.ID), attribute.String("stripe.event_type", evt.Type))

	var outcome string
	switch {
	case evt.Type == eventCheckoutCompleted && h.seen(ctx, evt.ID):
		h.logger.Info("stripe event already processed", "event_id", evt.ID)
		outcome = "duplicate"
	case evt.Type == eventCheckoutCompleted:
		outcome = h.handleCheckoutCompleted(ctx, evt)
		if outcome != "error" {
			h.markProcessed(ctx, evt.ID)
		}
	default:
		h.logger.Info("unhandled stripe event type", "event_id", evt.ID, "type", evt.Type)
		outcome = "ignored"
	}

	h.metrics.ObserveWebhook(evt.Type, outcome)
	h.metrics.ObserveWebhookLatency(evt.Type, h.now().Sub(start).Seconds())
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// handleCheckoutCompleted runs the pending -> confirmed transition and returns
// the outcome label. Every path ends in an acknowledgment to Stripe.
func (h *StripeWebhookHandler) handleCheckoutCompleted(ctx context.Context, evt stripeWebhookEvent) string {
	var session stripeSessionObject
	if err := json.Unmarshal(evt.Data.Object, &session); err != nil {
		h.logger.Error("failed to decode checkout session", "error", err, "event_id", evt.ID)
		return "bad_payload"
	}
	bookingID := session.ClientReferenceID
	if bookingID == "" {
		h.logger.Warn("checkout session has no client_reference_id", "event_id", evt.ID, "session_id", session.ID)
		return "missing_reference"
	}
	logger := h.logger.With("event_id", evt.ID, "booking_id", bookingID, "session_id", session.ID)

	booking, err := h.store.GetByID(ctx, bookingID)
	if errors.Is(err, bookings.ErrNotFound) {
		logger.Warn("booking not found for checkout session")
		return "not_found"
	}
	if err != nil {
		logger.Error("failed to load booking", "error", err)
		return "error"
	}
	if booking.HasPaymentSession() {
		logger.Info("booking already confirmed, skipping duplicate event")
		return "duplicate"
	}

	affected, err := h.store.ConfirmPayment(ctx, bookingID, session.ID)
	if err != nil {
		logger.Error("failed to confirm booking", "error", err)
		return "error"
	}
	if affected == 0 {
		logger.Info("booking confirmed concurrently, skipping notifications")
		return "duplicate"
	}
	logger.Info("booking confirmed")

	booking.Status = bookings.StatusConfirmed
	booking.PaymentSessionRef = &session.ID
	h.notifyConfirmed(ctx, logger, booking)
	return "confirmed"
}

func (h *StripeWebhookHandler) seen(ctx context.Context, eventID string) bool {
	if h.ledger == nil || eventID == "" {
		return false
	}
	processed, err := h.ledger.AlreadyProcessed(ctx, providerStripe, eventID)
	if err != nil {
		h.logger.Warn("event ledger lookup failed", "error", err, "event_id", eventID)
		return false
	}
	return processed
}

func (h *StripeWebhookHandler) markProcessed(ctx context.Context, eventID string) {
	if h.ledger == nil || eventID == "" {
		return
	}
	if _, err := h.ledger.MarkProcessed(ctx, providerStripe, eventID); err != nil {
		h.logger.Warn("failed to record processed event", "error", err, "event_id", eventID)
	}
}

func (h *StripeWebhookHandler) notifyConfirmed(ctx context.Context, logger *logging.Logger, b *bookings.Booking) {
	if h.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.notifyTimeout)
	defer cancel()

	c, err := h.consultants.GetByID(ctx, b.ConsultantID)
	if err != nil {
		logger.Error("failed to load consultant for confirmation", "error", err, "consultant_id", b.ConsultantID)
		h.enqueueRetry(ctx, logger, b.ID)
		return
	}
	if err := h.notifier.NotifyBookingConfirmed(ctx, c, b); err != nil {
		logger.Error("client confirmation email failed", "error", err)
		h.enqueueRetry(ctx, logger, b.ID)
	}
}

func (h *StripeWebhookHandler) enqueueRetry(ctx context.Context, logger *logging.Logger, bookingID string) {
	if h.retries == nil {
		return
	}
	// the notify context may already be spent
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RetryEnqueueTimeout)
	defer cancel()
	id, err := h.retries.Enqueue(ctx, notify.KindBookingConfirmed, bookingID)
	if err != nil {
		logger.Error("failed to enqueue confirmation retry", "error", err)
		return
	}
	logger.Info("confirmation email queued for retry", "outbox_id", id)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
