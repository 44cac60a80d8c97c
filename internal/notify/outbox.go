package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/momentworks/consultbook/internal/bookings"
	"github.com/momentworks/consultbook/internal/consultants"
	"github.com/momentworks/consultbook/pkg/logging"
)

// KindBookingConfirmed marks a pending client confirmation email.
const KindBookingConfirmed = "booking_confirmed"

// OutboxEntry is an email awaiting (re)delivery.
type OutboxEntry struct {
	ID            uuid.UUID
	Kind          string
	BookingID     string
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
}

type outboxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// OutboxStore persists emails that need a retry.
type OutboxStore struct {
	pool outboxQuerier
}

func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	if pool == nil {
		panic("notify: pgx pool required")
	}
	return &OutboxStore{pool: pool}
}

func newOutboxStoreWithQuerier(q outboxQuerier) *OutboxStore {
	return &OutboxStore{pool: q}
}

// Enqueue records an email for retry, due immediately.
func (s *OutboxStore) Enqueue(ctx context.Context, kind, bookingID string) (uuid.UUID, error) {
	id := uuid.New()
	query := `
		INSERT INTO email_outbox (id, kind, booking_id, attempts, next_attempt_at)
		VALUES ($1, $2, $3, 0, now())
	`
	if _, err := s.pool.Exec(ctx, query, id, kind, bookingID); err != nil {
		return uuid.Nil, fmt.Errorf("notify: enqueue outbox: %w", err)
	}
	return id, nil
}

// FetchDue returns undelivered entries whose retry time has come.
func (s *OutboxStore) FetchDue(ctx context.Context, limit, maxAttempts int) ([]OutboxEntry, error) {
	query := `
		SELECT id, kind, booking_id::text, attempts, next_attempt_at, COALESCE(last_error, ''), created_at
		FROM email_outbox
		WHERE delivered_at IS NULL AND attempts < $2 AND next_attempt_at <= now()
		ORDER BY next_attempt_at
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("notify: fetch outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.BookingID, &e.Attempts, &e.NextAttemptAt, &e.LastError, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("notify: scan outbox: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *OutboxStore) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE email_outbox
		SET delivered_at = now()
		WHERE id = $1 AND delivered_at IS NULL
	`
	ct, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("notify: mark delivered: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// ScheduleRetry bumps the attempt counter and pushes the next attempt out.
func (s *OutboxStore) ScheduleRetry(ctx context.Context, id uuid.UUID, lastErr string, next time.Time) error {
	query := `
		UPDATE email_outbox
		SET attempts = attempts + 1, next_attempt_at = $2, last_error = $3
		WHERE id = $1
	`
	if _, err := s.pool.Exec(ctx, query, id, next, lastErr); err != nil {
		return fmt.Errorf("notify: schedule retry: %w", err)
	}
	return nil
}

type retryQueue interface {
	FetchDue(ctx context.Context, limit, maxAttempts int) ([]OutboxEntry, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error)
	ScheduleRetry(ctx context.Context, id uuid.UUID, lastErr string, next time.Time) error
}

// BookingReader loads bookings for redelivery.
type BookingReader interface {
	GetByID(ctx context.Context, id string) (*bookings.Booking, error)
}

// ConsultantReader loads consultants for redelivery.
type ConsultantReader interface {
	GetByID(ctx context.Context, id string) (*consultants.Consultant, error)
}

type confirmationSender interface {
	SendClientConfirmation(ctx context.Context, c *consultants.Consultant, b *bookings.Booking) error
}

// Deliverer polls the outbox and re-sends client confirmations with
// exponential backoff until maxAttempts.
type Deliverer struct {
	queue       retryQueue
	bookings    BookingReader
	consultants ConsultantReader
	sender      confirmationSender
	logger      *logging.Logger
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	interval    time.Duration
	batchSize   int
	now         func() time.Time
}

func NewDeliverer(queue retryQueue, bookingsReader BookingReader, consultantsReader ConsultantReader, sender confirmationSender, logger *logging.Logger) *Deliverer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Deliverer{
		queue:       queue,
		bookings:    bookingsReader,
		consultants: consultantsReader,
		sender:      sender,
		logger:      logger,
		maxAttempts: 6,
		baseDelay:   time.Minute,
		maxDelay:    6 * time.Hour,
		interval:    30 * time.Second,
		batchSize:   25,
		now:         time.Now,
	}
}

func (d *Deliverer) WithMaxAttempts(n int) *Deliverer {
	if n > 0 {
		d.maxAttempts = n
	}
	return d
}

func (d *Deliverer) WithBaseDelay(delay time.Duration) *Deliverer {
	if delay > 0 {
		d.baseDelay = delay
	}
	return d
}

func (d *Deliverer) WithInterval(interval time.Duration) *Deliverer {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

func (d *Deliverer) WithBatchSize(n int) *Deliverer {
	if n > 0 {
		d.batchSize = n
	}
	return d
}

// Run drains the outbox until ctx is cancelled.
func (d *Deliverer) Run(ctx context.Context) {
	if d.queue == nil || d.sender == nil {
		return
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	d.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

func (d *Deliverer) drain(ctx context.Context) {
	entries, err := d.queue.FetchDue(ctx, d.batchSize, d.maxAttempts)
	if err != nil {
		d.logger.Error("outbox fetch failed", "error", err)
		return
	}
	for _, entry := range entries {
		if err := d.deliver(ctx, entry); err != nil {
			d.retry(ctx, entry, err)
			continue
		}
		if ok, err := d.queue.MarkDelivered(ctx, entry.ID); err != nil {
			d.logger.Error("failed to mark outbox delivered", "error", err, "outbox_id", entry.ID)
		} else if ok {
			d.logger.Info("outbox email delivered", "outbox_id", entry.ID, "booking_id", entry.BookingID, "attempts", entry.Attempts+1)
		}
	}
}

func (d *Deliverer) deliver(ctx context.Context, entry OutboxEntry) error {
	if entry.Kind != KindBookingConfirmed {
		d.logger.Warn("unknown outbox kind", "kind", entry.Kind, "outbox_id", entry.ID)
		return nil
	}
	b, err := d.bookings.GetByID(ctx, entry.BookingID)
	if errors.Is(err, bookings.ErrNotFound) {
		d.logger.Warn("outbox booking no longer exists", "booking_id", entry.BookingID, "outbox_id", entry.ID)
		return nil
	}
	if err != nil {
		return err
	}
	if !b.IsConfirmed() {
		d.logger.Warn("outbox booking is not confirmed", "booking_id", b.ID, "outbox_id", entry.ID)
		return nil
	}
	c, err := d.consultants.GetByID(ctx, b.ConsultantID)
	if err != nil {
		return fmt.Errorf("notify: load consultant: %w", err)
	}
	return d.sender.SendClientConfirmation(ctx, c, b)
}

func (d *Deliverer) retry(ctx context.Context, entry OutboxEntry, cause error) {
	attempt := entry.Attempts + 1
	if attempt >= d.maxAttempts {
		d.logger.Error("giving up on outbox email", "error", cause, "outbox_id", entry.ID, "booking_id", entry.BookingID, "attempts", attempt)
	} else {
		d.logger.Warn("outbox email failed, will retry", "error", cause, "outbox_id", entry.ID, "booking_id", entry.BookingID, "attempts", attempt)
	}
	next := d.now().Add(d.nextDelay(entry.Attempts))
	if err := d.queue.ScheduleRetry(ctx, entry.ID, cause.Error(), next); err != nil {
		d.logger.Error("schedule retry failed", "error", err, "outbox_id", entry.ID)
	}
}

func (d *Deliverer) nextDelay(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 20 {
		return d.maxDelay
	}
	delay := d.baseDelay * time.Duration(1<<attempts)
	if delay > d.maxDelay || delay <= 0 {
		delay = d.maxDelay
	}
	return delay
}
