package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const bookingColumns = `id::text, consultant_id::text, client_name, client_email, preferred_dates, message, status, payment_session_ref, created_at, updated_at, confirmed_at`

// PostgresStore stores bookings in the relational database.
type PostgresStore struct {
	pool rowQuerier
}

// NewPostgresStore creates a store backed by pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func newPostgresStoreWithQuerier(q rowQuerier) *PostgresStore {
	if q == nil {
		panic("bookings: querier required")
	}
	return &PostgresStore{pool: q}
}

// Insert writes a pending booking; the database assigns the id.
func (s *PostgresStore) Insert(ctx context.Context, b *Booking) (*Booking, error) {
	query := `
		INSERT INTO bookings (consultant_id, client_name, client_email, preferred_dates, message, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text, created_at, updated_at
	`
	row := cloneBooking(b)
	row.Status = StatusPending
	row.PaymentSessionRef = nil
	row.ConfirmedAt = nil
	if err := s.pool.QueryRow(ctx, query,
		row.ConsultantID,
		row.ClientName,
		row.ClientEmail,
		row.PreferredDates,
		row.Message,
		string(StatusPending),
	).Scan(&row.ID, &row.CreatedAt, &row.UpdatedAt); err != nil {
		return nil, fmt.Errorf("bookings: insert: %w", err)
	}
	return row, nil
}

// GetByID loads a booking. Ids that are not UUIDs cannot exist and report
// not found without a round trip.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &NotFoundError{Resource: "booking", ID: id}
	}
	b, err := scanBooking(s.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "booking", ID: id}
		}
		return nil, fmt.Errorf("bookings: select: %w", err)
	}
	return b, nil
}

// ConfirmPayment performs the pending -> confirmed transition only while no
// payment session is recorded, returning the affected row count.
func (s *PostgresStore) ConfirmPayment(ctx context.Context, id, sessionRef string) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'confirmed', payment_session_ref = $2, confirmed_at = now(), updated_at = now()
		WHERE id = $1 AND payment_session_ref IS NULL
	`
	ct, err := s.pool.Exec(ctx, query, id, sessionRef)
	if err != nil {
		return 0, fmt.Errorf("bookings: confirm payment: %w", err)
	}
	return ct.RowsAffected(), nil
}

// List returns bookings newest first.
func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*Booking, error) {
	filter = filter.normalized()
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.pool.Query(ctx, query, string(filter.Status), filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("bookings: list: %w", err)
	}
	defer rows.Close()

	out := []*Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("bookings: scan: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b           Booking
		status      string
		sessionRef  *string
		confirmedAt *time.Time
	)
	if err := row.Scan(
		&b.ID,
		&b.ConsultantID,
		&b.ClientName,
		&b.ClientEmail,
		&b.PreferredDates,
		&b.Message,
		&status,
		&sessionRef,
		&b.CreatedAt,
		&b.UpdatedAt,
		&confirmedAt,
	); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	b.PaymentSessionRef = sessionRef
	b.ConfirmedAt = confirmedAt
	return &b, nil
}
