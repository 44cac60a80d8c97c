package consultants

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const consultantColumns = `id::text, name, title, bio, expertise, price_30min, image_url, payment_link, meet_url, email, created_at`

// PostgresRepository reads consultants from the relational database.
type PostgresRepository struct {
	pool querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("consultants: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithQuerier(q querier) *PostgresRepository {
	return &PostgresRepository{pool: q}
}

// List returns every consultant ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]*Consultant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+consultantColumns+` FROM consultants ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("consultants: list: %w", err)
	}
	defer rows.Close()

	var out []*Consultant
	for rows.Next() {
		c, err := scanConsultant(rows)
		if err != nil {
			return nil, fmt.Errorf("consultants: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("consultants: list rows: %w", err)
	}
	return out, nil
}

// GetByID fetches a consultant, returning ErrConsultantNotFound when absent.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Consultant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+consultantColumns+` FROM consultants WHERE id = $1`, id)
	c, err := scanConsultant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConsultantNotFound
		}
		return nil, fmt.Errorf("consultants: select: %w", err)
	}
	return c, nil
}

// Insert writes a consultant and fills in the generated id and created_at.
func (r *PostgresRepository) Insert(ctx context.Context, c *Consultant) error {
	query := `
		INSERT INTO consultants (name, title, bio, expertise, price_30min, image_url, payment_link, meet_url, email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text, created_at
	`
	if err := r.pool.QueryRow(ctx, query,
		c.Name,
		c.Title,
		c.Bio,
		c.Expertise,
		c.Price30Min,
		c.ImageURL,
		c.PaymentLink,
		c.MeetURL,
		c.Email,
	).Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("consultants: insert: %w", err)
	}
	return nil
}

func scanConsultant(row pgx.Row) (*Consultant, error) {
	var c Consultant
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Title,
		&c.Bio,
		&c.Expertise,
		&c.Price30Min,
		&c.ImageURL,
		&c.PaymentLink,
		&c.MeetURL,
		&c.Email,
		&c.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
