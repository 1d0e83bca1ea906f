package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

const uniqueViolation = "23505"

// Repository persists billing configs and bills in postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateConfig inserts a charge definition. The unique index on
// (society_id, name, effective_from) turns duplicates into conflicts.
func (r *Repository) CreateConfig(ctx context.Context, c *Config) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO billing_configs (id, society_id, name, amount_paise, effective_from, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.SocietyID, c.Name, c.AmountPaise, c.EffectiveFrom, c.CreatedBy, c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: config %q already effective from that date", httpx.ErrDuplicate, c.Name)
		}
		return err
	}
	return nil
}

// ListConfigs returns charge definitions for a society, newest first.
func (r *Repository) ListConfigs(ctx context.Context, societyID string) ([]Config, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, society_id, name, amount_paise, effective_from, created_by, created_at
		 FROM billing_configs WHERE society_id = $1 ORDER BY effective_from DESC`, societyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Config
	for rows.Next() {
		var c Config
		if err := rows.Scan(&c.ID, &c.SocietyID, &c.Name, &c.AmountPaise, &c.EffectiveFrom, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// EffectiveConfigs returns the latest definition of each charge name as of t.
func (r *Repository) EffectiveConfigs(ctx context.Context, societyID string, asOf string) ([]Config, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT ON (name) id, society_id, name, amount_paise, effective_from, created_by, created_at
		 FROM billing_configs
		 WHERE society_id = $1 AND effective_from <= $2::date
		 ORDER BY name, effective_from DESC`, societyID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Config
	for rows.Next() {
		var c Config
		if err := rows.Scan(&c.ID, &c.SocietyID, &c.Name, &c.AmountPaise, &c.EffectiveFrom, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ActiveResidents lists approved resident accounts holding a flat.
func (r *Repository) ActiveResidents(ctx context.Context, societyID string) ([]Resident, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, flat_number FROM users
		 WHERE society_id = $1 AND status = 'approved' AND flat_number IS NOT NULL
		 ORDER BY flat_number`, societyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Resident
	for rows.Next() {
		var res Resident
		if err := rows.Scan(&res.UserID, &res.FlatNumber); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// CreateBill inserts one bill. A bill already generated for the same flat,
// config and period surfaces as a conflict for the run to count as skipped.
func (r *Repository) CreateBill(ctx context.Context, b *Bill) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO bills (id, society_id, user_id, flat_number, config_id, period, amount_paise, status, due_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ID, b.SocietyID, b.UserID, b.FlatNumber, b.ConfigID, b.Period, b.AmountPaise, b.Status, b.DueDate, b.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: bill already generated", httpx.ErrDuplicate)
		}
		return err
	}
	return nil
}

const billColumns = `id, society_id, user_id, flat_number, config_id, period, amount_paise, status,
	due_date, paid_at, COALESCE(payment_mode, ''), COALESCE(payment_ref, ''), created_at`

// GetBill loads one bill within the society partition.
func (r *Repository) GetBill(ctx context.Context, societyID, id string) (*Bill, error) {
	var b Bill
	err := r.pool.QueryRow(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = $1 AND society_id = $2`, id, societyID).
		Scan(&b.ID, &b.SocietyID, &b.UserID, &b.FlatNumber, &b.ConfigID, &b.Period, &b.AmountPaise,
			&b.Status, &b.DueDate, &b.PaidAt, &b.PaymentMode, &b.PaymentRef, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: bill %s", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	return &b, nil
}

// ListBills returns bills matching the filter.
func (r *Repository) ListBills(ctx context.Context, req ListBillsRequest) ([]Bill, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+billColumns+`, COUNT(*) OVER() AS total
		 FROM bills
		 WHERE society_id = $1
		   AND ($2 = '' OR user_id = $2)
		   AND ($3 = '' OR period = $3)
		   AND ($4 = '' OR status = $4)
		 ORDER BY period DESC, flat_number
		 LIMIT $5 OFFSET $6`,
		req.SocietyID, req.UserID, req.Period, req.Status, limit, req.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		out   []Bill
		total int
	)
	for rows.Next() {
		var b Bill
		if err := rows.Scan(&b.ID, &b.SocietyID, &b.UserID, &b.FlatNumber, &b.ConfigID, &b.Period,
			&b.AmountPaise, &b.Status, &b.DueDate, &b.PaidAt, &b.PaymentMode, &b.PaymentRef,
			&b.CreatedAt, &total); err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

// UpdateBill persists payment and status fields.
func (r *Repository) UpdateBill(ctx context.Context, b *Bill) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE bills SET status = $3, paid_at = $4, payment_mode = NULLIF($5, ''), payment_ref = NULLIF($6, '')
		 WHERE id = $1 AND society_id = $2`,
		b.ID, b.SocietyID, b.Status, b.PaidAt, b.PaymentMode, b.PaymentRef)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: bill %s", httpx.ErrNotFound, b.ID)
	}
	return nil
}
