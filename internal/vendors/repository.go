package vendors

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

// Repository persists the vendor directory in postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const vendorColumns = `id, society_id, name, category, phone, COALESCE(email, ''), COALESCE(notes, ''),
	verified, added_by, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, v *Vendor) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO vendors (id, society_id, name, category, phone, email, notes, verified, added_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11)`,
		v.ID, v.SocietyID, v.Name, v.Category, v.Phone, v.Email, v.Notes, v.Verified, v.AddedBy, v.CreatedAt, v.UpdatedAt)
	return err
}

func (r *Repository) Get(ctx context.Context, societyID, id string) (*Vendor, error) {
	var v Vendor
	err := r.pool.QueryRow(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE id = $1 AND society_id = $2`, id, societyID).
		Scan(&v.ID, &v.SocietyID, &v.Name, &v.Category, &v.Phone, &v.Email, &v.Notes,
			&v.Verified, &v.AddedBy, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: vendor %s", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	return &v, nil
}

func (r *Repository) List(ctx context.Context, req ListRequest) ([]Vendor, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+vendorColumns+`, COUNT(*) OVER() AS total
		 FROM vendors
		 WHERE society_id = $1 AND ($2 = '' OR category = $2)
		 ORDER BY verified DESC, name
		 LIMIT $3 OFFSET $4`,
		req.SocietyID, req.Category, limit, req.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		out   []Vendor
		total int
	)
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.ID, &v.SocietyID, &v.Name, &v.Category, &v.Phone, &v.Email, &v.Notes,
			&v.Verified, &v.AddedBy, &v.CreatedAt, &v.UpdatedAt, &total); err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, v *Vendor) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE vendors SET name = $3, category = $4, phone = $5, email = NULLIF($6, ''), notes = NULLIF($7, ''), verified = $8, updated_at = $9
		 WHERE id = $1 AND society_id = $2`,
		v.ID, v.SocietyID, v.Name, v.Category, v.Phone, v.Email, v.Notes, v.Verified, v.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: vendor %s", httpx.ErrNotFound, v.ID)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, societyID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM vendors WHERE id = $1 AND society_id = $2`, id, societyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: vendor %s", httpx.ErrNotFound, id)
	}
	return nil
}
