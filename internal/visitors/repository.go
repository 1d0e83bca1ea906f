package visitors

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

// Repository persists gate passes in postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const passColumns = `id, society_id, resident_id, flat_number, visitor_name, COALESCE(visitor_phone, ''),
	COALESCE(purpose, ''), code, status, valid_from, valid_until, checked_in_at, checked_out_at, created_at, updated_at`

func scanPass(row pgx.Row) (*GatePass, error) {
	var p GatePass
	err := row.Scan(&p.ID, &p.SocietyID, &p.ResidentID, &p.FlatNumber, &p.VisitorName, &p.VisitorPhone,
		&p.Purpose, &p.Code, &p.Status, &p.ValidFrom, &p.ValidUntil, &p.CheckedInAt, &p.CheckedOutAt,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) Create(ctx context.Context, p *GatePass) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO gate_passes (id, society_id, resident_id, flat_number, visitor_name, visitor_phone,
			purpose, code, status, valid_from, valid_until, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11, $12, $13)`,
		p.ID, p.SocietyID, p.ResidentID, p.FlatNumber, p.VisitorName, p.VisitorPhone,
		p.Purpose, p.Code, p.Status, p.ValidFrom, p.ValidUntil, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *Repository) Get(ctx context.Context, societyID, id string) (*GatePass, error) {
	p, err := scanPass(r.pool.QueryRow(ctx,
		`SELECT `+passColumns+` FROM gate_passes WHERE id = $1 AND society_id = $2`, id, societyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: gate pass %s", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	return p, nil
}

// FindByCode looks a pass up by its gate code within a society.
func (r *Repository) FindByCode(ctx context.Context, societyID, code string) (*GatePass, error) {
	p, err := scanPass(r.pool.QueryRow(ctx,
		`SELECT `+passColumns+` FROM gate_passes WHERE society_id = $1 AND code = $2`, societyID, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: gate pass code", httpx.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context, req ListRequest) ([]GatePass, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+passColumns+`, COUNT(*) OVER() AS total
		 FROM gate_passes
		 WHERE society_id = $1
		   AND ($2 = '' OR resident_id = $2)
		   AND ($3 = '' OR status = $3)
		 ORDER BY created_at DESC
		 LIMIT $4 OFFSET $5`,
		req.SocietyID, req.ResidentID, req.Status, limit, req.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		out   []GatePass
		total int
	)
	for rows.Next() {
		var p GatePass
		if err := rows.Scan(&p.ID, &p.SocietyID, &p.ResidentID, &p.FlatNumber, &p.VisitorName, &p.VisitorPhone,
			&p.Purpose, &p.Code, &p.Status, &p.ValidFrom, &p.ValidUntil, &p.CheckedInAt, &p.CheckedOutAt,
			&p.CreatedAt, &p.UpdatedAt, &total); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, p *GatePass) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE gate_passes SET status = $3, checked_in_at = $4, checked_out_at = $5, updated_at = $6
		 WHERE id = $1 AND society_id = $2`,
		p.ID, p.SocietyID, p.Status, p.CheckedInAt, p.CheckedOutAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: gate pass %s", httpx.ErrNotFound, p.ID)
	}
	return nil
}

// ExpireOverdue marks every pending pass whose window has lapsed. Returns the
// number of passes expired; used by the periodic sweep job.
func (r *Repository) ExpireOverdue(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE gate_passes SET status = $1, updated_at = NOW()
		 WHERE status = $2 AND valid_until <= NOW()`,
		StatusExpired, StatusPending)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
