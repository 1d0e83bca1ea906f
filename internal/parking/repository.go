package parking

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

// Repository persists parking slots in postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const slotColumns = `id, society_id, slot_number, COALESCE(level, ''), kind, status,
	COALESCE(allocated_to, ''), COALESCE(flat_number, ''), allocated_at, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, s *Slot) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO parking_slots (id, society_id, slot_number, level, kind, status, created_at, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)`,
		s.ID, s.SocietyID, s.SlotNumber, s.Level, s.Kind, s.Status, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: slot %s already exists", httpx.ErrDuplicate, s.SlotNumber)
		}
		return err
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, societyID, id string) (*Slot, error) {
	var s Slot
	err := r.pool.QueryRow(ctx,
		`SELECT `+slotColumns+` FROM parking_slots WHERE id = $1 AND society_id = $2`, id, societyID).
		Scan(&s.ID, &s.SocietyID, &s.SlotNumber, &s.Level, &s.Kind, &s.Status,
			&s.AllocatedTo, &s.FlatNumber, &s.AllocatedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: slot %s", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repository) List(ctx context.Context, req ListRequest) ([]Slot, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+slotColumns+`, COUNT(*) OVER() AS total
		 FROM parking_slots
		 WHERE society_id = $1
		   AND ($2 = '' OR status = $2)
		   AND ($3 = '' OR kind = $3)
		 ORDER BY slot_number
		 LIMIT $4 OFFSET $5`,
		req.SocietyID, req.Status, req.Kind, limit, req.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		out   []Slot
		total int
	)
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.ID, &s.SocietyID, &s.SlotNumber, &s.Level, &s.Kind, &s.Status,
			&s.AllocatedTo, &s.FlatNumber, &s.AllocatedAt, &s.CreatedAt, &s.UpdatedAt, &total); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// Allocate claims a free slot atomically. The status predicate makes a
// concurrent double-allocation lose with zero rows affected.
func (r *Repository) Allocate(ctx context.Context, s *Slot) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE parking_slots SET status = $3, allocated_to = $4, flat_number = $5, allocated_at = $6, updated_at = $7
		 WHERE id = $1 AND society_id = $2 AND status = $8`,
		s.ID, s.SocietyID, s.Status, s.AllocatedTo, s.FlatNumber, s.AllocatedAt, s.UpdatedAt, SlotFree)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: slot is occupied", httpx.ErrDuplicate)
	}
	return nil
}

// Release frees an allocated slot.
func (r *Repository) Release(ctx context.Context, societyID, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE parking_slots SET status = $3, allocated_to = NULL, flat_number = NULL, allocated_at = NULL, updated_at = NOW()
		 WHERE id = $1 AND society_id = $2 AND status = $4`,
		id, societyID, SlotFree, SlotAllocated)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: slot %s is not allocated", httpx.ErrNotFound, id)
	}
	return nil
}
