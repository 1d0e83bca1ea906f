package complaints

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

// Repository persists complaints in postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const complaintColumns = `id, society_id, raised_by, COALESCE(flat_number, ''), category, subject, description,
	status, COALESCE(assigned_to, ''), COALESCE(resolution, ''), created_at, updated_at, resolved_at`

func scanComplaint(row pgx.Row) (*Complaint, error) {
	var c Complaint
	err := row.Scan(&c.ID, &c.SocietyID, &c.RaisedBy, &c.FlatNumber, &c.Category, &c.Subject,
		&c.Description, &c.Status, &c.AssignedTo, &c.Resolution, &c.CreatedAt, &c.UpdatedAt, &c.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) Create(ctx context.Context, c *Complaint) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO complaints (id, society_id, raised_by, flat_number, category, subject, description, status, created_at, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10)`,
		c.ID, c.SocietyID, c.RaisedBy, c.FlatNumber, c.Category, c.Subject, c.Description,
		c.Status, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *Repository) Get(ctx context.Context, societyID, id string) (*Complaint, error) {
	c, err := scanComplaint(r.pool.QueryRow(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE id = $1 AND society_id = $2`, id, societyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: complaint %s", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	return c, nil
}

func (r *Repository) List(ctx context.Context, req ListRequest) ([]Complaint, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+complaintColumns+`, COUNT(*) OVER() AS total
		 FROM complaints
		 WHERE society_id = $1
		   AND ($2 = '' OR status = $2)
		   AND ($3 = '' OR category = $3)
		   AND ($4 = '' OR raised_by = $4)
		 ORDER BY created_at DESC
		 LIMIT $5 OFFSET $6`,
		req.SocietyID, req.Status, req.Category, req.RaisedBy, limit, req.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		out   []Complaint
		total int
	)
	for rows.Next() {
		var c Complaint
		if err := rows.Scan(&c.ID, &c.SocietyID, &c.RaisedBy, &c.FlatNumber, &c.Category, &c.Subject,
			&c.Description, &c.Status, &c.AssignedTo, &c.Resolution, &c.CreatedAt, &c.UpdatedAt, &c.ResolvedAt, &total); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, c *Complaint) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE complaints SET status = $3, assigned_to = NULLIF($4, ''), resolution = NULLIF($5, ''), updated_at = $6, resolved_at = $7
		 WHERE id = $1 AND society_id = $2`,
		c.ID, c.SocietyID, c.Status, c.AssignedTo, c.Resolution, c.UpdatedAt, c.ResolvedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: complaint %s", httpx.ErrNotFound, c.ID)
	}
	return nil
}
