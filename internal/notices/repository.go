package notices

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

// Repository persists notices in postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const noticeColumns = `id, society_id, title, body, category, pinned, published_by, expires_at, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, n *Notice) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notices (id, society_id, title, body, category, pinned, published_by, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		n.ID, n.SocietyID, n.Title, n.Body, n.Category, n.Pinned, n.PublishedBy, n.ExpiresAt, n.CreatedAt, n.UpdatedAt)
	return err
}

func (r *Repository) Get(ctx context.Context, societyID, id string) (*Notice, error) {
	var n Notice
	err := r.pool.QueryRow(ctx,
		`SELECT `+noticeColumns+` FROM notices WHERE id = $1 AND society_id = $2`, id, societyID).
		Scan(&n.ID, &n.SocietyID, &n.Title, &n.Body, &n.Category, &n.Pinned,
			&n.PublishedBy, &n.ExpiresAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: notice %s", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	return &n, nil
}

// List returns notices for a society, pinned first, newest next.
func (r *Repository) List(ctx context.Context, req ListRequest) ([]Notice, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+noticeColumns+`, COUNT(*) OVER() AS total
		 FROM notices
		 WHERE society_id = $1
		   AND ($2 = '' OR category = $2)
		   AND ($3 OR expires_at IS NULL OR expires_at > NOW())
		 ORDER BY pinned DESC, created_at DESC
		 LIMIT $4 OFFSET $5`,
		req.SocietyID, req.Category, req.IncludeExpired, limit, req.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		out   []Notice
		total int
	)
	for rows.Next() {
		var n Notice
		if err := rows.Scan(&n.ID, &n.SocietyID, &n.Title, &n.Body, &n.Category, &n.Pinned,
			&n.PublishedBy, &n.ExpiresAt, &n.CreatedAt, &n.UpdatedAt, &total); err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, n *Notice) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notices SET title = $3, body = $4, category = $5, pinned = $6, expires_at = $7, updated_at = $8
		 WHERE id = $1 AND society_id = $2`,
		n.ID, n.SocietyID, n.Title, n.Body, n.Category, n.Pinned, n.ExpiresAt, n.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: notice %s", httpx.ErrNotFound, n.ID)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, societyID, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM notices WHERE id = $1 AND society_id = $2`, id, societyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: notice %s", httpx.ErrNotFound, id)
	}
	return nil
}
