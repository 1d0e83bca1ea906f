package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
	"github.com/nivaas-labs/nivaas/internal/rbac"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for user documents.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, COALESCE(phone, ''), status,
	COALESCE(primary_role, ''), COALESCE(society_id, ''), COALESCE(flat_number, ''),
	role_associations, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var (
		u         User
		role      string
		assocJSON []byte
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Status,
		&role, &u.SocietyID, &u.FlatNumber, &assocJSON, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.PrimaryRole = rbac.Role(role)
	if len(assocJSON) > 0 {
		if err := json.Unmarshal(assocJSON, &u.RoleAssociations); err != nil {
			return nil, fmt.Errorf("users: decode associations for %s: %w", u.ID, err)
		}
	}
	if u.RoleAssociations == nil {
		u.RoleAssociations = []rbac.RoleAssociation{}
	}
	return &u, nil
}

// Create inserts a new user document. Duplicate emails surface as conflicts.
func (r *Repository) Create(ctx context.Context, u *User, passwordHash string) error {
	assocJSON, err := json.Marshal(u.RoleAssociations)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO users (id, email, name, phone, password_hash, status, primary_role, society_id, flat_number, role_associations, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`,
		u.ID, u.Email, u.Name, nullable(u.Phone), passwordHash, u.Status,
		nullable(string(u.PrimaryRole)), nullable(u.SocietyID), nullable(u.FlatNumber), assocJSON)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: email already registered", httpx.ErrDuplicate)
		}
		return err
	}
	return nil
}

// Get loads one user document.
func (r *Repository) Get(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	return u, nil
}

// List returns users for a society, optionally filtered by status.
func (r *Repository) List(ctx context.Context, req ListRequest) ([]User, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+`, COUNT(*) OVER() AS total
		 FROM users
		 WHERE society_id = $1 AND ($2 = '' OR status = $2)
		 ORDER BY created_at DESC
		 LIMIT $3 OFFSET $4`,
		req.SocietyID, req.Status, limit, req.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		out   []User
		total int
	)
	for rows.Next() {
		var (
			u         User
			role      string
			assocJSON []byte
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Status,
			&role, &u.SocietyID, &u.FlatNumber, &assocJSON, &u.CreatedAt, &u.UpdatedAt, &total); err != nil {
			return nil, 0, err
		}
		u.PrimaryRole = rbac.Role(role)
		if len(assocJSON) > 0 {
			if err := json.Unmarshal(assocJSON, &u.RoleAssociations); err != nil {
				return nil, 0, err
			}
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// Update persists mutable profile and lifecycle fields plus the association
// list, a single-document upsert in the original store's sense.
func (r *Repository) Update(ctx context.Context, u *User) error {
	assocJSON, err := json.Marshal(u.RoleAssociations)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $2, phone = $3, status = $4, flat_number = $5, role_associations = $6, updated_at = NOW()
		 WHERE id = $1`,
		u.ID, u.Name, nullable(u.Phone), u.Status, nullable(u.FlatNumber), assocJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s", httpx.ErrNotFound, u.ID)
	}
	return nil
}

// Delete removes the whole record. Used only for registration rejection,
// an administrative action.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s", httpx.ErrNotFound, id)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
