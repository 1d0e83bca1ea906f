package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for the RBAC documents.
//
// User documents live in the users table with the association list as a JSONB
// column; feature flags are one row per (key, society_id) with the flag body
// as JSONB. All writes are single-row upserts, matching the last-writer-wins
// semantics of the original document store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Subject loads the evaluation view of one user.
func (r *Repository) Subject(ctx context.Context, userID string) (Subject, error) {
	var (
		sub        Subject
		legacyRole *string
		societyID  *string
		assocJSON  []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, primary_role, society_id, role_associations FROM users WHERE id = $1`,
		userID).Scan(&sub.UserID, &legacyRole, &societyID, &assocJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subject{}, ErrNotFound
		}
		return Subject{}, err
	}
	if legacyRole != nil {
		sub.LegacyRole = Role(*legacyRole)
	}
	if societyID != nil {
		sub.LegacySocietyID = *societyID
	}
	if len(assocJSON) > 0 {
		if err := json.Unmarshal(assocJSON, &sub.Associations); err != nil {
			return Subject{}, fmt.Errorf("rbac: decode associations for %s: %w", userID, err)
		}
	}
	return sub, nil
}

// SaveAssociations replaces the association list on the user document.
func (r *Repository) SaveAssociations(ctx context.Context, userID string, assocs []RoleAssociation) error {
	data, err := json.Marshal(assocs)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET role_associations = $2, updated_at = NOW() WHERE id = $1`,
		userID, data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUnmigrated returns the next window of subjects whose documents still
// carry only the legacy single-role fields. The walk is keyset-paged on
// (created_at, id) so rows the migration could not convert never pin the
// selection in place. Pending registrations are excluded: they receive their
// first association at approval, not from the migration.
func (r *Repository) ListUnmigrated(ctx context.Context, after MigrationCursor, limit int) ([]Subject, MigrationCursor, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, COALESCE(primary_role, ''), COALESCE(society_id, ''), created_at
		 FROM users
		 WHERE (role_associations IS NULL OR jsonb_array_length(role_associations) = 0)
		   AND status = 'approved'
		   AND (created_at, id) > ($1, $2)
		 ORDER BY created_at, id
		 LIMIT $3`, after.CreatedAt, after.ID, limit)
	if err != nil {
		return nil, after, err
	}
	defer rows.Close()
	var subjects []Subject
	cursor := after
	for rows.Next() {
		var sub Subject
		var legacyRole, societyID string
		if err := rows.Scan(&sub.UserID, &legacyRole, &societyID, &cursor.CreatedAt); err != nil {
			return nil, after, err
		}
		sub.LegacyRole = Role(legacyRole)
		sub.LegacySocietyID = societyID
		cursor.ID = sub.UserID
		subjects = append(subjects, sub)
	}
	return subjects, cursor, rows.Err()
}

// SubjectsWithRole returns subjects holding the role in a society, via either
// an association or the legacy primary-role pair. Read-side only; used by the
// permission summary aggregation.
func (r *Repository) SubjectsWithRole(ctx context.Context, societyID string, role Role) ([]Subject, error) {
	match, err := json.Marshal([]map[string]string{{"societyId": societyID, "role": string(role)}})
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, COALESCE(primary_role, ''), COALESCE(society_id, ''), role_associations
		 FROM users
		 WHERE role_associations @> $1
		    OR (primary_role = $2 AND society_id = $3 AND jsonb_array_length(COALESCE(role_associations, '[]'::jsonb)) = 0)`,
		match, string(role), societyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subjects []Subject
	for rows.Next() {
		var (
			sub        Subject
			legacyRole string
			legacySoc  string
			assocJSON  []byte
		)
		if err := rows.Scan(&sub.UserID, &legacyRole, &legacySoc, &assocJSON); err != nil {
			return nil, err
		}
		sub.LegacyRole = Role(legacyRole)
		sub.LegacySocietyID = legacySoc
		if len(assocJSON) > 0 {
			if err := json.Unmarshal(assocJSON, &sub.Associations); err != nil {
				return nil, err
			}
		}
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// Flag loads one feature-flag document.
func (r *Repository) Flag(ctx context.Context, societyID, key string) (*FeatureFlag, error) {
	var body []byte
	err := r.pool.QueryRow(ctx,
		`SELECT flag FROM feature_flags WHERE society_id = $1 AND key = $2`,
		societyID, key).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var flag FeatureFlag
	if err := json.Unmarshal(body, &flag); err != nil {
		return nil, fmt.Errorf("rbac: decode flag %s/%s: %w", societyID, key, err)
	}
	return &flag, nil
}

// ListFlags returns every flag document for a society.
func (r *Repository) ListFlags(ctx context.Context, societyID string) ([]FeatureFlag, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT flag FROM feature_flags WHERE society_id = $1 ORDER BY key`, societyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var flags []FeatureFlag
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var flag FeatureFlag
		if err := json.Unmarshal(body, &flag); err != nil {
			return nil, err
		}
		flags = append(flags, flag)
	}
	return flags, rows.Err()
}

// UpsertFlag writes one flag document, last writer wins.
func (r *Repository) UpsertFlag(ctx context.Context, flag *FeatureFlag) error {
	body, err := json.Marshal(flag)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO feature_flags (key, society_id, flag, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (key, society_id) DO UPDATE SET flag = EXCLUDED.flag, updated_at = NOW()`,
		flag.Key, flag.SocietyID, body)
	return err
}

// SocietyTier returns the pricing tier of a society. Unknown societies fall
// back to the free tier rather than erroring; tier gating then decides.
func (r *Repository) SocietyTier(ctx context.Context, societyID string) (Tier, error) {
	var tier string
	err := r.pool.QueryRow(ctx,
		`SELECT tier FROM society_tiers WHERE society_id = $1`, societyID).Scan(&tier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TierFree, nil
		}
		return "", err
	}
	return Tier(tier), nil
}

var _ FlagStore = (*Repository)(nil)
var _ TierSource = (*Repository)(nil)

// touchTime is a helper for provenance fields on synthesized flags.
func touchTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
