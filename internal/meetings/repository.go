package meetings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

// Repository persists meetings and RSVPs in postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const meetingColumns = `id, society_id, title, COALESCE(agenda, ''), venue, scheduled_at, status, created_by, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, m *Meeting) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO meetings (id, society_id, title, agenda, venue, scheduled_at, status, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10)`,
		m.ID, m.SocietyID, m.Title, m.Agenda, m.Venue, m.ScheduledAt, m.Status, m.CreatedBy, m.CreatedAt, m.UpdatedAt)
	return err
}

func (r *Repository) Get(ctx context.Context, societyID, id string) (*Meeting, error) {
	var m Meeting
	err := r.pool.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = $1 AND society_id = $2`, id, societyID).
		Scan(&m.ID, &m.SocietyID, &m.Title, &m.Agenda, &m.Venue, &m.ScheduledAt, &m.Status,
			&m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: meeting %s", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	return &m, nil
}

func (r *Repository) List(ctx context.Context, req ListRequest) ([]Meeting, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+meetingColumns+`, COUNT(*) OVER() AS total
		 FROM meetings
		 WHERE society_id = $1
		   AND ($2 = '' OR status = $2)
		   AND (NOT $3 OR scheduled_at > NOW())
		 ORDER BY scheduled_at
		 LIMIT $4 OFFSET $5`,
		req.SocietyID, req.Status, req.Upcoming, limit, req.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		out   []Meeting
		total int
	)
	for rows.Next() {
		var m Meeting
		if err := rows.Scan(&m.ID, &m.SocietyID, &m.Title, &m.Agenda, &m.Venue, &m.ScheduledAt,
			&m.Status, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt, &total); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, m *Meeting) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE meetings SET title = $3, agenda = NULLIF($4, ''), venue = $5, scheduled_at = $6, status = $7, updated_at = $8
		 WHERE id = $1 AND society_id = $2`,
		m.ID, m.SocietyID, m.Title, m.Agenda, m.Venue, m.ScheduledAt, m.Status, m.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: meeting %s", httpx.ErrNotFound, m.ID)
	}
	return nil
}

// SaveRSVP records or replaces a member's answer.
func (r *Repository) SaveRSVP(ctx context.Context, v *RSVP) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO meeting_rsvps (meeting_id, user_id, response, responded_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (meeting_id, user_id) DO UPDATE SET response = $3, responded_at = $4`,
		v.MeetingID, v.UserID, v.Response, v.RespondedAt)
	return err
}

// ListRSVPs returns answers for a meeting.
func (r *Repository) ListRSVPs(ctx context.Context, meetingID string) ([]RSVP, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT meeting_id, user_id, response, responded_at
		 FROM meeting_rsvps WHERE meeting_id = $1 ORDER BY responded_at`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RSVP
	for rows.Next() {
		var v RSVP
		if err := rows.Scan(&v.MeetingID, &v.UserID, &v.Response, &v.RespondedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
