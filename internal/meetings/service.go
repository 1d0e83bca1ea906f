package meetings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

// RepositoryPort abstracts meeting persistence.
type RepositoryPort interface {
	Create(ctx context.Context, m *Meeting) error
	Get(ctx context.Context, societyID, id string) (*Meeting, error)
	List(ctx context.Context, req ListRequest) ([]Meeting, int, error)
	Update(ctx context.Context, m *Meeting) error
	SaveRSVP(ctx context.Context, v *RSVP) error
	ListRSVPs(ctx context.Context, meetingID string) ([]RSVP, error)
}

// Auditor records meeting actions.
type Auditor interface {
	Record(ctx context.Context, actorID, societyID, action, entity, entityID string, meta map[string]any)
}

// Service implements meeting scheduling and attendance.
type Service struct {
	repo  RepositoryPort
	audit Auditor
	now   func() time.Time
}

// NewService constructs the meetings service.
func NewService(repo RepositoryPort, audit Auditor) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// Schedule creates a meeting in the future.
func (s *Service) Schedule(ctx context.Context, actorID, societyID string, req ScheduleRequest) (*Meeting, error) {
	if !req.ScheduledAt.After(s.now()) {
		return nil, fmt.Errorf("%w: meeting must be scheduled in the future", httpx.ErrValidation)
	}
	m := &Meeting{
		ID:          uuid.NewString(),
		SocietyID:   societyID,
		Title:       req.Title,
		Agenda:      req.Agenda,
		Venue:       req.Venue,
		ScheduledAt: req.ScheduledAt,
		Status:      StatusScheduled,
		CreatedBy:   actorID,
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.Record(ctx, actorID, societyID, "meeting.schedule", "meeting", m.ID,
			map[string]any{"scheduled_at": m.ScheduledAt})
	}
	return m, nil
}

// Cancel calls a scheduled meeting off.
func (s *Service) Cancel(ctx context.Context, actorID, societyID, id string) (*Meeting, error) {
	m, err := s.repo.Get(ctx, societyID, id)
	if err != nil {
		return nil, err
	}
	if m.Status != StatusScheduled {
		return nil, fmt.Errorf("%w: only scheduled meetings can be cancelled", httpx.ErrValidation)
	}
	m.Status = StatusCancelled
	m.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.Record(ctx, actorID, societyID, "meeting.cancel", "meeting", m.ID, nil)
	}
	return m, nil
}

// Get returns one meeting within the society partition.
func (s *Service) Get(ctx context.Context, societyID, id string) (*Meeting, error) {
	return s.repo.Get(ctx, societyID, id)
}

// List returns meetings matching the filter.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Meeting, int, error) {
	return s.repo.List(ctx, req)
}

// Respond records a member's RSVP. Answers can change until the meeting
// starts; cancelled meetings take no answers.
func (s *Service) Respond(ctx context.Context, userID, societyID, meetingID string, req RSVPRequest) (*RSVP, error) {
	m, err := s.repo.Get(ctx, societyID, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status != StatusScheduled {
		return nil, fmt.Errorf("%w: meeting is %s", httpx.ErrValidation, m.Status)
	}
	if !m.ScheduledAt.After(s.now()) {
		return nil, fmt.Errorf("%w: meeting has already started", httpx.ErrValidation)
	}
	v := &RSVP{
		MeetingID:   meetingID,
		UserID:      userID,
		Response:    req.Response,
		RespondedAt: s.now(),
	}
	if err := s.repo.SaveRSVP(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Attendance returns the RSVP sheet for a meeting.
func (s *Service) Attendance(ctx context.Context, societyID, meetingID string) ([]RSVP, error) {
	if _, err := s.repo.Get(ctx, societyID, meetingID); err != nil {
		return nil, err
	}
	return s.repo.ListRSVPs(ctx, meetingID)
}
