package complaints

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

// RepositoryPort abstracts complaint persistence.
type RepositoryPort interface {
	Create(ctx context.Context, c *Complaint) error
	Get(ctx context.Context, societyID, id string) (*Complaint, error)
	List(ctx context.Context, req ListRequest) ([]Complaint, int, error)
	Update(ctx context.Context, c *Complaint) error
}

// Auditor records complaint lifecycle events.
type Auditor interface {
	Record(ctx context.Context, actorID, societyID, action, entity, entityID string, meta map[string]any)
}

// Service implements the complaint workflow.
type Service struct {
	repo  RepositoryPort
	audit Auditor
	now   func() time.Time
}

// NewService constructs the complaints service.
func NewService(repo RepositoryPort, audit Auditor) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// Raise files a new complaint in the open state.
func (s *Service) Raise(ctx context.Context, actorID, societyID string, req RaiseRequest) (*Complaint, error) {
	c := &Complaint{
		ID:          uuid.NewString(),
		SocietyID:   societyID,
		RaisedBy:    actorID,
		FlatNumber:  req.FlatNumber,
		Category:    req.Category,
		Subject:     req.Subject,
		Description: req.Description,
		Status:      StatusOpen,
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.Record(ctx, actorID, societyID, "complaint.raise", "complaint", c.ID,
			map[string]any{"category": c.Category})
	}
	return c, nil
}

// Get returns one complaint within the society partition.
func (s *Service) Get(ctx context.Context, societyID, id string) (*Complaint, error) {
	return s.repo.Get(ctx, societyID, id)
}

// List returns complaints matching the filter.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Complaint, int, error) {
	return s.repo.List(ctx, req)
}

// Transition moves a complaint through its lifecycle. Illegal moves are
// rejected; resolving requires a resolution note.
func (s *Service) Transition(ctx context.Context, actorID, societyID, id string, req TransitionRequest) (*Complaint, error) {
	c, err := s.repo.Get(ctx, societyID, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(c.Status, req.Status) {
		return nil, fmt.Errorf("%w: cannot move complaint from %s to %s", httpx.ErrValidation, c.Status, req.Status)
	}
	if req.Status == StatusResolved && req.Resolution == "" {
		return nil, fmt.Errorf("%w: resolution note required", httpx.ErrValidation)
	}

	prev := c.Status
	c.Status = req.Status
	if req.AssignedTo != "" {
		c.AssignedTo = req.AssignedTo
	}
	switch req.Status {
	case StatusResolved:
		c.Resolution = req.Resolution
		t := s.now()
		c.ResolvedAt = &t
	case StatusOpen:
		// Reopened: the previous resolution no longer stands.
		c.Resolution = ""
		c.ResolvedAt = nil
	}
	c.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.Record(ctx, actorID, societyID, "complaint.transition", "complaint", c.ID,
			map[string]any{"from": prev, "to": c.Status})
	}
	return c, nil
}
