package notices

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

// RepositoryPort abstracts notice persistence.
type RepositoryPort interface {
	Create(ctx context.Context, n *Notice) error
	Get(ctx context.Context, societyID, id string) (*Notice, error)
	List(ctx context.Context, req ListRequest) ([]Notice, int, error)
	Update(ctx context.Context, n *Notice) error
	Delete(ctx context.Context, societyID, id string) error
}

// Auditor records notice-board changes.
type Auditor interface {
	Record(ctx context.Context, actorID, societyID, action, entity, entityID string, meta map[string]any)
}

// Service implements notice-board business rules.
type Service struct {
	repo  RepositoryPort
	audit Auditor
	now   func() time.Time
}

// NewService constructs the notices service.
func NewService(repo RepositoryPort, audit Auditor) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// Publish creates a notice on the society board.
func (s *Service) Publish(ctx context.Context, actorID, societyID string, req CreateRequest) (*Notice, error) {
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, fmt.Errorf("%w: expiry must be in the future", httpx.ErrValidation)
	}
	category := req.Category
	if category == "" {
		category = CategoryGeneral
	}
	n := &Notice{
		ID:          uuid.NewString(),
		SocietyID:   societyID,
		Title:       req.Title,
		Body:        req.Body,
		Category:    category,
		Pinned:      req.Pinned,
		PublishedBy: actorID,
		ExpiresAt:   req.ExpiresAt,
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.Record(ctx, actorID, societyID, "notice.publish", "notice", n.ID,
			map[string]any{"category": category})
	}
	return n, nil
}

// Get returns one notice within the society partition.
func (s *Service) Get(ctx context.Context, societyID, id string) (*Notice, error) {
	return s.repo.Get(ctx, societyID, id)
}

// List returns board notices for a society.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Notice, int, error) {
	return s.repo.List(ctx, req)
}

// Edit applies partial updates to an existing notice.
func (s *Service) Edit(ctx context.Context, actorID, societyID, id string, req UpdateRequest) (*Notice, error) {
	n, err := s.repo.Get(ctx, societyID, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		n.Title = *req.Title
	}
	if req.Body != nil {
		n.Body = *req.Body
	}
	if req.Category != nil {
		n.Category = *req.Category
	}
	if req.Pinned != nil {
		n.Pinned = *req.Pinned
	}
	if req.ExpiresAt != nil {
		n.ExpiresAt = req.ExpiresAt
	}
	n.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.Record(ctx, actorID, societyID, "notice.edit", "notice", n.ID, nil)
	}
	return n, nil
}

// Remove deletes a notice from the board.
func (s *Service) Remove(ctx context.Context, actorID, societyID, id string) error {
	if err := s.repo.Delete(ctx, societyID, id); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.Record(ctx, actorID, societyID, "notice.remove", "notice", id, nil)
	}
	return nil
}
