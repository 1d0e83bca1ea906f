package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

// RepositoryPort defines data access for association management.
type RepositoryPort interface {
	Subject(ctx context.Context, userID string) (Subject, error)
	SaveAssociations(ctx context.Context, userID string, assocs []RoleAssociation) error
}

// Auditor records administrative RBAC mutations durably.
type Auditor interface {
	Record(ctx context.Context, actorID, societyID, action, entity, entityID string, meta map[string]any)
}

// Service orchestrates role-association management. Administration is itself
// a feature gated through the resolver: only actors allowed manageRoles may
// assign or revoke for other users.
type Service struct {
	repo     RepositoryPort
	resolver *Resolver
	audit    Auditor
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, resolver *Resolver, audit Auditor) *Service {
	return &Service{repo: repo, resolver: resolver, audit: audit, now: time.Now}
}

// AssignRequest describes a new association.
type AssignRequest struct {
	UserID            string              `json:"userId" validate:"required"`
	Role              Role                `json:"role" validate:"required"`
	SocietyID         string              `json:"societyId" validate:"required"`
	FlatNumber        string              `json:"flatNumber,omitempty"`
	ExpiresAt         *time.Time          `json:"expiresAt,omitempty"`
	CustomPermissions map[string][]string `json:"customPermissions,omitempty"`
}

// Assign creates a new active association for a user.
func (s *Service) Assign(ctx context.Context, actor Subject, platform Platform, req AssignRequest) (RoleAssociation, error) {
	if err := s.authorizeAdmin(ctx, actor, platform, req.SocietyID); err != nil {
		return RoleAssociation{}, err
	}
	if !KnownRole(req.Role) {
		return RoleAssociation{}, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, req.Role)
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return RoleAssociation{}, fmt.Errorf("%w: expiry must be in the future", httpx.ErrValidation)
	}

	sub, err := s.subject(ctx, req.UserID)
	if err != nil {
		return RoleAssociation{}, err
	}

	assoc := RoleAssociation{
		ID:                uuid.NewString(),
		UserID:            req.UserID,
		Role:              req.Role,
		SocietyID:         req.SocietyID,
		FlatNumber:        strings.TrimSpace(req.FlatNumber),
		IsActive:          true,
		AssignedAt:        s.now().UTC(),
		ExpiresAt:         req.ExpiresAt,
		AssignedBy:        actor.UserID,
		CustomPermissions: req.CustomPermissions,
	}
	assocs := append(sub.Associations, assoc)
	if err := s.repo.SaveAssociations(ctx, req.UserID, assocs); err != nil {
		return RoleAssociation{}, err
	}

	s.recordAudit(ctx, actor.UserID, req.SocietyID, "rbac.assign", assoc.ID, map[string]any{
		"user_id": req.UserID,
		"role":    string(req.Role),
	})
	return assoc, nil
}

// Revoke deactivates an association. History is preserved; nothing is deleted.
func (s *Service) Revoke(ctx context.Context, actor Subject, platform Platform, userID, associationID string) error {
	sub, err := s.subject(ctx, userID)
	if err != nil {
		return err
	}
	idx := -1
	for i, a := range sub.Associations {
		if a.ID == associationID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: association %s", httpx.ErrNotFound, associationID)
	}
	if err := s.authorizeAdmin(ctx, actor, platform, sub.Associations[idx].SocietyID); err != nil {
		return err
	}
	if !sub.Associations[idx].IsActive {
		return nil
	}
	sub.Associations[idx].IsActive = false
	if err := s.repo.SaveAssociations(ctx, userID, sub.Associations); err != nil {
		return err
	}

	s.recordAudit(ctx, actor.UserID, sub.Associations[idx].SocietyID, "rbac.revoke", associationID, map[string]any{
		"user_id": userID,
		"role":    string(sub.Associations[idx].Role),
	})
	return nil
}

// ListEffective returns the user's active, non-expired associations,
// optionally filtered to one society.
func (s *Service) ListEffective(ctx context.Context, userID, societyID string) ([]RoleAssociation, error) {
	sub, err := s.subject(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]RoleAssociation, 0, len(sub.Associations))
	for _, a := range sub.Associations {
		if !a.EffectiveAt(now) {
			continue
		}
		if societyID != "" && a.SocietyID != societyID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Service) authorizeAdmin(ctx context.Context, actor Subject, platform Platform, societyID string) error {
	decision, err := s.resolver.Evaluate(ctx, actor, Access{
		Feature:   FeatureManageRoles,
		SocietyID: societyID,
		Platform:  platform,
	})
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return fmt.Errorf("%w: role administration", httpx.ErrForbidden)
	}
	return nil
}

// subject loads a user's evaluation view, translating a missing record into
// the HTTP error taxonomy at the service boundary.
func (s *Service) subject(ctx context.Context, userID string) (Subject, error) {
	sub, err := s.repo.Subject(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Subject{}, fmt.Errorf("%w: user %s", httpx.ErrNotFound, userID)
		}
		return Subject{}, err
	}
	return sub, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, societyID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, actorID, societyID, action, "role_association", entityID, meta)
}
