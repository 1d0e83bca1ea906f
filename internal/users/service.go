package users

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
	"github.com/nivaas-labs/nivaas/internal/rbac"
)

// RepositoryPort abstracts user persistence for the service layer.
type RepositoryPort interface {
	Create(ctx context.Context, u *User, passwordHash string) error
	Get(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, req ListRequest) ([]User, int, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}

// Auditor records administrative actions on user records.
type Auditor interface {
	Record(ctx context.Context, actorID, societyID, action, entity, entityID string, meta map[string]any)
}

// Service implements registration and approval workflows.
type Service struct {
	repo   RepositoryPort
	audit  Auditor
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the users service.
func NewService(repo RepositoryPort, audit Auditor, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// Register creates a pending account. The requested role is held on the
// record until an approver confirms it; no association is granted yet.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if !rbac.LoginEligible(req.Role) || rbac.SuperRole(req.Role) {
		return nil, fmt.Errorf("%w: role %q cannot self-register", httpx.ErrValidation, req.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:               uuid.NewString(),
		Email:            req.Email,
		Name:             req.Name,
		Phone:            req.Phone,
		Status:           StatusPending,
		PrimaryRole:      req.Role,
		SocietyID:        req.SocietyID,
		FlatNumber:       req.FlatNumber,
		RoleAssociations: []rbac.RoleAssociation{},
		CreatedAt:        s.now(),
		UpdatedAt:        s.now(),
	}
	if err := s.repo.Create(ctx, u, string(hash)); err != nil {
		return nil, err
	}
	s.logger.Info("registration received",
		slog.String("user_id", u.ID), slog.String("society_id", u.SocietyID))
	return u, nil
}

// Approve activates a pending account and grants its first role association.
// The approver may override the requested role.
func (s *Service) Approve(ctx context.Context, actorID, userID string, req ApproveRequest) (*User, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Status == StatusApproved {
		return nil, fmt.Errorf("%w: user %s already approved", httpx.ErrDuplicate, userID)
	}

	role := u.PrimaryRole
	if req.Role != "" {
		role = req.Role
	}
	if !rbac.KnownRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, role)
	}

	u.Status = StatusApproved
	u.RoleAssociations = append(u.RoleAssociations, rbac.RoleAssociation{
		ID:         uuid.NewString(),
		UserID:     u.ID,
		Role:       role,
		SocietyID:  u.SocietyID,
		FlatNumber: u.FlatNumber,
		IsActive:   true,
		AssignedAt: s.now(),
		AssignedBy: actorID,
	})
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.Record(ctx, actorID, u.SocietyID, "user.approve", "user", u.ID,
			map[string]any{"role": string(role)})
	}
	return u, nil
}

// Reject deletes a pending registration.
func (s *Service) Reject(ctx context.Context, actorID, userID string) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.Status == StatusApproved {
		return fmt.Errorf("%w: cannot reject an approved account", httpx.ErrValidation)
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.Record(ctx, actorID, u.SocietyID, "user.reject", "user", u.ID, nil)
	}
	return nil
}

// Get returns one user record.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.Get(ctx, id)
}

// List returns society members matching the filter.
func (s *Service) List(ctx context.Context, req ListRequest) ([]User, int, error) {
	return s.repo.List(ctx, req)
}

// UpdateProfile applies self-service edits to name and phone.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*User, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Phone != nil {
		u.Phone = *req.Phone
	}
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
