package vendors

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RepositoryPort abstracts vendor persistence.
type RepositoryPort interface {
	Create(ctx context.Context, v *Vendor) error
	Get(ctx context.Context, societyID, id string) (*Vendor, error)
	List(ctx context.Context, req ListRequest) ([]Vendor, int, error)
	Update(ctx context.Context, v *Vendor) error
	Delete(ctx context.Context, societyID, id string) error
}

// Service implements the vendor directory.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService constructs the vendors service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Add lists a vendor in the directory.
func (s *Service) Add(ctx context.Context, actorID, societyID string, req UpsertRequest) (*Vendor, error) {
	v := &Vendor{
		ID:        uuid.NewString(),
		SocietyID: societyID,
		Name:      req.Name,
		Category:  req.Category,
		Phone:     req.Phone,
		Email:     req.Email,
		Notes:     req.Notes,
		Verified:  req.Verified,
		AddedBy:   actorID,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Get returns one vendor within the society partition.
func (s *Service) Get(ctx context.Context, societyID, id string) (*Vendor, error) {
	return s.repo.Get(ctx, societyID, id)
}

// List returns directory entries matching the filter.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Vendor, int, error) {
	return s.repo.List(ctx, req)
}

// Replace overwrites a directory entry.
func (s *Service) Replace(ctx context.Context, societyID, id string, req UpsertRequest) (*Vendor, error) {
	v, err := s.repo.Get(ctx, societyID, id)
	if err != nil {
		return nil, err
	}
	v.Name = req.Name
	v.Category = req.Category
	v.Phone = req.Phone
	v.Email = req.Email
	v.Notes = req.Notes
	v.Verified = req.Verified
	v.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Remove delists a vendor.
func (s *Service) Remove(ctx context.Context, societyID, id string) error {
	return s.repo.Delete(ctx, societyID, id)
}
